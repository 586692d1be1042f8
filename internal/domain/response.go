package domain

import "time"

// ClassificationResponse is an accepted classifier answer for one article.
// Field order is the canonical serialization order of the assistant turn.
type ClassificationResponse struct {
	ArticleID                int64    `json:"article_id"`
	IsRelevant               bool     `json:"is_relevant"`
	StartYear                *int     `json:"start_year"`
	StartMonth               *int     `json:"start_month"`
	StartDay                 *int     `json:"start_day"`
	EndYear                  *int     `json:"end_year"`
	EndMonth                 *int     `json:"end_month"`
	EndDay                   *int     `json:"end_day"`
	FatalitiesMin            *int     `json:"fatalities_min"`
	FatalitiesMax            *int     `json:"fatalities_max"`
	CountriesSufferingLosses []string `json:"countries_suffering_losses"`
	CountriesCausingLosses   []string `json:"countries_causing_losses"`
	Explanation              string   `json:"explanation"`
}

// RawResponse is the undecoded classifier output for one article.
type RawResponse struct {
	ArticleID int64
	Payload   string
}

// Rejection is one entry of the rejection log.
type Rejection struct {
	RunID      string    `json:"run_id"`
	ArticleID  int64     `json:"article_id"`
	Kind       ErrorKind `json:"kind"`
	Reason     string    `json:"reason"`
	RawPayload string    `json:"raw_payload,omitempty"`
	At         time.Time `json:"at"`
}

// Turn is one message of a training conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TrainingExample is one conversational record of the dataset.
type TrainingExample struct {
	ArticleID     int64  `json:"-"`
	Conversations []Turn `json:"conversations"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ClassificationRequest is what the invoker hands to a classifier backend.
type ClassificationRequest struct {
	ArticleID int64
	System    string
	User      string
}
