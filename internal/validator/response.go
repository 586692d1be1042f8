package validator

import "MICDataset/internal/domain"

// Outcome is the verdict on one candidate object of a model answer.
type Outcome struct {
	Response domain.ClassificationResponse
	Err      error
}

// Accepted reports whether the candidate passed validation.
func (o Outcome) Accepted() bool {
	return o.Err == nil
}

// ValidateResponse decodes a raw answer and validates every candidate it contains.
// Undecodable answers produce a single rejected outcome.
func ValidateResponse(raw domain.RawResponse) []Outcome {
	candidates, err := Decode(raw.Payload)
	if err != nil {
		return []Outcome{{Err: err}}
	}

	outcomes := make([]Outcome, 0, len(candidates))
	for _, fields := range candidates {
		resp, err := Validate(fields, raw.ArticleID)
		outcomes = append(outcomes, Outcome{Response: resp, Err: err})
	}
	return outcomes
}
