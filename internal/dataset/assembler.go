package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"MICDataset/internal/domain"
)

// TurnRenderer produces the system and user turns of a conversation.
type TurnRenderer interface {
	System() string
	UserTurn(article domain.FilteredArticle) (string, error)
}

// Assembler turns accepted responses into conversational training examples.
type Assembler struct {
	turns TurnRenderer
}

func NewAssembler(turns TurnRenderer) *Assembler {
	return &Assembler{turns: turns}
}

// Result is the output of one assembly pass.
type Result struct {
	Examples []domain.TrainingExample
	// MissingArticles lists responses whose article could not be found.
	MissingArticles []int64
	// Duplicates lists responses dropped because an earlier one had the same article_id.
	Duplicates []int64
}

// Assemble builds one example per article_id in ascending order. When the ledger holds
// more than one response for an article the first one wins.
func (a *Assembler) Assemble(responses []domain.ClassificationResponse, articles map[int64]domain.FilteredArticle) (Result, error) {
	var res Result
	byID := make(map[int64]domain.ClassificationResponse, len(responses))
	for _, resp := range responses {
		if _, seen := byID[resp.ArticleID]; seen {
			res.Duplicates = append(res.Duplicates, resp.ArticleID)
			continue
		}
		byID[resp.ArticleID] = resp
	}

	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	system := a.turns.System()
	res.Examples = make([]domain.TrainingExample, 0, len(ids))
	for _, id := range ids {
		article, ok := articles[id]
		if !ok {
			res.MissingArticles = append(res.MissingArticles, id)
			continue
		}
		user, err := a.turns.UserTurn(article)
		if err != nil {
			return Result{}, err
		}
		assistant, err := AssistantTurn(byID[id])
		if err != nil {
			return Result{}, err
		}
		res.Examples = append(res.Examples, domain.TrainingExample{
			ArticleID: id,
			Conversations: []domain.Turn{
				{Role: domain.RoleSystem, Content: system},
				{Role: domain.RoleUser, Content: user},
				{Role: domain.RoleAssistant, Content: assistant},
			},
		})
	}
	return res, nil
}

// AssistantTurn serializes a response in its canonical field order.
func AssistantTurn(resp domain.ClassificationResponse) (string, error) {
	if resp.CountriesSufferingLosses == nil {
		resp.CountriesSufferingLosses = []string{}
	}
	if resp.CountriesCausingLosses == nil {
		resp.CountriesCausingLosses = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return "", fmt.Errorf("encode response %d: %w", resp.ArticleID, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
