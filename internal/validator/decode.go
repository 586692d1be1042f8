package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"MICDataset/internal/domain"
)

// ExtractJSON cuts the JSON document out of a model answer that may carry fences or prose.
func ExtractJSON(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", false
	}

	if i := strings.Index(text, "```json"); i >= 0 {
		return trimFence(text[i+len("```json"):]), true
	}
	if i := strings.Index(text, "```"); i >= 0 {
		body := trimFence(text[i+3:])
		if strings.HasPrefix(body, "[") || strings.HasPrefix(body, "{") {
			return body, true
		}
	}

	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexAny(text, "]}")
	if end < start {
		return text[start:], true
	}
	return text[start : end+1], true
}

func trimFence(body string) string {
	if j := strings.Index(body, "```"); j >= 0 {
		body = body[:j]
	}
	return strings.TrimSpace(body)
}

// EventsKey wraps the event array when the backend only allows an object at the top level.
const EventsKey = "events"

// Decode turns a raw model answer into candidate field maps.
// An object yields one candidate; an array or an {"events": [...]} wrapper yields one per element
// and nested arrays are flattened.
func Decode(raw string) ([]map[string]any, error) {
	doc, ok := ExtractJSON(raw)
	if !ok {
		return nil, domain.Violation(domain.ErrSchemaViolation, "no JSON document in response")
	}

	value, err := decodeLoose(doc)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSchemaViolation, "decode response", err)
	}

	var out []map[string]any
	if err := collect(value, 0, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.Violation(domain.ErrSchemaViolation, "response contains no objects")
	}
	return out, nil
}

func decodeLoose(doc string) (any, error) {
	value, err := decodeStrict(doc)
	if err == nil {
		return value, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(doc)
	if repairErr != nil {
		return nil, fmt.Errorf("repair json: %w", repairErr)
	}
	return decodeStrict(repaired)
}

func decodeStrict(doc string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return value, nil
}

func collect(value any, depth int, out *[]map[string]any) error {
	switch v := value.(type) {
	case map[string]any:
		if events, ok := v[EventsKey].([]any); ok && len(v) == 1 {
			return collect(events, depth, out)
		}
		*out = append(*out, v)
		return nil
	case []any:
		if depth > 1 {
			return domain.Violation(domain.ErrSchemaViolation, "response arrays nested too deeply")
		}
		for _, item := range v {
			if err := collect(item, depth+1, out); err != nil {
				return err
			}
		}
		return nil
	default:
		return domain.Violation(domain.ErrSchemaViolation, "response element is %T, want object", value)
	}
}
