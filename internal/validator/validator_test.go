package validator

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"MICDataset/internal/domain"
)

const relevantPayload = `{
  "article_id": 101,
  "is_relevant": true,
  "start_year": 1988,
  "start_month": 4,
  "start_day": 18,
  "end_year": 1988,
  "end_month": -9,
  "end_day": -9,
  "fatalities_min": 2,
  "fatalities_max": 5,
  "countries_suffering_losses": ["Iran"],
  "countries_causing_losses": ["United States of America"],
  "explanation": "US naval forces engaged Iranian frigates."
}`

func fieldsFrom(t *testing.T, payload string, edits map[string]any) map[string]any {
	t.Helper()

	candidates, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	fields := candidates[0]
	for k, v := range edits {
		if v == deleteKey {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}
	return fields
}

type marker struct{}

var deleteKey = marker{}

func TestValidateAcceptsRelevant(t *testing.T) {
	t.Parallel()

	resp, err := Validate(fieldsFrom(t, relevantPayload, nil), 101)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !resp.IsRelevant || resp.ArticleID != 101 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.EndMonth != nil || resp.EndDay != nil {
		t.Fatalf("unknown date parts must decode as absent")
	}
	if *resp.StartYear != 1988 || *resp.FatalitiesMax != 5 {
		t.Fatalf("unexpected values: %+v", resp)
	}
}

func TestValidateAcceptsNotRelevant(t *testing.T) {
	t.Parallel()

	payload := `{"article_id": 7, "is_relevant": false, "start_year": null, "start_month": null,
	"start_day": null, "end_year": null, "end_month": null, "end_day": null,
	"fatalities_min": null, "fatalities_max": null, "countries_suffering_losses": [],
	"countries_causing_losses": [], "explanation": "Domestic politics only."}`

	resp, err := Validate(fieldsFrom(t, payload, nil), 7)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if resp.IsRelevant {
		t.Fatalf("expected not relevant")
	}
	if resp.CountriesCausingLosses == nil || resp.CountriesSufferingLosses == nil {
		t.Fatalf("country lists must never be nil")
	}
}

func TestValidateFatalitiesOrder(t *testing.T) {
	t.Parallel()

	fields := fieldsFrom(t, relevantPayload, map[string]any{
		"fatalities_min": json.Number("5"),
		"fatalities_max": json.Number("2"),
	})
	_, err := Validate(fields, 101)
	if !errors.Is(err, domain.ErrSemanticViolation) {
		t.Fatalf("expected semantic violation, got %v", err)
	}
	if !strings.Contains(err.Error(), "fatalities_min exceeds fatalities_max") {
		t.Fatalf("unexpected reason: %v", err)
	}
}

func TestValidateRelevantWithoutCountries(t *testing.T) {
	t.Parallel()

	fields := fieldsFrom(t, relevantPayload, map[string]any{
		"countries_suffering_losses": []any{},
		"countries_causing_losses":   []any{},
	})
	if _, err := Validate(fields, 101); !errors.Is(err, domain.ErrSemanticViolation) {
		t.Fatalf("expected semantic violation, got %v", err)
	}
}

func TestValidateSchemaViolations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		edits map[string]any
	}{
		{"missing explanation", map[string]any{"explanation": deleteKey}},
		{"missing end_day", map[string]any{"end_day": deleteKey}},
		{"string relevance", map[string]any{"is_relevant": "true"}},
		{"fractional fatalities", map[string]any{"fatalities_min": json.Number("1.5")}},
		{"string year", map[string]any{"start_year": "1988"}},
		{"countries not list", map[string]any{"countries_suffering_losses": "Iran"}},
		{"country not string", map[string]any{"countries_causing_losses": []any{json.Number("1")}}},
		{"null article id", map[string]any{"article_id": nil}},
		{"null explanation", map[string]any{"explanation": nil}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Validate(fieldsFrom(t, relevantPayload, tc.edits), 101)
			if !errors.Is(err, domain.ErrSchemaViolation) {
				t.Fatalf("expected schema violation, got %v", err)
			}
		})
	}
}

func TestValidateSemanticViolations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		edits map[string]any
	}{
		{"negative fatalities", map[string]any{"fatalities_min": json.Number("-1")}},
		{"missing fatalities", map[string]any{"fatalities_max": nil}},
		{"missing start year", map[string]any{"start_year": nil}},
		{"unknown start year", map[string]any{"start_year": json.Number("-9"), "start_month": nil, "start_day": nil}},
		{"month without year", map[string]any{"end_year": nil, "end_month": json.Number("4")}},
		{"month range", map[string]any{"start_month": json.Number("13")}},
		{"day range", map[string]any{"start_day": json.Number("32")}},
		{"wrong article", map[string]any{"article_id": json.Number("102")}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Validate(fieldsFrom(t, relevantPayload, tc.edits), 101)
			if !errors.Is(err, domain.ErrSemanticViolation) {
				t.Fatalf("expected semantic violation, got %v", err)
			}
		})
	}
}

func TestValidateNotRelevantDropsCountries(t *testing.T) {
	t.Parallel()

	fields := fieldsFrom(t, relevantPayload, map[string]any{"is_relevant": false})
	resp, err := Validate(fields, 101)
	if err != nil {
		t.Fatalf("non-relevant answer naming countries must be kept: %v", err)
	}
	if resp.IsRelevant || len(resp.CountriesSufferingLosses) != 0 || len(resp.CountriesCausingLosses) != 0 {
		t.Fatalf("countries must be reset to empty lists: %+v", resp)
	}
	if resp.CountriesSufferingLosses == nil || resp.CountriesCausingLosses == nil {
		t.Fatalf("country lists must never be nil")
	}
	if fields["countries_suffering_losses"] == nil {
		t.Fatalf("input must not be mutated")
	}
}

func TestValidateAllowsDayWithoutMonth(t *testing.T) {
	t.Parallel()

	fields := fieldsFrom(t, relevantPayload, map[string]any{"start_month": nil})
	resp, err := Validate(fields, 101)
	if err != nil {
		t.Fatalf("approximate date must be accepted: %v", err)
	}
	if resp.StartMonth != nil || resp.StartDay == nil || *resp.StartDay != 18 {
		t.Fatalf("unexpected start date: %+v", resp)
	}
}

func TestValidateAllowsDayThirtyOneInAnyMonth(t *testing.T) {
	t.Parallel()

	fields := fieldsFrom(t, relevantPayload, map[string]any{
		"start_month": json.Number("2"),
		"start_day":   json.Number("31"),
	})
	if _, err := Validate(fields, 101); err != nil {
		t.Fatalf("expected range-only day check, got %v", err)
	}
}

func TestValidateIgnoresUnknownKeys(t *testing.T) {
	t.Parallel()

	fields := fieldsFrom(t, relevantPayload, map[string]any{"confidence": "high"})
	if _, err := Validate(fields, 101); err != nil {
		t.Fatalf("unknown keys must be ignored: %v", err)
	}
}

func TestValidateIsPure(t *testing.T) {
	t.Parallel()

	fields := fieldsFrom(t, relevantPayload, map[string]any{"end_month": json.Number("-9")})
	first, err1 := Validate(fields, 101)
	second, err2 := Validate(fields, 101)
	if (err1 == nil) != (err2 == nil) {
		t.Fatalf("outcome changed between calls")
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("responses differ: %s vs %s", a, b)
	}
	if fields["end_month"] != json.Number("-9") {
		t.Fatalf("input was mutated: %v", fields["end_month"])
	}
}

func TestValidateResponseMultipleEvents(t *testing.T) {
	t.Parallel()

	payload := "```json\n[" + relevantPayload + "," + strings.Replace(relevantPayload, `"fatalities_min": 2`, `"fatalities_min": 9`, 1) + "]\n```"
	outcomes := ValidateResponse(domain.RawResponse{ArticleID: 101, Payload: payload})
	if len(outcomes) != 2 {
		t.Fatalf("unexpected outcomes: %d", len(outcomes))
	}
	if !outcomes[0].Accepted() {
		t.Fatalf("first event should be accepted: %v", outcomes[0].Err)
	}
	if outcomes[1].Accepted() || !errors.Is(outcomes[1].Err, domain.ErrSemanticViolation) {
		t.Fatalf("second event should be rejected, got %v", outcomes[1].Err)
	}
}

func TestValidateResponseUndecodable(t *testing.T) {
	t.Parallel()

	outcomes := ValidateResponse(domain.RawResponse{ArticleID: 1, Payload: "Sorry, I cannot help."})
	if len(outcomes) != 1 || !errors.Is(outcomes[0].Err, domain.ErrSchemaViolation) {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
}
