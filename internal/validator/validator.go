package validator

import (
	"encoding/json"
	"math"
	"strings"

	"MICDataset/internal/domain"
)

// UnknownDatePart is the model's marker for an unknown year, month or day.
const UnknownDatePart = -9

// RequiredKeys lists the fields every response object must carry, in canonical order.
var RequiredKeys = []string{
	"article_id",
	"is_relevant",
	"start_year",
	"start_month",
	"start_day",
	"end_year",
	"end_month",
	"end_day",
	"fatalities_min",
	"fatalities_max",
	"countries_suffering_losses",
	"countries_causing_losses",
	"explanation",
}

// Validate checks one decoded response object against the article it answers.
// It never mutates its input and returns either an accepted response or an error
// wrapping domain.ErrSchemaViolation or domain.ErrSemanticViolation.
func Validate(fields map[string]any, articleID int64) (domain.ClassificationResponse, error) {
	if fields == nil {
		return domain.ClassificationResponse{}, domain.Violation(domain.ErrSchemaViolation, "response is not an object")
	}

	var missing []string
	for _, key := range RequiredKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return domain.ClassificationResponse{}, domain.Violation(domain.ErrSchemaViolation, "missing keys: %s", strings.Join(missing, ", "))
	}

	resp, err := decodeFields(fields)
	if err != nil {
		return domain.ClassificationResponse{}, err
	}

	if issues := semanticIssues(resp, articleID); len(issues) > 0 {
		return domain.ClassificationResponse{}, domain.Violation(domain.ErrSemanticViolation, "%s", strings.Join(issues, "; "))
	}
	if !resp.IsRelevant {
		// countries only describe a relevant event
		resp.CountriesSufferingLosses = []string{}
		resp.CountriesCausingLosses = []string{}
	}
	return resp, nil
}

func decodeFields(fields map[string]any) (domain.ClassificationResponse, error) {
	var resp domain.ClassificationResponse
	var err error

	id, err := requiredInt(fields, "article_id")
	if err != nil {
		return resp, err
	}
	resp.ArticleID = int64(id)

	relevant, ok := fields["is_relevant"].(bool)
	if !ok {
		return resp, domain.Violation(domain.ErrSchemaViolation, "is_relevant is %s, want boolean", typeName(fields["is_relevant"]))
	}
	resp.IsRelevant = relevant

	dateParts := []struct {
		key    string
		target **int
	}{
		{"start_year", &resp.StartYear},
		{"start_month", &resp.StartMonth},
		{"start_day", &resp.StartDay},
		{"end_year", &resp.EndYear},
		{"end_month", &resp.EndMonth},
		{"end_day", &resp.EndDay},
	}
	for _, part := range dateParts {
		value, err := optionalInt(fields, part.key)
		if err != nil {
			return resp, err
		}
		if value != nil && *value == UnknownDatePart {
			value = nil
		}
		*part.target = value
	}

	if resp.FatalitiesMin, err = optionalInt(fields, "fatalities_min"); err != nil {
		return resp, err
	}
	if resp.FatalitiesMax, err = optionalInt(fields, "fatalities_max"); err != nil {
		return resp, err
	}

	if resp.CountriesSufferingLosses, err = stringList(fields, "countries_suffering_losses"); err != nil {
		return resp, err
	}
	if resp.CountriesCausingLosses, err = stringList(fields, "countries_causing_losses"); err != nil {
		return resp, err
	}

	explanation, ok := fields["explanation"].(string)
	if !ok {
		return resp, domain.Violation(domain.ErrSchemaViolation, "explanation is %s, want string", typeName(fields["explanation"]))
	}
	resp.Explanation = explanation

	return resp, nil
}

func semanticIssues(resp domain.ClassificationResponse, articleID int64) []string {
	var issues []string

	if resp.ArticleID != articleID {
		issues = append(issues, "article_id does not match the submitted article")
	}

	if resp.FatalitiesMin != nil && *resp.FatalitiesMin < 0 {
		issues = append(issues, "fatalities_min is negative")
	}
	if resp.FatalitiesMax != nil && *resp.FatalitiesMax < 0 {
		issues = append(issues, "fatalities_max is negative")
	}
	if resp.FatalitiesMin != nil && resp.FatalitiesMax != nil && *resp.FatalitiesMin > *resp.FatalitiesMax {
		issues = append(issues, "fatalities_min exceeds fatalities_max")
	}

	issues = append(issues, dateIssues("start", resp.StartYear, resp.StartMonth, resp.StartDay)...)
	issues = append(issues, dateIssues("end", resp.EndYear, resp.EndMonth, resp.EndDay)...)

	if resp.IsRelevant {
		if len(resp.CountriesSufferingLosses) == 0 && len(resp.CountriesCausingLosses) == 0 {
			issues = append(issues, "relevant response names no countries")
		}
		if resp.FatalitiesMin == nil || resp.FatalitiesMax == nil {
			issues = append(issues, "relevant response lacks fatalities")
		}
		if resp.StartYear == nil {
			issues = append(issues, "relevant response lacks start_year")
		}
	}

	return issues
}

func dateIssues(prefix string, year, month, day *int) []string {
	var issues []string
	if year == nil && (month != nil || day != nil) {
		issues = append(issues, prefix+" month/day given without a year")
	}
	if year != nil && *year <= 0 {
		issues = append(issues, prefix+"_year is not positive")
	}
	if month != nil && (*month < 1 || *month > 12) {
		issues = append(issues, prefix+"_month out of range")
	}
	if day != nil && (*day < 1 || *day > 31) {
		issues = append(issues, prefix+"_day out of range")
	}
	return issues
}

func requiredInt(fields map[string]any, key string) (int, error) {
	value, err := optionalInt(fields, key)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, domain.Violation(domain.ErrSchemaViolation, "%s is null", key)
	}
	return *value, nil
}

func optionalInt(fields map[string]any, key string) (*int, error) {
	raw := fields[key]
	if raw == nil {
		return nil, nil
	}

	var f float64
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			n := int(i)
			return &n, nil
		}
		parsed, err := v.Float64()
		if err != nil {
			return nil, domain.Violation(domain.ErrSchemaViolation, "%s is not a number", key)
		}
		f = parsed
	case float64:
		f = v
	case int:
		return &v, nil
	default:
		return nil, domain.Violation(domain.ErrSchemaViolation, "%s is %s, want integer", key, typeName(raw))
	}

	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, domain.Violation(domain.ErrSchemaViolation, "%s is not an integer", key)
	}
	n := int(f)
	return &n, nil
}

func stringList(fields map[string]any, key string) ([]string, error) {
	raw := fields[key]
	if raw == nil {
		return []string{}, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, domain.Violation(domain.ErrSchemaViolation, "%s is %s, want array of strings", key, typeName(raw))
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, domain.Violation(domain.ErrSchemaViolation, "%s contains %s, want string", key, typeName(item))
		}
		out = append(out, name)
	}
	return out, nil
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number, float64, int:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
