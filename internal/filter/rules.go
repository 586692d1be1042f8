package filter

import "strings"

// DefaultCategoryMarker matches "Foreign", "Foreign Desk" and similar section labels.
const DefaultCategoryMarker = "Fore"

// Rules holds the read-only lookup sets used by the gates.
type Rules struct {
	CategoryMarker string
	excludable     map[string]struct{}
	relevant       map[string]struct{}
	domestic       map[string]struct{}
}

// NewRules builds lookup sets from configured values. Values are trimmed and empty ones dropped.
func NewRules(excludableSubjects, relevantSubjects, domesticLocations []string) Rules {
	return Rules{
		CategoryMarker: DefaultCategoryMarker,
		excludable:     toSet(excludableSubjects),
		relevant:       toSet(relevantSubjects),
		domestic:       toSet(domesticLocations),
	}
}

// WithCategoryMarker returns a copy using a different section marker.
func (r Rules) WithCategoryMarker(marker string) Rules {
	if strings.TrimSpace(marker) != "" {
		r.CategoryMarker = strings.TrimSpace(marker)
	}
	return r
}

// Sizes reports the number of entries per rule set.
func (r Rules) Sizes() (excludable, relevant, domestic int) {
	return len(r.excludable), len(r.relevant), len(r.domestic)
}

func (r Rules) isExcludable(token string) bool {
	_, ok := r.excludable[token]
	return ok
}

func (r Rules) isRelevant(token string) bool {
	_, ok := r.relevant[token]
	return ok
}

func (r Rules) isDomestic(token string) bool {
	_, ok := r.domestic[token]
	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// tokens splits a delimited list and trims every token. Empty tokens are kept.
func tokens(value string) []string {
	parts := strings.Split(value, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
