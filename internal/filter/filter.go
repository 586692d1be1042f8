package filter

import (
	"strings"

	"MICDataset/internal/domain"
)

// Stage names the gate that rejected an article.
type Stage string

const (
	StageNone     Stage = ""
	StageCategory Stage = "category"
	StageSubject  Stage = "subject"
	StageLocation Stage = "location"
)

// Gate is a single boolean stage of the relevance filter.
type Gate func(article domain.Article) bool

// Filter composes the category, subject and location gates.
type Filter struct {
	rules   Rules
	dates   DateFormat
	stages  []Stage
	gateFns []Gate
}

// New builds a filter over the provided rule sets.
func New(rules Rules, dates DateFormat) *Filter {
	if rules.CategoryMarker == "" {
		rules.CategoryMarker = DefaultCategoryMarker
	}
	f := &Filter{rules: rules, dates: dates.normalize()}
	f.stages = []Stage{StageCategory, StageSubject, StageLocation}
	f.gateFns = []Gate{f.CategoryGate, f.SubjectGate, f.LocationGate}
	return f
}

// Rules exposes the rule sets the filter was built with.
func (f *Filter) Rules() Rules {
	return f.rules
}

// CategoryGate passes when the section is absent or its whitespace-stripped value contains the marker.
func (f *Filter) CategoryGate(article domain.Article) bool {
	if article.Section == nil {
		return true
	}
	return strings.Contains(StripSectionSpace(*article.Section), f.rules.CategoryMarker)
}

// SectionSpace is the whitespace removed from sections before the marker lookup.
// The SQL pushdown expressions strip the same characters.
const SectionSpace = " \t\n\v\f\r"

// StripSectionSpace removes every SectionSpace character from s.
func StripSectionSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(SectionSpace, r) {
			return -1
		}
		return r
	}, s)
}

// SubjectGate fails on any excludable token; otherwise an absent subject or one relevant token passes.
func (f *Filter) SubjectGate(article domain.Article) bool {
	if article.Subject == nil {
		return true
	}

	subjects := tokens(*article.Subject)
	for _, token := range subjects {
		if f.rules.isExcludable(token) {
			return false
		}
	}

	if len(f.rules.relevant) == 0 {
		return true
	}
	for _, token := range subjects {
		if f.rules.isRelevant(token) {
			return true
		}
	}
	return false
}

// LocationGate passes when the location is absent or at least one token is not domestic.
func (f *Filter) LocationGate(article domain.Article) bool {
	if article.Location == nil {
		return true
	}
	for _, token := range tokens(*article.Location) {
		if !f.rules.isDomestic(token) {
			return true
		}
	}
	return false
}

// Dates returns the date layouts used for projection.
func (f *Filter) Dates() DateFormat {
	return f.dates
}

// Evaluate runs the gates in order and reports the first failing stage.
func (f *Filter) Evaluate(article domain.Article) (bool, Stage) {
	for i, gate := range f.gateFns {
		if !gate(article) {
			return false, f.stages[i]
		}
	}
	return true, StageNone
}

// Passes reports whether the article satisfies every gate.
func (f *Filter) Passes(article domain.Article) bool {
	ok, _ := f.Evaluate(article)
	return ok
}

// Apply evaluates the article and, when it passes, returns its projection.
// A passing article with an unparsable date yields an error wrapping domain.ErrMalformedDate.
func (f *Filter) Apply(article domain.Article) (domain.FilteredArticle, Stage, error) {
	ok, stage := f.Evaluate(article)
	if !ok {
		return domain.FilteredArticle{}, stage, nil
	}

	projected, err := Project(article, f.dates)
	if err != nil {
		return domain.FilteredArticle{}, StageNone, err
	}
	return projected, StageNone, nil
}
