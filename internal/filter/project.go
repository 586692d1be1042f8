package filter

import (
	"strings"
	"time"

	"MICDataset/internal/domain"
)

const (
	// DefaultSourceLayout is the text month-name format of stored publication dates.
	DefaultSourceLayout = "Jan 2, 2006"
	// FallbackSourceLayout covers rows loaded with ISO dates.
	FallbackSourceLayout = "2006-01-02"
	// DefaultDisplayLayout is the abbreviated weekday/month form used in prompts.
	DefaultDisplayLayout = "Mon, Jan 2, 2006"
)

// DateFormat controls how publication dates are parsed and re-emitted.
type DateFormat struct {
	SourceLayouts []string
	DisplayLayout string
}

// DefaultDateFormat returns the layouts used when nothing is configured.
func DefaultDateFormat() DateFormat {
	return DateFormat{
		SourceLayouts: []string{DefaultSourceLayout, FallbackSourceLayout},
		DisplayLayout: DefaultDisplayLayout,
	}
}

func (d DateFormat) normalize() DateFormat {
	def := DefaultDateFormat()
	if len(d.SourceLayouts) == 0 {
		d.SourceLayouts = def.SourceLayouts
	}
	if d.DisplayLayout == "" {
		d.DisplayLayout = def.DisplayLayout
	}
	return d
}

// FormatDate parses a source date with the configured layouts and re-emits it for display.
func (d DateFormat) FormatDate(raw string) (string, error) {
	d = d.normalize()
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", domain.Violation(domain.ErrMalformedDate, "publication date is missing")
	}
	for _, layout := range d.SourceLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format(d.DisplayLayout), nil
		}
	}
	return "", domain.Violation(domain.ErrMalformedDate, "cannot parse publication date %q", value)
}

// Project builds the downstream view of an article.
func Project(article domain.Article, dates DateFormat) (domain.FilteredArticle, error) {
	date, err := dates.FormatDate(article.PublicationDate)
	if err != nil {
		return domain.FilteredArticle{}, err
	}

	return domain.FilteredArticle{
		ID:              article.ID,
		PublicationDate: date,
		Location:        domain.Text(article.Location, domain.NotAvailable),
		Subject:         domain.Text(article.Subject, domain.NotAvailable),
		People:          domain.Text(article.People, domain.NotAvailable),
		FullText:        domain.Text(article.FullText, domain.MissingTextPlaceholder),
	}, nil
}
