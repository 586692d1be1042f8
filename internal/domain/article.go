package domain

const (
	// NotAvailable replaces absent nullable fields in projections.
	NotAvailable = "N/A"
	// MissingTextPlaceholder replaces an absent full_text.
	MissingTextPlaceholder = "Not available."
)

// Article is a raw record owned by the article store. Nullable columns are pointers.
type Article struct {
	ID              int64
	PublicationDate string
	Section         *string
	Subject         *string
	Location        *string
	People          *string
	FullText        *string
}

// FilteredArticle is the projection passed downstream after the relevance filter.
type FilteredArticle struct {
	ID              int64  `json:"id"`
	PublicationDate string `json:"publication_date"`
	Location        string `json:"location"`
	Subject         string `json:"subject"`
	People          string `json:"people"`
	FullText        string `json:"full_text"`
}

// HasText reports whether the projection carries article text worth classifying.
func (f FilteredArticle) HasText() bool {
	switch normalizeText(f.FullText) {
	case "", "not available.", "n/a":
		return false
	default:
		return true
	}
}

// Text returns the value of a nullable column or the fallback when it is absent.
func Text(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}
