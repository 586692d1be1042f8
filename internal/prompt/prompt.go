package prompt

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"MICDataset/internal/domain"
	"MICDataset/internal/validator"
)

// TruncationMarker is appended to article text cut for the classifier.
const TruncationMarker = " [TEXT TRUNCATED]"

// Cleaner normalizes article text before it is rendered.
type Cleaner func(text string) string

// Options configures a Builder.
type Options struct {
	SystemTemplate string
	UserTemplate   string
	MaxTextChars   int
	Fields         []string
	Cleaner        Cleaner
}

// Builder renders the instruction and article turns shared by the classifier and the dataset.
type Builder struct {
	system       string
	user         *template.Template
	maxTextChars int
	cleaner      Cleaner
}

type userData struct {
	ID              int64
	PublicationDate string
	Location        string
	Subject         string
	People          string
	Text            string
}

var funcs = template.FuncMap{
	"join": func(values []string) string {
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		return strings.Join(quoted, ", ")
	},
	"context": func(label, missingLabel, value string) string {
		if value == "" || value == domain.NotAvailable {
			return missingLabel + ": Not Available"
		}
		return label + ": " + value
	},
}

// NewBuilder parses the templates once; the system turn is rendered eagerly because it is static.
func NewBuilder(opts Options) (*Builder, error) {
	systemSrc := opts.SystemTemplate
	if strings.TrimSpace(systemSrc) == "" {
		systemSrc = DefaultSystemTemplate
	}
	fields := opts.Fields
	if len(fields) == 0 {
		fields = validator.RequiredKeys
	}
	userSrc := opts.UserTemplate
	if strings.TrimSpace(userSrc) == "" {
		userSrc = DefaultUserTemplate
	}

	systemTmpl, err := template.New("system").Funcs(funcs).Parse(systemSrc)
	if err != nil {
		return nil, fmt.Errorf("parse system template: %w", err)
	}
	var system bytes.Buffer
	if err := systemTmpl.Execute(&system, map[string]any{
		"Countries": EligibleCountries,
		"Fields":    fields,
	}); err != nil {
		return nil, fmt.Errorf("render system template: %w", err)
	}

	userTmpl, err := template.New("user").Funcs(funcs).Option("missingkey=error").Parse(userSrc)
	if err != nil {
		return nil, fmt.Errorf("parse user template: %w", err)
	}

	return &Builder{
		system:       strings.TrimSpace(system.String()),
		user:         userTmpl,
		maxTextChars: opts.MaxTextChars,
		cleaner:      opts.Cleaner,
	}, nil
}

// LoadTemplate reads a template file; an empty path yields an empty template.
func LoadTemplate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return string(raw), nil
}

// System returns the static instruction turn.
func (b *Builder) System() string {
	return b.system
}

// UserTurn renders the dataset article turn with the full text exactly as stored.
func (b *Builder) UserTurn(article domain.FilteredArticle) (string, error) {
	return b.render(article, article.FullText)
}

// ClassifierTurn renders the article turn with cleaned text truncated to the configured limit.
func (b *Builder) ClassifierTurn(article domain.FilteredArticle) (string, error) {
	return b.render(article, Truncate(b.text(article.FullText), b.maxTextChars))
}

func (b *Builder) text(full string) string {
	if b.cleaner == nil {
		return full
	}
	return b.cleaner(full)
}

func (b *Builder) render(article domain.FilteredArticle, text string) (string, error) {
	var out bytes.Buffer
	err := b.user.Execute(&out, userData{
		ID:              article.ID,
		PublicationDate: article.PublicationDate,
		Location:        article.Location,
		Subject:         article.Subject,
		People:          article.People,
		Text:            text,
	})
	if err != nil {
		return "", fmt.Errorf("render user turn for article %d: %w", article.ID, err)
	}
	return out.String(), nil
}

// Truncate cuts text to limit runes and appends the marker. A non-positive limit disables truncation.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + TruncationMarker
}
