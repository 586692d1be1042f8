package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelectors = "p, div, li, tr, h1, h2, h3, h4, h5, h6, blockquote"

// PlainText strips residual HTML markup and entities from stored article text.
// Text without markup is returned unchanged.
func PlainText(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return tidy(doc.Text())
}

// tidy trims every line and collapses runs of blank lines.
func tidy(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
