package wiki

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML strips markup from rendered page HTML and returns plain text
// with collapsed whitespace. Parse failures fall back to the raw input.
func CleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	doc.Find("script, style").Remove()

	text := doc.Text()
	return strings.Join(strings.Fields(text), " ")
}
