// Package htmltext converts provider HTML snippets to plain text.
package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strip returns the text content of an HTML fragment with whitespace
// collapsed. Plain text passes through unchanged apart from whitespace.
func Strip(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
