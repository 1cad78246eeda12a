package tournament

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanText NFC-normalizes s and collapses every run of whitespace into a
// single space. Scraped Hangul can arrive decomposed, which would otherwise
// defeat exact title comparisons.
func CleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
