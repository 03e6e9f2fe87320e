// Package sanitize cleans user-supplied text before it is stored or echoed.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var markup = regexp.MustCompile(`<[^>]*>`)

// Text drops markup from notes, SMS bodies and event bodies. Entities are
// decoded and the result stripped again so encoded tags cannot survive.
// Line breaks inside the text are kept.
func Text(s string) string {
	s = markup.ReplaceAllString(s, "")
	s = markup.ReplaceAllString(html.UnescapeString(s), "")
	return strings.TrimSpace(s)
}

// Email trims and lower-cases an address. Blank input yields "".
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
