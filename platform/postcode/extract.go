// Package postcode extracts UK-style postal codes from free text.
package postcode

import (
	"regexp"
	"strings"
)

var ukPostcode = regexp.MustCompile(`\b([A-Z]{1,2}\d{1,2}[A-Z]?\s?\d[A-Z]{2})\b`)

// Extract returns the first postcode found in text, formatted with a single
// space before the inward code ("SW1A1AA" becomes "SW1A 1AA"). It returns ""
// when text contains no postcode.
func Extract(text string) string {
	match := ukPostcode.FindStringSubmatch(strings.ToUpper(text))
	if match == nil {
		return ""
	}

	compact := strings.Join(strings.Fields(match[1]), "")
	if len(compact) < 5 {
		return ""
	}
	return compact[:len(compact)-3] + " " + compact[len(compact)-3:]
}
