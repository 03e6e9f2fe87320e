// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "GB"

// Normalizer canonicalizes phone numbers into "+<country><subscriber>" form
// for a single default country.
type Normalizer struct {
	region      string
	countryCode string
}

var defaultNormalizer = NewNormalizer(defaultRegion)

// NewNormalizer builds a Normalizer for the given ISO region code.
// Unknown regions fall back to GB.
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	code := phonenumbers.GetCountryCodeForRegion(region)
	if code == 0 {
		region = defaultRegion
		code = phonenumbers.GetCountryCodeForRegion(defaultRegion)
	}
	return &Normalizer{region: region, countryCode: strconv.Itoa(code)}
}

// Region returns the normalizer's default region.
func (n *Normalizer) Region() string {
	return n.region
}

// Normalize is a best-effort canonicalization. It never fails: unrecognized
// shapes are returned with separators stripped, and input without digits
// yields "".
func (n *Normalizer) Normalize(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, raw)

	if strings.Trim(cleaned, "+") == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}

	cleaned = strings.TrimPrefix(cleaned, "0")

	switch {
	case strings.HasPrefix(cleaned, n.countryCode):
		return "+" + cleaned
	case len(cleaned) == 10 || len(cleaned) == 11:
		return "+" + n.countryCode + cleaned
	case len(cleaned) >= 11:
		return "+" + cleaned
	}

	return cleaned
}

// Normalize canonicalizes raw with the default (GB, +44) normalizer.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// Dialable reports whether a canonical number is a possible number for its
// country, according to libphonenumber metadata.
func Dialable(canonical string) bool {
	if !strings.HasPrefix(canonical, "+") {
		return false
	}
	number, err := phonenumbers.Parse(canonical, defaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(number)
}

// Region returns the ISO region of a canonical number, or "" when unknown.
func Region(canonical string) string {
	number, err := phonenumbers.Parse(canonical, defaultRegion)
	if err != nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(number)
}
