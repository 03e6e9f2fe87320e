package domain

import (
	"strings"
)

// MissingField tags one qualification prerequisite that is not yet satisfied.
type MissingField string

const (
	MissingName            MissingField = "name"
	MissingPhoneOrEmail    MissingField = "phone_or_email"
	MissingPostcode        MissingField = "postcode"
	MissingProductInterest MissingField = "product_interest"
	MissingTimeframe       MissingField = "timeframe"
)

// Payload keys read by the rule engine.
const (
	PayloadPostcode        = "postcode"
	PayloadProductInterest = "product_interest"
	PayloadTimeframe       = "timeframe"
)

// ComputeMissing returns, in fixed order, every prerequisite the lead still
// lacks. It is a pure function of name, email, phone and raw payload.
func ComputeMissing(lead Lead) []MissingField {
	missing := make([]MissingField, 0, 5)

	if blank(lead.Name) {
		missing = append(missing, MissingName)
	}
	if blank(lead.Phone) && blank(lead.Email) {
		missing = append(missing, MissingPhoneOrEmail)
	}
	if !lead.RawPayload.Has(PayloadPostcode) {
		missing = append(missing, MissingPostcode)
	}
	if !lead.RawPayload.Has(PayloadProductInterest) {
		missing = append(missing, MissingProductInterest)
	}
	if !lead.RawPayload.Has(PayloadTimeframe) {
		missing = append(missing, MissingTimeframe)
	}

	return missing
}

// Contains reports whether field is in fields.
func Contains(fields []MissingField, field MissingField) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

func blank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}
