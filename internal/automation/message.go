package automation

import (
	"strings"

	"lead_intake_backend/internal/leads/domain"
)

const (
	messageGreeting = "Hi, we need some additional information:"
	messageClosing  = "Please reply with this information. Thank you!"
)

var missingPhrases = map[domain.MissingField]string{
	domain.MissingName:            "Your name",
	domain.MissingPhoneOrEmail:    "Your phone number or email",
	domain.MissingPostcode:        "Your postcode",
	domain.MissingProductInterest: "What product/service you're interested in",
	domain.MissingTimeframe:       "When you're looking to proceed",
}

// ComposeChaseMessage lists one line per missing field, in the given order.
// Unknown tags are skipped.
func ComposeChaseMessage(missing []domain.MissingField) string {
	var b strings.Builder
	b.WriteString(messageGreeting)
	for _, field := range missing {
		phrase, ok := missingPhrases[field]
		if !ok {
			continue
		}
		b.WriteString("\n- ")
		b.WriteString(phrase)
	}
	b.WriteString("\n\n")
	b.WriteString(messageClosing)
	return b.String()
}
