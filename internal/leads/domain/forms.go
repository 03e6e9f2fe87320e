package domain

import (
	"strings"
)

// Lead-form providers deliver answers as a list of fields rather than as
// top-level keys: Google Ads lead forms use user_column_data, Meta lead ads
// use field_data.
const (
	googleColumnsKey = "user_column_data"
	metaFieldsKey    = "field_data"
)

var formLeadIDKeys = []string{"lead_id", "leadgen_id"}

// FlattenFormFields lifts lead-form field lists into top-level payload keys
// the rule engine and contact extraction understand. Keys already present at
// the top level win. It also returns the provider's lead id, or "".
// The input is not modified.
func FlattenFormFields(p Payload) (Payload, string) {
	out := p.Clone()
	for _, field := range googleColumns(p[googleColumnsKey]) {
		setIfAbsent(out, field.key, field.value)
	}
	for _, field := range metaFields(p[metaFieldsKey]) {
		setIfAbsent(out, field.key, field.value)
	}

	return out, firstAlias(p, formLeadIDKeys)
}

type formField struct {
	key   string
	value string
}

func googleColumns(raw any) []formField {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	fields := make([]formField, 0, len(items))
	for _, item := range items {
		col, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value, _ := col["string_value"].(string)
		label, _ := col["column_id"].(string)
		if label == "" {
			label, _ = col["column_name"].(string)
		}
		if key := normalizeFormField(label); key != "" && strings.TrimSpace(value) != "" {
			fields = append(fields, formField{key: key, value: strings.TrimSpace(value)})
		}
	}
	return fields
}

func metaFields(raw any) []formField {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	fields := make([]formField, 0, len(items))
	for _, item := range items {
		f, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := f["name"].(string)
		values, _ := f["values"].([]any)
		if len(values) == 0 {
			continue
		}
		value, _ := values[0].(string)
		if key := normalizeFormField(name); key != "" && strings.TrimSpace(value) != "" {
			fields = append(fields, formField{key: key, value: strings.TrimSpace(value)})
		}
	}
	return fields
}

// normalizeFormField maps a provider field label to our payload key.
func normalizeFormField(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return ""
	}

	switch {
	case containsAny(l, "email", "e-mail"):
		return "email"
	case containsAny(l, "phone", "mobile", "tel"):
		return "phone"
	case containsAny(l, "postal", "postcode", "post_code", "zip"):
		return PayloadPostcode
	case containsAny(l, "full_name", "full name") || l == "name":
		return "full_name"
	case containsAny(l, "product", "service", "interest"):
		return PayloadProductInterest
	case containsAny(l, "timeframe", "timeline", "when", "start"):
		return PayloadTimeframe
	default:
		return strings.Join(strings.Fields(l), "_")
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func setIfAbsent(p Payload, key, value string) {
	if p.Has(key) {
		return
	}
	p[key] = value
}
