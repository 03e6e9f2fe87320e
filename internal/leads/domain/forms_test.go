package domain

import "testing"

func TestFlattenFormFieldsGoogle(t *testing.T) {
	payload := Payload{
		"lead_id": "TeSter-123",
		"user_column_data": []any{
			map[string]any{"column_id": "FULL_NAME", "string_value": "Jane Doe", "column_name": "Full Name"},
			map[string]any{"column_id": "PHONE_NUMBER", "string_value": "07400 123456"},
			map[string]any{"column_id": "POSTAL_CODE", "string_value": "SW1A 1AA"},
			map[string]any{"column_name": "Which service?", "string_value": "Solar panels"},
		},
	}

	flat, leadID := FlattenFormFields(payload)

	if leadID != "TeSter-123" {
		t.Fatalf("lead id = %q", leadID)
	}
	contact := ExtractContact(flat)
	if contact.Name != "Jane Doe" || contact.Phone != "07400 123456" {
		t.Fatalf("contact = %+v", contact)
	}
	if flat.String(PayloadPostcode) != "SW1A 1AA" || flat.String(PayloadProductInterest) != "Solar panels" {
		t.Fatalf("flattened = %v", flat)
	}
	if _, ok := payload["postcode"]; ok {
		t.Fatal("input payload must not be modified")
	}
}

func TestFlattenFormFieldsMetaKeepsTopLevel(t *testing.T) {
	payload := Payload{
		"leadgen_id": "998877",
		"email":      "direct@example.com",
		"field_data": []any{
			map[string]any{"name": "email", "values": []any{"form@example.com"}},
			map[string]any{"name": "when_do_you_want_to_start", "values": []any{"next month"}},
			map[string]any{"name": "post_code", "values": []any{}},
		},
	}

	flat, leadID := FlattenFormFields(payload)

	if leadID != "998877" {
		t.Fatalf("lead id = %q", leadID)
	}
	if flat.String("email") != "direct@example.com" {
		t.Fatalf("top-level email must win, got %q", flat.String("email"))
	}
	if flat.String(PayloadTimeframe) != "next month" {
		t.Fatalf("timeframe = %q", flat.String(PayloadTimeframe))
	}
	if flat.Has(PayloadPostcode) {
		t.Fatal("empty values must not produce a postcode")
	}
}

func TestFlattenFormFieldsPlainPayload(t *testing.T) {
	flat, leadID := FlattenFormFields(Payload{"name": "Sam", "postcode": "M1 1AE"})
	if leadID != "" || len(flat) != 2 {
		t.Fatalf("plain payload changed: %v (%q)", flat, leadID)
	}
}
