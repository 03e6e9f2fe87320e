package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is the free-form capture of intake answers.
type Payload map[string]any

// Has reports whether key holds a usable answer. Nil, false, zero, blank
// strings and empty collections count as absent.
func (p Payload) Has(key string) bool {
	value, ok := p[key]
	if !ok || value == nil {
		return false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}

// String returns the answer under key as text, or "" when absent.
func (p Payload) String(key string) string {
	if !p.Has(key) {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Clone returns a shallow copy so merges never alias the caller's map.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge applies patch key by key. A nil value deletes the key. It reports
// whether anything changed.
func (p Payload) Merge(patch map[string]any) bool {
	changed := false
	for key, value := range patch {
		existing, present := p[key]
		if value == nil {
			if present {
				delete(p, key)
				changed = true
			}
			continue
		}
		if !present || !sameJSON(existing, value) {
			p[key] = value
			changed = true
		}
	}
	return changed
}

// Canonical encodes the payload with sorted keys, compact separators and no
// HTML escaping so that equal payloads always produce equal bytes.
func (p Payload) Canonical() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(p)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func sameJSON(a, b any) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(left, right)
}

// Contact is the identity extracted from a payload.
type Contact struct {
	Name  string
	Email string
	Phone string
}

var (
	nameAliases  = []string{"name", "full_name"}
	emailAliases = []string{"email", "email_address"}
	phoneAliases = []string{"phone", "phone_number"}
)

// ExtractContact reads name, email and phone from their known payload aliases.
// The first non-blank alias wins.
func ExtractContact(p Payload) Contact {
	return Contact{
		Name:  firstAlias(p, nameAliases),
		Email: firstAlias(p, emailAliases),
		Phone: firstAlias(p, phoneAliases),
	}
}

func firstAlias(p Payload, aliases []string) string {
	for _, key := range aliases {
		if value := p.String(key); value != "" {
			return value
		}
	}
	return ""
}
