package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// IdempotencyKey derives the guard key for one webhook delivery:
// "source:external_id" when the caller supplies an id, else a hash of the
// canonical payload, else a random key that cannot deduplicate.
func IdempotencyKey(source Source, payload Payload, externalID string) string {
	if id := strings.TrimSpace(externalID); id != "" {
		return string(source) + ":" + id
	}

	if len(payload) > 0 {
		if canonical, err := payload.Canonical(); err == nil {
			sum := sha256.Sum256(canonical)
			return string(source) + ":hash:" + hex.EncodeToString(sum[:])
		}
	}

	return string(source) + ":" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
