package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// marshalMeta serializes event metadata; empty maps become empty strings
// so the column stays NULL.
func marshalMeta(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshaling event meta: %w", err)
	}
	return string(b), nil
}

func unmarshalMeta(raw string, e *Event) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &e.Meta); err != nil {
		return fmt.Errorf("unmarshaling event meta: %w", err)
	}
	return nil
}

// generateID generates a new UUID
func generateID() string {
	return uuid.New().String()
}

// generateAPIKey generates a new API key
func generateAPIKey() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return fmt.Sprintf("bd_key_%s", hex.EncodeToString(b))
}

// hashAPIKey hashes an API key for storage
func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
