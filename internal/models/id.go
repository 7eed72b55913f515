package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateID creates an opaque entity id with the given prefix, e.g.
// "tx-9f3a2c81". Eight hex chars of entropy is plenty for a store this
// size; a collision surfaces as a primary key violation on insert.
func GenerateID(prefix string) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("models: generate id: %w", err)
	}
	return prefix + "-" + hex.EncodeToString(b), nil
}
