package core

import (
	"crypto/rand"
	"encoding/hex"
)

// NewObserverID builds a short unique identifier for an observer
// registration.
func NewObserverID() string {
	return "obs:" + randomHex(6)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		for i := range b {
			b[i] = byte(i + 1)
		}
	}
	return hex.EncodeToString(b)
}
