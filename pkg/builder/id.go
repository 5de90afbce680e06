package builder

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// NewRunID generates a unique run ID with a readable prefix
func NewRunID(prefix string) string {
	prefix = strings.ToLower(prefix)
	prefix = strings.ReplaceAll(prefix, " ", "-")
	return prefix + "-" + randomHex(6)
}

func randomHex(length int) string {
	bytes := make([]byte, (length+1)/2)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)[:length]
}
