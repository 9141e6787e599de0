package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key derives a stable cache key from its parts
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "vocabdeck:v1:" + hex.EncodeToString(hash[:])
}

// ShortKey is the first 12 hex digits of Key, for file names
func ShortKey(parts ...string) string {
	k := Key(parts...)
	return k[len(k)-64 : len(k)-52]
}
