package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken generates a SHA256 hash of an opaque or signed token.
// Only these hashes are ever persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
