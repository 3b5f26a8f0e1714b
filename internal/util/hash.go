package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash identifies document content in the catalog; equal bytes give
// equal hashes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
