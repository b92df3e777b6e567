package helpers

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256 returns the hex encoded digest of input.
func SHA256(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// ShortSHA256 returns the first n hex characters of the digest of input.
// It is used to derive stable IDs for compiled snippets.
func ShortSHA256(input string, n int) string {
	sum := SHA256(input)
	if n <= 0 || n >= len(sum) {
		return sum
	}
	return sum[:n]
}
