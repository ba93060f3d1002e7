// Package verify implements integrity verification of fetched media bytes.
package verify

import (
	"crypto/sha256"
	"encoding/base64"
)

// Digest returns the base64-encoded SHA-256 of data, the encoding used by
// the capture side for declared file hashes.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Matches reports whether the base64 SHA-256 digest of data equals the
// expected value, by exact string comparison. Callers skip verification
// entirely when no expected hash was declared; an empty expected value here
// never matches.
func Matches(data []byte, expected string) bool {
	return expected != "" && Digest(data) == expected
}
