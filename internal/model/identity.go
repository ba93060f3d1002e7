package model

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
)

// Fingerprint builds the deduplication fingerprint: the present fields of
// {mediaKey, fileHash, directPath, declared size} joined by ":" in that
// fixed order. Absent fields are omitted entirely, never replaced with a
// placeholder, so "k1::1024" can never occur. Two events with the same
// fingerprint refer to the same underlying content even when their source
// IDs differ.
func (e *MediaEvent) Fingerprint() string {
	var parts []string
	if e.Pointer.MediaKey != "" {
		parts = append(parts, e.Pointer.MediaKey)
	}
	if e.Pointer.FileHash != "" {
		parts = append(parts, e.Pointer.FileHash)
	}
	if e.Pointer.DirectPath != "" {
		parts = append(parts, e.Pointer.DirectPath)
	}
	if e.Size > 0 {
		parts = append(parts, strconv.FormatInt(e.Size, 10))
	}
	return strings.Join(parts, ":")
}

// LogicalID derives the stable identity used as the primary key for all
// per-item state. The source-assigned ID wins; otherwise the identity is a
// SHA-256 over the full pointer bundle, hex-encoded and prefixed so it stays
// filename-safe. Returns "" when neither is derivable.
func (e *MediaEvent) LogicalID() string {
	if e.ID != "" {
		return e.ID
	}
	if e.Pointer.Empty() {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(e.Pointer.MediaKey))
	h.Write([]byte{0})
	h.Write([]byte(e.Pointer.FileHash))
	h.Write([]byte{0})
	h.Write([]byte(e.Pointer.DirectPath))
	h.Write([]byte{0})
	h.Write([]byte(e.Pointer.URL))
	return "sha-" + hex.EncodeToString(h.Sum(nil))
}

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeID makes a logical identity safe to embed in a file name.
// Characters outside [A-Za-z0-9._-] become underscores, leading/trailing
// dots are trimmed (Windows rejects them), and the result is capped at 64
// characters so partition paths stay comfortably under OS limits.
func SanitizeID(id string) string {
	id = unsafeIDChars.ReplaceAllString(id, "_")
	id = strings.Trim(id, ".")
	if len(id) > 64 {
		id = id[:64]
	}
	return id
}
