package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest(t *testing.T) {
	// sha256("hello") in base64
	assert.Equal(t, "LPJNul+wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ=", Digest([]byte("hello")))
}

func TestMatches(t *testing.T) {
	data := []byte("some media bytes")

	assert.True(t, Matches(data, Digest(data)))
	assert.False(t, Matches(data, Digest([]byte("other bytes"))))
	assert.False(t, Matches(data, "not-a-digest"))
	assert.False(t, Matches(data, ""), "empty expected hash never matches")
}
