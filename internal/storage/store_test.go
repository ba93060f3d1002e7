package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/mediadl/internal/model"
	"github.com/chatvault/mediadl/internal/probe"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s := New(root)
	s.now = func() time.Time {
		return time.Date(2026, time.March, 7, 12, 30, 0, 0, time.UTC)
	}
	return s, root
}

func testEvent() *model.MediaEvent {
	return &model.MediaEvent{
		ID:       "m1",
		Type:     "image",
		Mimetype: "image/jpeg",
		Size:     9,
		Pointer:  model.MediaPointer{MediaKey: "k1", FileHash: "h1"},
	}
}

func TestSaveMedia_DatePartitionAndSidecar(t *testing.T) {
	s, root := testStore(t)

	result, err := s.SaveMedia(testEvent(), []byte("jpegbytes"), true, probe.Info{Width: 640, Height: 480})
	require.NoError(t, err)

	// zero-padded month partition
	assert.Equal(t, filepath.Join(root, "2026", "03"), filepath.Dir(result.FilePath))
	assert.True(t, strings.HasSuffix(result.FileName, "_m1.jpg"), result.FileName)
	assert.Equal(t, int64(9), result.Size)
	assert.True(t, result.Verified)

	content, err := os.ReadFile(result.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "jpegbytes", string(content))

	sidecar, err := os.ReadFile(result.FilePath + ".json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(sidecar), "{\n"), "sidecar must be pretty-printed")

	var meta Metadata
	require.NoError(t, json.Unmarshal(sidecar, &meta))
	assert.Equal(t, "m1", meta.ID)
	assert.True(t, meta.Downloaded)
	assert.True(t, meta.Verified)
	assert.Equal(t, int64(9), meta.Size)
	assert.Equal(t, int64(9), meta.DeclaredSize)
	assert.Equal(t, "k1", meta.Pointer.MediaKey)
	require.NotNil(t, meta.Media)
	assert.Equal(t, 640, meta.Media.Width)
}

func TestSaveMedia_SanitizesIdentity(t *testing.T) {
	s, _ := testStore(t)

	e := testEvent()
	e.ID = "msg:with/bad\\chars"
	result, err := s.SaveMedia(e, []byte("x"), false, probe.Info{})
	require.NoError(t, err)

	assert.Contains(t, result.FileName, "msg_with_bad_chars")
	assert.NotContains(t, result.FileName, "/")

	var meta Metadata
	sidecar, err := os.ReadFile(result.FilePath + ".json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(sidecar, &meta))
	assert.Nil(t, meta.Media, "empty probe info is omitted")
	assert.False(t, meta.Verified)
}

func TestSaveFailure_FlatRecord(t *testing.T) {
	s, root := testStore(t)

	require.NoError(t, s.SaveFailure(testEvent(), "fetch driver gave up"))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1, "failure records live flat under the root")
	name := entries[0].Name()
	assert.True(t, strings.HasPrefix(name, "error_"), name)
	assert.True(t, strings.HasSuffix(name, "_m1.json"), name)

	data, err := os.ReadFile(filepath.Join(root, name))
	require.NoError(t, err)

	var meta Metadata
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.False(t, meta.Downloaded)
	assert.Equal(t, "fetch driver gave up", meta.Error)
	assert.Equal(t, "m1", meta.ID)
}

func TestSaveMedia_UnwritableRootSurfacesError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "occupied"))
	// occupy the root path with a file so MkdirAll fails
	require.NoError(t, os.WriteFile(s.root, []byte("x"), 0644))

	_, err := s.SaveMedia(testEvent(), []byte("x"), true, probe.Info{})
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		mime, kind, want string
	}{
		{"image/jpeg", "image", ".jpg"},
		{"IMAGE/JPEG", "image", ".jpg"},
		{"audio/ogg; codecs=opus", "voice-note", ".ogg"},
		{"", "audio-voice-note", ".ogg"},
		{"", "audioMessage", ".mp3"},
		{"", "videoMessage", ".mp4"},
		{"application/x-unknown", "sticker", ".webp"},
		{"", "", ".bin"},
		{"application/pdf", "document", ".pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.mime+"/"+tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtensionFor(tt.mime, tt.kind))
		})
	}
}
