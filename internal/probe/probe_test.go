package probe

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatvault/mediadl/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func mp3Bytes(t *testing.T, title, artist string) []byte {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	tag.SetTitle(title)
	tag.SetArtist(artist)

	var buf bytes.Buffer
	_, err := tag.WriteTo(&buf)
	require.NoError(t, err)
	buf.Write([]byte{0xff, 0xfb, 0x90, 0x00}) // mp3 frame header filler
	return buf.Bytes()
}

func TestInspect_ImageDimensions(t *testing.T) {
	e := &model.MediaEvent{Type: "image"}
	info := Inspect(e, pngBytes(t, 640, 480))

	assert.Equal(t, 640, info.Width)
	assert.Equal(t, 480, info.Height)
}

func TestInspect_StickerUsesImagePath(t *testing.T) {
	e := &model.MediaEvent{Type: "stickerMessage"}
	info := Inspect(e, pngBytes(t, 128, 128))

	assert.Equal(t, 128, info.Width)
}

func TestInspect_AudioTags(t *testing.T) {
	e := &model.MediaEvent{Type: "audio"}
	info := Inspect(e, mp3Bytes(t, "Voice Memo", "Someone"))

	assert.Equal(t, "Voice Memo", info.Title)
	assert.Equal(t, "Someone", info.Artist)
}

func TestInspect_UndecodableBytesAreNotAnError(t *testing.T) {
	e := &model.MediaEvent{Type: "image"}
	assert.True(t, Inspect(e, []byte("definitely not an image")).Empty())

	e = &model.MediaEvent{Type: "audio"}
	assert.True(t, Inspect(e, []byte("no id3 here")).Empty())
}

func TestInspect_OtherTypesSkipped(t *testing.T) {
	e := &model.MediaEvent{Type: "document"}
	assert.True(t, Inspect(e, pngBytes(t, 10, 10)).Empty())
}
