// Package probe performs best-effort introspection of fetched media bytes
// for the metadata sidecar. Probing never affects the download outcome:
// bytes that cannot be decoded simply produce an empty Info.
package probe

import (
	"bytes"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"strings"

	"github.com/bogem/id3v2"
	_ "golang.org/x/image/webp" // WebP decoder registration (stickers)

	"github.com/chatvault/mediadl/internal/model"
)

// Info is the optional media detail recorded in the sidecar.
type Info struct {
	// Width and Height are set for decodable images.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Title and Artist are set for ID3-tagged audio.
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// Empty reports whether probing found nothing.
func (i Info) Empty() bool {
	return i == Info{}
}

// Inspect probes data according to the event's logical type. Only image-like
// and audio-like types are inspected; everything else returns an empty Info.
func Inspect(e *model.MediaEvent, data []byte) Info {
	kind := strings.ToLower(e.Type)
	switch {
	case strings.Contains(kind, model.TypeImage), strings.Contains(kind, model.TypeSticker):
		return imageInfo(data)
	case strings.Contains(kind, model.TypeAudio), strings.Contains(kind, model.TypeVoiceNote):
		return audioInfo(data)
	}
	return Info{}
}

// imageInfo reads only the header; the pixel data is never decoded.
func imageInfo(data []byte) Info {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}
	}
	return Info{Width: cfg.Width, Height: cfg.Height}
}

func audioInfo(data []byte) Info {
	tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		return Info{}
	}

	return Info{
		Title:  tag.Title(),
		Artist: tag.Artist(),
	}
}
