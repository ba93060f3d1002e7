package model

import "time"

// Logical media types as declared by the capture side.
const (
	TypeImage     = "image"
	TypeVideo     = "video"
	TypeAudio     = "audio"
	TypeDocument  = "document"
	TypeSticker   = "sticker"
	TypeVoiceNote = "voice-note"
)

// MediaPointer is the content pointer bundle attached to an event. At least
// one field must be populated for an event to be downloadable.
type MediaPointer struct {
	// MediaKey is an opaque key the fetch driver needs to retrieve and
	// decrypt the content.
	MediaKey string `json:"mediaKey,omitempty"`

	// FileHash is the base64 SHA-256 of the content, when declared.
	FileHash string `json:"fileHash,omitempty"`

	// DirectPath is a remote path relative to the media host.
	DirectPath string `json:"directPath,omitempty"`

	// URL is a full remote URL, when the content is directly addressable.
	URL string `json:"url,omitempty"`
}

// Empty reports whether no pointer field is populated.
func (p MediaPointer) Empty() bool {
	return p.MediaKey == "" && p.FileHash == "" && p.DirectPath == "" && p.URL == ""
}

// MediaEvent is a media-bearing event from the capture side. The manager
// never mutates it; enrichment returns a copy with LocalMedia set.
type MediaEvent struct {
	// ID is the source-assigned event identifier. May be empty, in which
	// case the logical identity is derived from the pointer bundle.
	ID string `json:"id,omitempty"`

	// Type is the declared logical type (see Type* constants).
	Type string `json:"type"`

	// Mimetype is the declared MIME string, e.g. "image/jpeg".
	Mimetype string `json:"mimetype,omitempty"`

	// Size is the declared size in bytes. Zero means undeclared.
	Size int64 `json:"size,omitempty"`

	// Filename is the declared file name, if the source provided one.
	Filename string `json:"filename,omitempty"`

	// From identifies the sender on the capture side. Audit only.
	From string `json:"from,omitempty"`

	// Timestamp is when the source emitted the event.
	Timestamp time.Time `json:"timestamp,omitempty"`

	Pointer MediaPointer `json:"pointer"`

	// LocalMedia is set by the manager on the returned copy; nil on input
	// and on events the manager did not touch.
	LocalMedia *LocalMedia `json:"localMedia,omitempty"`
}

// LocalMedia describes what the manager did with an event. Exactly one of
// the documented shapes is produced:
//
//   - {queued:true, state:"pending"}: admitted and queued for download
//   - {downloaded:false, deduplicated:true}: suppressed as a duplicate
type LocalMedia struct {
	Queued       bool   `json:"queued,omitempty"`
	State        string `json:"state,omitempty"`
	Downloaded   *bool  `json:"downloaded,omitempty"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
}

// QueuedLocalMedia returns the enrichment for a freshly queued event.
func QueuedLocalMedia() *LocalMedia {
	return &LocalMedia{Queued: true, State: string(StatusPending)}
}

// DeduplicatedLocalMedia returns the enrichment for a suppressed duplicate.
func DeduplicatedLocalMedia() *LocalMedia {
	no := false
	return &LocalMedia{Downloaded: &no, Deduplicated: true}
}
