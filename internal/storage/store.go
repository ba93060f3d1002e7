// Package storage persists verified media bytes and their JSON metadata
// sidecars under a date-partitioned layout:
//
//	<root>/<year>/<month>/<timestamp>_<sanitizedId>.<ext>       binary
//	<root>/<year>/<month>/<timestamp>_<sanitizedId>.<ext>.json  sidecar
//	<root>/error_<timestamp>_<sanitizedId>.json                 failure record
//
// Failure records are flat under the root, not date-partitioned.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chatvault/mediadl/internal/model"
	"github.com/chatvault/mediadl/internal/probe"
)

// Metadata is the sidecar record written next to each downloaded file, and
// the shape of standalone failure records.
type Metadata struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	Mimetype     string             `json:"mimetype,omitempty"`
	Size         int64              `json:"size"`
	DeclaredSize int64              `json:"declaredSize,omitempty"`
	Downloaded   bool               `json:"downloaded"`
	Verified     bool               `json:"verified"`
	DownloadedAt time.Time          `json:"downloadedAt"`
	FilePath     string             `json:"filePath,omitempty"`
	FileName     string             `json:"fileName,omitempty"`
	Pointer      model.MediaPointer `json:"pointer"`
	Media        *probe.Info        `json:"media,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// Store writes downloads and failure records under a media root.
type Store struct {
	root string
	now  func() time.Time
}

// New creates a store rooted at root. The directory is created lazily on
// first write.
func New(root string) *Store {
	return &Store{root: root, now: time.Now}
}

// SaveMedia writes the bytes and their sidecar into the date partition for
// the current time and returns the result descriptor. Any I/O failure is
// returned to the caller as a plain error; the worker treats it as a
// download failure subject to the normal retry policy.
func (s *Store) SaveMedia(e *model.MediaEvent, data []byte, verified bool, info probe.Info) (*model.DownloadResult, error) {
	now := s.now()
	dir := filepath.Join(s.root, now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create partition: %w", err)
	}

	name := fmt.Sprintf("%d_%s%s", now.UnixMilli(), model.SanitizeID(e.LogicalID()), ExtensionFor(e.Mimetype, e.Type))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write media: %w", err)
	}

	meta := Metadata{
		ID:           e.LogicalID(),
		Type:         e.Type,
		Mimetype:     e.Mimetype,
		Size:         int64(len(data)),
		DeclaredSize: e.Size,
		Downloaded:   true,
		Verified:     verified,
		DownloadedAt: now,
		FilePath:     path,
		FileName:     name,
		Pointer:      e.Pointer,
	}
	if !info.Empty() {
		meta.Media = &info
	}
	if err := s.writeJSON(path+".json", meta); err != nil {
		return nil, fmt.Errorf("write sidecar: %w", err)
	}

	return &model.DownloadResult{
		FilePath: path,
		FileName: name,
		Size:     int64(len(data)),
		Verified: verified,
	}, nil
}

// SaveFailure writes a standalone failure record for a terminally failed
// item. Failure records are never retried once written.
func (s *Store) SaveFailure(e *model.MediaEvent, errMsg string) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("create media root: %w", err)
	}

	now := s.now()
	name := fmt.Sprintf("error_%d_%s.json", now.UnixMilli(), model.SanitizeID(e.LogicalID()))
	meta := Metadata{
		ID:           e.LogicalID(),
		Type:         e.Type,
		Mimetype:     e.Mimetype,
		DeclaredSize: e.Size,
		Downloaded:   false,
		DownloadedAt: now,
		Pointer:      e.Pointer,
		Error:        errMsg,
	}
	return s.writeJSON(filepath.Join(s.root, name), meta)
}

func (s *Store) writeJSON(path string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var mimeExtensions = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"video/mp4":        ".mp4",
	"video/3gpp":       ".3gp",
	"video/quicktime":  ".mov",
	"audio/mpeg":       ".mp3",
	"audio/mp4":        ".m4a",
	"audio/aac":        ".aac",
	"audio/ogg":        ".ogg",
	"audio/wav":        ".wav",
	"application/pdf":  ".pdf",
	"application/zip":  ".zip",
	"text/plain":       ".txt",
	"text/vcard":       ".vcf",
	"application/json": ".json",
}

// typeExtensions is matched in order; more specific types come before the
// types whose names they contain, so "voice-note" never resolves as "audio".
var typeExtensions = []struct {
	kind string
	ext  string
}{
	{model.TypeVoiceNote, ".ogg"},
	{model.TypeSticker, ".webp"},
	{model.TypeImage, ".jpg"},
	{model.TypeVideo, ".mp4"},
	{model.TypeAudio, ".mp3"},
	{model.TypeDocument, ".bin"},
}

// ExtensionFor derives a file extension from the declared MIME (parameters
// stripped), falling back to the logical type, then to ".bin".
func ExtensionFor(mimetype, logicalType string) string {
	mime := strings.ToLower(strings.TrimSpace(mimetype))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if ext, ok := mimeExtensions[mime]; ok {
		return ext
	}

	lowered := strings.ToLower(logicalType)
	for _, entry := range typeExtensions {
		if strings.Contains(lowered, entry.kind) {
			return entry.ext
		}
	}
	return ".bin"
}
