// Package admission implements the eligibility gate in front of the download
// queue. Rejection is silent: most traffic is non-media and must be cheap to
// skip, so a failed check produces no error, only a reason string for debug
// logging.
package admission

import (
	"strings"

	"github.com/chatvault/mediadl/internal/model"
)

// Gate validates incoming events against the configured policy.
type Gate struct {
	enabled      bool
	types        []string
	maxBytes     int64
	allowedMimes []string
}

// NewGate builds a gate. maxBytes of zero means no size limit; an empty
// allowedMimes list accepts every MIME.
func NewGate(enabled bool, types []string, maxBytes int64, allowedMimes []string) *Gate {
	lower := func(in []string) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = strings.ToLower(s)
		}
		return out
	}
	return &Gate{
		enabled:      enabled,
		types:        lower(types),
		maxBytes:     maxBytes,
		allowedMimes: lower(allowedMimes),
	}
}

// Check runs the admission checks in order and reports whether the event is
// eligible for download. On rejection the second return value names the
// failed check.
func (g *Gate) Check(e *model.MediaEvent) (bool, string) {
	if !g.enabled {
		return false, "manager disabled"
	}
	if !g.typeAllowed(e.Type) {
		return false, "type not allowed"
	}
	if g.maxBytes > 0 && e.Size > g.maxBytes {
		return false, "declared size over limit"
	}
	if !g.mimeAllowed(e.Mimetype) {
		return false, "mime not allowed"
	}
	if e.Pointer.Empty() {
		return false, "no content pointer"
	}
	if e.LogicalID() == "" {
		return false, "no derivable identity"
	}
	return true, ""
}

// typeAllowed matches the declared logical type against the allow-list with
// a case-insensitive substring match, so "image" admits "imageMessage".
func (g *Gate) typeAllowed(eventType string) bool {
	if eventType == "" {
		return false
	}
	lowered := strings.ToLower(eventType)
	for _, allowed := range g.types {
		if strings.Contains(lowered, allowed) {
			return true
		}
	}
	return false
}

func (g *Gate) mimeAllowed(mime string) bool {
	if len(g.allowedMimes) == 0 {
		return true
	}
	lowered := strings.ToLower(mime)
	for _, allowed := range g.allowedMimes {
		if lowered == allowed {
			return true
		}
	}
	return false
}
