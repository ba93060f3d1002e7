package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"3EB0F8A1C2", "3EB0F8A1C2"},
		{"msg:with:colons", "msg_with_colons"},
		{"path/with\\slashes", "path_with_slashes"},
		{"id with spaces", "id_with_spaces"},
		{"..leading.dots..", "leading.dots"},
		{"safe-id_1.0", "safe-id_1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeID(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeID_CapsLength(t *testing.T) {
	long := strings.Repeat("a", 200)
	if got := SanitizeID(long); len(got) != 64 {
		t.Errorf("SanitizeID length = %d, want 64", len(got))
	}
}

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name  string
		event MediaEvent
		want  string
	}{
		{
			name: "all fields",
			event: MediaEvent{
				Size:    1024,
				Pointer: MediaPointer{MediaKey: "k1", FileHash: "h1", DirectPath: "/v/t62"},
			},
			want: "k1:h1:/v/t62:1024",
		},
		{
			name:  "absent fields omitted, no placeholders",
			event: MediaEvent{Pointer: MediaPointer{MediaKey: "k1"}, Size: 1024},
			want:  "k1:1024",
		},
		{
			name:  "hash only",
			event: MediaEvent{Pointer: MediaPointer{FileHash: "h1"}},
			want:  "h1",
		},
		{
			name:  "nothing present",
			event: MediaEvent{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Fingerprint(); got != tt.want {
				t.Errorf("Fingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogicalID_PrefersSourceID(t *testing.T) {
	e := MediaEvent{ID: "m1", Pointer: MediaPointer{MediaKey: "k1"}}
	if got := e.LogicalID(); got != "m1" {
		t.Errorf("LogicalID() = %q, want %q", got, "m1")
	}
}

func TestLogicalID_FallsBackToPointerHash(t *testing.T) {
	a := MediaEvent{Pointer: MediaPointer{MediaKey: "k1", URL: "https://cdn/x"}}
	b := MediaEvent{Pointer: MediaPointer{MediaKey: "k1", URL: "https://cdn/x"}}
	c := MediaEvent{Pointer: MediaPointer{MediaKey: "k2", URL: "https://cdn/x"}}

	if a.LogicalID() == "" {
		t.Fatal("LogicalID() should be derivable from the pointer bundle")
	}
	if a.LogicalID() != b.LogicalID() {
		t.Error("identical pointer bundles must derive the same identity")
	}
	if a.LogicalID() == c.LogicalID() {
		t.Error("different pointer bundles must derive different identities")
	}
	if !strings.HasPrefix(a.LogicalID(), "sha-") {
		t.Errorf("derived identity %q should carry the sha- prefix", a.LogicalID())
	}
}

func TestLogicalID_EmptyEvent(t *testing.T) {
	e := MediaEvent{}
	if got := e.LogicalID(); got != "" {
		t.Errorf("LogicalID() = %q, want empty for an event with no ID and no pointer", got)
	}
}

func TestLocalMedia_JSONShapes(t *testing.T) {
	queued, err := json.Marshal(QueuedLocalMedia())
	if err != nil {
		t.Fatal(err)
	}
	if string(queued) != `{"queued":true,"state":"pending"}` {
		t.Errorf("queued shape = %s", queued)
	}

	dedup, err := json.Marshal(DeduplicatedLocalMedia())
	if err != nil {
		t.Fatal(err)
	}
	if string(dedup) != `{"downloaded":false,"deduplicated":true}` {
		t.Errorf("deduplicated shape = %s", dedup)
	}
}
