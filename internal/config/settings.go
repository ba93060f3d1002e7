package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Settings holds all configuration options for the media download manager.
type Settings struct {
	// Admission
	Enabled          bool     `json:"enabled"`
	DownloadTypes    []string `json:"downloadTypes"`
	MaxFileSize      string   `json:"maxFileSize"` // size string, e.g. "50MB"
	AllowedMimeTypes []string `json:"allowedMimeTypes"`

	// Queue and workers
	ConcurrentDownloads int `json:"concurrentDownloads"`
	MaxQueueSize        int `json:"maxQueueSize"`
	BatchProcessSize    int `json:"batchProcessSize"`
	PauseOnHighMemoryMB int `json:"pauseOnHighMemoryMB"`

	// Retry
	RetryAttempts int   `json:"retryAttempts"`
	RetryDelayMs  int64 `json:"retryDelayMs"`

	// Deduplication and integrity
	EnableDeduplication  bool `json:"enableDeduplication"`
	EnableIntegrityCheck bool `json:"enableIntegrityCheck"`
	DedupCacheSize       int  `json:"dedupCacheSize"`

	// Circuit breaker
	CircuitBreakerThreshold int   `json:"circuitBreakerThreshold"`
	CircuitBreakerResetMs   int64 `json:"circuitBreakerResetMs"`

	// State retention
	CleanupCompletedAfterMs int64 `json:"cleanupCompletedAfterMs"`

	// Storage
	MediaRoot string `json:"mediaRoot"`

	// Fetch driver
	FetchTimeoutMs int64  `json:"fetchTimeoutMs"`
	BridgeURL      string `json:"bridgeUrl"`

	// Ingest
	SpoolDir string `json:"spoolDir"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		Enabled:          true,
		DownloadTypes:    []string{"image", "video", "audio", "document", "sticker", "voice-note"},
		MaxFileSize:      "50MB",
		AllowedMimeTypes: nil, // empty = accept all

		ConcurrentDownloads: 3,
		MaxQueueSize:        100,
		BatchProcessSize:    5,
		PauseOnHighMemoryMB: 512,

		RetryAttempts: 3,
		RetryDelayMs:  1000,

		EnableDeduplication:  true,
		EnableIntegrityCheck: true,
		DedupCacheSize:       1000,

		CircuitBreakerThreshold: 5,
		CircuitBreakerResetMs:   60000,

		CleanupCompletedAfterMs: int64(24 * time.Hour / time.Millisecond),

		MediaRoot: filepath.Join(homeDir, "mediadl", "media"),

		FetchTimeoutMs: 30000,
		BridgeURL:      "",

		SpoolDir: filepath.Join(homeDir, "mediadl", "spool"),
	}
}

// Load reads settings from a JSON file. A missing file is not an error;
// defaults are returned. Present keys override defaults, absent keys keep
// their default value.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file, creating parent directories.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// RetryDelay returns the base retry delay as a duration.
func (s *Settings) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelayMs) * time.Millisecond
}

// CircuitBreakerReset returns the breaker reset interval as a duration.
func (s *Settings) CircuitBreakerReset() time.Duration {
	return time.Duration(s.CircuitBreakerResetMs) * time.Millisecond
}

// CleanupCompletedAfter returns the state retention window as a duration.
func (s *Settings) CleanupCompletedAfter() time.Duration {
	return time.Duration(s.CleanupCompletedAfterMs) * time.Millisecond
}

// FetchTimeout returns the per-call fetch timeout as a duration.
func (s *Settings) FetchTimeout() time.Duration {
	return time.Duration(s.FetchTimeoutMs) * time.Millisecond
}

var sizeUnits = []struct {
	suffix string
	factor int64
}{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize parses a human-friendly size string like "50MB" or "1.5GB" into
// bytes. A bare number is taken as bytes. An empty string parses to zero,
// meaning no limit.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	upper := strings.ToUpper(s)
	for _, unit := range sizeUnits {
		if !strings.HasSuffix(upper, unit.suffix) {
			continue
		}
		num := strings.TrimSpace(strings.TrimSuffix(upper, unit.suffix))
		if num == "" {
			break
		}
		value, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q: %w", s, err)
		}
		if value < 0 {
			return 0, fmt.Errorf("invalid size %q: negative", s)
		}
		return int64(value * float64(unit.factor)), nil
	}

	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid size %q: negative", s)
	}
	return value, nil
}
