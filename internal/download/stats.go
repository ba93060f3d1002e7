package download

import "sync/atomic"

// Stats is a point-in-time snapshot of the manager's counters and gauges.
type Stats struct {
	// Counters
	Processed    int64 `json:"processed"`
	Downloaded   int64 `json:"downloaded"`
	Errors       int64 `json:"errors"`
	Queued       int64 `json:"queued"`
	Deduplicated int64 `json:"deduplicated"`
	Dropped      int64 `json:"dropped"`
	Retries      int64 `json:"retries"`
	BreakerTrips int64 `json:"breakerTrips"`

	// Gauges
	QueueLength     int    `json:"queueLength"`
	DelayedLength   int    `json:"delayedLength"`
	ActiveDownloads int    `json:"activeDownloads"`
	CacheSize       int    `json:"cacheSize"`
	BreakerState    string `json:"breakerState"`
}

// counters holds the manager's atomic counters. Gauges are read live from
// the owning structures when a snapshot is taken.
type counters struct {
	processed    atomic.Int64
	downloaded   atomic.Int64
	errors       atomic.Int64
	queued       atomic.Int64
	deduplicated atomic.Int64
	dropped      atomic.Int64
	retries      atomic.Int64
	breakerTrips atomic.Int64
}
