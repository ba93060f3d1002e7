// Package breaker implements the three-state circuit breaker guarding the
// external fetch driver.
//
// The breaker opens after a configured number of consecutive failures,
// rejects every call while open, and after the reset interval lets exactly
// one probe call through (half-open). A success there closes it again; a
// failure reopens it.
package breaker

import (
	"sync"
	"time"
)

// State is the breaker mode.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is a shared, mutex-guarded circuit breaker. One instance guards
// one downstream dependency; every worker records through it.
type Breaker struct {
	mu            sync.Mutex
	threshold     int
	resetInterval time.Duration

	state       State
	failures    int // consecutive
	successes   int
	lastFailure time.Time
}

// Snapshot is a point-in-time copy of the breaker state for stats.
type Snapshot struct {
	State       State
	Failures    int
	Successes   int
	LastFailure time.Time
}

// New creates a breaker that opens after threshold consecutive failures and
// allows a probe after resetInterval. A non-positive threshold falls back
// to 5.
func New(threshold int, resetInterval time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	return &Breaker{
		threshold:     threshold,
		resetInterval: resetInterval,
	}
}

// Allow reports whether a call may proceed. While open it returns false
// until the reset interval has elapsed since the last failure, then flips to
// half-open and admits a single probe; further calls are rejected until that
// probe reports its outcome.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if time.Since(b.lastFailure) >= b.resetInterval {
			b.state = HalfOpen
			return true
		}
		return false
	case HalfOpen:
		// probe in flight
		return false
	}
	return false
}

// RecordSuccess closes the breaker and resets the consecutive-failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes++
	b.failures = 0
	b.state = Closed
}

// RecordFailure notes a failed call. Reaching the threshold, or failing the
// half-open probe, opens the breaker and stamps the failure time.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()
	if b.state == HalfOpen || b.failures >= b.threshold {
		b.state = Open
	}
}

// Snapshot returns a copy of the current breaker state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:       b.state,
		Failures:    b.failures,
		Successes:   b.successes,
		LastFailure: b.lastFailure,
	}
}
