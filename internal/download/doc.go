// Package download provides the media download manager: the admission gate,
// the bounded queue and scheduler, the per-item retry state machine, the
// circuit breaker around the fetch driver, deduplication and persistence.
//
// # Manager
//
// The Manager's only synchronous entry point is ProcessEvent. It never
// blocks the caller for the actual download; it returns the event enriched
// with a LocalMedia field and everything else happens asynchronously:
//
//	manager, err := download.NewManager(settings, driver, store, log)
//	enriched := manager.ProcessEvent(ctx, event)
//	// enriched.LocalMedia: nil (ineligible), queued, or deduplicated
//
// # Load shedding
//
// When the queue is full the event is dropped, logged and counted; there is
// no backpressure signal to the producer. The producer must never block;
// dropped events have to be resubmitted externally if they matter.
//
// # Scheduling
//
// A single coordinator loop drains the queue in batches bounded by the free
// worker slots, pausing while heap usage exceeds the configured ceiling.
// Workers are dispatched fire-and-forget; retries re-enter the queue through
// a backoff timer without holding a goroutine.
//
// # Shutdown
//
// Close stops admissions, cancels in-flight fetches and stops backoff
// timers. An item caught mid-flight may be left without a terminal state;
// re-submission after restart is the caller's concern (at-most-once, not
// exactly-once).
package download
