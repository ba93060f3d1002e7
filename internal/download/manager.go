package download

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/chatvault/mediadl/internal/admission"
	"github.com/chatvault/mediadl/internal/breaker"
	"github.com/chatvault/mediadl/internal/config"
	"github.com/chatvault/mediadl/internal/dedup"
	"github.com/chatvault/mediadl/internal/fetch"
	"github.com/chatvault/mediadl/internal/logging"
	"github.com/chatvault/mediadl/internal/model"
	"github.com/chatvault/mediadl/internal/probe"
	"github.com/chatvault/mediadl/internal/queue"
	"github.com/chatvault/mediadl/internal/verify"
)

const (
	// pollInterval is the scheduler's pause between dispatch batches.
	pollInterval = 100 * time.Millisecond

	// memoryPauseInterval is the longer pause while heap usage is above
	// the configured ceiling.
	memoryPauseInterval = time.Second
)

// Persister writes downloads and failure records. *storage.Store is the
// production implementation.
type Persister interface {
	SaveMedia(e *model.MediaEvent, data []byte, verified bool, info probe.Info) (*model.DownloadResult, error)
	SaveFailure(e *model.MediaEvent, errMsg string) error
}

// Manager coordinates media downloads end to end. The dedup cache, the
// state map and the breaker each serialize behind their own mutex; no
// operation ever holds two of them at once.
type Manager struct {
	settings    *config.Settings
	concurrency int

	gate     *admission.Gate
	cache    *dedup.Cache
	brk      *breaker.Breaker
	q        *queue.Queue
	driver   fetch.Driver
	store    Persister
	log      logging.Logger

	states   map[string]*model.ItemState
	statesMu sync.Mutex

	sem    *semaphore.Weighted
	active atomic.Int32

	counters     counters
	schedRunning atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager builds a manager from settings and collaborators. The returned
// manager is ready; downloads start as soon as ProcessEvent admits an event.
func NewManager(settings *config.Settings, driver fetch.Driver, store Persister, log logging.Logger) (*Manager, error) {
	maxBytes, err := config.ParseSize(settings.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("maxFileSize: %w", err)
	}

	concurrency := settings.ConcurrentDownloads
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		settings:    settings,
		concurrency: concurrency,
		gate:        admission.NewGate(settings.Enabled, settings.DownloadTypes, maxBytes, settings.AllowedMimeTypes),
		cache:       dedup.NewCache(settings.DedupCacheSize),
		brk:         breaker.New(settings.CircuitBreakerThreshold, settings.CircuitBreakerReset()),
		q:           queue.New(settings.MaxQueueSize),
		driver:      driver,
		store:       store,
		log:         log,
		states:      make(map[string]*model.ItemState),
		sem:         semaphore.NewWeighted(int64(concurrency)),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// ProcessEvent is the synchronous entry point. It runs admission and
// deduplication, queues eligible events and returns the event enriched with
// a LocalMedia field. It never blocks on the download itself and never
// returns an error: all failure information surfaces asynchronously through
// the state map, failure records and stats.
func (m *Manager) ProcessEvent(ctx context.Context, e model.MediaEvent) model.MediaEvent {
	m.counters.processed.Add(1)

	if ok, reason := m.gate.Check(&e); !ok {
		m.log.Debug(ctx, "event not eligible", "reason", reason, "type", e.Type)
		return e
	}

	id := e.LogicalID()

	if !m.createPendingIfAbsent(id) {
		m.counters.deduplicated.Add(1)
		m.log.Debug(ctx, "duplicate suppressed", "id", id)
		e.LocalMedia = model.DeduplicatedLocalMedia()
		return e
	}
	if m.settings.EnableDeduplication && m.cache.CheckAndRecord(e.Fingerprint(), id) {
		m.removeState(id)
		m.counters.deduplicated.Add(1)
		m.log.Debug(ctx, "duplicate suppressed", "id", id)
		e.LocalMedia = model.DeduplicatedLocalMedia()
		return e
	}

	item := queue.Item{ID: id, Event: e, EnqueuedAt: time.Now()}
	if !m.q.TryEnqueue(item) {
		// deliberate load-shedding: drop, undo the admission so the
		// content stays eligible for a future attempt
		m.removeState(id)
		m.cache.ForgetIdentity(id)
		m.counters.dropped.Add(1)
		m.log.Warn(ctx, "queue full, dropping event", "id", id, "queueSize", m.settings.MaxQueueSize)
		return e
	}

	m.counters.queued.Add(1)
	m.ensureScheduler()

	e.LocalMedia = model.QueuedLocalMedia()
	return e
}

// ItemState returns a copy of the tracked state for an identity.
func (m *Manager) ItemState(id string) (model.ItemState, bool) {
	m.statesMu.Lock()
	defer m.statesMu.Unlock()

	st, ok := m.states[id]
	if !ok {
		return model.ItemState{}, false
	}
	return *st, true
}

// Stats returns the current counters and gauges.
func (m *Manager) Stats() Stats {
	return Stats{
		Processed:    m.counters.processed.Load(),
		Downloaded:   m.counters.downloaded.Load(),
		Errors:       m.counters.errors.Load(),
		Queued:       m.counters.queued.Load(),
		Deduplicated: m.counters.deduplicated.Load(),
		Dropped:      m.counters.dropped.Load(),
		Retries:      m.counters.retries.Load(),
		BreakerTrips: m.counters.breakerTrips.Load(),

		QueueLength:     m.q.Len(),
		DelayedLength:   m.q.DelayedLen(),
		ActiveDownloads: int(m.active.Load()),
		CacheSize:       m.cache.Len(),
		BreakerState:    m.brk.Snapshot().State.String(),
	}
}

// CleanupCompleted purges terminal item states older than the configured
// retention window, together with their dedup fingerprints, and returns how
// many were removed. Purged content becomes downloadable again.
func (m *Manager) CleanupCompleted() int {
	cutoff := time.Now().Add(-m.settings.CleanupCompletedAfter())

	m.statesMu.Lock()
	var purged []string
	for id, st := range m.states {
		if st.Status.Terminal() && st.UpdatedAt.Before(cutoff) {
			delete(m.states, id)
			purged = append(purged, id)
		}
	}
	m.statesMu.Unlock()

	// cache lock taken after the state lock is released
	for _, id := range purged {
		m.cache.ForgetIdentity(id)
	}
	if len(purged) > 0 {
		m.log.Info(m.ctx, "purged completed states", "count", len(purged))
	}
	return len(purged)
}

// Close stops admissions, cancels in-flight fetches and stops backoff
// timers. In-flight items may be left without a terminal state.
func (m *Manager) Close() {
	m.cancel()
	m.q.Close()
}

// ensureScheduler starts the coordinator loop unless one is already
// running. Safe to call from any goroutine.
func (m *Manager) ensureScheduler() {
	if m.schedRunning.CompareAndSwap(false, true) {
		go m.scheduleLoop()
	}
}

// scheduleLoop is the single coordinator. After each idle drain it releases
// the running flag and re-checks the queue, so an admission racing the
// shutdown either starts its own coordinator or revives this one; an item
// admitted while the flag was still held is never stranded.
func (m *Manager) scheduleLoop() {
	for {
		m.drain()
		if !m.reschedule() {
			return
		}
	}
}

// drain dispatches batches until nothing is queued, delayed or in flight,
// or the manager closes.
func (m *Manager) drain() {
	for {
		if m.ctx.Err() != nil {
			return
		}

		if m.memoryPressure() {
			m.log.Warn(m.ctx, "pausing downloads under memory pressure",
				"ceilingMB", m.settings.PauseOnHighMemoryMB)
			if !m.sleep(memoryPauseInterval) {
				return
			}
			continue
		}

		free := m.concurrency - int(m.active.Load())
		batch := m.settings.BatchProcessSize
		if batch <= 0 || batch > free {
			batch = free
		}
		for _, item := range m.q.Dequeue(batch) {
			m.dispatch(item)
		}

		if m.q.Pending() == 0 && m.active.Load() == 0 {
			return
		}
		if !m.sleep(pollInterval) {
			return
		}
	}
}

// reschedule releases the running flag, then reclaims it when work arrived
// between the idle decision and the release. False means the coordinator
// may exit: either the queue is empty, or a newer coordinator took the flag
// and owns the remaining work.
func (m *Manager) reschedule() bool {
	m.schedRunning.Store(false)

	if m.ctx.Err() != nil || m.q.Pending() == 0 {
		return false
	}
	return m.schedRunning.CompareAndSwap(false, true)
}

// dispatch hands one item to a worker without waiting for completion.
func (m *Manager) dispatch(item queue.Item) {
	if !m.sem.TryAcquire(1) {
		// no free slot after all; put it back for the next pass through
		// the delayed path, which cannot drop the item
		m.q.EnqueueAfter(item, pollInterval)
		return
	}
	m.active.Add(1)
	go func() {
		defer func() {
			m.active.Add(-1)
			m.sem.Release(1)
		}()
		m.work(item)
	}()
}

// work runs one download attempt: breaker check, fetch, integrity
// verification, persistence, state transition.
func (m *Manager) work(item queue.Item) {
	m.setStatus(item.ID, model.StatusDownloading, item.Retries)

	if !m.brk.Allow() {
		m.counters.breakerTrips.Add(1)
		m.log.Warn(m.ctx, "circuit breaker open, attempt rejected", "id", item.ID)
		m.fail(item, "circuit breaker open")
		return
	}

	result, err := m.driver.Fetch(m.ctx, item.Event.Pointer)
	if err != nil {
		m.brk.RecordFailure()
		m.log.Warn(m.ctx, "fetch failed", "id", item.ID, "attempt", item.Retries+1, "err", err)
		m.fail(item, err.Error())
		return
	}
	m.brk.RecordSuccess()

	verified := false
	if m.settings.EnableIntegrityCheck && item.Event.Pointer.FileHash != "" {
		if !verify.Matches(result.Data, item.Event.Pointer.FileHash) {
			// mismatched bytes are discarded, never persisted
			m.log.Warn(m.ctx, "integrity mismatch", "id", item.ID)
			m.fail(item, "integrity verification failed")
			return
		}
		verified = true
	}

	event := item.Event
	if event.Mimetype == "" {
		event.Mimetype = result.Mimetype
	}

	saved, err := m.store.SaveMedia(&event, result.Data, verified, probe.Inspect(&event, result.Data))
	if err != nil {
		m.log.Error(m.ctx, "persist failed", "id", item.ID, "err", err)
		m.fail(item, err.Error())
		return
	}

	m.setDownloaded(item.ID, saved)
	m.counters.downloaded.Add(1)
	m.log.Info(m.ctx, "download complete", "id", item.ID, "file", saved.FileName,
		"size", saved.Size, "verified", verified)
}

// fail applies the shared retry/backoff decision for a failed attempt.
func (m *Manager) fail(item queue.Item, reason string) {
	if item.Retries < m.settings.RetryAttempts {
		item.Retries++
		m.counters.retries.Add(1)
		m.setStatus(item.ID, model.StatusPending, item.Retries)

		// retryDelay × 2^(n−1), applied via deferred re-insertion so no
		// goroutine is held during backoff
		delay := m.settings.RetryDelay() * time.Duration(1<<(item.Retries-1))
		m.log.Info(m.ctx, "retry scheduled", "id", item.ID, "attempt", item.Retries, "delay", delay)
		m.q.EnqueueAfter(item, delay)
		return
	}

	m.setError(item.ID, reason)
	m.counters.errors.Add(1)
	if err := m.store.SaveFailure(&item.Event, reason); err != nil {
		m.log.Error(m.ctx, "failure record not written", "id", item.ID, "err", err)
	}
	m.log.Error(m.ctx, "download failed permanently", "id", item.ID, "reason", reason)
}

func (m *Manager) memoryPressure() bool {
	if m.settings.PauseOnHighMemoryMB <= 0 {
		return false
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc > uint64(m.settings.PauseOnHighMemoryMB)<<20
}

// sleep waits for d or until the manager closes; false means closed.
func (m *Manager) sleep(d time.Duration) bool {
	select {
	case <-m.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// createPendingIfAbsent installs a fresh pending state unless a live one
// already exists. Check and insert share one critical section, so two
// concurrent submissions of the same identity admit exactly one.
func (m *Manager) createPendingIfAbsent(id string) bool {
	m.statesMu.Lock()
	defer m.statesMu.Unlock()

	if st, ok := m.states[id]; ok && !st.Status.Terminal() {
		return false
	}
	m.states[id] = &model.ItemState{
		ID:        id,
		Status:    model.StatusPending,
		UpdatedAt: time.Now(),
	}
	return true
}

func (m *Manager) removeState(id string) {
	m.statesMu.Lock()
	defer m.statesMu.Unlock()
	delete(m.states, id)
}

func (m *Manager) setStatus(id string, status model.ItemStatus, retries int) {
	m.statesMu.Lock()
	defer m.statesMu.Unlock()

	if st, ok := m.states[id]; ok {
		st.Status = status
		st.Retries = retries
		st.UpdatedAt = time.Now()
	}
}

func (m *Manager) setDownloaded(id string, result *model.DownloadResult) {
	m.statesMu.Lock()
	defer m.statesMu.Unlock()

	if st, ok := m.states[id]; ok {
		st.Status = model.StatusDownloaded
		st.Result = result
		st.UpdatedAt = time.Now()
	}
}

func (m *Manager) setError(id, msg string) {
	m.statesMu.Lock()
	defer m.statesMu.Unlock()

	if st, ok := m.states[id]; ok {
		st.Status = model.StatusError
		st.Err = msg
		st.UpdatedAt = time.Now()
	}
}
