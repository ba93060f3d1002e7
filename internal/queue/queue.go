// Package queue provides the bounded ready queue feeding the download
// workers, plus timer-based delayed re-insertion for the retry path.
//
// Enqueue never blocks: a full queue fails the enqueue and the caller drops
// the item. This is deliberate load-shedding; the event producer must never
// be backpressured.
package queue

import (
	"sync"
	"time"

	"github.com/chatvault/mediadl/internal/model"
)

// Item is one pending download. The queue owns it while pending; ownership
// transfers to a single worker for the duration of one attempt.
type Item struct {
	ID         string
	Event      model.MediaEvent
	EnqueuedAt time.Time
	Retries    int
}

// Queue is a bounded FIFO guarded by a single mutex.
type Queue struct {
	mu       sync.Mutex
	capacity int
	items    []Item
	delayed  int
	timers   map[*time.Timer]struct{}
	closed   bool
}

// New creates a queue bounded to capacity items. A non-positive capacity
// falls back to 100.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 100
	}
	return &Queue{
		capacity: capacity,
		timers:   make(map[*time.Timer]struct{}),
	}
}

// TryEnqueue appends the item, or returns false when the queue is at
// capacity or closed. It never blocks.
func (q *Queue) TryEnqueue(item Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, item)
	return true
}

// EnqueueAfter re-inserts the item at the tail once the delay elapses,
// without holding any goroutine in the meantime. The capacity bound applies
// to new admissions only; an item re-entering on the retry path already
// holds its slot, so the insertion cannot fail.
func (q *Queue) EnqueueAfter(item Item, delay time.Duration) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.delayed++

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.timers, timer)
		q.delayed--
		if q.closed {
			return
		}
		q.items = append(q.items, item)
	})
	q.timers[timer] = struct{}{}
	q.mu.Unlock()
}

// Dequeue pops up to max items from the head, preserving FIFO order.
// Returns nil when the queue is empty.
func (q *Queue) Dequeue(max int) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	if max <= 0 || len(q.items) == 0 {
		return nil
	}
	n := max
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := make([]Item, n)
	copy(batch, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	return batch
}

// Len returns the number of items ready for dispatch.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// DelayedLen returns the number of items waiting on a backoff timer.
func (q *Queue) DelayedLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.delayed
}

// Pending returns ready plus delayed items, counted under a single lock
// acquisition. A backoff timer firing between two separate reads could hide
// an item; this snapshot cannot.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) + q.delayed
}

// Close rejects further enqueues and stops all pending backoff timers.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for timer := range q.timers {
		timer.Stop()
	}
	q.timers = make(map[*time.Timer]struct{})
	q.delayed = 0
}
