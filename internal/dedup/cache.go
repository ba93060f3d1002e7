// Package dedup implements the bounded fingerprint cache that suppresses
// re-downloads of content already seen.
//
// The cache maps deduplication fingerprints to logical identities. It is
// bounded by entry count and evicts the single oldest entry by insertion
// order when the bound is exceeded. Insertion order, not access recency: the
// goal is bounding memory, not maximizing hit rate.
package dedup

import "sync"

// Cache is a thread-safe, bounded fingerprint → identity map.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]string
	order      []string // fingerprints in insertion order; may hold tombstones
}

// NewCache creates a cache bounded to maxEntries. A non-positive bound
// falls back to 1000.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[string]string),
	}
}

// CheckAndRecord reports whether the fingerprint was already seen. If it was
// not, the fingerprint is recorded against the identity in the same step, so
// two concurrent callers with the same fingerprint can never both get false.
// An empty fingerprint is never a duplicate and is not recorded.
func (c *Cache) CheckAndRecord(fingerprint, identity string) bool {
	if fingerprint == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, seen := c.entries[fingerprint]; seen {
		return true
	}

	c.entries[fingerprint] = identity
	c.order = append(c.order, fingerprint)
	c.evictLocked()
	return false
}

// ForgetIdentity removes every fingerprint recorded for the identity. Used
// by the cleanup pass so purged items can be re-admitted later.
func (c *Cache) ForgetIdentity(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for fp, id := range c.entries {
		if id == identity {
			delete(c.entries, fp)
		}
	}
	// order keeps tombstones; evictLocked skips them
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops oldest entries until the bound holds, skipping
// tombstones left behind by ForgetIdentity.
func (c *Cache) evictLocked() {
	for len(c.entries) > c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	// compact leading tombstones so order does not grow unbounded
	for len(c.order) > 0 {
		if _, live := c.entries[c.order[0]]; live {
			break
		}
		c.order = c.order[1:]
	}
}
