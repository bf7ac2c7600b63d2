// Package dedup suppresses reprocessing of events seen moments ago.
package dedup

import (
	"strconv"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ring"
)

type entry struct {
	key  string
	seen time.Time
}

// Cache is a fixed-capacity FIFO of recently seen keys. Eviction is strictly
// oldest-first regardless of how often a key recurs. Not safe for concurrent
// use.
type Cache struct {
	window time.Duration
	order  *ring.Ring[entry]
	latest map[string]time.Time
	hits   uint64
}

// New creates a cache remembering up to capacity keys for window.
func New(capacity int, window time.Duration) *Cache {
	return &Cache{
		window: window,
		order:  ring.New[entry](capacity),
		latest: make(map[string]time.Time, capacity),
	}
}

// Key builds the "mac:fingerprint" key for a probe.
func Key(p domain.ProbeEvent) string {
	return p.MAC.String() + ":" + strconv.FormatUint(uint64(p.Fingerprint), 16)
}

// Seen reports whether key was recorded within the window before now. A key
// that is not a duplicate is recorded.
func (c *Cache) Seen(key string, now time.Time) bool {
	if t, ok := c.latest[key]; ok && now.Sub(t) < c.window {
		c.hits++
		return true
	}

	old, evicted := c.order.Push(entry{key: key, seen: now})
	if evicted && c.latest[old.key].Equal(old.seen) {
		delete(c.latest, old.key)
	}
	c.latest[key] = now
	return false
}

// Len returns the number of entries in the FIFO.
func (c *Cache) Len() int {
	return c.order.Len()
}

// Hits returns how many lookups were suppressed.
func (c *Cache) Hits() uint64 {
	return c.hits
}

// Clear forgets every key.
func (c *Cache) Clear() {
	c.order.Clear()
	c.latest = make(map[string]time.Time, c.order.Cap())
}
