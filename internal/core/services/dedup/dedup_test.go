package dedup

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	mac, _ := net.ParseMAC("02:11:22:33:44:55")
	assert.Equal(t, "02:11:22:33:44:55:beef", Key(domain.ProbeEvent{MAC: mac, Fingerprint: 0xbeef}))
}

func TestSeen_WithinWindow(t *testing.T) {
	c := New(domain.DedupCapacity, domain.DedupWindow)
	now := time.Unix(1700000000, 0)

	assert.False(t, c.Seen("a", now))
	assert.True(t, c.Seen("a", now.Add(100*time.Millisecond)))
	assert.False(t, c.Seen("a", now.Add(domain.DedupWindow)))
	assert.Equal(t, uint64(1), c.Hits())
}

func TestSeen_FIFOEviction(t *testing.T) {
	c := New(3, time.Minute)
	now := time.Unix(1700000000, 0)

	c.Seen("a", now)
	c.Seen("b", now)
	c.Seen("c", now)
	// A repeat hit does not refresh position
	assert.True(t, c.Seen("a", now))

	c.Seen("d", now)
	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Seen("a", now), "a was oldest and must be evicted")
	assert.True(t, c.Seen("c", now))
}

func TestSeen_ReinsertedKeySurvivesOldCopyEviction(t *testing.T) {
	c := New(2, time.Second)
	now := time.Unix(1700000000, 0)

	c.Seen("a", now)
	c.Seen("a", now.Add(2*time.Second)) // outside window, pushed again
	c.Seen("b", now.Add(2*time.Second)) // evicts the first "a"

	assert.True(t, c.Seen("a", now.Add(2500*time.Millisecond)))
}

func TestSeen_Bounded(t *testing.T) {
	c := New(domain.DedupCapacity, time.Minute)
	now := time.Now()
	for i := 0; i < domain.DedupCapacity*4; i++ {
		c.Seen(fmt.Sprintf("k%d", i), now)
	}
	assert.Equal(t, domain.DedupCapacity, c.Len())
	assert.Len(t, c.latest, domain.DedupCapacity)
}

func TestClear(t *testing.T) {
	c := New(4, time.Minute)
	now := time.Now()
	c.Seen("a", now)
	c.Clear()
	assert.Zero(t, c.Len())
	assert.False(t, c.Seen("a", now))
}
