package airtime

import (
	"math/rand"
	"net"
	"time"
)

// Rotator hands out the bait access point address and replaces it with a
// fresh locally administered unicast address every interval, independent of
// channel state.
type Rotator struct {
	interval time.Duration
	rng      *rand.Rand
	current  net.HardwareAddr
	since    time.Time
	rotated  uint64
}

// NewRotator creates a rotator. seed fixes the address sequence.
func NewRotator(interval time.Duration, seed int64) *Rotator {
	return &Rotator{
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// BSSID returns the address in force at now, rotating first if due.
func (r *Rotator) BSSID(now time.Time) net.HardwareAddr {
	if r.current == nil || now.Sub(r.since) >= r.interval {
		r.current = r.randomMAC()
		r.since = now
		r.rotated++
	}
	return r.current
}

// Rotations returns how many addresses were issued.
func (r *Rotator) Rotations() uint64 { return r.rotated }

// Reset forces a new address on the next call.
func (r *Rotator) Reset() {
	r.current = nil
}

// randomMAC generates a random unicast MAC address
func (r *Rotator) randomMAC() net.HardwareAddr {
	buf := make([]byte, 6)
	r.rng.Read(buf)
	// Set locally administered bit (bit 1 of first byte) and unset multicast bit (bit 0)
	buf[0] = (buf[0] | 0x02) & 0xfe
	return net.HardwareAddr(buf)
}
