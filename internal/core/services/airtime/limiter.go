// Package airtime gates use of the shared radio: a per-channel limiter for
// disruptive frames, the channel ownership coordinator and the bait access
// point address rotation.
package airtime

import (
	"time"

	"github.com/lcalzada-xor/wkarma/internal/core/ring"
)

// Limiter bounds disruptive transmissions per channel. Each channel keeps
// the timestamps of its last ceiling transmissions, so no window of the
// configured duration ever holds more than ceiling frames. Over-limit frames
// are dropped, never queued. Not safe for concurrent use.
type Limiter struct {
	ceiling   int
	window    time.Duration
	channels  map[int]*ring.Ring[time.Time]
	throttled uint64
	allowed   uint64
}

// NewLimiter creates a limiter allowing ceiling frames per window per channel.
func NewLimiter(ceiling int, window time.Duration) *Limiter {
	if ceiling <= 0 {
		ceiling = 1
	}
	return &Limiter{
		ceiling:  ceiling,
		window:   window,
		channels: make(map[int]*ring.Ring[time.Time]),
	}
}

// Allow records and permits one frame on ch at now, or reports false when
// the channel is at its ceiling.
func (l *Limiter) Allow(ch int, now time.Time) bool {
	r, ok := l.channels[ch]
	if !ok {
		r = ring.New[time.Time](l.ceiling)
		l.channels[ch] = r
	}
	if r.Full() && now.Sub(r.At(0)) < l.window {
		l.throttled++
		return false
	}
	r.Push(now)
	l.allowed++
	return true
}

// InWindow returns how many frames were permitted on ch in the window ending at now.
func (l *Limiter) InWindow(ch int, now time.Time) int {
	r, ok := l.channels[ch]
	if !ok {
		return 0
	}
	n := 0
	r.Each(func(t time.Time) bool {
		if now.Sub(t) < l.window {
			n++
		}
		return true
	})
	return n
}

// Prune drops channels with no frame inside the window.
func (l *Limiter) Prune(now time.Time) {
	for ch, r := range l.channels {
		if newest, ok := r.Newest(); !ok || now.Sub(newest) >= l.window {
			delete(l.channels, ch)
		}
	}
}

// Throttled returns how many frames were dropped.
func (l *Limiter) Throttled() uint64 { return l.throttled }

// Allowed returns how many frames were permitted.
func (l *Limiter) Allowed() uint64 { return l.allowed }

// Reset forgets every channel window.
func (l *Limiter) Reset() {
	l.channels = make(map[int]*ring.Ring[time.Time])
}
