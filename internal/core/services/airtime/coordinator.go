package airtime

import (
	"errors"
	"log/slog"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

// ErrChannelLocked is returned when a lower-precedence owner tries to move
// the radio off a portal-locked channel.
var ErrChannelLocked = errors.New("channel locked by portal")

// Coordinator arbitrates the radio channel between passive scanning,
// broadcast rotation and portal sessions. Precedence is portal lock, then
// broadcast, then scan. Not safe for concurrent use.
type Coordinator struct {
	radio  ports.Radio
	logger *slog.Logger

	current int
	owner   domain.ChannelOwner
	locked  int // 0 when no portal holds the channel

	scan      []int
	scanIdx   int
	lastHop   time.Time
	broadcast []int
	bcastIdx  int
	lastRot   time.Time

	switches uint64
	failures uint64
}

// NewCoordinator creates a coordinator over the given channel tables.
func NewCoordinator(radio ports.Radio, scan, broadcast []int, logger *slog.Logger) *Coordinator {
	if len(scan) == 0 {
		scan = domain.ScanChannels
	}
	if len(broadcast) == 0 {
		broadcast = domain.BroadcastChannels
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		radio:     radio,
		logger:    logger.With("component", "channel"),
		scan:      scan,
		broadcast: broadcast,
	}
}

// Tune moves the radio to ch on behalf of owner. While locked only the
// portal may tune, and only to the locked channel.
func (c *Coordinator) Tune(owner domain.ChannelOwner, ch int) error {
	if c.locked != 0 && (owner != domain.OwnerPortal || ch != c.locked) {
		return ErrChannelLocked
	}
	if ch != c.current {
		if err := c.radio.SetChannel(ch); err != nil {
			c.failures++
			c.logger.Debug("channel switch failed", "channel", ch, "owner", owner.String(), "error", err)
			return err
		}
		c.current = ch
		c.switches++
	}
	c.owner = owner
	return nil
}

// PortalSetter returns a setter for the multiplexer that tunes as the portal
// owner.
func (c *Coordinator) PortalSetter() func(int) error {
	return func(ch int) error {
		return c.Tune(domain.OwnerPortal, ch)
	}
}

// Lock pins the radio to ch for a portal session with an active victim.
func (c *Coordinator) Lock(ch int) {
	c.locked = ch
	c.owner = domain.OwnerPortal
}

// Unlock releases a portal lock.
func (c *Coordinator) Unlock() {
	c.locked = 0
}

// Locked returns the locked channel, or 0.
func (c *Coordinator) Locked() int { return c.locked }

// AllowDisruptive reports whether a disruptive frame may go out on ch.
// Frames for other channels are suppressed while a portal holds the lock.
func (c *Coordinator) AllowDisruptive(ch int) bool {
	return c.locked == 0 || ch == c.locked
}

// Step hands the channel to the highest-precedence owner for the rest of
// the tick: the locked portal, else broadcast rotation when broadcasting is
// active, else scan hopping.
func (c *Coordinator) Step(now time.Time, broadcasting bool) {
	switch {
	case c.locked != 0:
		_ = c.Tune(domain.OwnerPortal, c.locked)
	case broadcasting:
		if c.lastRot.IsZero() {
			c.lastRot = now
		} else if now.Sub(c.lastRot) >= domain.BroadcastRotateInterval {
			c.bcastIdx = (c.bcastIdx + 1) % len(c.broadcast)
			c.lastRot = now
		}
		_ = c.Tune(domain.OwnerBroadcast, c.broadcast[c.bcastIdx])
	default:
		if c.lastHop.IsZero() {
			c.lastHop = now
		} else if now.Sub(c.lastHop) >= domain.ScanHopInterval {
			c.scanIdx = (c.scanIdx + 1) % len(c.scan)
			c.lastHop = now
		}
		_ = c.Tune(domain.OwnerScan, c.scan[c.scanIdx])
	}
}

// Nudge moves the cursor of the active table by delta (operator next/prev
// channel) and tunes immediately unless a portal holds the lock.
func (c *Coordinator) Nudge(delta int, now time.Time, broadcasting bool) error {
	if broadcasting {
		c.bcastIdx = wrap(c.bcastIdx+delta, len(c.broadcast))
		c.lastRot = now
		return c.Tune(domain.OwnerBroadcast, c.broadcast[c.bcastIdx])
	}
	c.scanIdx = wrap(c.scanIdx+delta, len(c.scan))
	c.lastHop = now
	return c.Tune(domain.OwnerScan, c.scan[c.scanIdx])
}

func wrap(i, n int) int {
	return (i%n + n) % n
}

// Channel returns the channel the radio is tuned to.
func (c *Coordinator) Channel() int { return c.current }

// Owner returns the current channel owner.
func (c *Coordinator) Owner() domain.ChannelOwner { return c.owner }

// Failures returns how many channel switches failed.
func (c *Coordinator) Failures() uint64 { return c.failures }

// Reset clears lock and cursors.
func (c *Coordinator) Reset() {
	c.locked = 0
	c.owner = domain.OwnerScan
	c.scanIdx, c.bcastIdx = 0, 0
	c.lastHop, c.lastRot = time.Time{}, time.Time{}
	c.current = 0
}
