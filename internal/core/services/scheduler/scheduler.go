// Package scheduler holds the bounded attack-request queue and decides which
// requests launch under strict tier precedence.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

var (
	// ErrQueueFull is returned when admission is refused for capacity.
	ErrQueueFull = errors.New("attack queue full")
	// ErrDuplicate is returned when the SSID is already queued.
	ErrDuplicate = errors.New("ssid already queued")
	// ErrNotQueued is returned by Launch for a request not in the queue.
	ErrNotQueued = errors.New("request not queued")
)

// Launcher starts a portal session for a request.
type Launcher interface {
	Launch(req domain.AttackRequest, now time.Time) error
}

// Scheduler is the tiered attack queue. Not safe for concurrent use.
type Scheduler struct {
	capacity int
	queue    []domain.AttackRequest

	rejected uint64
	purged   uint64
	launched map[domain.Tier]uint64
}

// New creates a scheduler whose queue holds at most capacity requests.
func New(capacity int) *Scheduler {
	if capacity <= 0 {
		capacity = domain.RequestQueueCapacity
	}
	return &Scheduler{
		capacity: capacity,
		queue:    make([]domain.AttackRequest, 0, capacity),
		launched: make(map[domain.Tier]uint64),
	}
}

// Admit appends req. A full queue rejects it without touching existing
// entries.
func (s *Scheduler) Admit(req domain.AttackRequest) error {
	if s.Contains(req.SSID) {
		return ErrDuplicate
	}
	if len(s.queue) >= s.capacity {
		s.rejected++
		return ErrQueueFull
	}
	if req.Duration == 0 {
		req.Duration = req.Tier.Duration()
	}
	req.Launched = false
	s.queue = append(s.queue, req)
	return nil
}

// NewRequest builds a request for a scored probe.
func NewRequest(p domain.ProbeEvent, tier domain.Tier, score int) domain.AttackRequest {
	return domain.AttackRequest{
		SSID:          p.SSID,
		Channel:       p.Channel,
		TargetMAC:     p.MAC,
		Tier:          tier,
		PriorityScore: score,
		Duration:      tier.Duration(),
		CreatedAt:     p.Timestamp,
	}
}

// NewCloneRequest builds a clone request mimicking an observed network.
func NewCloneRequest(b domain.BeaconEvent, now time.Time) domain.AttackRequest {
	return domain.AttackRequest{
		SSID:          b.SSID,
		Channel:       b.Channel,
		Tier:          domain.TierClone,
		Duration:      domain.TierClone.Duration(),
		IsCloneAttack: true,
		CreatedAt:     now,
		BSSID:         b.BSSID,
		Security:      b.Security,
	}
}

// Purge drops unlaunched requests older than RequestHorizon, whatever their
// tier, and returns how many were dropped.
func (s *Scheduler) Purge(now time.Time) int {
	kept := s.queue[:0]
	n := 0
	for _, r := range s.queue {
		if !r.Launched && r.Expired(now) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	clearTail(s.queue, len(kept))
	s.queue = kept
	s.purged += uint64(n)
	return n
}

// Select returns the requests to launch this tick. Precedence is strict:
// if any Clone request is queued only Clone requests are returned, else
// High, else Medium (bounded so that live plus selected Medium sessions stay
// within MaxConcurrentMedium), else Fast. Medium requests held back by that
// bound do not block Fast ones. At most freeSlots are returned.
func (s *Scheduler) Select(freeSlots, liveMedium int) []domain.AttackRequest {
	if freeSlots <= 0 || len(s.queue) == 0 {
		return nil
	}
	for _, tier := range []domain.Tier{domain.TierClone, domain.TierHigh, domain.TierMedium, domain.TierFast} {
		if s.count(tier) == 0 {
			continue
		}
		limit := freeSlots
		if tier == domain.TierMedium {
			room := domain.MaxConcurrentMedium - liveMedium
			if room <= 0 {
				continue
			}
			if room < limit {
				limit = room
			}
		}
		var out []domain.AttackRequest
		for _, r := range s.queue {
			if len(out) >= limit {
				break
			}
			if r.Tier == tier && !r.Launched {
				out = append(out, r)
			}
		}
		return out
	}
	return nil
}

// Launch hands req to l and removes it from the queue whether or not the
// launch succeeded; a failed launch is not retried from the queue.
func (s *Scheduler) Launch(req domain.AttackRequest, now time.Time, l Launcher) error {
	idx := s.indexOf(req.SSID)
	if idx < 0 {
		return ErrNotQueued
	}
	s.remove(idx)

	req.Launched = true
	if err := l.Launch(req, now); err != nil {
		return fmt.Errorf("launch %q: %w", req.SSID, err)
	}
	s.launched[req.Tier]++
	return nil
}

// Contains reports whether ssid is queued.
func (s *Scheduler) Contains(ssid string) bool {
	return s.indexOf(ssid) >= 0
}

// Len returns the queue depth.
func (s *Scheduler) Len() int {
	return len(s.queue)
}

// CountByTier returns the queue depth per tier.
func (s *Scheduler) CountByTier() map[domain.Tier]int {
	out := make(map[domain.Tier]int, len(domain.Tiers))
	for _, r := range s.queue {
		out[r.Tier]++
	}
	return out
}

// Rejected returns how many admissions were refused for capacity.
func (s *Scheduler) Rejected() uint64 { return s.rejected }

// Purged returns how many requests expired unlaunched.
func (s *Scheduler) Purged() uint64 { return s.purged }

// Launched returns how many requests of tier were launched successfully.
func (s *Scheduler) Launched(tier domain.Tier) uint64 { return s.launched[tier] }

// Clear empties the queue. Counters are kept.
func (s *Scheduler) Clear() {
	clearTail(s.queue, 0)
	s.queue = s.queue[:0]
}

func (s *Scheduler) count(tier domain.Tier) int {
	n := 0
	for _, r := range s.queue {
		if r.Tier == tier && !r.Launched {
			n++
		}
	}
	return n
}

func (s *Scheduler) indexOf(ssid string) int {
	for i, r := range s.queue {
		if r.SSID == ssid {
			return i
		}
	}
	return -1
}

func (s *Scheduler) remove(i int) {
	copy(s.queue[i:], s.queue[i+1:])
	s.queue[len(s.queue)-1] = domain.AttackRequest{}
	s.queue = s.queue[:len(s.queue)-1]
}

// clearTail zeroes q[from:] so dropped requests release their slices.
func clearTail(q []domain.AttackRequest, from int) {
	for i := from; i < len(q); i++ {
		q[i] = domain.AttackRequest{}
	}
}
