// Package tracker keeps behavioral state per client fingerprint and turns a
// probe into an attack priority.
package tracker

import (
	"container/list"
	"net"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// Tracker is a capacity-bounded client table keyed by fingerprint. When full,
// a new fingerprint evicts the least recently seen profile. Not safe for
// concurrent use; the engine owns it.
type Tracker struct {
	capacity  int
	profiles  map[domain.Fingerprint]*list.Element
	lru       *list.List // front = most recently seen
	evictions uint64
}

// New creates a tracker holding at most capacity profiles.
func New(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = domain.MaxClients
	}
	return &Tracker{
		capacity: capacity,
		profiles: make(map[domain.Fingerprint]*list.Element),
		lru:      list.New(),
	}
}

// Ingest folds p into its profile, creating it if needed, and returns the
// updated profile. The pointer stays valid until the profile is evicted.
func (t *Tracker) Ingest(p domain.ProbeEvent) *domain.ClientProfile {
	var prof *domain.ClientProfile
	if elem, ok := t.profiles[p.Fingerprint]; ok {
		t.lru.MoveToFront(elem)
		prof = elem.Value.(*domain.ClientProfile)
	} else {
		if t.lru.Len() >= t.capacity {
			t.evictOldest()
		}
		prof = &domain.ClientProfile{
			Fingerprint: p.Fingerprint,
			FirstSeen:   p.Timestamp,
		}
		t.profiles[p.Fingerprint] = t.lru.PushFront(prof)
	}

	prof.LastObservedMAC = append(net.HardwareAddr(prof.LastObservedMAC[:0]), p.MAC...)
	prof.PreviousSeen = prof.LastSeen
	prof.LastSeen = p.Timestamp
	prof.ProbeCount++
	prof.RunningAvgRSSI += (float64(p.RSSI) - prof.RunningAvgRSSI) / float64(prof.ProbeCount)
	prof.RecordChannel(p.Channel)

	if !p.Wildcard() && !prof.HasProbed(p.SSID) && len(prof.ProbedSSIDs) < domain.MaxProbedSSIDs {
		prof.ProbedSSIDs = append(prof.ProbedSSIDs, p.SSID)
	}
	if len(prof.ProbedSSIDs) >= domain.VulnerableSSIDThreshold {
		prof.Vulnerable = true
	}
	return prof
}

func (t *Tracker) evictOldest() {
	oldest := t.lru.Back()
	if oldest == nil {
		return
	}
	t.lru.Remove(oldest)
	delete(t.profiles, oldest.Value.(*domain.ClientProfile).Fingerprint)
	t.evictions++
}

// Get returns the profile for fp without touching recency.
func (t *Tracker) Get(fp domain.Fingerprint) (*domain.ClientProfile, bool) {
	elem, ok := t.profiles[fp]
	if !ok {
		return nil, false
	}
	return elem.Value.(*domain.ClientProfile), true
}

// MarkAttempt stamps the profile's last attack attempt.
func (t *Tracker) MarkAttempt(fp domain.Fingerprint, now time.Time) {
	if prof, ok := t.Get(fp); ok {
		prof.LastAttackAttempt = now
	}
}

// InCooldown reports whether the profile was attacked within AttackCooldown.
func InCooldown(prof *domain.ClientProfile, now time.Time) bool {
	return !prof.LastAttackAttempt.IsZero() && now.Sub(prof.LastAttackAttempt) < domain.AttackCooldown
}

// Len returns the number of profiles held.
func (t *Tracker) Len() int {
	return t.lru.Len()
}

// Evictions returns how many profiles were dropped for capacity.
func (t *Tracker) Evictions() uint64 {
	return t.evictions
}

// VulnerableCount returns the number of profiles flagged vulnerable.
func (t *Tracker) VulnerableCount() int {
	n := 0
	for e := t.lru.Front(); e != nil; e = e.Next() {
		if e.Value.(*domain.ClientProfile).Vulnerable {
			n++
		}
	}
	return n
}

// Each visits profiles from most to least recently seen until fn returns false.
func (t *Tracker) Each(fn func(*domain.ClientProfile) bool) {
	for e := t.lru.Front(); e != nil; e = e.Next() {
		if !fn(e.Value.(*domain.ClientProfile)) {
			return
		}
	}
}

// Clear removes all profiles.
func (t *Tracker) Clear() {
	t.profiles = make(map[domain.Fingerprint]*list.Element)
	t.lru = list.New()
}
