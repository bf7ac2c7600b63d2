package domain

import (
	"net"
	"time"
)

// Tier is the scheduling bucket of an attack request.
type Tier int

const (
	TierNone Tier = iota
	TierFast
	TierMedium
	TierHigh
	TierClone
)

// Tiers lists the schedulable tiers, lowest first.
var Tiers = []Tier{TierFast, TierMedium, TierHigh, TierClone}

func (t Tier) String() string {
	switch t {
	case TierFast:
		return "fast"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierClone:
		return "clone"
	}
	return "none"
}

// Duration is the nominal budget reported for requests of this tier. Live
// sessions are only reaped by SessionIdleCeiling.
func (t Tier) Duration() time.Duration {
	switch t {
	case TierFast:
		return DurationFast
	case TierMedium:
		return DurationMedium
	case TierHigh:
		return DurationHigh
	case TierClone:
		return DurationClone
	}
	return 0
}

// AttackRequest asks the portal multiplexer for a fake access point.
type AttackRequest struct {
	SSID          string
	Channel       int
	TargetMAC     net.HardwareAddr
	Tier          Tier
	PriorityScore int
	Duration      time.Duration
	IsCloneAttack bool
	Launched      bool
	CreatedAt     time.Time

	// Set for clone requests: the real network being mimicked.
	BSSID    net.HardwareAddr
	Security SecuritySummary
}

// Expired reports whether the request outlived the queue horizon at now.
func (r AttackRequest) Expired(now time.Time) bool {
	return now.Sub(r.CreatedAt) > RequestHorizon
}
