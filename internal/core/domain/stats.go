package domain

import "time"

// ChannelOwner identifies which activity governs the radio channel.
type ChannelOwner int

const (
	OwnerScan ChannelOwner = iota
	OwnerBroadcast
	OwnerPortal
)

func (o ChannelOwner) String() string {
	switch o {
	case OwnerScan:
		return "scan"
	case OwnerBroadcast:
		return "broadcast"
	case OwnerPortal:
		return "portal"
	}
	return "unknown"
}

// EngineStats is the read-only counter snapshot published after every tick.
type EngineStats struct {
	ProbesTotal      uint64            `json:"probes_total"`
	ProbesDropped    uint64            `json:"probes_dropped"`
	ProbesDuplicate  uint64            `json:"probes_duplicate"`
	BeaconsObserved  uint64            `json:"beacons_observed"`
	Clients          int               `json:"clients"`
	VulnerableCount  int               `json:"vulnerable"`
	QueueDepth       int               `json:"queue_depth"`
	QueuedByTier     map[string]int    `json:"queued_by_tier"`
	LaunchedByTier   map[string]uint64 `json:"launched_by_tier"`
	Rejected         uint64            `json:"rejected"`
	Sessions         int               `json:"sessions"`
	Credentials      uint64            `json:"credentials"`
	Handshakes       map[string]uint64 `json:"handshakes"`
	FramesSent       uint64            `json:"frames_sent"`
	FramesThrottled  uint64            `json:"frames_throttled"`
	Channel          int               `json:"channel"`
	Owner            string            `json:"owner"`
	LockedChannel    int               `json:"locked_channel"`
	BroadcastSSID    string            `json:"broadcast_ssid"`
	HighPrioritySSID []string          `json:"high_priority_ssids"`
	Paused           bool              `json:"paused"`
	Running          bool              `json:"running"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
