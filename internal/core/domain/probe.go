package domain

import (
	"net"
	"time"
)

// Fingerprint is the MAC-independent identity of a client, derived from the
// information elements of its probe requests.
type Fingerprint uint32

// ProbeEvent is one received probe request.
type ProbeEvent struct {
	MAC         net.HardwareAddr
	SSID        string
	RSSI        int
	Timestamp   time.Time
	Channel     int
	RawFrame    []byte // at most MaxRawFrameLen bytes
	Fingerprint Fingerprint
}

// Wildcard reports whether the probe carries no SSID (broadcast probe).
func (p ProbeEvent) Wildcard() bool {
	return p.SSID == ""
}

// ClientProfile is the behavioral state kept per fingerprint.
type ClientProfile struct {
	Fingerprint       Fingerprint
	LastObservedMAC   net.HardwareAddr
	FirstSeen         time.Time
	LastSeen          time.Time
	PreviousSeen      time.Time // sighting before LastSeen, zero after the first probe
	ProbeCount        int
	RunningAvgRSSI    float64
	ProbedSSIDs       []string // distinct named SSIDs, at most MaxProbedSSIDs
	FavoriteChannel   int
	LastAttackAttempt time.Time
	Vulnerable        bool

	channelHits map[int]int
}

// HasProbed reports whether ssid is already in the probed set.
func (c *ClientProfile) HasProbed(ssid string) bool {
	for _, s := range c.ProbedSSIDs {
		if s == ssid {
			return true
		}
	}
	return false
}

// RecordChannel counts a sighting on ch and refreshes FavoriteChannel.
func (c *ClientProfile) RecordChannel(ch int) {
	if ch <= 0 {
		return
	}
	if c.channelHits == nil {
		c.channelHits = make(map[int]int)
	}
	c.channelHits[ch]++
	if c.FavoriteChannel == 0 || c.channelHits[ch] > c.channelHits[c.FavoriteChannel] {
		c.FavoriteChannel = ch
	}
}

// BeaconEvent is a beacon observed from a real access point.
type BeaconEvent struct {
	BSSID     net.HardwareAddr
	SSID      string
	Channel   int
	RSSI      int
	Security  SecuritySummary
	Timestamp time.Time
}
