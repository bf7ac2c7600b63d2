package domain

import (
	"net"
	"time"
)

// PortalState is the lifecycle position of a PortalSession.
type PortalState int

const (
	PortalCreated PortalState = iota
	PortalRoundRobin
	PortalLocked
	PortalCredentialCaptured
	PortalIdleTimeout
	PortalTeardown
)

func (s PortalState) String() string {
	switch s {
	case PortalCreated:
		return "created"
	case PortalRoundRobin:
		return "round-robin"
	case PortalLocked:
		return "locked"
	case PortalCredentialCaptured:
		return "credential-captured"
	case PortalIdleTimeout:
		return "idle-timeout"
	case PortalTeardown:
		return "teardown"
	}
	return "unknown"
}

// PortalHandle is the opaque reference returned by the credential-capture collaborator.
type PortalHandle interface{}

// PortalOptions are passed to the collaborator when a session is created.
type PortalOptions struct {
	BSSID     net.HardwareAddr
	TargetMAC net.HardwareAddr
	Security  SecuritySummary
	Tier      Tier
}

// Credential is what a captive portal hands back once a victim submits the form.
type Credential struct {
	ID         string
	SessionID  string
	SSID       string
	APName     string
	ClientAddr string
	Username   string
	Password   string
	Fields     map[string]string
	CapturedAt time.Time
}

// PortalSession is one fake access point with its captive portal.
type PortalSession struct {
	ID                 string
	Slot               int
	SSID               string
	Channel            int
	BSSID              net.HardwareAddr
	Security           SecuritySummary
	Tier               Tier
	Handle             PortalHandle
	State              PortalState
	LaunchedAt         time.Time
	LastHeartbeat      time.Time
	IdleTimeout        time.Duration
	VictimConnected    bool
	LastVictimActivity time.Time
	CapturedCredential *Credential
	MarkedForRemoval   bool
}

// NetworkActivityRecord tracks an engaged bait network that needs beacon upkeep.
type NetworkActivityRecord struct {
	SSID           string
	Channel        int
	BSSID          net.HardwareAddr
	Security       SecuritySummary
	LastActivity   time.Time
	LastBeaconSent time.Time
}
