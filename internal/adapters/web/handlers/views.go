package handlers

import (
	"fmt"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// ProbeView is the JSON shape of a captured probe request.
type ProbeView struct {
	MAC         string    `json:"mac"`
	SSID        string    `json:"ssid"`
	RSSI        int       `json:"rssi"`
	Channel     int       `json:"channel"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
}

// SessionView is the JSON shape of a live portal session.
type SessionView struct {
	ID              string    `json:"id"`
	Slot            int       `json:"slot"`
	SSID            string    `json:"ssid"`
	Channel         int       `json:"channel"`
	BSSID           string    `json:"bssid"`
	Security        string    `json:"security"`
	Tier            string    `json:"tier"`
	State           string    `json:"state"`
	LaunchedAt      time.Time `json:"launched_at"`
	VictimConnected bool      `json:"victim_connected"`
	Captured        bool      `json:"captured"`
}

// CredentialView is the JSON shape of a stored credential.
type CredentialView struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id"`
	SSID       string            `json:"ssid"`
	APName     string            `json:"ap_name"`
	ClientAddr string            `json:"client_addr"`
	Username   string            `json:"username,omitempty"`
	Password   string            `json:"password"`
	Fields     map[string]string `json:"fields,omitempty"`
	CapturedAt time.Time         `json:"captured_at"`
}

// NewProbeView converts a probe event.
func NewProbeView(p domain.ProbeEvent) ProbeView {
	return ProbeView{
		MAC:         p.MAC.String(),
		SSID:        p.SSID,
		RSSI:        p.RSSI,
		Channel:     p.Channel,
		Fingerprint: fmt.Sprintf("%08x", uint32(p.Fingerprint)),
		Timestamp:   p.Timestamp,
	}
}

// NewSessionView converts a portal session.
func NewSessionView(s domain.PortalSession) SessionView {
	return SessionView{
		ID:              s.ID,
		Slot:            s.Slot,
		SSID:            s.SSID,
		Channel:         s.Channel,
		BSSID:           s.BSSID.String(),
		Security:        s.Security.String(),
		Tier:            s.Tier.String(),
		State:           s.State.String(),
		LaunchedAt:      s.LaunchedAt,
		VictimConnected: s.VictimConnected,
		Captured:        s.CapturedCredential != nil,
	}
}

// NewCredentialView converts a credential.
func NewCredentialView(c domain.Credential) CredentialView {
	return CredentialView{
		ID:         c.ID,
		SessionID:  c.SessionID,
		SSID:       c.SSID,
		APName:     c.APName,
		ClientAddr: c.ClientAddr,
		Username:   c.Username,
		Password:   c.Password,
		Fields:     c.Fields,
		CapturedAt: c.CapturedAt,
	}
}
