package domain

import "time"

// EngagementReport aggregates what the operator exports at the end of a run.
type EngagementReport struct {
	ID          string
	Title       string
	GeneratedAt time.Time
	GeneratedBy string
	Interface   string
	Stats       EngineStats
	Sessions    []PortalSession
	Credentials []Credential
	// RevealSecrets prints captured passwords in clear.
	RevealSecrets bool
}
