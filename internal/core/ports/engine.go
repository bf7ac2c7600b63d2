package ports

import "github.com/lcalzada-xor/wkarma/internal/core/domain"

// EngineControl is the engine as seen by the UI collaborator: read-only
// snapshots plus the command mailbox.
type EngineControl interface {
	Stats() domain.EngineStats
	RecentProbes() []domain.ProbeEvent
	Sessions() []domain.PortalSession
	Submit(cmd domain.Command) error
}
