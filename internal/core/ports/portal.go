package ports

import "github.com/lcalzada-xor/wkarma/internal/core/domain"

// CaptivePortal is the credential-capture collaborator. The engine never looks
// inside a handle; it only drives it through these calls.
type CaptivePortal interface {
	Create(ssid string, channel int, opts domain.PortalOptions) (domain.PortalHandle, error)
	// ProcessRequests services pending client requests once and reports how many
	// were handled. A positive count marks victim activity.
	ProcessRequests(h domain.PortalHandle) (int, error)
	HasCredentials(h domain.PortalHandle) bool
	TakeCredential(h domain.PortalHandle) (domain.Credential, bool)
	APName(h domain.PortalHandle) string
	Destroy(h domain.PortalHandle)
}
