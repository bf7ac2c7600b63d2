package ports

import (
	"context"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// CredentialWriter appends captured credentials.
type CredentialWriter interface {
	WriteCredential(ctx context.Context, c domain.Credential) error
}

// CredentialLister reads back captured credentials for reporting.
type CredentialLister interface {
	ListCredentials(ctx context.Context, limit int) ([]domain.Credential, error)
}

// HandshakeWriter appends classified EAPOL-Key frames.
type HandshakeWriter interface {
	WriteHandshake(h domain.HandshakeFrame) error
}

// SSIDDictionary streams a large SSID list in batches. A short or empty batch
// means the end of the dictionary was reached.
type SSIDDictionary interface {
	ReadBatch(start, count int) ([]string, error)
}
