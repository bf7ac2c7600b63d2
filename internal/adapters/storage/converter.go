package storage

import (
	"encoding/json"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// toDomain converts a database model to a domain entity.
func toDomain(m CredentialModel) domain.Credential {
	c := domain.Credential{
		ID:         m.ID,
		SessionID:  m.SessionID,
		SSID:       m.SSID,
		APName:     m.APName,
		ClientAddr: m.ClientAddr,
		Username:   m.Username,
		Password:   m.Password,
		CapturedAt: m.CapturedAt,
	}
	if m.Fields != "" {
		// A corrupt column loses the extra fields, not the record
		_ = json.Unmarshal([]byte(m.Fields), &c.Fields)
	}
	return c
}

// toModel converts a domain entity to a database model.
func toModel(c domain.Credential) (CredentialModel, error) {
	m := CredentialModel{
		ID:         c.ID,
		SessionID:  c.SessionID,
		SSID:       c.SSID,
		APName:     c.APName,
		ClientAddr: c.ClientAddr,
		Username:   c.Username,
		Password:   c.Password,
		CapturedAt: c.CapturedAt,
	}
	if len(c.Fields) > 0 {
		data, err := json.Marshal(c.Fields)
		if err != nil {
			return CredentialModel{}, err
		}
		m.Fields = string(data)
	}
	return m, nil
}
