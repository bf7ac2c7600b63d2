package domain

import "fmt"

// Cipher and AKM suite selectors (the last byte of an 00-0F-AC suite).
const (
	CipherNone   uint8 = 0
	CipherWEP40  uint8 = 1
	CipherTKIP   uint8 = 2
	CipherCCMP   uint8 = 4
	CipherWEP104 uint8 = 5

	AKMNone  uint8 = 0
	AKM8021X uint8 = 1
	AKMPSK   uint8 = 2
	AKMSAE   uint8 = 8
)

// SecuritySummary is the subset of an RSN element needed to mimic a network.
// The zero value means an open network.
type SecuritySummary struct {
	Version        uint16
	GroupCipher    uint8
	PairwiseCipher uint8
	AKMSuite       uint8
}

// Open reports whether the summary describes an unprotected network.
func (s SecuritySummary) Open() bool {
	return s.Version == 0
}

func (s SecuritySummary) String() string {
	if s.Open() {
		return "OPEN"
	}
	switch s.AKMSuite {
	case AKMSAE:
		return "WPA3-SAE"
	case AKM8021X:
		return "WPA2-EAP"
	case AKMPSK:
		return "WPA2-PSK"
	}
	return fmt.Sprintf("RSN(akm=%d)", s.AKMSuite)
}

// WPA2PSK is the security framing used when a bait network must look protected.
var WPA2PSK = SecuritySummary{Version: 1, GroupCipher: CipherCCMP, PairwiseCipher: CipherCCMP, AKMSuite: AKMPSK}
