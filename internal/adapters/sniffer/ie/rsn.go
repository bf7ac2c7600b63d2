package ie

import (
	"encoding/binary"
	"fmt"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

var suiteOUI = [3]byte{0x00, 0x0F, 0xAC}

// ParseRSN parses IE 48 into a SecuritySummary. Only the first pairwise
// cipher and the first AKM suite are kept. Any count that would read past
// the element aborts the parse.
func ParseRSN(data []byte) (domain.SecuritySummary, error) {
	var s domain.SecuritySummary
	if len(data) < 2 {
		return s, fmt.Errorf("RSN IE too short: %w", ErrMalformedIE)
	}
	s.Version = binary.LittleEndian.Uint16(data[0:2])
	offset := 2

	// Group Cipher Suite (4 bytes: OUI + Type)
	if offset+4 > len(data) {
		return s, nil
	}
	s.GroupCipher = data[offset+3]
	offset += 4

	// Pairwise Cipher Suite Count + List
	if offset+2 > len(data) {
		return s, nil
	}
	count := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if offset+4*count > len(data) {
		return domain.SecuritySummary{}, fmt.Errorf("RSN pairwise list truncated: %w", ErrMalformedIE)
	}
	if count > 0 {
		s.PairwiseCipher = data[offset+3]
	}
	offset += 4 * count

	// AKM Suite Count + List
	if offset+2 > len(data) {
		return s, nil
	}
	count = int(binary.LittleEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if offset+4*count > len(data) {
		return domain.SecuritySummary{}, fmt.Errorf("RSN AKM list truncated: %w", ErrMalformedIE)
	}
	if count > 0 {
		s.AKMSuite = data[offset+3]
	}
	return s, nil
}

// MarshalRSN renders a summary back into an RSN element body with one
// pairwise cipher, one AKM suite and zero capabilities.
func MarshalRSN(s domain.SecuritySummary) []byte {
	out := make([]byte, 0, 20)
	out = binary.LittleEndian.AppendUint16(out, s.Version)
	out = append(out, suiteOUI[:]...)
	out = append(out, s.GroupCipher)
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = append(out, suiteOUI[:]...)
	out = append(out, s.PairwiseCipher)
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = append(out, suiteOUI[:]...)
	out = append(out, s.AKMSuite)
	out = append(out, 0x00, 0x00)
	return out
}
