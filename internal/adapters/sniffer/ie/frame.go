package ie

import (
	"net"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// Management subtypes carried in the first frame-control byte.
const (
	SubtypeProbeReq  = 0x40
	SubtypeProbeResp = 0x50
	SubtypeBeacon    = 0x80
	SubtypeDisassoc  = 0xA0
	SubtypeDeauth    = 0xC0

	mgmtHeaderLen = 24
	fixedParamLen = 12 // timestamp + interval + capabilities
	flagOrder     = 0x80
)

// Mgmt is a parsed management header. Slices alias the input frame.
type Mgmt struct {
	Subtype  byte
	Addr1    net.HardwareAddr // destination
	Addr2    net.HardwareAddr // source
	Addr3    net.HardwareAddr // BSSID
	Sequence uint16
	Body     []byte // everything after the header
}

// IEs returns the tagged parameters of the body, skipping fixed parameters
// for beacons and probe responses.
func (m Mgmt) IEs() ([]byte, error) {
	switch m.Subtype {
	case SubtypeBeacon, SubtypeProbeResp:
		if len(m.Body) < fixedParamLen {
			return nil, ErrShortFrame
		}
		return m.Body[fixedParamLen:], nil
	case SubtypeProbeReq:
		return m.Body, nil
	}
	return nil, ErrIENotFound
}

// ParseMgmt splits a raw 802.11 management frame (no radiotap, no FCS).
func ParseMgmt(frame []byte) (Mgmt, error) {
	if len(frame) < mgmtHeaderLen {
		return Mgmt{}, ErrShortFrame
	}
	if frame[0]&0x0C != 0 {
		return Mgmt{}, ErrNotMgmt
	}
	hdr := mgmtHeaderLen
	if frame[1]&flagOrder != 0 {
		hdr += 4 // HT control
		if len(frame) < hdr {
			return Mgmt{}, ErrShortFrame
		}
	}
	return Mgmt{
		Subtype:  frame[0] & 0xF0,
		Addr1:    net.HardwareAddr(frame[4:10]),
		Addr2:    net.HardwareAddr(frame[10:16]),
		Addr3:    net.HardwareAddr(frame[16:22]),
		Sequence: (uint16(frame[22]) | uint16(frame[23])<<8) >> 4,
		Body:     frame[hdr:],
	}, nil
}

// Probe is the result of ParseProbe.
type Probe struct {
	MAC  net.HardwareAddr
	SSID string
	IEs  []byte
}

// ParseProbe extracts the source address and SSID of any management frame
// that carries tagged parameters (probe request, probe response, beacon).
// The whole element list must be well formed.
func ParseProbe(frame []byte) (Probe, error) {
	m, err := ParseMgmt(frame)
	if err != nil {
		return Probe{}, err
	}
	ies, err := m.IEs()
	if err != nil {
		return Probe{}, err
	}
	if err := Walk(ies, func(int, []byte) bool { return true }); err != nil {
		return Probe{}, err
	}
	ssid, err := ParseSSID(ies)
	if err != nil {
		return Probe{}, err
	}
	return Probe{MAC: m.Addr2, SSID: ssid, IEs: ies}, nil
}

// ParseSecuritySummary reads the RSN element of a management frame. A frame
// without RSN is an open network and yields the zero summary.
func ParseSecuritySummary(frame []byte) (domain.SecuritySummary, error) {
	m, err := ParseMgmt(frame)
	if err != nil {
		return domain.SecuritySummary{}, err
	}
	ies, err := m.IEs()
	if err != nil {
		return domain.SecuritySummary{}, err
	}
	val, err := Find(ies, TagRSN)
	if err == ErrIENotFound {
		return domain.SecuritySummary{}, nil
	}
	if err != nil {
		return domain.SecuritySummary{}, err
	}
	return ParseRSN(val)
}
