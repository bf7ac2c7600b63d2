package handshake

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// Frame control bits of a data frame.
const (
	fcTypeMask   = 0x0C
	fcTypeData   = 0x08
	fcSubtypeQoS = 0x80
	flagToDS     = 0x01
	flagFromDS   = 0x02
	flagProtect  = 0x40

	dataHeaderLen = 24
	qosControlLen = 2
)

var llcSNAPEAPOL = []byte{0xAA, 0xAA, 0x03, 0x00, 0x00, 0x00, 0x88, 0x8E}

var (
	ErrNotData     = errors.New("not a data frame")
	ErrNotEAPOLKey = errors.New("not an EAPOL-Key frame")
	ErrUnsupported = errors.New("unsupported addressing")
)

// ClassifyHandshakeMessage maps the four key-information bits of an
// EAPOL-Key frame to its position in the 4-way handshake.
func ClassifyHandshakeMessage(ack, mic, install, secure bool) domain.HandshakeMessage {
	switch {
	case ack && !mic && !install:
		return domain.Message1
	case !ack && mic && !install && !secure:
		return domain.Message2
	case ack && mic && install:
		return domain.Message3
	case !ack && mic && !install && secure:
		return domain.Message4
	}
	return domain.Unclassified
}

// ParseEAPOLKey decodes an EAPOL header plus key descriptor.
func ParseEAPOLKey(data []byte) (*layers.EAPOLKey, error) {
	var eapol layers.EAPOL
	if err := eapol.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("eapol header: %w", err)
	}
	if eapol.Type != layers.EAPOLTypeKey {
		return nil, fmt.Errorf("%w (type %d)", ErrNotEAPOLKey, eapol.Type)
	}

	key := &layers.EAPOLKey{}
	if err := key.DecodeFromBytes(eapol.LayerPayload(), gopacket.NilDecodeFeedback); err != nil {
		return nil, fmt.Errorf("eapol key: %w", err)
	}
	return key, nil
}

// ClassifyFrame inspects a raw 802.11 data frame (no radiotap, no FCS) and,
// when it carries an EAPOL-Key, returns the handshake record for it. The
// record's Frame aliases the input.
func ClassifyFrame(frame []byte, channel int, now time.Time) (domain.HandshakeFrame, error) {
	if len(frame) < dataHeaderLen {
		return domain.HandshakeFrame{}, ErrNotData
	}
	if frame[0]&fcTypeMask != fcTypeData {
		return domain.HandshakeFrame{}, ErrNotData
	}
	flags := frame[1]
	if flags&flagProtect != 0 {
		return domain.HandshakeFrame{}, ErrNotEAPOLKey
	}

	addr1 := net.HardwareAddr(frame[4:10])
	addr2 := net.HardwareAddr(frame[10:16])
	var bssid, station net.HardwareAddr
	switch flags & (flagToDS | flagFromDS) {
	case flagToDS:
		bssid, station = addr1, addr2
	case flagFromDS:
		bssid, station = addr2, addr1
	default:
		return domain.HandshakeFrame{}, ErrUnsupported
	}

	hdr := dataHeaderLen
	if frame[0]&fcSubtypeQoS != 0 {
		hdr += qosControlLen
	}
	if len(frame) < hdr+len(llcSNAPEAPOL) {
		return domain.HandshakeFrame{}, ErrNotEAPOLKey
	}
	for i, b := range llcSNAPEAPOL {
		if frame[hdr+i] != b {
			return domain.HandshakeFrame{}, ErrNotEAPOLKey
		}
	}

	key, err := ParseEAPOLKey(frame[hdr+len(llcSNAPEAPOL):])
	if err != nil {
		return domain.HandshakeFrame{}, err
	}
	if key.KeyType != layers.EAPOLKeyTypePairwise {
		// Group key handshake
		return domain.HandshakeFrame{}, ErrNotEAPOLKey
	}

	return domain.HandshakeFrame{
		BSSID:     bssid,
		Station:   station,
		Message:   ClassifyHandshakeMessage(key.KeyACK, key.KeyMIC, key.Install, key.Secure),
		Channel:   channel,
		Frame:     frame,
		Timestamp: now,
	}, nil
}

// IsEAPOL reports whether frame is an unprotected data frame carrying an
// EAPOL payload. It does not allocate, so the receive path can use it as a
// prefilter before ClassifyFrame.
func IsEAPOL(frame []byte) bool {
	if len(frame) < dataHeaderLen || frame[0]&fcTypeMask != fcTypeData {
		return false
	}
	flags := frame[1]
	if flags&flagProtect != 0 || flags&(flagToDS|flagFromDS) == flagToDS|flagFromDS {
		return false
	}
	hdr := dataHeaderLen
	if frame[0]&fcSubtypeQoS != 0 {
		hdr += qosControlLen
	}
	if len(frame) < hdr+len(llcSNAPEAPOL) {
		return false
	}
	for i, b := range llcSNAPEAPOL {
		if frame[hdr+i] != b {
			return false
		}
	}
	return true
}
