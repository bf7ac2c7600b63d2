package injection

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// ErrFrameTooLarge is returned when a frame would not fit in domain.MaxFrameLen.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

const (
	beaconInterval = 100 // TU

	capESS     = 0x0001
	capPrivacy = 0x0010
	capShort   = 0x0020 // short preamble
)

var (
	// 1, 2, 5.5, 11 (basic), 6, 9, 12, 18 Mbps
	supportedRates = []byte{0x82, 0x84, 0x8b, 0x96, 0x0c, 0x12, 0x18, 0x24}
	extendedRates  = []byte{0x30, 0x48, 0x60, 0x6c}
	timElement     = []byte{0x00, 0x01, 0x00, 0x00}
)

// PacketBuilder synthesizes 802.11 management frames into one reusable
// buffer. The slice returned by a build call is only valid until the next
// call on the same builder. Not safe for concurrent use.
type PacketBuilder struct {
	buf gopacket.SerializeBuffer
	seq uint16
}

// NewPacketBuilder creates a builder with a buffer sized for domain.MaxFrameLen.
func NewPacketBuilder() *PacketBuilder {
	return &PacketBuilder{buf: gopacket.NewSerializeBufferExpectedSize(0, domain.MaxFrameLen)}
}

// Beacon builds a beacon advertising ssid from bssid on channel, framed with
// the given security summary.
func (b *PacketBuilder) Beacon(bssid net.HardwareAddr, ssid string, channel int, sec domain.SecuritySummary) ([]byte, error) {
	dot11 := &layers.Dot11{
		Type:           layers.Dot11TypeMgmtBeacon,
		Address1:       broadcastMAC,
		Address2:       bssid,
		Address3:       bssid,
		SequenceNumber: b.nextSeq(),
	}
	beacon := &layers.Dot11MgmtBeacon{
		Interval: beaconInterval,
		Flags:    capabilities(sec),
	}
	return b.serialize(append([]gopacket.SerializableLayer{dot11, beacon}, advertisedElements(ssid, channel, sec, true)...))
}

// ProbeResponse builds a unicast probe response to target.
func (b *PacketBuilder) ProbeResponse(bssid, target net.HardwareAddr, ssid string, channel int, sec domain.SecuritySummary) ([]byte, error) {
	dot11 := &layers.Dot11{
		Type:           layers.Dot11TypeMgmtProbeResp,
		Address1:       target,
		Address2:       bssid,
		Address3:       bssid,
		SequenceNumber: b.nextSeq(),
	}
	resp := &layers.Dot11MgmtProbeResp{
		Interval: beaconInterval,
		Flags:    capabilities(sec),
	}
	return b.serialize(append([]gopacket.SerializableLayer{dot11, resp}, advertisedElements(ssid, channel, sec, false)...))
}

// ProbeRequest builds a probe request from src. The body has no fixed
// fields, so the elements follow the header directly. An empty ssid yields a
// wildcard probe. extra elements follow the rates, in order, so callers can
// reproduce a device's capability signature.
func (b *PacketBuilder) ProbeRequest(src net.HardwareAddr, ssid string, extra ...*layers.Dot11InformationElement) ([]byte, error) {
	raw := []byte(ssid)
	if len(raw) > domain.MaxSSIDLen {
		raw = raw[:domain.MaxSSIDLen]
	}
	dot11 := &layers.Dot11{
		Type:           layers.Dot11TypeMgmtProbeReq,
		Address1:       broadcastMAC,
		Address2:       src,
		Address3:       broadcastMAC,
		SequenceNumber: b.nextSeq(),
	}
	ls := []gopacket.SerializableLayer{
		dot11,
		element(layers.Dot11InformationElementIDSSID, raw),
		element(layers.Dot11InformationElementIDRates, supportedRates),
	}
	for _, e := range extra {
		ls = append(ls, e)
	}
	return b.serialize(ls)
}

// Deauth builds a 26-byte deauthentication frame, or a disassociation frame
// when disassoc is set.
func (b *PacketBuilder) Deauth(dest, src, bssid net.HardwareAddr, reason uint16, disassoc bool) ([]byte, error) {
	dot11 := &layers.Dot11{
		Type:           layers.Dot11TypeMgmtDeauthentication,
		Address1:       dest,
		Address2:       src,
		Address3:       bssid,
		SequenceNumber: b.nextSeq(),
	}
	var body gopacket.SerializableLayer = &layers.Dot11MgmtDeauthentication{Reason: layers.Dot11Reason(reason)}
	if disassoc {
		dot11.Type = layers.Dot11TypeMgmtDisassociation
		body = &layers.Dot11MgmtDisassociation{Reason: layers.Dot11Reason(reason)}
	}
	return b.serialize([]gopacket.SerializableLayer{dot11, body})
}

func (b *PacketBuilder) nextSeq() uint16 {
	b.seq = (b.seq + 1) & 0x0fff
	return b.seq
}

func (b *PacketBuilder) serialize(ls []gopacket.SerializableLayer) ([]byte, error) {
	if err := gopacket.SerializeLayers(b.buf, gopacket.SerializeOptions{}, ls...); err != nil {
		return nil, fmt.Errorf("serialize failed: %w", err)
	}
	out := b.buf.Bytes()
	if len(out) > domain.MaxFrameLen {
		return nil, ErrFrameTooLarge
	}
	return out, nil
}

func capabilities(sec domain.SecuritySummary) uint16 {
	c := uint16(capESS | capShort)
	if !sec.Open() {
		c |= capPrivacy
	}
	return c
}

// advertisedElements returns the tagged parameters shared by beacons and probe
// responses. SSIDs longer than domain.MaxSSIDLen are cut to that length.
func advertisedElements(ssid string, channel int, sec domain.SecuritySummary, withTIM bool) []gopacket.SerializableLayer {
	raw := []byte(ssid)
	if len(raw) > domain.MaxSSIDLen {
		raw = raw[:domain.MaxSSIDLen]
	}
	out := []gopacket.SerializableLayer{
		element(layers.Dot11InformationElementIDSSID, raw),
		element(layers.Dot11InformationElementIDRates, supportedRates),
		element(layers.Dot11InformationElementIDDSSet, []byte{byte(channel)}),
	}
	if withTIM {
		out = append(out, element(layers.Dot11InformationElementIDTIM, timElement))
	}
	out = append(out, element(layers.Dot11InformationElementIDESRates, extendedRates))
	if !sec.Open() {
		out = append(out, element(layers.Dot11InformationElementIDRSNInfo, ie.MarshalRSN(sec)))
	}
	return out
}

func element(id layers.Dot11InformationElementID, data []byte) *layers.Dot11InformationElement {
	return &layers.Dot11InformationElement{
		ID:     id,
		Length: uint8(len(data)),
		Info:   data,
	}
}
