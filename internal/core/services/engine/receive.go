package engine

import (
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/handshake"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

// rxSlotLen bounds the bytes kept per received frame. Longer frames are
// truncated and then fail the element walk.
const rxSlotLen = 1024

// rxSlot is a preallocated mailbox entry filled in place by the receive
// callback.
type rxSlot struct {
	n       int
	rssi    int
	channel int
	raw     [rxSlotLen]byte
}

func (s *rxSlot) frame() []byte {
	return s.raw[:s.n]
}

// receive runs on the radio driver goroutine. It only classifies the frame by
// its header and copies it into a preallocated slot: no allocation, no
// blocking, no reference to frame kept past return.
func (e *Engine) receive(frame []byte, meta ports.RxMeta) {
	if e.paused.Load() || len(frame) < 24 {
		return
	}

	var box = e.eapol
	switch frame[0] {
	case ie.SubtypeProbeReq:
		box = e.probes
	case ie.SubtypeBeacon:
		box = e.beacons
	default:
		if !handshake.IsEAPOL(frame) {
			return
		}
	}

	slot := box.Reserve()
	if slot == nil {
		return
	}
	slot.n = copy(slot.raw[:], frame)
	slot.rssi = meta.RSSI
	slot.channel = meta.Channel
	box.Commit()
}
