package injection

import (
	"errors"
	"fmt"

	"github.com/google/gopacket/pcap"
)

var (
	// ErrRawUnsupported is returned where AF_PACKET sockets do not exist.
	ErrRawUnsupported = errors.New("raw socket injection is only supported on linux")
	// ErrInjectorClosed is returned by Inject after Close.
	ErrInjectorClosed = errors.New("injector closed")
)

// PacketInjector puts complete radiotap-framed packets on the air.
type PacketInjector interface {
	Inject(packet []byte) error
	Close()
}

// Open picks the injection path for iface: an AF_PACKET socket where the
// platform has one, otherwise the capture handle itself. The capture handle
// stays owned by the caller. The second result names the chosen path.
func Open(iface string, capture *pcap.Handle) (PacketInjector, string, error) {
	raw, err := NewRawInjector(iface)
	if err == nil {
		return raw, "raw", nil
	}
	if capture == nil {
		return nil, "", fmt.Errorf("no injection path on %s: %w", iface, err)
	}
	return NewPcapInjector(capture), "pcap", nil
}
