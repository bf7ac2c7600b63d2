//go:build linux

package injection

import (
	"fmt"
	"net"
	"syscall"
)

// RawInjector writes frames through an AF_PACKET socket bound to the
// monitor interface.
type RawInjector struct {
	fd      int
	ifIndex int
}

func NewRawInjector(iface string) (PacketInjector, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("interface %s not found: %w", iface, err)
	}

	// Protocol 0: transmit only, nothing is delivered to this socket.
	fd, err := syscall.Socket(syscall.AF_PACKET, syscall.SOCK_RAW, 0)
	if err != nil {
		return nil, fmt.Errorf("socket creation failed: %w", err)
	}

	ll := syscall.SockaddrLinklayer{Ifindex: ifi.Index}
	if err := syscall.Bind(fd, &ll); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("bind failed: %w", err)
	}

	return &RawInjector{fd: fd, ifIndex: ifi.Index}, nil
}

func (r *RawInjector) Inject(packet []byte) error {
	ll := syscall.SockaddrLinklayer{Ifindex: r.ifIndex}
	return syscall.Sendto(r.fd, packet, 0, &ll)
}

func (r *RawInjector) Close() {
	syscall.Close(r.fd)
}
