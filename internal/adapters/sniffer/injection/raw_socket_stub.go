//go:build !linux

package injection

// NewRawInjector always fails off Linux so Open falls back to pcap.
func NewRawInjector(iface string) (PacketInjector, error) {
	return nil, ErrRawUnsupported
}
