package injection

import (
	"sync"

	"github.com/google/gopacket/pcap"
)

// PcapInjector writes through a pcap handle it shares with the capture loop.
// Close only detaches; the handle is closed by its owner.
type PcapInjector struct {
	mu     sync.Mutex
	handle *pcap.Handle
}

func NewPcapInjector(handle *pcap.Handle) *PcapInjector {
	return &PcapInjector{handle: handle}
}

func (p *PcapInjector) Inject(packet []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return ErrInjectorClosed
	}
	return p.handle.WritePacketData(packet)
}

func (p *PcapInjector) Close() {
	p.mu.Lock()
	p.handle = nil
	p.mu.Unlock()
}
