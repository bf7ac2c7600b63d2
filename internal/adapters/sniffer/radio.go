package sniffer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/driver"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/hopping"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/injection"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
	"github.com/lcalzada-xor/wkarma/internal/telemetry"
	"gopkg.in/tomb.v2"
)

// readTimeout bounds each pcap read so the capture loop notices shutdown.
const readTimeout = 250 * time.Millisecond

// txRadiotap is prepended to every injected frame: rate 1 Mbps, TX flags NO_ACK.
var txRadiotap = []byte{
	0x00, 0x00, // version, pad
	0x0c, 0x00, // length
	0x04, 0x80, 0x00, 0x00, // present: rate, tx flags
	0x02,       // rate
	0x00,       // pad
	0x08, 0x00, // tx flags
}

// Radio is a monitor-mode interface: a pcap handle for capture, a raw socket
// (or pcap fallback) for injection and a tuner for channel changes.
type Radio struct {
	Interface string

	handle   *pcap.Handle
	injector injection.PacketInjector
	tuner    *hopping.Tuner

	mu       sync.RWMutex
	receiver ports.ReceiveFunc

	txMu  sync.Mutex
	txBuf []byte

	tomb tomb.Tomb
}

// NewRadio opens iface for capture and injection.
func NewRadio(iface string, tuner *hopping.Tuner) (*Radio, error) {
	handle, err := pcap.OpenLive(iface, 65536, true, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("monitor handle: %w", err)
	}

	mech, kind, err := injection.Open(iface, handle)
	if err != nil {
		handle.Close()
		return nil, fmt.Errorf("injection init failed: %w", err)
	}
	log.Printf("Injecting on %s via %s", iface, kind)

	if tuner == nil {
		tuner = hopping.NewTuner(iface, nil)
	}
	return newRadio(iface, handle, mech, tuner), nil
}

func newRadio(iface string, handle *pcap.Handle, mech injection.PacketInjector, tuner *hopping.Tuner) *Radio {
	return &Radio{
		Interface: iface,
		handle:    handle,
		injector:  mech,
		tuner:     tuner,
		txBuf:     make([]byte, 0, len(txRadiotap)+256),
	}
}

// SetChannel implements ports.Radio.
func (r *Radio) SetChannel(ch int) error {
	return r.tuner.SetChannel(ch)
}

// Transmit implements ports.Radio. The frame is copied behind a radiotap
// header before injection, so callers may reuse their buffer.
func (r *Radio) Transmit(frame []byte) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.txBuf = append(append(r.txBuf[:0], txRadiotap...), frame...)
	telemetry.InjectionsTotal.WithLabelValues(r.Interface).Inc()
	if err := r.injector.Inject(r.txBuf); err != nil {
		telemetry.InjectionErrors.WithLabelValues(r.Interface).Inc()
		return err
	}
	return nil
}

// SetReceiver implements ports.Radio.
func (r *Radio) SetReceiver(fn ports.ReceiveFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receiver = fn
}

// Start launches the capture loop.
func (r *Radio) Start() {
	r.tomb.Go(r.captureLoop)
}

// Close stops capture and releases the interface.
func (r *Radio) Close() error {
	r.tuner.Stop()
	r.tomb.Kill(nil)
	err := r.tomb.Wait()
	r.injector.Close()
	if r.handle != nil {
		r.handle.Close()
	}
	return err
}

func (r *Radio) captureLoop() error {
	log.Printf("Capture started on %s", r.Interface)
	for {
		select {
		case <-r.tomb.Dying():
			return nil
		default:
		}

		data, _, err := r.handle.ReadPacketData()
		switch {
		case err == nil:
		case errors.Is(err, pcap.NextErrorTimeoutExpired):
			continue
		case errors.Is(err, io.EOF):
			return nil
		default:
			return fmt.Errorf("capture on %s: %w", r.Interface, err)
		}
		telemetry.PacketsCaptured.WithLabelValues(r.Interface).Inc()
		r.dispatch(data)
	}
}

// dispatch holds the read lock across the callback so SetReceiver(nil)
// returns only once no callback is in flight.
func (r *Radio) dispatch(data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn := r.receiver
	if fn == nil {
		return
	}

	frame, meta, ok := decodeRadiotap(data)
	if !ok {
		telemetry.PacketsDropped.WithLabelValues(r.Interface, "radiotap").Inc()
		return
	}
	if meta.Channel == 0 {
		meta.Channel = r.tuner.Channel()
	}
	fn(frame, meta)
}

// decodeRadiotap strips the radiotap header and any trailing FCS.
func decodeRadiotap(data []byte) ([]byte, ports.RxMeta, bool) {
	var rt layers.RadioTap
	if err := rt.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, ports.RxMeta{}, false
	}

	frame := rt.Payload
	if rt.Flags.FCS() {
		if len(frame) < 4 {
			return nil, ports.RxMeta{}, false
		}
		frame = frame[:len(frame)-4]
	}
	if len(frame) == 0 {
		return nil, ports.RxMeta{}, false
	}

	meta := ports.RxMeta{
		RSSI:    int(rt.DBMAntennaSignal),
		Channel: driver.FrequencyToChannel(int(rt.ChannelFrequency)),
	}
	return frame, meta, true
}
