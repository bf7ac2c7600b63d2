package sniffer

import (
	"testing"

	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/hopping"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureInjector struct {
	packets [][]byte
}

func (c *captureInjector) Inject(p []byte) error {
	cp := make([]byte, len(p))
	copy(cp, p)
	c.packets = append(c.packets, cp)
	return nil
}

func (c *captureInjector) Close() {}

type nopSwitcher struct{ calls []int }

func (n *nopSwitcher) SetChannel(_ string, ch int) error {
	n.calls = append(n.calls, ch)
	return nil
}

// radiotapFrame wraps payload in a radiotap header carrying flags, channel
// and antenna signal.
func radiotapFrame(freq uint16, signal int8, fcs bool, payload []byte) []byte {
	flags := byte(0)
	if fcs {
		flags = 0x10
	}
	hdr := []byte{
		0x00, 0x00, 0x0f, 0x00, // version, pad, len 15
		0x2a, 0x00, 0x00, 0x00, // present: flags, channel, dbm signal
		flags,
		0x00,                        // pad
		byte(freq), byte(freq >> 8), // frequency
		0xa0, 0x00, // channel flags
		byte(signal),
	}
	return append(hdr, payload...)
}

func TestDecodeRadiotap_StripsFCS(t *testing.T) {
	payload := []byte{0x40, 0x00, 0x00, 0x00, 0xde, 0xad, 0xbe, 0xef}
	frame, meta, ok := decodeRadiotap(radiotapFrame(2437, -42, true, payload))
	require.True(t, ok)
	assert.Equal(t, payload[:4], frame)
	assert.Equal(t, -42, meta.RSSI)
	assert.Equal(t, 6, meta.Channel)
}

func TestDecodeRadiotap_NoFCS(t *testing.T) {
	payload := []byte{0x80, 0x00, 0x00, 0x00}
	frame, meta, ok := decodeRadiotap(radiotapFrame(2462, -70, false, payload))
	require.True(t, ok)
	assert.Equal(t, payload, frame)
	assert.Equal(t, 11, meta.Channel)
}

func TestDecodeRadiotap_Garbage(t *testing.T) {
	_, _, ok := decodeRadiotap([]byte{0x00})
	assert.False(t, ok)
}

func TestRadio_TransmitPrependsRadiotap(t *testing.T) {
	inj := &captureInjector{}
	r := newRadio("wlan0", nil, inj, hopping.NewTuner("wlan0", &nopSwitcher{}))

	frame := []byte{0xc0, 0x00, 0x01, 0x02}
	require.NoError(t, r.Transmit(frame))
	frame[0] = 0xff

	require.Len(t, inj.packets, 1)
	assert.Equal(t, txRadiotap, inj.packets[0][:len(txRadiotap)])
	assert.Equal(t, byte(0xc0), inj.packets[0][len(txRadiotap)])
}

func TestRadio_DispatchFallsBackToTunedChannel(t *testing.T) {
	sw := &nopSwitcher{}
	r := newRadio("wlan0", nil, &captureInjector{}, hopping.NewTuner("wlan0", sw))
	require.NoError(t, r.SetChannel(3))

	var got ports.RxMeta
	r.SetReceiver(func(_ []byte, meta ports.RxMeta) { got = meta })
	r.dispatch(radiotapFrame(0, -60, false, []byte{0x40, 0x00}))

	assert.Equal(t, 3, got.Channel)
	assert.Equal(t, -60, got.RSSI)
}
