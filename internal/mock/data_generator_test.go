package mock

import (
	"testing"

	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/injection"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
	"github.com/lcalzada-xor/wkarma/internal/core/services/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	frames [][]byte
	metas  []ports.RxMeta
}

func newCapture(radio *injection.MockRadio) *capture {
	c := &capture{}
	radio.SetReceiver(func(frame []byte, meta ports.RxMeta) {
		c.frames = append(c.frames, append([]byte(nil), frame...))
		c.metas = append(c.metas, meta)
	})
	return c
}

func TestDataGenerator_SilentUntilTuned(t *testing.T) {
	radio := injection.NewMockRadio()
	c := newCapture(radio)
	g := NewDataGenerator(radio, 1, 10, 5)

	g.Step()
	assert.Empty(t, c.frames)
}

func TestDataGenerator_EmitsParsableFrames(t *testing.T) {
	radio := injection.NewMockRadio()
	require.NoError(t, radio.SetChannel(6))
	c := newCapture(radio)
	g := NewDataGenerator(radio, 7, 30, 0)

	for i := 0; i < 5; i++ {
		g.Step()
	}
	require.NotEmpty(t, c.frames)

	for i, f := range c.frames {
		assert.Equal(t, byte(ie.SubtypeProbeReq), f[0])
		_, err := ie.ParseProbe(f)
		assert.NoError(t, err)
		assert.Equal(t, 6, c.metas[i].Channel)
		assert.LessOrEqual(t, c.metas[i].RSSI, -20)
	}
}

func TestDataGenerator_BeaconsOnlyOnOwnChannel(t *testing.T) {
	radio := injection.NewMockRadio()
	c := newCapture(radio)
	g := NewDataGenerator(radio, 3, 0, 4)
	ap := g.APs()[0]
	ap.BeaconsPerStep = 3

	other := ap.Channel%11 + 1
	for _, a := range g.APs() {
		if a.Channel == other {
			a.Channel = ap.Channel
		}
	}
	require.NoError(t, radio.SetChannel(other))
	g.Step()
	assert.Empty(t, c.frames)

	require.NoError(t, radio.SetChannel(ap.Channel))
	g.Step()
	beacons := 0
	for _, f := range c.frames {
		if f[0] == ie.SubtypeBeacon {
			beacons++
		}
	}
	assert.GreaterOrEqual(t, beacons, 3)
}

func TestDataGenerator_FingerprintSurvivesRandomization(t *testing.T) {
	radio := injection.NewMockRadio()
	require.NoError(t, radio.SetChannel(1))
	c := newCapture(radio)
	g := NewDataGenerator(radio, 11, 1, 0)
	client := g.Clients()[0]
	client.Randomizes = true

	first := client.MAC.String()
	g.probe(client, "HomeNetwork", 1)
	client.MAC = g.GenerateMAC(true)
	g.probe(client, "Guest-WiFi", 1)

	require.Len(t, c.frames, 2)
	a, err := ie.ParseProbe(c.frames[0])
	require.NoError(t, err)
	b, err := ie.ParseProbe(c.frames[1])
	require.NoError(t, err)

	assert.NotEqual(t, first, b.MAC.String())
	assert.Equal(t, tracker.Fingerprint(a.IEs), tracker.Fingerprint(b.IEs))
}

func TestGenerateMAC_LocallyAdministered(t *testing.T) {
	g := NewDataGenerator(injection.NewMockRadio(), 5, 0, 0)
	for i := 0; i < 20; i++ {
		mac := g.GenerateMAC(true)
		assert.Equal(t, byte(0x02), mac[0]&0x03)
	}
	mac := g.GenerateMAC(false)
	assert.Equal(t, byte(0), mac[0]&0x02)
}
