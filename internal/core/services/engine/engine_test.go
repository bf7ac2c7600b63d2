package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/injection"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1700000000, 0)

// Collaborator fakes

type fakeHandle struct {
	ssid      string
	channel   int
	opts      domain.PortalOptions
	cred      *domain.Credential
	requests  int // victim requests reported per service pass
	destroyed bool
}

type fakePortal struct {
	handles map[string]*fakeHandle
}

func newFakePortal() *fakePortal {
	return &fakePortal{handles: make(map[string]*fakeHandle)}
}

func (f *fakePortal) Create(ssid string, channel int, opts domain.PortalOptions) (domain.PortalHandle, error) {
	h := &fakeHandle{ssid: ssid, channel: channel, opts: opts}
	f.handles[ssid] = h
	return h, nil
}

func (f *fakePortal) ProcessRequests(h domain.PortalHandle) (int, error) {
	return h.(*fakeHandle).requests, nil
}

func (f *fakePortal) HasCredentials(h domain.PortalHandle) bool {
	return h.(*fakeHandle).cred != nil
}

func (f *fakePortal) TakeCredential(h domain.PortalHandle) (domain.Credential, bool) {
	fh := h.(*fakeHandle)
	if fh.cred == nil {
		return domain.Credential{}, false
	}
	c := *fh.cred
	fh.cred = nil
	return c, true
}

func (f *fakePortal) APName(h domain.PortalHandle) string { return "ap-" + h.(*fakeHandle).ssid }

func (f *fakePortal) Destroy(h domain.PortalHandle) { h.(*fakeHandle).destroyed = true }

type credLog struct {
	mu    sync.Mutex
	creds []domain.Credential
}

func (c *credLog) WriteCredential(_ context.Context, cred domain.Credential) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = append(c.creds, cred)
	return nil
}

type handshakeLog struct {
	frames []domain.HandshakeFrame
}

func (h *handshakeLog) WriteHandshake(f domain.HandshakeFrame) error {
	h.frames = append(h.frames, f)
	return nil
}

type sliceDictionary []string

func (d sliceDictionary) ReadBatch(start, count int) ([]string, error) {
	if start >= len(d) {
		return nil, nil
	}
	end := start + count
	if end > len(d) {
		end = len(d)
	}
	return d[start:end], nil
}

type fixture struct {
	e      *Engine
	radio  *injection.MockRadio
	portal *fakePortal
	creds  *credLog
	hs     *handshakeLog
}

func newFixture(t *testing.T, dict ports.SSIDDictionary) *fixture {
	t.Helper()
	f := &fixture{
		radio:  injection.NewMockRadio(),
		portal: newFakePortal(),
		creds:  &credLog{},
		hs:     &handshakeLog{},
	}
	f.e = New(f.radio, f.portal, f.creds, f.hs, dict, Options{
		ScanChannels:      []int{6},
		BroadcastChannels: []int{1},
		Seed:              1,
	})
	f.e.Start()
	return f
}

// Frame helpers

func mac(i int) net.HardwareAddr {
	return net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, byte(i)}
}

func probeFrame(src net.HardwareAddr, ssid string) []byte {
	f := []byte{0x40, 0x00, 0x00, 0x00}
	f = append(f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	f = append(f, src...)
	f = append(f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	f = append(f, 0x10, 0x00)
	f = append(f, 0x00, byte(len(ssid)))
	f = append(f, ssid...)
	f = append(f, 0x01, 0x04, 0x02, 0x04, 0x0b, 0x16)
	f = append(f, 0x2d, 0x04, 0xef, 0x01, 0x1b, 0xff)
	return f
}

func eapolM1(ap, sta net.HardwareAddr) []byte {
	payload := make([]byte, 95)
	payload[0] = 2
	binary.BigEndian.PutUint16(payload[1:3], 0x0002|1<<3|1<<7) // pairwise, ack
	binary.BigEndian.PutUint16(payload[3:5], 16)
	header := []byte{1, 3, 0, 0}
	binary.BigEndian.PutUint16(header[2:4], uint16(len(payload)))

	f := make([]byte, 24)
	f[0], f[1] = 0x08, 0x02 // data, FromDS
	copy(f[4:10], sta)
	copy(f[10:16], ap)
	copy(f[16:22], ap)
	f = append(f, 0xAA, 0xAA, 0x03, 0x00, 0x00, 0x00, 0x88, 0x8E)
	f = append(f, header...)
	return append(f, payload...)
}

func framesOfSubtype(frames [][]byte, subtype byte) [][]byte {
	var out [][]byte
	for _, f := range frames {
		if len(f) > 0 && f[0] == subtype {
			out = append(out, f)
		}
	}
	return out
}

func TestEngine_FingerprintSurvivesMACRandomization(t *testing.T) {
	f := newFixture(t, nil)
	for i := 1; i <= 3; i++ {
		f.radio.Deliver(probeFrame(mac(i), ""), ports.RxMeta{RSSI: -40, Channel: 6})
	}
	require.True(t, f.e.Tick(context.Background(), t0))

	require.Equal(t, 1, f.e.tracker.Len())
	var prof *domain.ClientProfile
	f.e.tracker.Each(func(p *domain.ClientProfile) bool {
		prof = p
		return false
	})
	require.NotNil(t, prof)
	assert.Equal(t, 3, prof.ProbeCount)
	assert.Equal(t, mac(3).String(), prof.LastObservedMAC.String())

	// Wildcard probes never become attacks
	assert.Zero(t, f.e.Stats().QueueDepth)
	assert.Zero(t, f.e.Stats().Sessions)
	assert.Equal(t, uint64(3), f.e.Stats().ProbesTotal)
	assert.Len(t, f.e.RecentProbes(), 3)
}

func TestEngine_ProbeLaunchesSession(t *testing.T) {
	f := newFixture(t, nil)
	f.radio.Deliver(probeFrame(mac(1), "CoffeeShop"), ports.RxMeta{RSSI: -40, Channel: 6})
	require.True(t, f.e.Tick(context.Background(), t0))

	h, ok := f.portal.handles["CoffeeShop"]
	require.True(t, ok)
	assert.Equal(t, 6, h.channel)
	assert.Equal(t, domain.TierFast, h.opts.Tier)
	assert.Equal(t, mac(1).String(), h.opts.TargetMAC.String())
	assert.Equal(t, byte(0x02), h.opts.BSSID[0]&0x03)

	stats := f.e.Stats()
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, uint64(1), stats.LaunchedByTier["fast"])
	assert.Zero(t, stats.QueueDepth)

	beacons := framesOfSubtype(f.radio.GetFrames(), ie.SubtypeBeacon)
	require.Len(t, beacons, 1)
	p, err := ie.ParseProbe(beacons[0])
	require.NoError(t, err)
	assert.Equal(t, "CoffeeShop", p.SSID)
	assert.Equal(t, h.opts.BSSID.String(), p.MAC.String())

	// The same client is in cooldown; the SSID is served already
	f.radio.Deliver(probeFrame(mac(1), "Airport"), ports.RxMeta{RSSI: -40, Channel: 6})
	f.e.Tick(context.Background(), t0.Add(time.Second))
	assert.NotContains(t, f.portal.handles, "Airport")
}

func TestEngine_CredentialRemovesSessionWithOneWrite(t *testing.T) {
	f := newFixture(t, nil)
	f.radio.Deliver(probeFrame(mac(1), "CoffeeShop"), ports.RxMeta{RSSI: -40, Channel: 6})
	f.e.Tick(context.Background(), t0)
	require.Equal(t, 1, f.e.Stats().Sessions)

	h := f.portal.handles["CoffeeShop"]
	h.cred = &domain.Credential{Username: "alice", Password: "hunter2"}
	f.e.Tick(context.Background(), t0.Add(time.Second))

	assert.True(t, h.destroyed)
	assert.Zero(t, f.e.Stats().Sessions)
	assert.Equal(t, uint64(1), f.e.Stats().Credentials)
	require.Len(t, f.creds.creds, 1)
	assert.Equal(t, "CoffeeShop", f.creds.creds[0].SSID)
	assert.Equal(t, "ap-CoffeeShop", f.creds.creds[0].APName)

	f.e.Tick(context.Background(), t0.Add(2*time.Second))
	assert.Len(t, f.creds.creds, 1)
}

func TestEngine_PauseIsReversible(t *testing.T) {
	f := newFixture(t, nil)
	f.radio.Deliver(probeFrame(mac(1), ""), ports.RxMeta{RSSI: -70, Channel: 6})
	f.e.Tick(context.Background(), t0)
	require.Equal(t, 1, f.e.tracker.Len())

	require.NoError(t, f.e.Submit(domain.CommandPause))
	f.e.Tick(context.Background(), t0.Add(time.Second))
	assert.True(t, f.e.Stats().Paused)

	f.radio.Deliver(probeFrame(mac(2), "Ignored"), ports.RxMeta{RSSI: -40, Channel: 6})
	f.e.Tick(context.Background(), t0.Add(2*time.Second))
	assert.Equal(t, uint64(1), f.e.Stats().ProbesTotal)
	assert.Equal(t, 1, f.e.tracker.Len(), "state kept while paused")

	require.NoError(t, f.e.Submit(domain.CommandPause))
	f.e.Tick(context.Background(), t0.Add(3*time.Second))
	assert.False(t, f.e.Stats().Paused)

	f.radio.Deliver(probeFrame(mac(3), ""), ports.RxMeta{RSSI: -70, Channel: 6})
	f.e.Tick(context.Background(), t0.Add(4*time.Second))
	assert.Equal(t, uint64(2), f.e.Stats().ProbesTotal)
}

func TestEngine_ExitTearsDown(t *testing.T) {
	f := newFixture(t, nil)
	f.radio.Deliver(probeFrame(mac(1), "CoffeeShop"), ports.RxMeta{RSSI: -40, Channel: 6})
	f.e.Tick(context.Background(), t0)
	require.Equal(t, 1, f.e.Stats().Sessions)

	require.NoError(t, f.e.Submit(domain.CommandExit))
	assert.False(t, f.e.Tick(context.Background(), t0.Add(time.Second)))

	assert.True(t, f.portal.handles["CoffeeShop"].destroyed)
	assert.Zero(t, f.e.Stats().Sessions)
	assert.False(t, f.e.Stats().Running)
	assert.False(t, f.e.Running())

	// Reception is off and nothing else happens
	f.radio.Deliver(probeFrame(mac(2), ""), ports.RxMeta{RSSI: -40, Channel: 6})
	assert.Zero(t, f.e.probes.Len())
	assert.False(t, f.e.Tick(context.Background(), t0.Add(2*time.Second)))
	assert.ErrorIs(t, f.e.Submit(domain.CommandPause), ErrStopped)
}

func TestEngine_CloneCandidate(t *testing.T) {
	f := newFixture(t, nil)
	real, _ := net.ParseMAC("00:11:22:33:44:55")
	b := injection.NewPacketBuilder()
	for i := 0; i < domain.CloneThreshold; i++ {
		frame, err := b.Beacon(real, "CorpWiFi", 11, domain.WPA2PSK)
		require.NoError(t, err)
		f.radio.Deliver(frame, ports.RxMeta{RSSI: -60, Channel: 11})
	}
	f.e.Tick(context.Background(), t0)

	h, ok := f.portal.handles["CorpWiFi"]
	require.True(t, ok)
	assert.Equal(t, 11, h.channel)
	assert.Equal(t, domain.TierClone, h.opts.Tier)
	assert.Equal(t, domain.WPA2PSK, h.opts.Security)
	assert.Equal(t, real.String(), h.opts.BSSID.String())

	deauths := framesOfSubtype(f.radio.GetFrames(), ie.SubtypeDeauth)
	require.Len(t, deauths, domain.DeauthBurst)
	for _, d := range deauths {
		assert.Len(t, d, 26)
		assert.Equal(t, real.String(), net.HardwareAddr(d[10:16]).String())
	}
	assert.Contains(t, f.radio.Channels, 11)
	assert.Equal(t, uint64(domain.CloneThreshold), f.e.Stats().BeaconsObserved)
	assert.Equal(t, uint64(1), f.e.Stats().LaunchedByTier["clone"])
}

func TestEngine_CloneBelowThreshold(t *testing.T) {
	f := newFixture(t, nil)
	real, _ := net.ParseMAC("00:11:22:33:44:55")
	b := injection.NewPacketBuilder()
	for i := 0; i < domain.CloneThreshold-1; i++ {
		frame, _ := b.Beacon(real, "CorpWiFi", 11, domain.WPA2PSK)
		f.radio.Deliver(frame, ports.RxMeta{RSSI: -60, Channel: 11})
	}
	f.e.Tick(context.Background(), t0)

	// The window resets, so one more beacon later is not enough
	frame, _ := b.Beacon(real, "CorpWiFi", 11, domain.WPA2PSK)
	f.radio.Deliver(frame, ports.RxMeta{RSSI: -60, Channel: 11})
	f.e.Tick(context.Background(), t0.Add(domain.CloneWindow))

	assert.NotContains(t, f.portal.handles, "CorpWiFi")
}

func TestEngine_CloneDeauthSuppressedWhilePortalLocked(t *testing.T) {
	f := newFixture(t, nil)
	f.radio.Deliver(probeFrame(mac(1), "CoffeeShop"), ports.RxMeta{RSSI: -40, Channel: 6})
	f.e.Tick(context.Background(), t0)
	h, ok := f.portal.handles["CoffeeShop"]
	require.True(t, ok)
	require.Equal(t, 6, h.channel)

	// The victim starts talking to the portal; the next pass locks channel 6.
	h.requests = 1
	f.e.Tick(context.Background(), t0.Add(time.Second))
	f.e.Tick(context.Background(), t0.Add(2*time.Second))
	require.Equal(t, 6, f.e.Stats().LockedChannel)

	real, _ := net.ParseMAC("00:11:22:33:44:55")
	b := injection.NewPacketBuilder()
	for i := 0; i < domain.CloneThreshold; i++ {
		frame, err := b.Beacon(real, "CorpWiFi", 11, domain.WPA2PSK)
		require.NoError(t, err)
		f.radio.Deliver(frame, ports.RxMeta{RSSI: -60, Channel: 11})
	}
	f.radio.ClearFrames()
	f.e.Tick(context.Background(), t0.Add(3*time.Second))

	clone, ok := f.portal.handles["CorpWiFi"]
	require.True(t, ok)
	assert.Equal(t, 11, clone.channel)
	assert.Equal(t, uint64(1), f.e.Stats().LaunchedByTier["clone"])
	assert.Empty(t, framesOfSubtype(f.radio.GetFrames(), ie.SubtypeDeauth))
	assert.NotContains(t, f.radio.Channels, 11)
	assert.Equal(t, 6, f.e.Stats().LockedChannel)
}

func TestEngine_HiddenBeaconsNeverCloned(t *testing.T) {
	f := newFixture(t, nil)
	real, _ := net.ParseMAC("00:11:22:33:44:55")
	b := injection.NewPacketBuilder()
	for i := 0; i < domain.CloneThreshold; i++ {
		frame, err := b.Beacon(real, "\x00\x00\x00\x00", 11, domain.WPA2PSK)
		require.NoError(t, err)
		f.radio.Deliver(frame, ports.RxMeta{RSSI: -60, Channel: 11})
	}
	f.e.Tick(context.Background(), t0)

	assert.Empty(t, f.portal.handles)
	assert.Zero(t, f.e.Stats().BeaconsObserved)
	assert.Empty(t, framesOfSubtype(f.radio.GetFrames(), ie.SubtypeDeauth))
}

func TestEngine_HandshakeCapture(t *testing.T) {
	f := newFixture(t, nil)
	ap, _ := net.ParseMAC("00:11:22:33:44:55")
	f.radio.Deliver(eapolM1(ap, mac(9)), ports.RxMeta{RSSI: -50, Channel: 6})
	f.e.Tick(context.Background(), t0)

	require.Len(t, f.hs.frames, 1)
	hs := f.hs.frames[0]
	assert.Equal(t, domain.Message1, hs.Message)
	assert.Equal(t, ap.String(), hs.BSSID.String())
	assert.Equal(t, mac(9).String(), hs.Station.String())
	assert.Equal(t, uint64(1), f.e.Stats().Handshakes["M1"])
}

func TestEngine_BroadcastPromotionAndProbeResponse(t *testing.T) {
	dict := sliceDictionary{"bait-0", "bait-1", "bait-2"}
	f := newFixture(t, dict)

	f.e.Tick(context.Background(), t0)
	assert.Equal(t, domain.OwnerBroadcast.String(), f.e.Stats().Owner)
	assert.Equal(t, 1, f.e.Stats().Channel)
	assert.Equal(t, "bait-0", f.e.Stats().BroadcastSSID)

	beacons := framesOfSubtype(f.radio.GetFrames(), ie.SubtypeBeacon)
	require.Len(t, beacons, 1)
	p, err := ie.ParseProbe(beacons[0])
	require.NoError(t, err)
	assert.Equal(t, "bait-0", p.SSID)
	bait := p.MAC.String()

	f.radio.ClearFrames()
	f.radio.Deliver(probeFrame(mac(4), "bait-0"), ports.RxMeta{RSSI: -85, Channel: 1})
	f.e.Tick(context.Background(), t0.Add(50*time.Millisecond))

	assert.Contains(t, f.e.Stats().HighPrioritySSID, "bait-0")
	responses := framesOfSubtype(f.radio.GetFrames(), ie.SubtypeProbeResp)
	require.Len(t, responses, 1)
	assert.Equal(t, mac(4).String(), net.HardwareAddr(responses[0][4:10]).String())
	assert.Equal(t, bait, net.HardwareAddr(responses[0][10:16]).String())
}

func TestEngine_InboxOverflowCounted(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < domain.ProbeInboxCapacity+6; i++ {
		f.radio.Deliver(probeFrame(mac(i), ""), ports.RxMeta{RSSI: -70, Channel: 6})
	}
	f.e.Tick(context.Background(), t0)

	stats := f.e.Stats()
	assert.Equal(t, uint64(domain.ProbeInboxCapacity), stats.ProbesTotal)
	assert.Equal(t, uint64(6), stats.ProbesDropped)
}

func TestEngine_ReceiveDoesNotAllocate(t *testing.T) {
	f := newFixture(t, nil)
	frame := probeFrame(mac(1), "CoffeeShop")
	meta := ports.RxMeta{RSSI: -40, Channel: 6}

	allocs := testing.AllocsPerRun(200, func() {
		f.e.receive(frame, meta)
	})
	assert.Zero(t, allocs)
}

func TestEngine_MalformedProbeIgnored(t *testing.T) {
	f := newFixture(t, nil)
	frame := probeFrame(mac(1), "CoffeeShop")
	frame[25] = 200 // SSID length past the end
	f.radio.Deliver(frame, ports.RxMeta{RSSI: -40, Channel: 6})
	f.e.Tick(context.Background(), t0)

	assert.Zero(t, f.e.Stats().ProbesTotal)
	assert.Equal(t, uint64(1), f.e.malformed)
}

func TestEngine_ChannelCommands(t *testing.T) {
	radio := injection.NewMockRadio()
	e := New(radio, newFakePortal(), &credLog{}, nil, nil, Options{ScanChannels: []int{1, 6, 11}, Seed: 1})
	e.Start()

	e.Tick(context.Background(), t0)
	require.Equal(t, 1, e.Stats().Channel)

	require.NoError(t, e.Submit(domain.CommandNextChannel))
	e.Tick(context.Background(), t0.Add(10*time.Millisecond))
	assert.Equal(t, 6, e.Stats().Channel)

	require.NoError(t, e.Submit(domain.CommandPrevChannel))
	require.NoError(t, e.Submit(domain.CommandPrevChannel))
	e.Tick(context.Background(), t0.Add(20*time.Millisecond))
	assert.Equal(t, 11, e.Stats().Channel)
}

func TestEngine_SubmitBounded(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < domain.CommandMailboxCapacity; i++ {
		require.NoError(t, f.e.Submit(domain.CommandNextChannel))
	}
	assert.ErrorIs(t, f.e.Submit(domain.CommandNextChannel), ErrCommandsFull)
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.e.Run(ctx, 5*time.Millisecond) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), fmt.Sprint(err))
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.False(t, f.e.Running())
}
