// Package mock simulates the radio environment for -mock runs: clients that
// probe for their preferred networks and access points that beacon.
package mock

import (
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/injection"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

// Common SSIDs for realistic mock data
var commonSSIDs = []string{
	"HomeNetwork", "NETGEAR-5G", "Starbucks WiFi", "TP-Link_2.4GHz",
	"Linksys", "ATT-WiFi", "Xfinity", "Google Fiber",
	"Office-Network", "Guest-WiFi", "MyWiFi", "Home-2.4G",
	"DIRECT-Printer", "AndroidAP", "iPhone", "Samsung Galaxy",
	"CoffeeShop_Free", "Airport_WiFi", "Hotel-Guest", "Apartment_5G",
}

// Vendor OUI prefixes for clients that keep their burned-in address
var vendorPrefixes = [][3]byte{
	{0x00, 0x17, 0xF2}, // Apple
	{0x00, 0x12, 0xFB}, // Samsung
	{0xF4, 0xF5, 0xD8}, // Google
	{0x34, 0xCE, 0x00}, // Xiaomi
	{0x00, 0xE0, 0xFC}, // Huawei
	{0x00, 0x13, 0x02}, // Intel
}

// Capability signatures, one per simulated chipset
var signatures = [][]*layers.Dot11InformationElement{
	{
		{ID: layers.Dot11InformationElementIDESRates, Length: 4, Info: []byte{0x30, 0x48, 0x60, 0x6c}},
		{ID: layers.Dot11InformationElementIDHTCapabilities, Length: 4, Info: []byte{0xef, 0x01, 0x1b, 0xff}},
	},
	{
		{ID: layers.Dot11InformationElementIDHTCapabilities, Length: 4, Info: []byte{0x2d, 0x01, 0x17, 0xff}},
		{ID: layers.Dot11InformationElementIDExtCapability, Length: 4, Info: []byte{0x00, 0x00, 0x08, 0x04}},
	},
	{
		{ID: layers.Dot11InformationElementIDESRates, Length: 4, Info: []byte{0x30, 0x48, 0x60, 0x6c}},
		{ID: layers.Dot11InformationElementIDVendor, Length: 7, Info: []byte{0x00, 0x50, 0xf2, 0x08, 0x00, 0x10, 0x00}},
	},
}

var channels24GHz = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

// Receiver is the side of the mock radio the simulator drives.
type Receiver interface {
	Deliver(frame []byte, meta ports.RxMeta)
	CurrentChannel() int
}

// MockClient is a simulated station.
type MockClient struct {
	MAC        net.HardwareAddr
	Preferred  []string
	Signature  []*layers.Dot11InformationElement
	RSSI       int
	Randomizes bool
}

// MockAP is a simulated access point.
type MockAP struct {
	SSID     string
	BSSID    net.HardwareAddr
	Channel  int
	Security domain.SecuritySummary
	// BeaconsPerStep controls how loud the AP is; loud APs become clone candidates.
	BeaconsPerStep int
}

// DataGenerator owns the simulated population.
type DataGenerator struct {
	rand    *rand.Rand
	builder *injection.PacketBuilder
	radio   Receiver
	clients []*MockClient
	aps     []*MockAP
}

// NewDataGenerator builds a population of clients and access points.
func NewDataGenerator(radio Receiver, seed int64, clients, aps int) *DataGenerator {
	g := &DataGenerator{
		rand:    rand.New(rand.NewSource(seed)),
		builder: injection.NewPacketBuilder(),
		radio:   radio,
	}
	for i := 0; i < aps; i++ {
		g.aps = append(g.aps, g.GenerateAP())
	}
	for i := 0; i < clients; i++ {
		g.clients = append(g.clients, g.GenerateClient())
	}
	return g
}

// GenerateMAC returns a vendor address, or a locally administered random
// one when random is set.
func (g *DataGenerator) GenerateMAC(random bool) net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	g.rand.Read(mac)
	if random {
		mac[0] = (mac[0] | 0x02) &^ 0x01
		return mac
	}
	oui := vendorPrefixes[g.rand.Intn(len(vendorPrefixes))]
	copy(mac, oui[:])
	return mac
}

// GenerateAP creates an access point on a random 2.4 GHz channel.
func (g *DataGenerator) GenerateAP() *MockAP {
	ap := &MockAP{
		SSID:           commonSSIDs[g.rand.Intn(len(commonSSIDs))],
		BSSID:          g.GenerateMAC(false),
		Channel:        channels24GHz[g.rand.Intn(len(channels24GHz))],
		BeaconsPerStep: 1,
	}
	if g.rand.Float32() < 0.7 {
		ap.Security = domain.SecuritySummary{Version: 1, GroupCipher: 4, PairwiseCipher: 4, AKMSuite: 2}
	}
	if g.rand.Float32() < 0.2 {
		ap.BeaconsPerStep = 10
	}
	return ap
}

// GenerateClient creates a station with one to six remembered networks.
func (g *DataGenerator) GenerateClient() *MockClient {
	n := 1 + g.rand.Intn(6)
	preferred := make([]string, 0, n)
	for i := 0; i < n; i++ {
		preferred = append(preferred, commonSSIDs[g.rand.Intn(len(commonSSIDs))])
	}
	randomizes := g.rand.Float32() < 0.6
	return &MockClient{
		MAC:        g.GenerateMAC(randomizes),
		Preferred:  preferred,
		Signature:  signatures[g.rand.Intn(len(signatures))],
		RSSI:       -35 - g.rand.Intn(50),
		Randomizes: randomizes,
	}
}

// Clients returns the simulated stations.
func (g *DataGenerator) Clients() []*MockClient { return g.clients }

// APs returns the simulated access points.
func (g *DataGenerator) APs() []*MockAP { return g.aps }

// Step emits one round of traffic on the radio's current channel: beacons
// from the APs tuned there and a probe burst from a random third of the
// clients.
func (g *DataGenerator) Step() {
	ch := g.radio.CurrentChannel()
	if ch == 0 {
		return
	}

	for _, ap := range g.aps {
		if ap.Channel != ch {
			continue
		}
		for i := 0; i < ap.BeaconsPerStep; i++ {
			frame, err := g.builder.Beacon(ap.BSSID, ap.SSID, ap.Channel, ap.Security)
			if err != nil {
				continue
			}
			g.radio.Deliver(frame, ports.RxMeta{RSSI: -40 - g.rand.Intn(30), Channel: ch})
		}
	}

	for _, c := range g.clients {
		if g.rand.Intn(3) != 0 {
			continue
		}
		if c.Randomizes && g.rand.Float32() < 0.3 {
			c.MAC = g.GenerateMAC(true)
		}
		c.RSSI = clampRSSI(c.RSSI + g.rand.Intn(11) - 5)

		g.probe(c, "", ch)
		g.probe(c, c.Preferred[g.rand.Intn(len(c.Preferred))], ch)
	}
}

func (g *DataGenerator) probe(c *MockClient, ssid string, ch int) {
	frame, err := g.builder.ProbeRequest(c.MAC, ssid, c.Signature...)
	if err != nil {
		return
	}
	g.radio.Deliver(frame, ports.RxMeta{RSSI: c.RSSI, Channel: ch})
}

// Run steps the simulation every interval until ctx is done.
func (g *DataGenerator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Step()
		}
	}
}

func clampRSSI(v int) int {
	switch {
	case v > -20:
		return -20
	case v < -95:
		return -95
	}
	return v
}
