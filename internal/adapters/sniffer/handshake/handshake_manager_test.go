package handshake

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handshakeFrame(msg domain.HandshakeMessage, at time.Time) domain.HandshakeFrame {
	return domain.HandshakeFrame{
		BSSID:     apMAC,
		Station:   staMAC,
		Message:   msg,
		Channel:   6,
		Frame:     dataFrame(msg == domain.Message1 || msg == domain.Message3, false, eapolKey(keyInfoPairwise, nil)),
		Timestamp: at,
	}
}

func TestRecorder_WritesPcap(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRecorder(dir)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	require.NoError(t, r.WriteHandshake(handshakeFrame(domain.Message1, now)))
	assert.False(t, r.HasHandshake(apMAC.String()))
	require.NoError(t, r.WriteHandshake(handshakeFrame(domain.Message2, now.Add(time.Millisecond))))
	assert.True(t, r.HasHandshake(apMAC.String()))
	require.NoError(t, r.Close())

	path := filepath.Join(dir, "00_11_22_33_44_55_66_77_88_99_aa_bb.pcap")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rd, err := pcapgo.NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeIEEE802_11, rd.LinkType())

	count := 0
	for {
		_, _, err := rd.ReadPacketData()
		if err != nil {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestRecorder_FrameCap(t *testing.T) {
	r, err := NewRecorder(t.TempDir())
	require.NoError(t, err)
	defer r.Close()

	now := time.Unix(1700000000, 0)
	for i := 0; i < maxFramesPerSession+5; i++ {
		require.NoError(t, r.WriteHandshake(handshakeFrame(domain.Message1, now)))
	}
	for _, s := range r.sessions {
		assert.Equal(t, maxFramesPerSession, s.Frames)
	}
}

func TestRecorder_IncompleteSessionExpires(t *testing.T) {
	r, err := NewRecorder(t.TempDir())
	require.NoError(t, err)
	defer r.Close()

	now := time.Unix(1700000000, 0)
	require.NoError(t, r.WriteHandshake(handshakeFrame(domain.Message1, now)))
	require.Len(t, r.sessions, 1)

	other := handshakeFrame(domain.Message1, now.Add(incompleteSessionTimeout+time.Second))
	other.Station = apMAC
	require.NoError(t, r.WriteHandshake(other))

	assert.Len(t, r.sessions, 1)
	_, stale := r.sessions[apMAC.String()+"_"+staMAC.String()]
	assert.False(t, stale)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b-c_d", sanitizeFilename("a:b-c/d"))
}
