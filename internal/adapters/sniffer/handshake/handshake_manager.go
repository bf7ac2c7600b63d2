package handshake

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

const (
	incompleteSessionTimeout = 60 * time.Second
	maxFramesPerSession      = 20
	snapLen                  = 65536
)

// Recorder appends classified EAPOL-Key frames to one pcap file per
// BSSID/station pair. Files use link type IEEE802_11 since frames are stored
// without radiotap. It implements ports.HandshakeWriter.
type Recorder struct {
	mu       sync.Mutex
	baseDir  string
	sessions map[string]*captureSession
}

type captureSession struct {
	BSSID      string
	StationMAC string
	file       *os.File
	writer     *pcapgo.Writer
	LastUpdate time.Time
	Captured   [5]bool // indexed by domain.HandshakeMessage
	Frames     int
	reported   bool
}

// complete reports whether the pair yields a crackable handshake: M2 plus
// the authenticator nonce from M1 or M3.
func (s *captureSession) complete() bool {
	return s.Captured[domain.Message2] && (s.Captured[domain.Message1] || s.Captured[domain.Message3])
}

// NewRecorder creates the capture directory if needed.
func NewRecorder(baseDir string) (*Recorder, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create handshake capture dir: %w", err)
	}
	return &Recorder{
		baseDir:  baseDir,
		sessions: make(map[string]*captureSession),
	}, nil
}

// WriteHandshake appends h to its pair's capture file.
func (r *Recorder) WriteHandshake(h domain.HandshakeFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanupLocked(h.Timestamp)

	key := h.BSSID.String() + "_" + h.Station.String()
	s, ok := r.sessions[key]
	if !ok {
		var err error
		s, err = r.openSession(h)
		if err != nil {
			return err
		}
		r.sessions[key] = s
	}
	if s.Frames >= maxFramesPerSession {
		return nil
	}

	ci := gopacket.CaptureInfo{
		Timestamp:     h.Timestamp,
		CaptureLength: len(h.Frame),
		Length:        len(h.Frame),
	}
	if err := s.writer.WritePacket(ci, h.Frame); err != nil {
		return fmt.Errorf("write handshake frame: %w", err)
	}
	s.Frames++
	s.LastUpdate = h.Timestamp
	if h.Message != domain.Unclassified {
		s.Captured[h.Message] = true
	}
	if !s.reported && s.complete() {
		s.reported = true
		log.Printf("[HANDSHAKE] Complete handshake %s <-> %s", s.BSSID, s.StationMAC)
	}
	return nil
}

func (r *Recorder) openSession(h domain.HandshakeFrame) (*captureSession, error) {
	name := fmt.Sprintf("%s_%s.pcap", sanitizeFilename(h.BSSID.String()), sanitizeFilename(h.Station.String()))
	path := filepath.Join(r.baseDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create pcap file %s: %w", path, err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeIEEE802_11); err != nil {
		f.Close()
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &captureSession{
		BSSID:      h.BSSID.String(),
		StationMAC: h.Station.String(),
		file:       f,
		writer:     w,
		LastUpdate: h.Timestamp,
	}, nil
}

// cleanupLocked closes incomplete sessions idle past the timeout. Complete
// sessions stay open until the frame cap so M4 can still land.
func (r *Recorder) cleanupLocked(now time.Time) {
	for key, s := range r.sessions {
		idle := now.Sub(s.LastUpdate)
		if idle > incompleteSessionTimeout && (!s.complete() || s.Frames >= maxFramesPerSession) {
			s.file.Close()
			delete(r.sessions, key)
		}
	}
}

// HasHandshake returns true if a complete handshake is held for bssid.
func (r *Recorder) HasHandshake(bssid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if strings.EqualFold(s.BSSID, bssid) && s.complete() {
			return true
		}
	}
	return false
}

// Close flushes and closes every open capture file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for key, s := range r.sessions {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.sessions, key)
	}
	return firstErr
}

func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			b.WriteRune(c)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
