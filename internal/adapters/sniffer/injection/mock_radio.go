package injection

import (
	"errors"
	"sync"

	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

// ErrMockTransmit is returned by MockRadio when FailTransmit is set.
var ErrMockTransmit = errors.New("mock transmit failure")

// MockRadio implements ports.Radio for testing purposes.
// It captures transmitted frames and channel changes in memory.
type MockRadio struct {
	mu           sync.Mutex
	Frames       [][]byte
	Channels     []int
	FailTransmit bool
	FailChannel  error
	// Limit, when positive, keeps only the newest Limit frames and channels.
	Limit    int
	receiver ports.ReceiveFunc
}

// NewMockRadio creates a new instance of MockRadio.
func NewMockRadio() *MockRadio {
	return &MockRadio{
		Frames: make([][]byte, 0),
	}
}

// SetChannel records the requested channel.
func (m *MockRadio) SetChannel(ch int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailChannel != nil {
		return m.FailChannel
	}
	m.Channels = append(m.Channels, ch)
	if m.Limit > 0 && len(m.Channels) > m.Limit {
		m.Channels = append(m.Channels[:0], m.Channels[len(m.Channels)-m.Limit:]...)
	}
	return nil
}

// Transmit stores a copy of the frame.
func (m *MockRadio) Transmit(frame []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTransmit {
		return ErrMockTransmit
	}

	// Builders reuse their buffer between calls
	p := make([]byte, len(frame))
	copy(p, frame)
	m.Frames = append(m.Frames, p)
	if m.Limit > 0 && len(m.Frames) > m.Limit {
		m.Frames = append(m.Frames[:0], m.Frames[len(m.Frames)-m.Limit:]...)
	}
	return nil
}

// SetReceiver registers the callback used by Deliver.
func (m *MockRadio) SetReceiver(fn ports.ReceiveFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiver = fn
}

// Deliver feeds a frame to the registered receiver as if it came off the air.
func (m *MockRadio) Deliver(frame []byte, meta ports.RxMeta) {
	m.mu.Lock()
	fn := m.receiver
	m.mu.Unlock()
	if fn != nil {
		fn(frame, meta)
	}
}

// GetFrames returns a copy of the transmitted frames.
func (m *MockRadio) GetFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	frames := make([][]byte, len(m.Frames))
	for i, p := range m.Frames {
		frames[i] = make([]byte, len(p))
		copy(frames[i], p)
	}
	return frames
}

// CurrentChannel returns the last channel set, or 0.
func (m *MockRadio) CurrentChannel() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Channels) == 0 {
		return 0
	}
	return m.Channels[len(m.Channels)-1]
}

// ClearFrames clears the captured frames buffer.
func (m *MockRadio) ClearFrames() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = make([][]byte, 0)
}
