package hopping

import (
	"errors"
	"log"
	"sync"
)

// ErrTunerStopped is returned by SetChannel after Stop.
var ErrTunerStopped = errors.New("tuner stopped")

// Tuner retunes a single interface on demand. Channel sequencing lives in the
// engine; the tuner only skips redundant switches and throttles error logs.
type Tuner struct {
	Interface  string
	switcher   ChannelSwitcher
	state      AtomicState
	mu         sync.Mutex
	current    int
	errorCount int
}

// NewTuner creates a Tuner. A nil switcher selects IWSwitcher.
func NewTuner(iface string, switcher ChannelSwitcher) *Tuner {
	if switcher == nil {
		switcher = IWSwitcher
	}
	return &Tuner{Interface: iface, switcher: switcher}
}

// SetChannel tunes the interface to ch unless it is already there.
func (t *Tuner) SetChannel(ch int) error {
	if t.state.Get() == StateStopped {
		return ErrTunerStopped
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if ch == t.current && t.state.Get() == StateTuned {
		return nil
	}

	if err := t.switcher.SetChannel(t.Interface, ch); err != nil {
		t.errorCount++
		t.state.Set(StateFailing)
		if t.errorCount == 1 || t.errorCount%10 == 0 {
			log.Printf("Warning: Failed to set channel %d: %v (Consecutive errors: %d)", ch, err, t.errorCount)
		}
		return err
	}

	if t.errorCount > 0 {
		log.Printf("Tuner recovered after %d errors.", t.errorCount)
		t.errorCount = 0
	}
	t.current = ch
	t.state.Set(StateTuned)
	return nil
}

// Channel returns the last successfully tuned channel, or 0.
func (t *Tuner) Channel() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// State reports the tuner health.
func (t *Tuner) State() TunerState {
	return t.state.Get()
}

// Stop rejects further switches.
func (t *Tuner) Stop() {
	t.state.Set(StateStopped)
}
