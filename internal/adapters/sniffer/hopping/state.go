package hopping

import "sync/atomic"

// TunerState represents the health of the channel tuner.
type TunerState int32

const (
	StateIdle    TunerState = iota // Created, no channel set yet
	StateTuned                     // Last switch succeeded
	StateFailing                   // Last switch failed
	StateStopped                   // Closed, further switches rejected
)

func (s TunerState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTuned:
		return "Tuned"
	case StateFailing:
		return "Failing"
	case StateStopped:
		return "Stopped"
	}
	return "Unknown"
}

// AtomicState wraps atomic operations for TunerState
type AtomicState struct {
	v int32
}

func (a *AtomicState) Set(s TunerState) {
	atomic.StoreInt32(&a.v, int32(s))
}

func (a *AtomicState) Get() TunerState {
	return TunerState(atomic.LoadInt32(&a.v))
}
