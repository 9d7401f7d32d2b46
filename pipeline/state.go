package pipeline

// State is the phase a Lifecycle is in.
type State int32

// Lifecycle states. A run moves Idle → Starting → Running → Draining → Terminated, and may jump
// to FailedFatal from Starting, Running or Draining.
const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateDraining
	StateTerminated
	StateFailedFatal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	case StateFailedFatal:
		return "failed"
	default:
		return "unknown"
	}
}

// Final reports whether a run in this state has ended.
func (s State) Final() bool {
	return s == StateTerminated || s == StateFailedFatal
}
