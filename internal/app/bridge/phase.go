package bridge

// Phase represents the bridge lifecycle phase.
type Phase int

const (
	PhaseCreated Phase = iota // Built, not started
	PhaseRunning              // Dispatcher and follower running
	PhaseStopped              // Closed
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
