// Package playback applies play and pause events to the output sink.
package playback

// State represents the output's playback state as last commanded.
type State int

const (
	StateIdle    State = iota // Nothing commanded yet
	StatePlaying              // Output is playing
	StatePaused               // Output is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
