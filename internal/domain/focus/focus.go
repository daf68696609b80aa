// Package focus provides the audio focus value types shared by the arbiter
// and the host audio-focus service.
package focus

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownName is returned when a textual signal, gain or usage is not recognised.
var ErrUnknownName = errors.New("unknown name")

// Signal is a focus change delivered by the host.
type Signal int

const (
	SignalUnknown           Signal = iota
	SignalGained                   // Focus (re)gained
	SignalLost                     // Permanent loss
	SignalLostTransient            // Temporary loss, expect a gain later
	SignalLostTransientDuck        // Temporary loss, output may continue at lower volume
)

// String returns the string representation of the signal.
func (s Signal) String() string {
	switch s {
	case SignalGained:
		return "gained"
	case SignalLost:
		return "lost"
	case SignalLostTransient:
		return "lost_transient"
	case SignalLostTransientDuck:
		return "lost_transient_duck"
	default:
		return "unknown"
	}
}

// IsLoss reports whether the signal takes focus away.
func (s Signal) IsLoss() bool {
	return s == SignalLost || s == SignalLostTransient || s == SignalLostTransientDuck
}

// severity orders losses: duck < transient < permanent.
func (s Signal) severity() int {
	switch s {
	case SignalLostTransientDuck:
		return 1
	case SignalLostTransient:
		return 2
	case SignalLost:
		return 3
	default:
		return 0
	}
}

// MoreSevere reports whether s is a stronger loss than other.
func (s Signal) MoreSevere(other Signal) bool {
	return s.severity() > other.severity()
}

// ParseSignal parses the string form produced by Signal.String.
func ParseSignal(v string) (Signal, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "gained", "gain":
		return SignalGained, nil
	case "lost", "loss":
		return SignalLost, nil
	case "lost_transient", "transient":
		return SignalLostTransient, nil
	case "lost_transient_duck", "duck":
		return SignalLostTransientDuck, nil
	default:
		return SignalUnknown, errors.Wrapf(ErrUnknownName, "signal %q", v)
	}
}

// RequestResult is the synchronous answer to a focus request.
type RequestResult int

const (
	RequestFailed RequestResult = iota
	RequestGranted
	RequestDelayed
)

// String returns the string representation of the result.
func (r RequestResult) String() string {
	switch r {
	case RequestFailed:
		return "failed"
	case RequestGranted:
		return "granted"
	case RequestDelayed:
		return "delayed"
	default:
		return "unknown"
	}
}

// GainKind is the kind of focus being requested.
type GainKind int

const (
	Gain                   GainKind = iota // Indefinite focus (music playback)
	GainTransient                          // Short focus, others pause
	GainTransientMayDuck                   // Short focus, others may keep playing quietly
	GainTransientExclusive                 // Short focus, nobody else may play (dictation)
)

// String returns the string representation of the gain kind.
func (g GainKind) String() string {
	switch g {
	case Gain:
		return "gain"
	case GainTransient:
		return "transient"
	case GainTransientMayDuck:
		return "transient_may_duck"
	case GainTransientExclusive:
		return "transient_exclusive"
	default:
		return "unknown"
	}
}

// LossFor returns the signal other focus holders receive when this gain is granted.
func (g GainKind) LossFor() Signal {
	switch g {
	case Gain:
		return SignalLost
	case GainTransient, GainTransientExclusive:
		return SignalLostTransient
	case GainTransientMayDuck:
		return SignalLostTransientDuck
	default:
		return SignalUnknown
	}
}

// ParseGainKind parses the string form produced by GainKind.String.
func ParseGainKind(v string) (GainKind, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "gain", "":
		return Gain, nil
	case "transient":
		return GainTransient, nil
	case "transient_may_duck", "may_duck", "duck":
		return GainTransientMayDuck, nil
	case "transient_exclusive", "exclusive":
		return GainTransientExclusive, nil
	default:
		return Gain, errors.Wrapf(ErrUnknownName, "gain kind %q", v)
	}
}

// Usage describes why a client wants to produce audio.
type Usage int

const (
	UsageMedia Usage = iota
	UsageVoiceCommunication
	UsageAssistanceNavigation
	UsageNotification
	UsageAssistant
)

// String returns the string representation of the usage.
func (u Usage) String() string {
	switch u {
	case UsageMedia:
		return "media"
	case UsageVoiceCommunication:
		return "voice_communication"
	case UsageAssistanceNavigation:
		return "navigation"
	case UsageNotification:
		return "notification"
	case UsageAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// ParseUsage parses the string form produced by Usage.String.
func ParseUsage(v string) (Usage, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "media", "":
		return UsageMedia, nil
	case "voice_communication", "call":
		return UsageVoiceCommunication, nil
	case "navigation":
		return UsageAssistanceNavigation, nil
	case "notification":
		return UsageNotification, nil
	case "assistant":
		return UsageAssistant, nil
	default:
		return UsageMedia, errors.Wrapf(ErrUnknownName, "usage %q", v)
	}
}

// ContentType describes what kind of audio a client produces.
type ContentType int

const (
	ContentMusic ContentType = iota
	ContentSpeech
	ContentSonification
)

// StreamType is the stream a legacy request is issued on.
type StreamType int

const (
	StreamMusic StreamType = iota
	StreamVoiceCall
	StreamNotification
)

// Attributes qualify a focus request.
type Attributes struct {
	Usage       Usage
	ContentType ContentType
}

// Listener receives focus changes from the host.
type Listener interface {
	OnFocusChange(signal Signal)
}

// Request is a focus request handle. The same pointer is used to abandon it.
type Request struct {
	Gain                    GainKind
	Attributes              Attributes
	AcceptsDelayedFocusGain bool
	Listener                Listener
}

// State is a snapshot of the arbiter flags.
type State struct {
	PlaybackDelayed    bool // A request is pending grant
	ResumeOnFocusGain  bool // Playback was interrupted by a transient loss
	PlaybackAuthorized bool // Focus is held and playback may be commanded
}
