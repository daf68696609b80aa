// Package focus arbitrates audio focus for the bridge: it requests focus from
// the host, tracks the granted/delayed/lost flags and turns host signals into
// play, pause and volume side effects.
package focus

import (
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/focusbox/internal/domain/focus"
)

// EventEmitter receives play/pause notifications. Calls are fire-and-forget.
type EventEmitter interface {
	OnPlay()
	OnPause()
}

// VolumeController adjusts the output level (0-100).
type VolumeController interface {
	CurrentVolume() int
	SetCurrentVolume(level int)
	Duck(level int)
}

// Observer is notified of request outcomes and handled signals.
type Observer interface {
	FocusRequested(result focus.RequestResult, state focus.State)
	FocusChanged(signal focus.Signal, state focus.State)
}

// Observers fans notifications out to several observers, in order.
type Observers []Observer

func (o Observers) FocusRequested(result focus.RequestResult, state focus.State) {
	for _, obs := range o {
		obs.FocusRequested(result, state)
	}
}

func (o Observers) FocusChanged(signal focus.Signal, state focus.State) {
	for _, obs := range o {
		obs.FocusChanged(signal, state)
	}
}

// Config holds arbiter configuration.
type Config struct {
	RestoreLevel int      // Level restored when focus comes back
	DuckLevel    int      // Level applied on a duckable loss
	Observer     Observer // Optional
}

const (
	DefaultRestoreLevel = 100
	DefaultDuckLevel    = 40
)

// Arbiter owns the focus flags. It is registered with the host as the focus listener.
type Arbiter struct {
	mu    sync.Mutex
	state focus.State

	requester requester
	emitter   EventEmitter
	volume    VolumeController
	config    Config
}

// Ensure Arbiter can be registered as a host listener.
var _ focus.Listener = (*Arbiter)(nil)

// NewArbiter creates an arbiter bound to the given host service.
// A nil host yields an arbiter whose requests always fail.
func NewArbiter(am AudioManager, emitter EventEmitter, volume VolumeController, config Config) *Arbiter {
	if config.RestoreLevel <= 0 {
		config.RestoreLevel = DefaultRestoreLevel
	}
	if config.DuckLevel <= 0 {
		config.DuckLevel = DefaultDuckLevel
	}
	a := &Arbiter{
		requester: newRequester(am),
		emitter:   emitter,
		volume:    volume,
		config:    config,
	}
	zlog.Debug().Msgf("focus: arbiter created: style=%s restore=%d duck=%d",
		a.requester.name(), config.RestoreLevel, config.DuckLevel)
	return a
}

// State returns a snapshot of the flags.
func (a *Arbiter) State() focus.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Style returns the request style chosen for the host: request, legacy or unavailable.
func (a *Arbiter) Style() string {
	return a.requester.name()
}

// RequestAudioFocus asks the host for continuous music focus, accepting delayed grants.
// It only updates the flags; nothing is played or paused.
func (a *Arbiter) RequestAudioFocus() focus.RequestResult {
	result := a.requester.request(a)

	a.mu.Lock()
	switch result {
	case focus.RequestFailed:
		a.state.PlaybackAuthorized = false
	case focus.RequestGranted:
		a.state.PlaybackAuthorized = true
	case focus.RequestDelayed:
		a.state.PlaybackDelayed = true
		a.state.PlaybackAuthorized = false
	}
	snapshot := a.state
	a.mu.Unlock()

	zlog.Info().Msgf("focus: request %s: authorized=%t delayed=%t", result, snapshot.PlaybackAuthorized, snapshot.PlaybackDelayed)
	if a.config.Observer != nil {
		a.config.Observer.FocusRequested(result, snapshot)
	}
	return result
}

// AbandonAudioFocus releases the held or pending request. Flags are left untouched.
func (a *Arbiter) AbandonAudioFocus() {
	a.requester.abandon(a)
	zlog.Info().Msg("focus: abandoned")
}

// effects is the side effect decided for one signal.
type effects struct {
	restore bool
	play    bool
	pause   bool
	duck    bool
}

// OnFocusChange handles a host signal. Flags change under the lock; collaborators
// are called after it is released, from the decision taken inside it.
func (a *Arbiter) OnFocusChange(signal focus.Signal) {
	var fx effects

	a.mu.Lock()
	switch signal {
	case focus.SignalGained:
		if a.state.PlaybackDelayed || a.state.ResumeOnFocusGain {
			a.state.PlaybackDelayed = false
			a.state.ResumeOnFocusGain = false
			fx.restore = a.state.PlaybackAuthorized
			fx.play = a.state.PlaybackAuthorized
		}
	case focus.SignalLost:
		a.state.ResumeOnFocusGain = false
		a.state.PlaybackDelayed = false
		fx.pause = a.state.PlaybackAuthorized
	case focus.SignalLostTransient:
		a.state.ResumeOnFocusGain = true
		a.state.PlaybackDelayed = false
		fx.pause = a.state.PlaybackAuthorized
	case focus.SignalLostTransientDuck:
		a.state.ResumeOnFocusGain = true
		a.state.PlaybackDelayed = false
		fx.duck = a.state.PlaybackAuthorized
	default:
		a.mu.Unlock()
		zlog.Debug().Msgf("focus: ignoring signal %d", int(signal))
		return
	}
	snapshot := a.state
	a.mu.Unlock()

	zlog.Debug().Msgf("focus: %s: authorized=%t resume=%t delayed=%t",
		signal, snapshot.PlaybackAuthorized, snapshot.ResumeOnFocusGain, snapshot.PlaybackDelayed)

	if fx.restore && a.volume.CurrentVolume() != a.config.RestoreLevel {
		a.volume.SetCurrentVolume(a.config.RestoreLevel)
	}
	if fx.play {
		a.emitter.OnPlay()
	}
	if fx.pause {
		a.emitter.OnPause()
	}
	if fx.duck {
		a.volume.Duck(a.config.DuckLevel)
	}

	if a.config.Observer != nil {
		a.config.Observer.FocusChanged(signal, snapshot)
	}
}
