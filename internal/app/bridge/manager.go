// Package bridge wires the focus arbiter to the host service, the event hub
// and the output, and owns their lifecycle.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/focusbox/internal/app/events"
	appfocus "github.com/osa030/focusbox/internal/app/focus"
	"github.com/osa030/focusbox/internal/app/output"
	"github.com/osa030/focusbox/internal/app/playback"
	"github.com/osa030/focusbox/internal/app/volume"
	"github.com/osa030/focusbox/internal/domain/focus"
	"github.com/osa030/focusbox/internal/infra/config"
	"github.com/osa030/focusbox/internal/infra/hostaudio"
)

var (
	ErrNotRunning     = errors.New("bridge is not running")
	ErrAlreadyStarted = errors.New("bridge already started")
)

// listenerName is how the bridge appears on the host focus stack.
const listenerName = "focusbox"

// Status is a snapshot of the bridge.
type Status struct {
	Phase       Phase
	Style       string
	State       focus.State
	Playback    playback.State
	Volume      int
	Output      string
	Stack       []hostaudio.EntryInfo
	Subscribers int
	StartedAt   time.Time
}

// Manager manages the bridge components.
type Manager struct {
	mu        sync.RWMutex
	phase     Phase
	startedAt time.Time

	config *config.Config

	// Components
	host     *hostaudio.Service
	arbiter  *appfocus.Arbiter
	hub      *events.Hub
	volume   *volume.Controller
	follower *playback.Follower
	sink     output.Sink

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a bridge on the given output. Observers receive every
// focus request outcome and signal after the event hub.
func NewManager(cfg *config.Config, sink output.Sink, observers ...appfocus.Observer) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	hub := events.NewHub()
	emitter := events.NewEmitter(hub)
	host := hostaudio.New(hostaudio.Config{APILevel: cfg.Platform.APILevel})
	vol := volume.NewController(sink, hub)

	m := &Manager{
		phase:    PhaseCreated,
		config:   cfg,
		host:     host,
		hub:      hub,
		volume:   vol,
		follower: playback.NewFollower(sink, hub),
		sink:     sink,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	m.arbiter = appfocus.NewArbiter(host, emitter, vol, appfocus.Config{
		RestoreLevel: cfg.Focus.RestoreLevel,
		DuckLevel:    cfg.Focus.DuckLevel,
		Observer:     append(appfocus.Observers{emitter}, observers...),
	})
	host.Name(m.arbiter, listenerName)
	return m
}

// Start starts the host dispatcher, the playback follower and, for sinks that
// render in the background, the sink itself. Focus is requested when
// focus.request_on_start is set.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.phase != PhaseCreated {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.phase = PhaseRunning
	m.startedAt = time.Now()
	m.mu.Unlock()

	m.host.Start(m.ctx)
	m.follower.Start(m.ctx)
	if r, ok := m.sink.(output.Runner); ok {
		go func() {
			if err := r.Run(m.ctx); err != nil {
				zlog.Error().Err(err).Msgf("bridge: output %s stopped", m.sink.Name())
			}
		}()
	}
	go m.watch(ctx)

	m.volume.CurrentVolume()

	zlog.Info().Msgf("bridge: started: output=%s style=%s", m.sink.Name(), m.arbiter.Style())

	if m.config.Focus.RequestOnStart {
		result := m.arbiter.RequestAudioFocus()
		zlog.Info().Msgf("bridge: initial focus request: %s", result)
	}
	return nil
}

// watch closes the bridge when the parent context ends.
func (m *Manager) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		m.Close()
	case <-m.ctx.Done():
	}
}

// Close abandons focus and stops all components. It is safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.phase == PhaseStopped {
		m.mu.Unlock()
		return
	}
	wasRunning := m.phase == PhaseRunning
	m.phase = PhaseStopped
	m.mu.Unlock()

	if wasRunning {
		m.arbiter.AbandonAudioFocus()
	}
	m.follower.Close()
	m.host.Close()
	m.cancel()
	m.hub.Close()
	if wasRunning {
		<-m.host.Done()
		<-m.follower.Done()
	}
	close(m.done)
	zlog.Info().Msg("bridge: stopped")
}

// Done returns a channel that is closed when the bridge has stopped.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Phase returns the lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

func (m *Manager) ensureRunning() error {
	if m.Phase() != PhaseRunning {
		return ErrNotRunning
	}
	return nil
}

// RequestFocus asks the host for music focus.
func (m *Manager) RequestFocus() (focus.RequestResult, focus.State, error) {
	if err := m.ensureRunning(); err != nil {
		return focus.RequestFailed, focus.State{}, err
	}
	result := m.arbiter.RequestAudioFocus()
	return result, m.arbiter.State(), nil
}

// AbandonFocus releases the bridge's focus request.
func (m *Manager) AbandonFocus() (focus.State, error) {
	if err := m.ensureRunning(); err != nil {
		return focus.State{}, err
	}
	m.arbiter.AbandonAudioFocus()
	return m.arbiter.State(), nil
}

// InjectSignal delivers a signal to the arbiter through the host dispatcher.
func (m *Manager) InjectSignal(signal focus.Signal) error {
	if err := m.ensureRunning(); err != nil {
		return err
	}
	if signal == focus.SignalUnknown {
		return errors.Wrapf(focus.ErrUnknownName, "signal %d", int(signal))
	}
	m.host.Inject(m.arbiter, signal)
	return nil
}

// Acquire makes a simulated app request focus.
func (m *Manager) Acquire(app string, gain focus.GainKind, usage focus.Usage) (hostaudio.ClientInfo, error) {
	if err := m.ensureRunning(); err != nil {
		return hostaudio.ClientInfo{}, err
	}
	return m.host.Acquire(app, gain, usage), nil
}

// Release abandons the focus held by a simulated app.
func (m *Manager) Release(id string) error {
	if err := m.ensureRunning(); err != nil {
		return err
	}
	return m.host.Release(id)
}

// Clients returns the simulated apps.
func (m *Manager) Clients() []hostaudio.ClientInfo {
	return m.host.Clients()
}

// Hub returns the event hub.
func (m *Manager) Hub() *events.Hub {
	return m.hub
}

// State returns the arbiter flags.
func (m *Manager) State() focus.State {
	return m.arbiter.State()
}

// Status returns a snapshot of the bridge.
func (m *Manager) Status() *Status {
	m.mu.RLock()
	phase, startedAt := m.phase, m.startedAt
	m.mu.RUnlock()

	return &Status{
		Phase:       phase,
		Style:       m.arbiter.Style(),
		State:       m.arbiter.State(),
		Playback:    m.follower.State(),
		Volume:      m.volume.Level(),
		Output:      m.sink.Name(),
		Stack:       m.host.Stack(),
		Subscribers: m.hub.SubscriberCount(),
		StartedAt:   startedAt,
	}
}
