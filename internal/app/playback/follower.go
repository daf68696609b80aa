package playback

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/focusbox/internal/app/events"
)

// Player is the part of an output the follower drives.
type Player interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
}

// commandTimeout bounds a single sink call.
const commandTimeout = 5 * time.Second

// Follower subscribes to the hub and replays play/pause events on a player.
// Events are queued on Send and applied in order on the follower goroutine,
// so a slow player never holds up a broadcast.
type Follower struct {
	mu      sync.RWMutex
	state   State
	player  Player
	hub     *events.Hub
	subID   string
	pending []events.Type
	wake    chan struct{}
	applied uint64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFollower creates a follower for the given player.
func NewFollower(player Player, hub *events.Hub) *Follower {
	ctx, cancel := context.WithCancel(context.Background())
	return &Follower{
		state:  StateIdle,
		player: player,
		hub:    hub,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start subscribes to the hub and starts applying events.
func (f *Follower) Start(ctx context.Context) {
	f.subID = f.hub.Subscribe(f)
	go f.loop(ctx)
}

// Close unsubscribes and stops the follower.
func (f *Follower) Close() {
	if f.subID != "" {
		f.hub.Unsubscribe(f.subID)
	}
	f.cancel()
}

// Done is closed when the follower goroutine exits.
func (f *Follower) Done() <-chan struct{} {
	return f.done
}

// State returns the last commanded state.
func (f *Follower) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Applied returns the number of commands sent to the player.
func (f *Follower) Applied() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.applied
}

// Send implements events.Stream. It never blocks.
func (f *Follower) Send(e events.Event) error {
	if e.Type != events.TypePlay && e.Type != events.TypePause {
		return nil
	}

	f.mu.Lock()
	f.pending = append(f.pending, e.Type)
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
	return nil
}

func (f *Follower) loop(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.ctx.Done():
			return
		case <-f.wake:
		}

		f.mu.Lock()
		batch := f.pending
		f.pending = nil
		f.mu.Unlock()

		for _, typ := range batch {
			f.apply(typ)
		}
	}
}

func (f *Follower) apply(typ events.Type) {
	current := f.State()

	var (
		next State
		cmd  func(context.Context) error
	)
	switch typ {
	case events.TypePlay:
		if current == StatePlaying {
			return
		}
		next, cmd = StatePlaying, f.player.Play
	case events.TypePause:
		// Idle means the output state is unknown; it may already be playing.
		if current == StatePaused {
			return
		}
		next, cmd = StatePaused, f.player.Pause
	default:
		return
	}

	ctx, cancel := context.WithTimeout(f.ctx, commandTimeout)
	defer cancel()
	if err := cmd(ctx); err != nil {
		zlog.Error().Err(err).Msgf("playback: %s failed, staying %s", typ, current)
		return
	}

	f.mu.Lock()
	f.state = next
	f.applied++
	f.mu.Unlock()
	zlog.Info().Msgf("playback: %s -> %s", current, next)
}
