// Package volume implements the arbiter's volume controller on top of an output sink.
package volume

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/focusbox/internal/app/events"
)

// Sink is the part of an output the controller drives.
type Sink interface {
	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, level int) error
}

// callTimeout bounds a single sink call.
const callTimeout = 5 * time.Second

// Controller caches the output level and announces every change on the hub.
type Controller struct {
	mu    sync.Mutex
	sink  Sink
	hub   *events.Hub
	level int
}

// NewController creates a controller. The level is read from the sink on first use.
func NewController(sink Sink, hub *events.Hub) *Controller {
	return &Controller{sink: sink, hub: hub}
}

// CurrentVolume returns the sink level, or the cached one if the sink cannot be read.
func (c *Controller) CurrentVolume() int {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	level, err := c.sink.Volume(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		zlog.Warn().Err(err).Msgf("volume: failed to read level, using cached %d", c.level)
		return c.level
	}
	c.level = clamp(level)
	return c.level
}

// Level returns the cached level without touching the sink.
func (c *Controller) Level() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// SetCurrentVolume sets the output level and broadcasts a volume event.
func (c *Controller) SetCurrentVolume(level int) {
	c.apply(clamp(level), events.TypeVolume)
}

// Duck lowers the output level for a duckable loss and broadcasts a duck event.
func (c *Controller) Duck(level int) {
	c.apply(clamp(level), events.TypeDuck)
}

func (c *Controller) apply(level int, typ events.Type) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	// The cached level only tracks what the output accepted.
	if err := c.sink.SetVolume(ctx, level); err != nil {
		zlog.Error().Err(err).Msgf("volume: failed to set level %d", level)
		return
	}

	c.mu.Lock()
	c.level = level
	c.mu.Unlock()

	zlog.Info().Msgf("volume: %s to %d", typ, level)
	c.hub.Broadcast(events.Event{Type: typ, Level: level})
}

func clamp(level int) int {
	return max(0, min(100, level))
}
