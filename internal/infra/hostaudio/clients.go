package hostaudio

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/focusbox/internal/domain/focus"
)

// ErrUnknownClient is returned when releasing a client that does not exist.
var ErrUnknownClient = errors.New("unknown client")

// ClientInfo describes a simulated foreign client.
type ClientInfo struct {
	ID         string
	App        string
	Gain       focus.GainKind
	Usage      focus.Usage
	Result     focus.RequestResult
	LastSignal focus.Signal
	AcquiredAt time.Time
}

// client is a foreign app holding (or waiting for) focus. It only records what it receives.
type client struct {
	mu   sync.Mutex
	info ClientInfo
	req  *focus.Request
}

func (c *client) OnFocusChange(signal focus.Signal) {
	c.mu.Lock()
	c.info.LastSignal = signal
	app := c.info.App
	c.mu.Unlock()
	zlog.Info().Msgf("hostaudio: client %s received %s", app, signal)
}

func (c *client) snapshot() ClientInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// clientRegistry manages simulated clients with thread-safe access.
type clientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{clients: make(map[string]*client)}
}

func (r *clientRegistry) add(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.info.ID] = c
}

func (r *clientRegistry) remove(id string) (*client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	return c, ok
}

func (r *clientRegistry) all() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ClientInfo, 0, len(r.clients))
	for _, c := range r.clients {
		result = append(result, c.snapshot())
	}
	return result
}

// Acquire makes a simulated app request focus. Calls lock the stack until released.
// Clients whose request failed are not kept.
func (s *Service) Acquire(app string, gain focus.GainKind, usage focus.Usage) ClientInfo {
	c := &client{
		info: ClientInfo{
			ID:         uuid.New().String(),
			App:        app,
			Gain:       gain,
			Usage:      usage,
			AcquiredAt: time.Now(),
		},
	}
	c.req = &focus.Request{
		Gain:       gain,
		Attributes: focus.Attributes{Usage: usage, ContentType: contentForUsage(usage)},
		Listener:   c,
	}

	s.Name(c, app)
	result := s.RequestFocus(c.req)

	c.mu.Lock()
	c.info.Result = result
	c.mu.Unlock()

	if result == focus.RequestFailed {
		s.forget(c)
	} else {
		s.clients.add(c)
	}
	zlog.Info().Msgf("hostaudio: client %s acquired %s (%s): %s", app, gain, usage, result)
	return c.snapshot()
}

// Release abandons the focus held by a simulated app.
func (s *Service) Release(id string) error {
	c, ok := s.clients.remove(id)
	if !ok {
		return errors.Wrapf(ErrUnknownClient, "client %s", id)
	}
	s.AbandonFocusRequest(c.req)
	s.forget(c)
	zlog.Info().Msgf("hostaudio: client %s released", c.info.App)
	return nil
}

// Clients returns the simulated apps currently known.
func (s *Service) Clients() []ClientInfo {
	return s.clients.all()
}

func (s *Service) forget(l focus.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.names, l)
}

func contentForUsage(u focus.Usage) focus.ContentType {
	switch u {
	case focus.UsageMedia:
		return focus.ContentMusic
	case focus.UsageNotification:
		return focus.ContentSonification
	default:
		return focus.ContentSpeech
	}
}
