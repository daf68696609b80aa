// Package hostaudio provides an in-process host audio-focus service.
//
// Focus holders are kept on a stack. Granting a request makes it the top
// entry and sends the implied loss to every other holder; abandoning the top
// entry hands focus back to the next one. While a call holds the top of the
// stack, requests that accept delayed grants are parked and granted once the
// call is gone. Signals are delivered in order on a dispatcher goroutine,
// never while the stack lock is held.
package hostaudio

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/focusbox/internal/domain/focus"
)

// FocusRequestAPILevel is the first API level with attribute-qualified request handles.
const FocusRequestAPILevel = 26

// Config holds service configuration.
type Config struct {
	APILevel int // Host API level; selects the request style clients may use
}

// entry is one focus holder or parked request.
type entry struct {
	req      *focus.Request // nil for legacy requests
	listener focus.Listener
	gain     focus.GainKind
	usage    focus.Usage
	delayed  bool         // accepts delayed grants
	loss     focus.Signal // loss currently held, SignalUnknown while holding focus
}

// delivery is a signal waiting to be dispatched.
type delivery struct {
	listener focus.Listener
	signal   focus.Signal
}

// EntryInfo describes a stack entry.
type EntryInfo struct {
	Client string
	Gain   focus.GainKind
	Usage  focus.Usage
	Loss   focus.Signal
	Parked bool
}

// Service is the host audio-focus service.
type Service struct {
	mu      sync.Mutex
	config  Config
	stack   []*entry // last element is the focus owner
	parked  []*entry // FIFO of delayed requests
	queue   []delivery
	wake    chan struct{}
	names   map[focus.Listener]string
	clients *clientRegistry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new service. Start must be called before signals are delivered.
func New(config Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config:  config,
		stack:   make([]*entry, 0),
		parked:  make([]*entry, 0),
		wake:    make(chan struct{}, 1),
		names:   make(map[focus.Listener]string),
		clients: newClientRegistry(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start runs the dispatcher until ctx is cancelled or Close is called.
func (s *Service) Start(ctx context.Context) {
	go s.dispatchLoop(ctx)
}

// Close stops the dispatcher. Pending signals are dropped.
func (s *Service) Close() {
	s.cancel()
}

// Done is closed when the dispatcher has exited.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// SupportsFocusRequest reports whether request handles are available.
func (s *Service) SupportsFocusRequest() bool {
	return s.config.APILevel >= FocusRequestAPILevel
}

// Name labels a listener in Stack output.
func (s *Service) Name(l focus.Listener, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[l] = name
}

// RequestFocus handles an attribute-qualified request.
func (s *Service) RequestFocus(req *focus.Request) focus.RequestResult {
	if req == nil || req.Listener == nil {
		return focus.RequestFailed
	}
	return s.request(&entry{
		req:      req,
		listener: req.Listener,
		gain:     req.Gain,
		usage:    req.Attributes.Usage,
		delayed:  req.AcceptsDelayedFocusGain,
	})
}

// RequestFocusLegacy handles a stream-type request. It never answers DELAYED.
func (s *Service) RequestFocusLegacy(l focus.Listener, stream focus.StreamType, gain focus.GainKind) focus.RequestResult {
	if l == nil {
		return focus.RequestFailed
	}
	return s.request(&entry{
		listener: l,
		gain:     gain,
		usage:    usageForStream(stream),
	})
}

// AbandonFocusRequest releases a request by handle.
func (s *Service) AbandonFocusRequest(req *focus.Request) {
	if req == nil {
		return
	}
	s.abandon(func(e *entry) bool { return e.req == req })
}

// AbandonFocusLegacy releases every request owned by the listener.
func (s *Service) AbandonFocusLegacy(l focus.Listener) {
	if l == nil {
		return
	}
	s.abandon(func(e *entry) bool { return e.listener == l })
}

// Inject queues a signal for a listener as if the host had raised it.
// The stack is not changed.
func (s *Service) Inject(l focus.Listener, signal focus.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(l, signal)
}

// Stack returns the holders from bottom to top, followed by parked requests.
func (s *Service) Stack() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]EntryInfo, 0, len(s.stack)+len(s.parked))
	for _, e := range s.stack {
		result = append(result, s.infoLocked(e, false))
	}
	for _, e := range s.parked {
		result = append(result, s.infoLocked(e, true))
	}
	return result
}

func (s *Service) infoLocked(e *entry, parked bool) EntryInfo {
	name := s.names[e.listener]
	if name == "" {
		name = "local"
	}
	return EntryInfo{Client: name, Gain: e.gain, Usage: e.usage, Loss: e.loss, Parked: parked}
}

func (s *Service) request(e *entry) focus.RequestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A listener re-requesting replaces its previous entry.
	s.stack = removeEntries(s.stack, func(x *entry) bool { return x.listener == e.listener })
	s.parked = removeEntries(s.parked, func(x *entry) bool { return x.listener == e.listener })

	if s.lockedLocked() {
		if !e.delayed {
			zlog.Debug().Msgf("hostaudio: request refused while locked: gain=%s usage=%s", e.gain, e.usage)
			return focus.RequestFailed
		}
		s.parked = append(s.parked, e)
		zlog.Debug().Msgf("hostaudio: request parked: gain=%s usage=%s", e.gain, e.usage)
		return focus.RequestDelayed
	}

	s.grantLocked(e)
	zlog.Debug().Msgf("hostaudio: request granted: gain=%s usage=%s depth=%d", e.gain, e.usage, len(s.stack))
	return focus.RequestGranted
}

func (s *Service) abandon(match func(*entry) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parked = removeEntries(s.parked, match)

	wasTop := len(s.stack) > 0 && match(s.stack[len(s.stack)-1])
	before := len(s.stack)
	s.stack = removeEntries(s.stack, match)
	if len(s.stack) == before {
		return
	}
	if !wasTop {
		return
	}

	// Parked requests go first once the lock is gone.
	promoted := false
	for len(s.parked) > 0 && !s.lockedLocked() {
		next := s.parked[0]
		s.parked = s.parked[1:]
		s.grantLocked(next)
		s.enqueueLocked(next.listener, focus.SignalGained)
		promoted = true
	}
	if promoted || len(s.stack) == 0 {
		return
	}

	top := s.stack[len(s.stack)-1]
	if top.loss != focus.SignalUnknown {
		top.loss = focus.SignalUnknown
		s.enqueueLocked(top.listener, focus.SignalGained)
	}
}

// grantLocked pushes e and propagates the implied loss to the other holders.
func (s *Service) grantLocked(e *entry) {
	loss := e.gain.LossFor()
	kept := s.stack[:0]
	for _, holder := range s.stack {
		if loss.MoreSevere(holder.loss) {
			holder.loss = loss
			s.enqueueLocked(holder.listener, loss)
		}
		// Permanent losers leave the stack and must request again.
		if holder.loss == focus.SignalLost {
			continue
		}
		kept = append(kept, holder)
	}
	s.stack = append(kept, e)
}

// lockedLocked reports whether a call holds the top of the stack.
func (s *Service) lockedLocked() bool {
	if len(s.stack) == 0 {
		return false
	}
	return s.stack[len(s.stack)-1].usage == focus.UsageVoiceCommunication
}

func (s *Service) enqueueLocked(l focus.Listener, signal focus.Signal) {
	s.queue = append(s.queue, delivery{listener: l, signal: signal})
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) dispatchLoop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, d := range batch {
			zlog.Debug().Msgf("hostaudio: dispatching %s", d.signal)
			d.listener.OnFocusChange(d.signal)
		}
	}
}

func removeEntries(entries []*entry, match func(*entry) bool) []*entry {
	kept := make([]*entry, 0, len(entries))
	for _, e := range entries {
		if !match(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

func usageForStream(stream focus.StreamType) focus.Usage {
	switch stream {
	case focus.StreamVoiceCall:
		return focus.UsageVoiceCommunication
	case focus.StreamNotification:
		return focus.UsageNotification
	default:
		return focus.UsageMedia
	}
}
