// Package events provides the bridge event hub and the play/pause emitter.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osa030/focusbox/internal/domain/focus"
)

// Type represents an event type.
type Type int

const (
	TypePlay   Type = iota // Playback should start or resume
	TypePause              // Playback should pause
	TypeVolume             // Output level changed
	TypeDuck               // Output level lowered for a duckable loss
	TypeFocus              // Focus state changed
)

// String returns the string representation of the event type.
func (t Type) String() string {
	switch t {
	case TypePlay:
		return "play"
	case TypePause:
		return "pause"
	case TypeVolume:
		return "volume"
	case TypeDuck:
		return "duck"
	case TypeFocus:
		return "focus"
	default:
		return "unknown"
	}
}

// Event is broadcast to every subscriber.
type Event struct {
	Type       Type
	SequenceNo uint64
	Time       time.Time
	Level      int          // Volume and duck events
	Signal     focus.Signal // Focus events
	State      focus.State  // Focus events
}

// Stream receives events for one subscriber.
type Stream interface {
	Send(Event) error
}

// sendTimeout bounds how long a slow subscriber can hold up a broadcast.
const sendTimeout = 500 * time.Millisecond

// Hub manages subscriptions and broadcasting.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]Stream
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[string]Stream),
	}
}

// Subscribe adds a stream and returns its subscription ID.
func (h *Hub) Subscribe(stream Stream) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	h.subscriptions[id] = stream
	return id
}

// Unsubscribe removes a subscription.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscriptions, id)
}

// NextSequenceNo returns the next sequence number.
func (h *Hub) NextSequenceNo() uint64 {
	h.sequenceNoMu.Lock()
	defer h.sequenceNoMu.Unlock()
	h.sequenceNo++
	return h.sequenceNo
}

// Broadcast stamps the event and sends it to all subscribers in parallel.
// A subscriber that does not accept the event within the timeout misses it.
func (h *Hub) Broadcast(e Event) Event {
	e.SequenceNo = h.NextSequenceNo()
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	h.mu.RLock()
	streams := make([]Stream, 0, len(h.subscriptions))
	for _, s := range h.subscriptions {
		streams = append(streams, s)
	}
	h.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range streams {
		wg.Add(1)
		go func(s Stream) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.Send(e)
			}()

			select {
			case <-done:
			case <-ctx.Done():
			}
		}(s)
	}
	wg.Wait()
	return e
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions)
}

// Close removes all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscriptions = make(map[string]Stream)
}

// Emitter broadcasts play and pause requests from the focus arbiter.
type Emitter struct {
	hub *Hub
}

// NewEmitter creates an emitter on the given hub.
func NewEmitter(hub *Hub) *Emitter {
	return &Emitter{hub: hub}
}

// OnPlay broadcasts a play event.
func (e *Emitter) OnPlay() {
	e.hub.Broadcast(Event{Type: TypePlay})
}

// OnPause broadcasts a pause event.
func (e *Emitter) OnPause() {
	e.hub.Broadcast(Event{Type: TypePause})
}

// FocusRequested broadcasts the state after a focus request.
func (e *Emitter) FocusRequested(_ focus.RequestResult, state focus.State) {
	e.hub.Broadcast(Event{Type: TypeFocus, State: state})
}

// FocusChanged broadcasts the state after a focus signal.
func (e *Emitter) FocusChanged(signal focus.Signal, state focus.State) {
	e.hub.Broadcast(Event{Type: TypeFocus, Signal: signal, State: state})
}
