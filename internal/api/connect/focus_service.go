package connect

import (
	"context"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/focusbox/internal/app/bridge"
	"github.com/osa030/focusbox/internal/app/events"
)

// FocusService implements the FocusService RPC.
type FocusService struct {
	bridge *bridge.Manager
}

// NewFocusService creates a new FocusService.
func NewFocusService(b *bridge.Manager) *FocusService {
	return &FocusService{bridge: b}
}

// Ensure FocusService implements the interface.
var _ FocusServiceHandler = (*FocusService)(nil)

// RequestFocus asks the host for music focus on behalf of the bridge.
func (s *FocusService) RequestFocus(
	ctx context.Context,
	req *connect.Request[RequestFocusRequest],
) (*connect.Response[RequestFocusResponse], error) {
	result, state, err := s.bridge.RequestFocus()
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&RequestFocusResponse{
		Result: result.String(),
		State:  toFocusState(state),
	}), nil
}

// AbandonFocus releases the bridge's focus request.
func (s *FocusService) AbandonFocus(
	ctx context.Context,
	req *connect.Request[AbandonFocusRequest],
) (*connect.Response[AbandonFocusResponse], error) {
	state, err := s.bridge.AbandonFocus()
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AbandonFocusResponse{State: toFocusState(state)}), nil
}

// GetState returns the bridge status.
func (s *FocusService) GetState(
	ctx context.Context,
	req *connect.Request[GetStateRequest],
) (*connect.Response[GetStateResponse], error) {
	return connect.NewResponse(toStatusResponse(s.bridge.Status())), nil
}

// SubscribeEvents streams the current state, then every bridge event.
func (s *FocusService) SubscribeEvents(
	ctx context.Context,
	req *connect.Request[SubscribeEventsRequest],
	stream *connect.ServerStream[Event],
) error {
	hub := s.bridge.Hub()
	adapter := newEventStreamAdapter(stream.Send)

	// Events broadcast before the initial state is out are held, so none are lost.
	seq := hub.NextSequenceNo()
	subscriptionID := hub.Subscribe(adapter)
	defer hub.Unsubscribe(subscriptionID)
	defer adapter.close()

	state := toFocusState(s.bridge.State())
	if err := adapter.start(&Event{
		Type:       EventTypeInitialState,
		SequenceNo: seq,
		State:      &state,
	}); err != nil {
		return err
	}

	// Wait for the client to leave or the bridge to stop
	select {
	case <-ctx.Done():
	case <-s.bridge.Done():
	}
	return nil
}

// eventStreamAdapter adapts connect.ServerStream to events.Stream.
// Broadcasts may arrive from several goroutines, so sends are serialized.
type eventStreamAdapter struct {
	mu      sync.Mutex
	send    func(*Event) error
	pending []*Event
	live    bool
	closed  bool
}

func newEventStreamAdapter(send func(*Event) error) *eventStreamAdapter {
	return &eventStreamAdapter{send: send}
}

func (a *eventStreamAdapter) Send(e events.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errors.New("stream closed")
	}
	if !a.live {
		a.pending = append(a.pending, toEvent(e))
		return nil
	}
	return a.send(toEvent(e))
}

// start sends the initial event, then the held events stamped after it.
func (a *eventStreamAdapter) start(initial *Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.send(initial); err != nil {
		return err
	}
	for _, e := range a.pending {
		if e.SequenceNo <= initial.SequenceNo {
			continue
		}
		if err := a.send(e); err != nil {
			return err
		}
	}
	a.pending = nil
	a.live = true
	return nil
}

func (a *eventStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.pending = nil
}
