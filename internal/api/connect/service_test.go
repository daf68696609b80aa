package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/focusbox/internal/app/bridge"
	"github.com/osa030/focusbox/internal/app/events"
	"github.com/osa030/focusbox/internal/infra/config"
)

const testToken = "test-admin-token"

type fakeSink struct {
	mu    sync.Mutex
	level int
}

func (s *fakeSink) Name() string                    { return "fake" }
func (s *fakeSink) Play(ctx context.Context) error  { return nil }
func (s *fakeSink) Pause(ctx context.Context) error { return nil }

func (s *fakeSink) Volume(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level, nil
}

func (s *fakeSink) SetVolume(ctx context.Context, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
	return nil
}

type testServer struct {
	bridge *bridge.Manager
	focus  *FocusServiceClient
	host   *HostServiceClient
	url    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Admin:    config.AdminConfig{Token: testToken},
		Platform: config.PlatformConfig{APILevel: 34},
		Focus:    config.FocusConfig{RestoreLevel: 100, DuckLevel: 40},
	}
	b := bridge.NewManager(cfg, &fakeSink{level: 100})
	require.NoError(t, b.Start(context.Background()))

	mux := http.NewServeMux()
	mux.Handle(NewFocusServiceHandler(NewFocusService(b)))
	mux.Handle(NewHostServiceHandler(NewHostService(b), connect.WithInterceptors(NewAdminAuthInterceptor(cfg))))
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		b.Close()
		srv.Close()
	})

	return &testServer{
		bridge: b,
		focus:  NewFocusServiceClient(srv.Client(), srv.URL),
		host:   NewHostServiceClient(srv.Client(), srv.URL, WithAdminToken(testToken)),
		url:    srv.URL,
	}
}

func TestFocusService_RequestAndAbandon(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	resp, err := ts.focus.RequestFocus(ctx, connect.NewRequest(&RequestFocusRequest{}))
	require.NoError(t, err)
	assert.Equal(t, "granted", resp.Msg.Result)
	assert.True(t, resp.Msg.State.PlaybackAuthorized)

	state, err := ts.focus.GetState(ctx, connect.NewRequest(&GetStateRequest{}))
	require.NoError(t, err)
	assert.Equal(t, "running", state.Msg.Phase)
	assert.Equal(t, "request", state.Msg.Style)
	assert.Equal(t, "fake", state.Msg.Output)
	require.Len(t, state.Msg.Stack, 1)
	assert.Equal(t, "focusbox", state.Msg.Stack[0].Client)
	assert.Equal(t, "media", state.Msg.Stack[0].Usage)

	abandon, err := ts.focus.AbandonFocus(ctx, connect.NewRequest(&AbandonFocusRequest{}))
	require.NoError(t, err)
	assert.True(t, abandon.Msg.State.PlaybackAuthorized, "abandon leaves the flags untouched")

	state, err = ts.focus.GetState(ctx, connect.NewRequest(&GetStateRequest{}))
	require.NoError(t, err)
	assert.Empty(t, state.Msg.Stack)
}

func TestFocusService_NotRunning(t *testing.T) {
	ts := newTestServer(t)
	ts.bridge.Close()

	_, err := ts.focus.RequestFocus(context.Background(), connect.NewRequest(&RequestFocusRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
}

func TestFocusService_SubscribeEvents(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := ts.focus.SubscribeEvents(ctx, connect.NewRequest(&SubscribeEventsRequest{}))
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive())
	initial := stream.Msg()
	assert.Equal(t, EventTypeInitialState, initial.Type)
	require.NotNil(t, initial.State)
	assert.False(t, initial.State.PlaybackAuthorized)

	require.Eventually(t, func() bool { return ts.bridge.Hub().SubscriberCount() == 2 }, time.Second, 5*time.Millisecond)

	_, err = ts.focus.RequestFocus(context.Background(), connect.NewRequest(&RequestFocusRequest{}))
	require.NoError(t, err)
	_, err = ts.host.InjectSignal(context.Background(), connect.NewRequest(&InjectSignalRequest{Signal: "duck"}))
	require.NoError(t, err)

	var got []*Event
	for len(got) < 3 && stream.Receive() {
		got = append(got, stream.Msg())
	}
	require.Len(t, got, 3)

	assert.Equal(t, "focus", got[0].Type)
	assert.True(t, got[0].State.PlaybackAuthorized)
	assert.Equal(t, "duck", got[1].Type)
	assert.Equal(t, 40, got[1].Level)
	assert.Equal(t, "focus", got[2].Type)
	assert.Equal(t, "lost_transient_duck", got[2].Signal)
	assert.True(t, got[2].State.ResumeOnFocusGain)
	assert.Greater(t, got[1].SequenceNo, got[0].SequenceNo)
}

func TestHostService_AcquireReleaseList(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	acq, err := ts.host.Acquire(ctx, connect.NewRequest(&AcquireRequest{App: "dialer", Gain: "transient", Usage: "call"}))
	require.NoError(t, err)
	assert.Equal(t, "granted", acq.Msg.Client.Result)
	assert.Equal(t, "voice_communication", acq.Msg.Client.Usage)
	assert.NotEmpty(t, acq.Msg.Client.ID)

	// The call locks the stack; the bridge's request is parked.
	resp, err := ts.focus.RequestFocus(ctx, connect.NewRequest(&RequestFocusRequest{}))
	require.NoError(t, err)
	assert.Equal(t, "delayed", resp.Msg.Result)
	assert.True(t, resp.Msg.State.PlaybackDelayed)

	list, err := ts.host.ListClients(ctx, connect.NewRequest(&ListClientsRequest{}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Clients, 1)
	assert.Equal(t, "dialer", list.Msg.Clients[0].App)

	_, err = ts.host.Release(ctx, connect.NewRequest(&ReleaseRequest{ID: acq.Msg.Client.ID}))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return !ts.bridge.State().PlaybackDelayed
	}, time.Second, 5*time.Millisecond)
}

func TestHostService_Errors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		code connect.Code
	}{
		{
			name: "missing app",
			call: func() error {
				_, err := ts.host.Acquire(ctx, connect.NewRequest(&AcquireRequest{}))
				return err
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "unknown gain",
			call: func() error {
				_, err := ts.host.Acquire(ctx, connect.NewRequest(&AcquireRequest{App: "x", Gain: "loud"}))
				return err
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "unknown usage",
			call: func() error {
				_, err := ts.host.Acquire(ctx, connect.NewRequest(&AcquireRequest{App: "x", Usage: "alarm"}))
				return err
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "unknown signal",
			call: func() error {
				_, err := ts.host.InjectSignal(ctx, connect.NewRequest(&InjectSignalRequest{Signal: "mute"}))
				return err
			},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "unknown client",
			call: func() error {
				_, err := ts.host.Release(ctx, connect.NewRequest(&ReleaseRequest{ID: "nope"}))
				return err
			},
			code: connect.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}
}

func TestAdminAuthInterceptor(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts []connect.ClientOption
	}{
		{name: "missing token"},
		{name: "wrong token", opts: []connect.ClientOption{WithAdminToken("guess")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewHostServiceClient(http.DefaultClient, ts.url, tt.opts...)
			_, err := client.ListClients(ctx, connect.NewRequest(&ListClientsRequest{}))
			require.Error(t, err)
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		})
	}
}

func TestEventStreamAdapter_HoldsEventsUntilStarted(t *testing.T) {
	var sent []*Event
	adapter := newEventStreamAdapter(func(e *Event) error {
		sent = append(sent, e)
		return nil
	})

	require.NoError(t, adapter.Send(events.Event{Type: events.TypeDuck, Level: 40, SequenceNo: 2}))
	require.NoError(t, adapter.Send(events.Event{Type: events.TypePause, SequenceNo: 4}))
	assert.Empty(t, sent)

	require.NoError(t, adapter.start(&Event{Type: EventTypeInitialState, SequenceNo: 3}))
	require.NoError(t, adapter.Send(events.Event{Type: events.TypePlay, SequenceNo: 5}))

	require.Len(t, sent, 3)
	assert.Equal(t, EventTypeInitialState, sent[0].Type)
	assert.Equal(t, "pause", sent[1].Type)
	assert.Equal(t, uint64(4), sent[1].SequenceNo)
	assert.Equal(t, "play", sent[2].Type)

	adapter.close()
	assert.Error(t, adapter.Send(events.Event{Type: events.TypePlay, SequenceNo: 6}))
	assert.Len(t, sent, 3)
}
