package events

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/focusbox/internal/domain/focus"
)

type recordingStream struct {
	mu     sync.Mutex
	events []Event
	err    error
	delay  time.Duration
}

func (s *recordingStream) Send(e Event) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingStream) received() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	hub := NewHub()
	a := &recordingStream{}
	b := &recordingStream{err: errors.New("closed")}

	idA := hub.Subscribe(a)
	idB := hub.Subscribe(b)
	assert.NotEqual(t, idA, idB)
	assert.Equal(t, 2, hub.SubscriberCount())

	sent := hub.Broadcast(Event{Type: TypeVolume, Level: 40})
	assert.Equal(t, uint64(1), sent.SequenceNo)
	assert.False(t, sent.Time.IsZero())

	require.Len(t, a.received(), 1)
	assert.Equal(t, TypeVolume, a.received()[0].Type)
	assert.Equal(t, 40, a.received()[0].Level)
	assert.Len(t, b.received(), 1)

	hub.Unsubscribe(idA)
	hub.Broadcast(Event{Type: TypePlay})
	assert.Len(t, a.received(), 1)
	assert.Len(t, b.received(), 2)
}

func TestHub_SequenceNumbersIncrease(t *testing.T) {
	hub := NewHub()
	s := &recordingStream{}
	hub.Subscribe(s)

	hub.Broadcast(Event{Type: TypePlay})
	next := hub.NextSequenceNo()
	hub.Broadcast(Event{Type: TypePause})

	events := s.received()
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].SequenceNo)
	assert.Equal(t, uint64(2), next)
	assert.Equal(t, uint64(3), events[1].SequenceNo)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	hub.Subscribe(&recordingStream{delay: 2 * time.Second})
	fast := &recordingStream{}
	hub.Subscribe(fast)

	start := time.Now()
	hub.Broadcast(Event{Type: TypePause})

	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, fast.received(), 1)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	hub.Subscribe(&recordingStream{})
	hub.Close()
	assert.Zero(t, hub.SubscriberCount())
}

func TestEmitter(t *testing.T) {
	hub := NewHub()
	s := &recordingStream{}
	hub.Subscribe(s)
	em := NewEmitter(hub)

	em.OnPlay()
	em.OnPause()
	em.FocusChanged(focus.SignalLostTransient, focus.State{ResumeOnFocusGain: true})
	em.FocusRequested(focus.RequestGranted, focus.State{PlaybackAuthorized: true})

	events := s.received()
	require.Len(t, events, 4)
	assert.Equal(t, TypePlay, events[0].Type)
	assert.Equal(t, TypePause, events[1].Type)
	assert.Equal(t, TypeFocus, events[2].Type)
	assert.Equal(t, focus.SignalLostTransient, events[2].Signal)
	assert.True(t, events[2].State.ResumeOnFocusGain)
	assert.True(t, events[3].State.PlaybackAuthorized)
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "play", TypePlay.String())
	assert.Equal(t, "duck", TypeDuck.String())
	assert.Equal(t, "unknown", Type(42).String())
}
