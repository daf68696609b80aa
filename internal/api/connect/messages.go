package connect

import (
	"time"

	"github.com/osa030/focusbox/internal/app/bridge"
	"github.com/osa030/focusbox/internal/app/events"
	"github.com/osa030/focusbox/internal/domain/focus"
	"github.com/osa030/focusbox/internal/infra/hostaudio"
)

// EventTypeInitialState is the type of the first event of every subscription.
const EventTypeInitialState = "initial_state"

// FocusState mirrors the arbiter flags.
type FocusState struct {
	PlaybackDelayed    bool `json:"playback_delayed"`
	ResumeOnFocusGain  bool `json:"resume_on_focus_gain"`
	PlaybackAuthorized bool `json:"playback_authorized"`
}

type RequestFocusRequest struct{}

type RequestFocusResponse struct {
	Result string     `json:"result"`
	State  FocusState `json:"state"`
}

type AbandonFocusRequest struct{}

type AbandonFocusResponse struct {
	State FocusState `json:"state"`
}

type GetStateRequest struct{}

// StackEntry is one holder of the host focus stack.
type StackEntry struct {
	Client string `json:"client"`
	Gain   string `json:"gain"`
	Usage  string `json:"usage"`
	Loss   string `json:"loss,omitempty"`
	Parked bool   `json:"parked,omitempty"`
}

type GetStateResponse struct {
	Phase       string       `json:"phase"`
	Style       string       `json:"style"`
	State       FocusState   `json:"state"`
	Playback    string       `json:"playback"`
	Volume      int          `json:"volume"`
	Output      string       `json:"output"`
	Stack       []StackEntry `json:"stack"`
	Subscribers int          `json:"subscribers"`
	StartedAt   time.Time    `json:"started_at"`
}

type SubscribeEventsRequest struct{}

// Event is one message of the event stream.
type Event struct {
	Type       string      `json:"type"`
	SequenceNo uint64      `json:"sequence_no"`
	Time       time.Time   `json:"time"`
	Level      int         `json:"level,omitempty"`
	Signal     string      `json:"signal,omitempty"`
	State      *FocusState `json:"state,omitempty"`
}

// ClientInfo describes a simulated foreign app.
type ClientInfo struct {
	ID         string    `json:"id"`
	App        string    `json:"app"`
	Gain       string    `json:"gain"`
	Usage      string    `json:"usage"`
	Result     string    `json:"result"`
	LastSignal string    `json:"last_signal,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
}

type AcquireRequest struct {
	App   string `json:"app"`
	Gain  string `json:"gain"`
	Usage string `json:"usage"`
}

type AcquireResponse struct {
	Client ClientInfo `json:"client"`
}

type ReleaseRequest struct {
	ID string `json:"id"`
}

type ReleaseResponse struct{}

type ListClientsRequest struct{}

type ListClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
}

type InjectSignalRequest struct {
	Signal string `json:"signal"`
}

type InjectSignalResponse struct{}

func toFocusState(s focus.State) FocusState {
	return FocusState{
		PlaybackDelayed:    s.PlaybackDelayed,
		ResumeOnFocusGain:  s.ResumeOnFocusGain,
		PlaybackAuthorized: s.PlaybackAuthorized,
	}
}

func toStatusResponse(s *bridge.Status) *GetStateResponse {
	stack := make([]StackEntry, 0, len(s.Stack))
	for _, e := range s.Stack {
		entry := StackEntry{
			Client: e.Client,
			Gain:   e.Gain.String(),
			Usage:  e.Usage.String(),
			Parked: e.Parked,
		}
		if e.Loss != focus.SignalUnknown {
			entry.Loss = e.Loss.String()
		}
		stack = append(stack, entry)
	}
	return &GetStateResponse{
		Phase:       s.Phase.String(),
		Style:       s.Style,
		State:       toFocusState(s.State),
		Playback:    s.Playback.String(),
		Volume:      s.Volume,
		Output:      s.Output,
		Stack:       stack,
		Subscribers: s.Subscribers,
		StartedAt:   s.StartedAt,
	}
}

func toEvent(e events.Event) *Event {
	out := &Event{
		Type:       e.Type.String(),
		SequenceNo: e.SequenceNo,
		Time:       e.Time,
	}
	switch e.Type {
	case events.TypeVolume, events.TypeDuck:
		out.Level = e.Level
	case events.TypeFocus:
		if e.Signal != focus.SignalUnknown {
			out.Signal = e.Signal.String()
		}
		state := toFocusState(e.State)
		out.State = &state
	}
	return out
}

func toClientInfo(c hostaudio.ClientInfo) ClientInfo {
	info := ClientInfo{
		ID:         c.ID,
		App:        c.App,
		Gain:       c.Gain.String(),
		Usage:      c.Usage.String(),
		Result:     c.Result.String(),
		AcquiredAt: c.AcquiredAt,
	}
	if c.LastSignal != focus.SignalUnknown {
		info.LastSignal = c.LastSignal.String()
	}
	return info
}
