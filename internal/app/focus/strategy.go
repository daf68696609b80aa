package focus

import (
	"sync"

	"github.com/osa030/focusbox/internal/domain/focus"
)

// AudioManager is the host audio-focus service.
type AudioManager interface {
	// SupportsFocusRequest reports whether request handles with attributes are available.
	SupportsFocusRequest() bool
	RequestFocus(req *focus.Request) focus.RequestResult
	AbandonFocusRequest(req *focus.Request)
	RequestFocusLegacy(l focus.Listener, stream focus.StreamType, gain focus.GainKind) focus.RequestResult
	AbandonFocusLegacy(l focus.Listener)
}

// requester hides which request style the host supports.
type requester interface {
	request(l focus.Listener) focus.RequestResult
	abandon(l focus.Listener)
	name() string
}

// newRequester picks the request style once, from the host capabilities.
func newRequester(am AudioManager) requester {
	if am == nil {
		return unavailableRequester{}
	}
	if am.SupportsFocusRequest() {
		return &handleRequester{am: am}
	}
	return &legacyRequester{am: am}
}

// handleRequester issues attribute-qualified requests and keeps the handle for abandon.
type handleRequester struct {
	am AudioManager

	mu  sync.Mutex
	req *focus.Request
}

func (r *handleRequester) request(l focus.Listener) focus.RequestResult {
	req := &focus.Request{
		Gain: focus.Gain,
		Attributes: focus.Attributes{
			Usage:       focus.UsageMedia,
			ContentType: focus.ContentMusic,
		},
		AcceptsDelayedFocusGain: true,
		Listener:                l,
	}

	r.mu.Lock()
	r.req = req
	r.mu.Unlock()

	return r.am.RequestFocus(req)
}

func (r *handleRequester) abandon(focus.Listener) {
	r.mu.Lock()
	req := r.req
	r.req = nil
	r.mu.Unlock()

	if req == nil {
		return
	}
	r.am.AbandonFocusRequest(req)
}

func (r *handleRequester) name() string { return "request" }

// legacyRequester issues stream-type requests. Delayed grants are not available.
type legacyRequester struct {
	am AudioManager
}

func (r *legacyRequester) request(l focus.Listener) focus.RequestResult {
	return r.am.RequestFocusLegacy(l, focus.StreamMusic, focus.Gain)
}

func (r *legacyRequester) abandon(l focus.Listener) {
	r.am.AbandonFocusLegacy(l)
}

func (r *legacyRequester) name() string { return "legacy" }

// unavailableRequester is used when no host service was provided.
type unavailableRequester struct{}

func (unavailableRequester) request(focus.Listener) focus.RequestResult { return focus.RequestFailed }
func (unavailableRequester) abandon(focus.Listener)                    {}
func (unavailableRequester) name() string                              { return "unavailable" }
