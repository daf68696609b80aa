package focus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/focusbox/internal/domain/focus"
)

func TestNewRequester_SelectsStyle(t *testing.T) {
	assert.Equal(t, "request", newRequester(&fakeAudioManager{modern: true}).name())
	assert.Equal(t, "legacy", newRequester(&fakeAudioManager{modern: false}).name())
	assert.Equal(t, "unavailable", newRequester(nil).name())
	assert.Equal(t, "legacy", NewArbiter(&fakeAudioManager{}, &recordingEmitter{}, &fakeVolume{}, Config{}).Style())
}

func TestHandleRequester_BuildsMusicRequest(t *testing.T) {
	am := &fakeAudioManager{modern: true, result: focus.RequestGranted}
	a := NewArbiter(am, &recordingEmitter{}, &fakeVolume{}, Config{})

	a.RequestAudioFocus()

	require.Len(t, am.requests, 1)
	req := am.requests[0]
	assert.Equal(t, focus.Gain, req.Gain)
	assert.Equal(t, focus.UsageMedia, req.Attributes.Usage)
	assert.Equal(t, focus.ContentMusic, req.Attributes.ContentType)
	assert.True(t, req.AcceptsDelayedFocusGain)
	assert.Same(t, a, req.Listener)
}

func TestHandleRequester_AbandonUsesSameHandle(t *testing.T) {
	am := &fakeAudioManager{modern: true, result: focus.RequestGranted}
	a := NewArbiter(am, &recordingEmitter{}, &fakeVolume{}, Config{})

	a.RequestAudioFocus()
	a.AbandonAudioFocus()
	a.AbandonAudioFocus()

	require.Len(t, am.abandoned, 1)
	assert.Same(t, am.requests[0], am.abandoned[0])
	assert.Equal(t, focus.State{PlaybackAuthorized: true}, a.State(), "abandon leaves flags untouched")
}

func TestHandleRequester_AbandonWithoutRequest(t *testing.T) {
	am := &fakeAudioManager{modern: true}
	a := NewArbiter(am, &recordingEmitter{}, &fakeVolume{}, Config{})

	a.AbandonAudioFocus()

	assert.Empty(t, am.abandoned)
}

func TestLegacyRequester(t *testing.T) {
	am := &fakeAudioManager{modern: false, result: focus.RequestGranted}
	a := NewArbiter(am, &recordingEmitter{}, &fakeVolume{}, Config{})

	assert.Equal(t, focus.RequestGranted, a.RequestAudioFocus())
	a.AbandonAudioFocus()

	assert.Equal(t, 1, am.legacyRequests)
	assert.Equal(t, 1, am.legacyAbandons)
	assert.Empty(t, am.requests)
}

func TestUnavailableRequester(t *testing.T) {
	a := NewArbiter(nil, &recordingEmitter{}, &fakeVolume{}, Config{})
	a.state.PlaybackAuthorized = true

	assert.Equal(t, focus.RequestFailed, a.RequestAudioFocus())
	assert.False(t, a.State().PlaybackAuthorized)

	assert.NotPanics(t, a.AbandonAudioFocus)
}
