package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/focusbox/internal/domain/focus"
)

func TestObserver_Counts(t *testing.T) {
	o := NewObserver()

	o.FocusRequested(focus.RequestGranted, focus.State{PlaybackAuthorized: true})
	o.FocusRequested(focus.RequestGranted, focus.State{PlaybackAuthorized: true})
	o.FocusRequested(focus.RequestDelayed, focus.State{PlaybackDelayed: true})
	o.FocusChanged(focus.SignalLostTransient, focus.State{PlaybackAuthorized: true, ResumeOnFocusGain: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(o.requests.WithLabelValues(focus.RequestGranted.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.requests.WithLabelValues(focus.RequestDelayed.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.signals.WithLabelValues(focus.SignalLostTransient.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.authorized))
	assert.Equal(t, 0.0, testutil.ToFloat64(o.delayed))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.resume))
}

func TestObserver_Handler(t *testing.T) {
	o := NewObserver()
	o.FocusChanged(focus.SignalLost, focus.State{})

	srv := httptest.NewServer(o.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "focusbox_focus_signals_total")
	assert.Contains(t, string(body), "focusbox_playback_authorized 0")
}
