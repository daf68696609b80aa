package spotify

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/zmb3/spotify/v2"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "player rate limited", err: spotify.Error{Status: 429, Message: "API rate limit exceeded"}, expected: true},
		{name: "player gateway", err: spotify.Error{Status: 502, Message: "Bad gateway."}, expected: true},
		{name: "wrapped server error", err: errors.Wrap(spotify.Error{Status: 503, Message: "Service unavailable"}, "failed to pause playback"), expected: true},
		{name: "no active device", err: spotify.Error{Status: 404, Message: "Player command failed: No active device found"}, expected: false},
		{name: "premium required", err: spotify.Error{Status: 403, Message: "Player command failed: Premium required"}, expected: false},
		{name: "empty error body", err: fmt.Errorf("spotify: HTTP %d: %s (body empty)", 504, "Gateway Timeout"), expected: true},
		{name: "expired token", err: errors.New("oauth2: token expired and refresh token is not set"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}
