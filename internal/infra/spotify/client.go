// Package spotify provides a Spotify Connect output sink.
package spotify

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// ErrDeviceNotFound is returned when the configured device is not visible to the account.
var ErrDeviceNotFound = errors.New("spotify device not found")

// Scopes required by the player sink.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
}

// player is the subset of the Web API client used by the sink.
type player interface {
	PlayOpt(ctx context.Context, opt *spotify.PlayOptions) error
	PauseOpt(ctx context.Context, opt *spotify.PlayOptions) error
	VolumeOpt(ctx context.Context, percent int, opt *spotify.PlayOptions) error
	PlayerState(ctx context.Context, opts ...spotify.RequestOption) (*spotify.PlayerState, error)
	PlayerDevices(ctx context.Context) ([]spotify.PlayerDevice, error)
}

// Client controls playback on a Spotify Connect device.
type Client struct {
	client     player
	deviceID   string
	deviceName string
	maxRetries int
	retryDelay time.Duration

	mu     sync.Mutex
	device *spotify.ID
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	DeviceID     string // Exact device id; takes precedence over DeviceName
	DeviceName   string // Case-insensitive device name
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// The access token is fetched on first use from the refresh token.
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}
	httpClient := auth.Client(ctx, token)

	return newClient(spotify.New(httpClient), cfg), nil
}

func newClient(p player, cfg Config) *Client {
	return &Client{
		client:     p,
		deviceID:   cfg.DeviceID,
		deviceName: cfg.DeviceName,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Name returns the sink name.
func (c *Client) Name() string {
	return "spotify"
}

// Play resumes playback on the device.
func (c *Client) Play(ctx context.Context) error {
	opt, err := c.options(ctx)
	if err != nil {
		return err
	}
	err = c.retry(func() error {
		return ignoreRestriction(c.client.PlayOpt(ctx, opt))
	})
	return errors.Wrap(err, "failed to resume playback")
}

// Pause pauses playback on the device.
func (c *Client) Pause(ctx context.Context) error {
	opt, err := c.options(ctx)
	if err != nil {
		return err
	}
	err = c.retry(func() error {
		return ignoreRestriction(c.client.PauseOpt(ctx, opt))
	})
	return errors.Wrap(err, "failed to pause playback")
}

// Volume returns the device volume (0-100).
// A configured device is read from the device list; otherwise the active device is used.
func (c *Client) Volume(ctx context.Context) (int, error) {
	opt, err := c.options(ctx)
	if err != nil {
		return 0, err
	}
	if opt != nil {
		return c.deviceVolume(ctx, *opt.DeviceID)
	}

	var state *spotify.PlayerState
	err = c.retry(func() error {
		s, err := c.client.PlayerState(ctx)
		if err != nil {
			return err
		}
		state = s
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to get player state")
	}
	if state == nil {
		return 0, errors.Wrap(ErrDeviceNotFound, "no active playback")
	}
	return int(state.Device.Volume), nil
}

func (c *Client) deviceVolume(ctx context.Context, id spotify.ID) (int, error) {
	var devices []spotify.PlayerDevice
	err := c.retry(func() error {
		d, err := c.client.PlayerDevices(ctx)
		if err != nil {
			return err
		}
		devices = d
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to list devices")
	}
	for _, d := range devices {
		if d.ID == id {
			return int(d.Volume), nil
		}
	}
	return 0, errors.Wrapf(ErrDeviceNotFound, "id %s", id)
}

// SetVolume sets the device volume (0-100).
func (c *Client) SetVolume(ctx context.Context, level int) error {
	opt, err := c.options(ctx)
	if err != nil {
		return err
	}
	level = max(0, min(100, level))
	err = c.retry(func() error {
		return c.client.VolumeOpt(ctx, level, opt)
	})
	return errors.Wrapf(err, "failed to set volume to %d", level)
}

// options targets the configured device. Without one, commands go to the active device.
func (c *Client) options(ctx context.Context) (*spotify.PlayOptions, error) {
	if c.deviceID == "" && c.deviceName == "" {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device != nil {
		return &spotify.PlayOptions{DeviceID: c.device}, nil
	}

	var devices []spotify.PlayerDevice
	err := c.retry(func() error {
		d, err := c.client.PlayerDevices(ctx)
		if err != nil {
			return err
		}
		devices = d
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	id, err := matchDevice(devices, c.deviceID, c.deviceName)
	if err != nil {
		return nil, err
	}
	zlog.Info().Msgf("spotify: using device %s", id)
	c.device = &id
	return &spotify.PlayOptions{DeviceID: c.device}, nil
}

// matchDevice finds a device by id, or by name when id is empty.
func matchDevice(devices []spotify.PlayerDevice, id, name string) (spotify.ID, error) {
	for _, d := range devices {
		if id != "" && string(d.ID) == id {
			return d.ID, nil
		}
		if id == "" && strings.EqualFold(d.Name, name) {
			return d.ID, nil
		}
	}
	if id != "" {
		return "", errors.Wrapf(ErrDeviceNotFound, "id %s", id)
	}
	return "", errors.Wrapf(ErrDeviceNotFound, "name %q", name)
}

// ignoreRestriction treats "already playing" and "already paused" rejections as success.
func ignoreRestriction(err error) error {
	if err != nil && strings.Contains(err.Error(), "Restriction violated") {
		return nil
	}
	return err
}

// retry retries an operation with linear backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}
