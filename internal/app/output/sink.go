// Package output selects and builds the audio output controlled by the bridge.
package output

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/focusbox/internal/infra/config"
	"github.com/osa030/focusbox/internal/infra/mixer"
	"github.com/osa030/focusbox/internal/infra/spotify"
)

// Sink is an audio output that can be paused, resumed and attenuated.
type Sink interface {
	Name() string
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Volume(ctx context.Context) (int, error)
	SetVolume(ctx context.Context, level int) error
}

// Runner is implemented by sinks that render in the background.
type Runner interface {
	Run(ctx context.Context) error
}

// MixerSettings configures the software mixer output.
type MixerSettings struct {
	SampleRate    int     `mapstructure:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	ToneHz        float64 `mapstructure:"tone_hz" default:"440" validate:"gt=0"`
	InitialVolume int     `mapstructure:"initial_volume" default:"100" validate:"gte=0,lte=100"`
	StartPaused   bool    `mapstructure:"start_paused"`
}

// SpotifySettings configures the Spotify Connect output.
type SpotifySettings struct {
	DeviceID   string `mapstructure:"device_id"`
	DeviceName string `mapstructure:"device_name"`
}

// New creates the sink selected by cfg.Output.
func New(ctx context.Context, cfg *config.Config) (Sink, error) {
	zlog.Debug().Msgf("creating output: type=%s settings=%+v", cfg.Output.Type, cfg.Output.Settings)

	switch cfg.Output.Type {
	case config.OutputMixer, "":
		var s MixerSettings
		if err := decode(cfg.Output.Settings, &s); err != nil {
			return nil, errors.Wrap(err, "invalid mixer settings")
		}
		return mixer.New(mixer.Config{
			SampleRate:    s.SampleRate,
			ToneHz:        s.ToneHz,
			InitialVolume: s.InitialVolume,
			StartPaused:   s.StartPaused,
		}), nil

	case config.OutputSpotify:
		var s SpotifySettings
		if err := decode(cfg.Output.Settings, &s); err != nil {
			return nil, errors.Wrap(err, "invalid spotify settings")
		}
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			DeviceID:     s.DeviceID,
			DeviceName:   s.DeviceName,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create spotify output")
		}
		return client, nil

	default:
		return nil, errors.Newf("unsupported output type: %s", cfg.Output.Type)
	}
}

// decode fills out from raw settings, applies defaults and validates the result.
func decode(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
