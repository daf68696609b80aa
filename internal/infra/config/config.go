// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Output types.
const (
	OutputMixer   = "mixer"
	OutputSpotify = "spotify"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Platform PlatformConfig `yaml:"platform"`
	Focus    FocusConfig    `yaml:"focus"`
	Output   OutputConfig   `yaml:"output"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// PlatformConfig describes the host audio-focus service.
type PlatformConfig struct {
	APILevel int `yaml:"api_level" default:"34" validate:"gte=1"`
}

// FocusConfig represents focus arbitration configuration.
type FocusConfig struct {
	RestoreLevel   int  `yaml:"restore_level" default:"100" validate:"gte=1,lte=100"`
	DuckLevel      int  `yaml:"duck_level" default:"40" validate:"gte=1,lte=100"`
	RequestOnStart bool `yaml:"request_on_start"`
}

// OutputConfig selects the output sink.
type OutputConfig struct {
	Type     string         `yaml:"type" default:"mixer" validate:"oneof=mixer spotify"`
	Settings map[string]any `yaml:"settings"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// MetricsConfig represents Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics" validate:"startswith=/"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if err := c.validateLevels(); err != nil {
		return err
	}

	return c.validateOutput()
}

// validateLevels checks that ducking actually lowers the output.
func (c *Config) validateLevels() error {
	if c.Focus.DuckLevel >= c.Focus.RestoreLevel {
		return errors.Newf("duck_level (%d) must be below restore_level (%d)", c.Focus.DuckLevel, c.Focus.RestoreLevel)
	}
	return nil
}

// validateOutput checks that credentials exist for the selected output.
func (c *Config) validateOutput() error {
	if c.Output.Type != OutputSpotify {
		return nil
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
		return errors.New("spotify output requires client_id, client_secret and refresh_token")
	}
	return nil
}
