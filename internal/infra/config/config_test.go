package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Addr: ":8080"},
			Admin:    AdminConfig{Token: "test-admin-token"},
			Platform: PlatformConfig{APILevel: 34},
			Focus:    FocusConfig{RestoreLevel: 100, DuckLevel: 40},
			Output:   OutputConfig{Type: OutputMixer},
			Metrics:  MetricsConfig{Path: "/metrics"},
		}
	}

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "missing admin token",
			modify:  func(c *Config) { c.Admin.Token = "" },
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name:    "unknown output type",
			modify:  func(c *Config) { c.Output.Type = "alsa" },
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "duck level out of range",
			modify:  func(c *Config) { c.Focus.DuckLevel = 120 },
			wantErr: true,
			errMsg:  "DuckLevel",
		},
		{
			name:    "duck level not below restore level",
			modify:  func(c *Config) { c.Focus.RestoreLevel = 40 },
			wantErr: true,
			errMsg:  "duck_level",
		},
		{
			name:    "spotify output without credentials",
			modify:  func(c *Config) { c.Output.Type = OutputSpotify },
			wantErr: true,
			errMsg:  "refresh_token",
		},
		{
			name: "spotify output with credentials",
			modify: func(c *Config) {
				c.Output.Type = OutputSpotify
				c.Spotify = SpotifyConfig{ClientID: "id", ClientSecret: "secret", RefreshToken: "token"}
			},
		},
		{
			name:    "metrics path must be absolute",
			modify:  func(c *Config) { c.Metrics.Path = "metrics" },
			wantErr: true,
			errMsg:  "Path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "")

	cfg, err := Parse([]byte("admin:\n  token: secret\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 34, cfg.Platform.APILevel)
	assert.Equal(t, 100, cfg.Focus.RestoreLevel)
	assert.Equal(t, 40, cfg.Focus.DuckLevel)
	assert.False(t, cfg.Focus.RequestOnStart)
	assert.Equal(t, OutputMixer, cfg.Output.Type)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "from-env")
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "env-token")

	yml := `
admin:
  token: from-file
output:
  type: spotify
  settings:
    device_name: Kitchen
`
	cfg, err := Parse([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Admin.Token)
	assert.Equal(t, "env-id", cfg.Spotify.ClientID)
	assert.Equal(t, "env-token", cfg.Spotify.RefreshToken)
	assert.Equal(t, "Kitchen", cfg.Output.Settings["device_name"])
}

func TestLoad(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")

	yml := `
server:
  addr: ":9090"
admin:
  token: secret
platform:
  api_level: 23
focus:
  restore_level: 90
  duck_level: 30
  request_on_start: true
metrics:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 23, cfg.Platform.APILevel)
	assert.Equal(t, 90, cfg.Focus.RestoreLevel)
	assert.Equal(t, 30, cfg.Focus.DuckLevel)
	assert.True(t, cfg.Focus.RequestOnStart)
	assert.True(t, cfg.Metrics.Enabled)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
