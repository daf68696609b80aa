package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestInit_JSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "debug", Writer: &buf}))
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	zlog.Debug().Msg("focus changed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "focus changed", line["message"])
	assert.Equal(t, "debug", line["level"])
	assert.Contains(t, line["caller"], "logger/logger_test.go")
}

func TestInit_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusbox.log")
	require.NoError(t, Init(Config{Output: path, Level: "warn"}))
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.FileExists(t, path)
}

func TestInit_BadFile(t *testing.T) {
	err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestShortCaller(t *testing.T) {
	assert.Equal(t, filepath.Join("focus", "arbiter.go")+":12", shortCaller(0, filepath.Join("internal", "app", "focus", "arbiter.go"), 12))
	assert.Equal(t, "main.go:3", shortCaller(0, "main.go", 3))
}
