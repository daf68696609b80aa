// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Output string    // "stdout", "stderr", or a file path
	Level  string    // "debug", "info", "warn", "error"
	Writer io.Writer // Overrides Output when set; always JSON
}

// Init initializes the global zerolog logger with the given configuration.
func Init(cfg Config) error {
	level := ParseLevel(cfg.Level)
	debug := level == zerolog.DebugLevel

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.CallerMarshalFunc = shortCaller

	var logger zerolog.Logger
	switch {
	case cfg.Writer != nil:
		logger = newJSON(cfg.Writer, debug)
	case isConsole(cfg.Output):
		out := os.Stdout
		if strings.EqualFold(cfg.Output, "stderr") {
			out = os.Stderr
		}
		logger = newConsole(out, debug)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrapf(err, "failed to open log file %s", cfg.Output)
		}
		logger = newJSON(f, debug)
	}

	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger
	return nil
}

func isConsole(output string) bool {
	switch strings.ToLower(output) {
	case "", "stdout", "stderr":
		return true
	default:
		return false
	}
}

// newConsole builds a colored console logger. Caller info is only added at debug level.
func newConsole(w io.Writer, debug bool) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	if !debug {
		return zerolog.New(cw).With().Timestamp().Logger()
	}
	cw.PartsOrder = []string{"time", "level", "message", "caller"}
	cw.FormatCaller = func(i interface{}) string {
		return "(" + i.(string) + ")"
	}
	return zerolog.New(cw).With().Timestamp().Caller().Logger()
}

func newJSON(w io.Writer, debug bool) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()
	if debug {
		return ctx.Caller().Logger()
	}
	return ctx.Logger()
}

// shortCaller keeps the last directory and the file name.
func shortCaller(_ uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// ParseLevel parses the log level string. Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
