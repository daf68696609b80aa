// Package main provides the focusbox daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/focusbox/internal/api/connect"
	"github.com/osa030/focusbox/internal/app/bridge"
	appfocus "github.com/osa030/focusbox/internal/app/focus"
	"github.com/osa030/focusbox/internal/app/output"
	"github.com/osa030/focusbox/internal/infra/config"
	"github.com/osa030/focusbox/internal/infra/logger"
	"github.com/osa030/focusbox/internal/infra/metrics"
)

var (
	app        = kingpin.New("focusd", "focusbox audio-focus bridge daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// check-config command
	checkConfigCmd = app.Command("check-config", "Validate the config file and exit")
)

func init() {
	app.Command("start", "Start the daemon (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == checkConfigCmd.FullCommand() {
		fmt.Printf("%s: ok (output=%s api_level=%d restore=%d duck=%d)\n",
			*configPath, cfg.Output.Type, cfg.Platform.APILevel, cfg.Focus.RestoreLevel, cfg.Focus.DuckLevel)
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	sink, err := output.New(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create output")
	}

	var observers []appfocus.Observer
	var metricsObserver *metrics.Observer
	if cfg.Metrics.Enabled {
		metricsObserver = metrics.NewObserver()
		observers = append(observers, metricsObserver)
	}

	bridgeMgr := bridge.NewManager(cfg, sink, observers...)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewFocusServiceHandler(apiconnect.NewFocusService(bridgeMgr)))
	mux.Handle(apiconnect.NewHostServiceHandler(
		apiconnect.NewHostService(bridgeMgr),
		connect.WithInterceptors(apiconnect.NewAdminAuthInterceptor(cfg)),
	))
	if metricsObserver != nil {
		mux.Handle(cfg.Metrics.Path, metricsObserver.Handler())
		zlog.Info().Msgf("Metrics enabled: path=%s", cfg.Metrics.Path)
	}

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := bridgeMgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start bridge")
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Give the server a moment to start listening before running hooks
	time.Sleep(100 * time.Millisecond)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case <-bridgeMgr.Done():
		zlog.Info().Msg("Bridge stopped, shutting down...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	// Close the bridge first so event streams end and focus is abandoned
	bridgeMgr.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
