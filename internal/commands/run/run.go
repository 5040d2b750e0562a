// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package run implements the launcher's main session command.
package run

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tombee/launcher/internal/commands/shared"
	"github.com/tombee/launcher/internal/config"
	"github.com/tombee/launcher/internal/launcher"
	"github.com/tombee/launcher/internal/lifecycle"
	"github.com/tombee/launcher/internal/log"
	"github.com/tombee/launcher/internal/metrics"
	"github.com/tombee/launcher/internal/secrets"
	"github.com/tombee/launcher/internal/shutdown"
	"github.com/tombee/launcher/internal/tracing"
)

// flagValues holds the run command's own flags.
type flagValues struct {
	relayURL    string
	metricsAddr string
	waitTimeout time.Duration
	noPresence  bool
}

// NewCommand creates the run command.
func NewCommand() *cobra.Command {
	var flags flagValues

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch the game and relay multiplayer traffic",
		Long: `Launch BeamNG.drive, wait for the game process and relay traffic between
the game and the multiplayer server.

The session ends when the game exits or the launcher receives an interrupt.
On the way out the launcher closes the relay, resets the multiplayer mod
folder and terminates the game if it is still running.

Examples:
  launcher run
  launcher run --relay-url wss://relay.example.com/session
  launcher run --metrics-addr 127.0.0.1:9464 --wait-timeout 5m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.relayURL, "relay-url", "", "Relay server websocket URL (overrides config)")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&flags.waitTimeout, "wait-timeout", 0, "Give up if the game has not started within this duration")
	cmd.Flags().BoolVar(&flags.noPresence, "no-presence", false, "Disable rich presence updates")

	return cmd
}

func runSession(ctx context.Context, cmd *cobra.Command, flags flagValues) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		return shared.NewConfigError("failed to load configuration", err)
	}
	applyFlags(cfg, cmd, flags)

	logger := log.New(logConfig(cfg, shared.GetVerbose(), shared.GetQuiet(), cmd.ErrOrStderr()))
	slog.SetDefault(logger)
	defer lifecycle.LogPanic(logger)

	sessionID := uuid.NewString()
	logger = log.WithSession(logger, sessionID)

	v, _, _ := shared.GetVersion()
	events := lifecycle.NewLifecycleLogger(cfg.Lifecycle.EventLog).WithSession(sessionID)
	if err := events.LogStart(v, os.Args[1:], shared.GetConfigPath()); err != nil {
		logger.Debug("failed to write lifecycle event", log.Error(err))
	}
	logger.Info("launcher starting",
		"version", v,
		"supported_game_version", cfg.Game.SupportedVersion,
		log.PIDKey, os.Getpid())

	tp, err := tracing.Setup(ctx, cfg.Tracing, v)
	if err != nil {
		logger.Warn("tracing disabled", "exporter", cfg.Tracing.Exporter, log.Error(err))
		tp = &tracing.Provider{}
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			logger.Debug("failed to flush spans", log.Error(err))
		}
	}()

	token, err := secrets.RelayToken(ctx, cfg.Relay.Token, cfg.Relay.TokenFromKeychain)
	if err != nil {
		logger.Warn("could not read the relay token, connecting without one", log.Error(err))
	} else {
		cfg.Relay.Token = token
	}
	logger.Debug("configuration resolved", "config", cfg.Redacted())

	coord := shutdown.Default()
	coord.Configure(
		shutdown.WithPollInterval(cfg.Lifecycle.AckPollInterval),
		shutdown.WithLogger(log.WithComponent(logger, "shutdown")),
	)

	o, err := launcher.New(launcher.Options{
		Config:      cfg,
		Coordinator: coord,
		Logger:      logger,
		Events:      events,
		Tracer:      tp.Tracer(),
	})
	if err != nil {
		return err
	}

	handler, err := coord.HandleSignals(o.Busy)
	if err != nil {
		o.Close()
		return err
	}
	defer handler.Stop()

	if cfg.Metrics.ListenAddr != "" {
		srv, err := metrics.Listen(cfg.Metrics.ListenAddr, log.WithComponent(logger, "metrics"))
		if err != nil {
			logger.Warn("metrics endpoint disabled", "addr", cfg.Metrics.ListenAddr, log.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}
	}

	runErr := o.Run(ctx)
	closeErr := o.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}

// applyFlags lets explicitly set flags override the loaded configuration.
func applyFlags(cfg *config.Config, cmd *cobra.Command, flags flagValues) {
	if cmd.Flags().Changed("relay-url") {
		cfg.Relay.URL = flags.relayURL
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.ListenAddr = flags.metricsAddr
	}
	if cmd.Flags().Changed("wait-timeout") {
		cfg.Game.WaitTimeout = flags.waitTimeout
	}
	if flags.noPresence {
		cfg.Presence.Enabled = false
	}
}

// logConfig builds the logger configuration. --verbose and --quiet win
// over the config file; LAUNCHER_DEBUG wins over both.
func logConfig(cfg *config.Config, verbose, quiet bool, out io.Writer) *log.Config {
	lc := &log.Config{
		Level:     cfg.Log.Level,
		Format:    log.Format(cfg.Log.Format),
		AddSource: cfg.Log.AddSource,
		Output:    out,
	}

	switch {
	case verbose:
		lc.Level = "debug"
	case quiet:
		lc.Level = "warn"
	}

	if env := os.Getenv("LAUNCHER_DEBUG"); env == "true" || env == "1" {
		debug := log.FromEnv()
		lc.Level = debug.Level
		lc.AddSource = debug.AddSource
	}
	return lc
}
