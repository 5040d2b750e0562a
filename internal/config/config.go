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

// Package config loads the launcher configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	launchererrors "github.com/tombee/launcher/pkg/errors"
	"github.com/tombee/launcher/internal/version"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Discovery modes for locating the game installation.
const (
	DiscoveryAuto     = "auto"
	DiscoveryRegistry = "registry"
	DiscoveryConfig   = "config"
)

// Config represents the complete launcher configuration.
type Config struct {
	Game      GameConfig      `yaml:"game"`
	IPC       IPCConfig       `yaml:"ipc"`
	Relay     RelayConfig     `yaml:"relay"`
	Presence  PresenceConfig  `yaml:"presence"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Log       LogConfig       `yaml:"log"`
}

// GameConfig describes the supervised game and how to find and start it.
type GameConfig struct {
	// Executable is the process name used to find the running game.
	Executable string `yaml:"executable"`

	// LaunchURI is handed to the platform opener to start the game.
	// Ignored when LaunchCommand is set.
	LaunchURI string `yaml:"launch_uri,omitempty"`

	// LaunchCommand starts the game directly instead of through a URI.
	LaunchCommand string   `yaml:"launch_command,omitempty"`
	LaunchArgs    []string `yaml:"launch_args,omitempty"`

	// LaunchEnv holds KEY=VALUE pairs added to the environment of the
	// launched process, for example Proton or Wine settings.
	LaunchEnv []string `yaml:"launch_env,omitempty"`

	// SupportedVersion is the game version this launcher is built for.
	SupportedVersion string `yaml:"supported_version"`

	// WaitTimeout bounds how long to wait for the game to appear.
	// Zero waits until shutdown is requested.
	WaitTimeout time.Duration `yaml:"wait_timeout,omitempty"`

	// Discovery selects where installation details come from:
	// auto (registry on Windows, config elsewhere), registry, or config.
	Discovery string `yaml:"discovery"`

	// RootPath, Version and UserPath are used by config discovery.
	// UserPath is the optional user directory override.
	RootPath string `yaml:"root_path,omitempty"`
	Version  string `yaml:"version,omitempty"`
	UserPath string `yaml:"user_path,omitempty"`
}

// IPCConfig configures the two local channels shared with the game.
type IPCConfig struct {
	// Dir holds the channel sockets.
	Dir string `yaml:"dir"`

	// Inbound names the channel the game writes to.
	Inbound string `yaml:"inbound"`

	// Outbound names the channel the launcher writes to.
	Outbound string `yaml:"outbound"`

	// ReceiveTimeout bounds each receive so shutdown is noticed promptly.
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`

	// SendTimeout bounds each send; timed-out messages are dropped.
	SendTimeout time.Duration `yaml:"send_timeout"`
}

// RelayConfig configures the connection to the remote multiplayer endpoint.
type RelayConfig struct {
	// URL is the websocket endpoint. Empty disables the network relay.
	URL string `yaml:"url,omitempty"`

	MessagesPerSecond float64       `yaml:"messages_per_second"`
	Burst             int           `yaml:"burst"`
	DialTimeout       time.Duration `yaml:"dial_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`

	// Token authenticates the relay connection. Prefer the keychain or
	// LAUNCHER_RELAY_TOKEN over storing it here.
	Token             string `yaml:"token,omitempty"`
	TokenFromKeychain bool   `yaml:"token_from_keychain"`
}

// PresenceConfig configures rich-presence reporting.
type PresenceConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	InitialStatus string        `yaml:"initial_status"`
}

// LifecycleConfig configures supervision timing and bookkeeping files.
type LifecycleConfig struct {
	// PollInterval is the cadence of game discovery and liveness checks.
	PollInterval time.Duration `yaml:"poll_interval"`

	// AckPollInterval is the cadence of the signal path's acknowledgement wait.
	AckPollInterval time.Duration `yaml:"ack_poll_interval"`

	// PIDFile is the launcher's single-instance lock. Empty disables it.
	PIDFile string `yaml:"pid_file,omitempty"`

	// EventLog receives JSON lifecycle events. Empty disables it.
	EventLog string `yaml:"event_log,omitempty"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr such as "127.0.0.1:9464". Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// Trace exporters.
const (
	TracingNone     = "none"
	TracingConsole  = "console"
	TracingOTLPHTTP = "otlp-http"
	TracingOTLPGRPC = "otlp-grpc"
)

// TracingConfig configures OpenTelemetry spans for session phases.
type TracingConfig struct {
	// Exporter is one of none, console, otlp-http or otlp-grpc.
	Exporter string `yaml:"exporter"`

	// Endpoint is the collector host:port for the OTLP exporters.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure,omitempty"`

	// File receives console spans. Empty writes to stderr.
	File string `yaml:"file,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// DefaultExecutable returns the game's process name for the current platform.
func DefaultExecutable() string {
	if runtime.GOOS == "windows" {
		return "BeamNG.drive.x64.exe"
	}
	return "BeamNG.drive.x64"
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Game: GameConfig{
			Executable:       DefaultExecutable(),
			LaunchURI:        "steam://rungameid/284160",
			SupportedVersion: "0.32.5",
			Discovery:        DiscoveryAuto,
		},
		IPC: IPCConfig{
			Dir:            defaultIPCDir(),
			Inbound:        "from_game",
			Outbound:       "to_game",
			ReceiveTimeout: 1 * time.Second,
			SendTimeout:    2 * time.Second,
		},
		Relay: RelayConfig{
			MessagesPerSecond: 200,
			Burst:             50,
			DialTimeout:       10 * time.Second,
			WriteTimeout:      5 * time.Second,
			TokenFromKeychain: true,
		},
		Presence: PresenceConfig{
			Enabled:       true,
			Interval:      15 * time.Second,
			InitialStatus: "Just launched",
		},
		Lifecycle: LifecycleConfig{
			PollInterval:    2 * time.Second,
			AckPollInterval: 1 * time.Second,
			PIDFile:         filepath.Join(dataDir, "launcher.pid"),
			EventLog:        filepath.Join(dataDir, "lifecycle.log"),
		},
		Tracing: TracingConfig{
			Exporter: TracingNone,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from an optional YAML file and the environment.
// Environment variables take precedence over file-based configuration.
// A missing file at the default location is not an error; a missing file
// that was named explicitly is.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &launchererrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	} else if path, err := ConfigPath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, &launchererrors.ConfigError{
					Key:    "config_file",
					Reason: fmt.Sprintf("failed to load from %s", path),
					Cause:  err,
				}
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &launchererrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// applyDefaults fills zero values so minimal configs work.
func (c *Config) applyDefaults() {
	d := Default()

	if c.Game.Executable == "" {
		c.Game.Executable = d.Game.Executable
	}
	if c.Game.LaunchURI == "" && c.Game.LaunchCommand == "" {
		c.Game.LaunchURI = d.Game.LaunchURI
	}
	if c.Game.SupportedVersion == "" {
		c.Game.SupportedVersion = d.Game.SupportedVersion
	}
	if c.Game.Discovery == "" {
		c.Game.Discovery = d.Game.Discovery
	}

	if c.IPC.Dir == "" {
		c.IPC.Dir = d.IPC.Dir
	}
	if c.IPC.Inbound == "" {
		c.IPC.Inbound = d.IPC.Inbound
	}
	if c.IPC.Outbound == "" {
		c.IPC.Outbound = d.IPC.Outbound
	}
	if c.IPC.ReceiveTimeout == 0 {
		c.IPC.ReceiveTimeout = d.IPC.ReceiveTimeout
	}
	if c.IPC.SendTimeout == 0 {
		c.IPC.SendTimeout = d.IPC.SendTimeout
	}

	if c.Relay.MessagesPerSecond == 0 {
		c.Relay.MessagesPerSecond = d.Relay.MessagesPerSecond
	}
	if c.Relay.Burst == 0 {
		c.Relay.Burst = d.Relay.Burst
	}
	if c.Relay.DialTimeout == 0 {
		c.Relay.DialTimeout = d.Relay.DialTimeout
	}
	if c.Relay.WriteTimeout == 0 {
		c.Relay.WriteTimeout = d.Relay.WriteTimeout
	}

	if c.Presence.Interval == 0 {
		c.Presence.Interval = d.Presence.Interval
	}
	if c.Presence.InitialStatus == "" {
		c.Presence.InitialStatus = d.Presence.InitialStatus
	}

	if c.Lifecycle.PollInterval == 0 {
		c.Lifecycle.PollInterval = d.Lifecycle.PollInterval
	}
	if c.Lifecycle.AckPollInterval == 0 {
		c.Lifecycle.AckPollInterval = d.Lifecycle.AckPollInterval
	}

	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = d.Tracing.Exporter
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	// Game configuration
	if val := os.Getenv("LAUNCHER_GAME_EXECUTABLE"); val != "" {
		c.Game.Executable = val
	}
	if val := os.Getenv("LAUNCHER_LAUNCH_URI"); val != "" {
		c.Game.LaunchURI = val
	}
	if val := os.Getenv("LAUNCHER_LAUNCH_COMMAND"); val != "" {
		c.Game.LaunchCommand = val
	}
	if val := os.Getenv("LAUNCHER_SUPPORTED_VERSION"); val != "" {
		c.Game.SupportedVersion = val
	}
	if val := os.Getenv("LAUNCHER_WAIT_TIMEOUT"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			c.Game.WaitTimeout = duration
		}
	}
	if val := os.Getenv("LAUNCHER_DISCOVERY"); val != "" {
		c.Game.Discovery = strings.ToLower(val)
	}
	if val := os.Getenv("LAUNCHER_GAME_ROOT"); val != "" {
		c.Game.RootPath = val
	}
	if val := os.Getenv("LAUNCHER_GAME_VERSION"); val != "" {
		c.Game.Version = val
	}
	if val := os.Getenv("LAUNCHER_USER_PATH"); val != "" {
		c.Game.UserPath = val
	}

	// IPC configuration
	if val := os.Getenv("LAUNCHER_IPC_DIR"); val != "" {
		c.IPC.Dir = val
	}

	// Relay configuration
	if val := os.Getenv("LAUNCHER_RELAY_URL"); val != "" {
		c.Relay.URL = val
	}
	if val := os.Getenv("LAUNCHER_RELAY_RATE"); val != "" {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			c.Relay.MessagesPerSecond = rate
		}
	}

	// Presence configuration
	if val := os.Getenv("LAUNCHER_PRESENCE_ENABLED"); val != "" {
		c.Presence.Enabled = val == "1" || strings.ToLower(val) == "true"
	}

	// Lifecycle configuration
	if val := os.Getenv("LAUNCHER_POLL_INTERVAL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			c.Lifecycle.PollInterval = duration
		}
	}
	if val := os.Getenv("LAUNCHER_PID_FILE"); val != "" {
		c.Lifecycle.PIDFile = val
	}
	if val := os.Getenv("LAUNCHER_EVENT_LOG"); val != "" {
		c.Lifecycle.EventLog = val
	}

	// Metrics configuration
	if val := os.Getenv("LAUNCHER_METRICS_ADDR"); val != "" {
		c.Metrics.ListenAddr = val
	}

	// Tracing configuration
	if val := os.Getenv("LAUNCHER_TRACING_EXPORTER"); val != "" {
		c.Tracing.Exporter = strings.ToLower(val)
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		c.Tracing.Endpoint = val
	}

	// Log configuration
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	// Validate game configuration
	if strings.TrimSpace(c.Game.Executable) == "" {
		errs = append(errs, "game.executable must not be empty")
	}
	if c.Game.LaunchURI == "" && c.Game.LaunchCommand == "" {
		errs = append(errs, "one of game.launch_uri or game.launch_command must be set")
	}
	if _, err := version.Parse(c.Game.SupportedVersion); err != nil {
		errs = append(errs, fmt.Sprintf("game.supported_version is invalid: %v", err))
	}
	for _, kv := range c.Game.LaunchEnv {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			errs = append(errs, fmt.Sprintf("game.launch_env entries must be KEY=VALUE, got %q", kv))
		}
	}
	if c.Game.WaitTimeout < 0 {
		errs = append(errs, fmt.Sprintf("game.wait_timeout must not be negative, got %v", c.Game.WaitTimeout))
	}
	validDiscovery := map[string]bool{DiscoveryAuto: true, DiscoveryRegistry: true, DiscoveryConfig: true}
	if !validDiscovery[c.Game.Discovery] {
		errs = append(errs, fmt.Sprintf("game.discovery must be one of [auto, registry, config], got %q", c.Game.Discovery))
	}

	// Validate IPC configuration
	if c.IPC.Dir == "" {
		errs = append(errs, "ipc.dir must not be empty")
	}
	if c.IPC.Inbound == "" || c.IPC.Outbound == "" {
		errs = append(errs, "ipc.inbound and ipc.outbound must not be empty")
	} else if c.IPC.Inbound == c.IPC.Outbound {
		errs = append(errs, fmt.Sprintf("ipc.inbound and ipc.outbound must differ, both are %q", c.IPC.Inbound))
	}
	if c.IPC.ReceiveTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ipc.receive_timeout must be positive, got %v", c.IPC.ReceiveTimeout))
	}
	if c.IPC.SendTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ipc.send_timeout must be positive, got %v", c.IPC.SendTimeout))
	}

	// Validate relay configuration
	if c.Relay.URL != "" {
		u, err := url.Parse(c.Relay.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, fmt.Sprintf("relay.url must be a ws:// or wss:// URL, got %q", c.Relay.URL))
		}
	}
	if c.Relay.MessagesPerSecond <= 0 {
		errs = append(errs, fmt.Sprintf("relay.messages_per_second must be positive, got %v", c.Relay.MessagesPerSecond))
	}
	if c.Relay.Burst < 1 {
		errs = append(errs, fmt.Sprintf("relay.burst must be at least 1, got %d", c.Relay.Burst))
	}
	if c.Relay.DialTimeout <= 0 || c.Relay.WriteTimeout <= 0 {
		errs = append(errs, "relay.dial_timeout and relay.write_timeout must be positive")
	}

	// Validate presence configuration
	if c.Presence.Enabled && c.Presence.Interval <= 0 {
		errs = append(errs, fmt.Sprintf("presence.interval must be positive, got %v", c.Presence.Interval))
	}

	// Validate lifecycle configuration
	if c.Lifecycle.PollInterval <= 0 {
		errs = append(errs, fmt.Sprintf("lifecycle.poll_interval must be positive, got %v", c.Lifecycle.PollInterval))
	}
	if c.Lifecycle.AckPollInterval <= 0 {
		errs = append(errs, fmt.Sprintf("lifecycle.ack_poll_interval must be positive, got %v", c.Lifecycle.AckPollInterval))
	}

	// Validate tracing configuration
	switch c.Tracing.Exporter {
	case TracingNone, TracingConsole:
	case TracingOTLPHTTP, TracingOTLPGRPC:
		if c.Tracing.Endpoint == "" {
			errs = append(errs, fmt.Sprintf("tracing.endpoint is required for the %s exporter", c.Tracing.Exporter))
		}
	default:
		errs = append(errs, fmt.Sprintf("tracing.exporter must be one of [none, console, otlp-http, otlp-grpc], got %q", c.Tracing.Exporter))
	}

	// Validate log configuration
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, warning, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}

	return nil
}

// SupportedVersion returns the parsed supported game version.
// Validate guarantees it parses.
func (c *Config) SupportedVersion() version.Triplet {
	t, _ := version.Parse(c.Game.SupportedVersion)
	return t
}

// EffectiveDiscovery resolves the auto discovery mode for the current platform.
func (c *Config) EffectiveDiscovery() string {
	if c.Game.Discovery != DiscoveryAuto {
		return c.Game.Discovery
	}
	if runtime.GOOS == "windows" {
		return DiscoveryRegistry
	}
	return DiscoveryConfig
}

// Redacted returns a copy safe for logging.
func (c *Config) Redacted() Config {
	out := *c
	if out.Relay.Token != "" {
		out.Relay.Token = "[REDACTED]"
	}
	return out
}
