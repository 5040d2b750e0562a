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

package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/launcher/internal/config"
	"github.com/tombee/launcher/internal/discovery"
	"github.com/tombee/launcher/internal/ipc"
	"github.com/tombee/launcher/internal/lifecycle"
	"github.com/tombee/launcher/internal/log"
	"github.com/tombee/launcher/internal/metrics"
	"github.com/tombee/launcher/internal/mods"
	"github.com/tombee/launcher/internal/presence"
	"github.com/tombee/launcher/internal/relay"
	"github.com/tombee/launcher/internal/shutdown"
	"github.com/tombee/launcher/internal/tracing"
	launchererrors "github.com/tombee/launcher/pkg/errors"
)

// Status shown once the game process is up.
const statusInMenus = "In menus"

// NetworkRelay carries game traffic to the remote server.
// relay.Client is the production implementation.
type NetworkRelay interface {
	Connect(ctx context.Context) error
	ServerSend(payload []byte, binary bool) error
	Busy() bool
	Close() error
}

var _ NetworkRelay = (*relay.Client)(nil)

// Injector attaches the multiplayer runtime to the game process.
type Injector interface {
	Inject(pid int) error
}

// NopInjector does nothing. The game loads the multiplayer mod itself.
type NopInjector struct{}

// Inject implements Injector.
func (NopInjector) Inject(int) error { return nil }

// Options wires an Orchestrator. Only Config and Coordinator are
// required; everything else defaults to the production implementation.
type Options struct {
	Config      *config.Config
	Coordinator *shutdown.Coordinator
	Logger      *slog.Logger
	Events      *lifecycle.LifecycleLogger
	Tracer      trace.Tracer

	Process   ProcessOps
	Source    discovery.Source
	Resolver  *discovery.Resolver
	Injector  Injector
	Publisher presence.Publisher

	// Inbound and Outbound replace the IPC endpoints. A nil channel is
	// opened as a socket endpoint from Config.IPC.
	Inbound  ipc.Receiver
	Outbound ipc.Transmitter

	// Network replaces the relay client built from Config.Relay. The
	// callback passed to NewNetwork delivers server messages to the game.
	NewNetwork func(onMessage relay.MessageFunc) NetworkRelay
}

// Orchestrator owns one session: discovery, launch, supervision, IPC and
// the teardown registered with the shutdown coordinator.
type Orchestrator struct {
	cfg    *config.Config
	coord  *shutdown.Coordinator
	logger *slog.Logger
	events *lifecycle.LifecycleLogger
	tracer trace.Tracer

	supervisor *Supervisor
	source     discovery.Source
	resolver   *discovery.Resolver
	injector   Injector
	presence   *presence.Reporter
	network    NetworkRelay
	sender     *ipc.Sender
	inbound    ipc.Receiver
	endpoints  []*ipc.Endpoint
	pidFile    *lifecycle.PIDFileManager
	pidHeld    atomic.Bool

	state      atomic.Int32
	gameExited atomic.Bool
	failed     atomic.Bool

	// mu guards the goroutine handles teardown joins, and the mod
	// directory it resets. Goroutines are only started while holding mu
	// and only if shutdown has not been requested.
	mu             sync.Mutex
	ipcDone        chan struct{}
	presenceCancel context.CancelFunc
	mods           *mods.Manager

	closeOnce sync.Once
	closeErr  error
}

// New builds the orchestrator, opens the IPC endpoints and registers the
// orchestrator's teardown with the coordinator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, errors.New("launcher: config is required")
	}
	if opts.Coordinator == nil {
		return nil, errors.New("launcher: shutdown coordinator is required")
	}

	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		cfg:      cfg,
		coord:    opts.Coordinator,
		logger:   logger,
		events:   opts.Events,
		source:   opts.Source,
		resolver: opts.Resolver,
		injector: opts.Injector,
		tracer:   opts.Tracer,
	}
	if o.tracer == nil {
		o.tracer = tracing.Tracer()
	}

	process := opts.Process
	if process == nil {
		process = lifecycle.NewSystem(lifecycle.NewSpawner().WithEnv(cfg.Game.LaunchEnv))
	}
	o.supervisor = NewSupervisor(process, LaunchConfig{
		Executable:    cfg.Game.Executable,
		LaunchURI:     cfg.Game.LaunchURI,
		LaunchCommand: cfg.Game.LaunchCommand,
		LaunchArgs:    cfg.Game.LaunchArgs,
		Supported:     cfg.SupportedVersion(),
	}, log.WithComponent(logger, "supervisor"), opts.Events)

	if o.source == nil {
		o.source = sourceFor(cfg)
	}
	if o.resolver == nil {
		o.resolver = discovery.NewResolver()
	}
	if o.injector == nil {
		o.injector = NopInjector{}
	}

	publisher := opts.Publisher
	if publisher == nil {
		publisher = presence.LogPublisher{Logger: log.WithComponent(logger, "presence")}
	}
	o.presence = presence.NewReporter(publisher, cfg.Presence.Interval, cfg.Presence.InitialStatus, log.WithComponent(logger, "presence"))

	if err := o.openIPC(opts.Inbound, opts.Outbound); err != nil {
		return nil, err
	}

	if opts.NewNetwork != nil {
		o.network = opts.NewNetwork(o.deliverFromServer)
	} else {
		o.network = relay.New(relay.Config{
			URL:               cfg.Relay.URL,
			Token:             cfg.Relay.Token,
			MessagesPerSecond: cfg.Relay.MessagesPerSecond,
			Burst:             cfg.Relay.Burst,
			DialTimeout:       cfg.Relay.DialTimeout,
			WriteTimeout:      cfg.Relay.WriteTimeout,
		}, o.deliverFromServer, log.WithComponent(logger, "relay"))
	}

	if cfg.Lifecycle.PIDFile != "" {
		o.pidFile = lifecycle.NewPIDFileManager(cfg.Lifecycle.PIDFile)
	}

	if err := o.coord.Register(o); err != nil {
		o.closeEndpoints()
		return nil, fmt.Errorf("register teardown: %w", err)
	}

	o.setState(StateNotStarted)
	return o, nil
}

func sourceFor(cfg *config.Config) discovery.Source {
	if cfg.EffectiveDiscovery() == config.DiscoveryRegistry {
		return discovery.RegistrySource{}
	}
	return discovery.StaticSource{
		RootPath:         cfg.Game.RootPath,
		Version:          cfg.Game.Version,
		UserPathOverride: cfg.Game.UserPath,
	}
}

func (o *Orchestrator) openIPC(inbound ipc.Receiver, outbound ipc.Transmitter) error {
	ipcLogger := log.WithComponent(o.logger, "ipc")

	if inbound == nil {
		ep, err := ipc.Listen(o.cfg.IPC.Dir, o.cfg.IPC.Inbound, ipc.Inbound,
			ipc.WithLogger(ipcLogger), ipc.WithAckTimeout(o.cfg.IPC.SendTimeout))
		if err != nil {
			return fmt.Errorf("open inbound channel: %w", err)
		}
		o.endpoints = append(o.endpoints, ep)
		inbound = ep
	}
	if outbound == nil {
		ep, err := ipc.Listen(o.cfg.IPC.Dir, o.cfg.IPC.Outbound, ipc.Outbound, ipc.WithLogger(ipcLogger))
		if err != nil {
			o.closeEndpoints()
			return fmt.Errorf("open outbound channel: %w", err)
		}
		o.endpoints = append(o.endpoints, ep)
		outbound = ep
	}

	o.inbound = inbound
	o.sender = ipc.NewSender(outbound, o.cfg.IPC.SendTimeout, ipcLogger)
	return nil
}

func (o *Orchestrator) closeEndpoints() {
	for _, ep := range o.endpoints {
		if err := ep.Close(); err != nil {
			o.logger.Debug("failed to close ipc endpoint", "channel", ep.Name(), log.Error(err))
		}
	}
	o.endpoints = nil
}

// Supervisor returns the process supervisor.
func (o *Orchestrator) Supervisor() *Supervisor {
	return o.supervisor
}

// Presence returns the presence reporter.
func (o *Orchestrator) Presence() *presence.Reporter {
	return o.presence
}

// Busy reports whether a network transfer is in flight. The signal
// handler waits for it before waiting on acknowledgement.
func (o *Orchestrator) Busy() bool {
	return o.network.Busy()
}

// Run performs a whole session and returns when the game has exited,
// shutdown was requested or a fatal condition occurred. Fatal conditions
// are returned as ShutdownErrors.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, span := o.tracer.Start(ctx, "launcher.session")
	err := o.run(ctx)
	if launchererrors.IsShutdown(err) {
		o.failed.Store(true)
	}
	endSpan(span, err)
	return err
}

func (o *Orchestrator) run(ctx context.Context) error {
	if err := o.acquirePIDFile(); err != nil {
		return err
	}

	inst, err := o.discover(ctx)
	if err != nil {
		return err
	}

	if o.coord.ShutdownRequested() {
		return nil
	}
	if !o.advance(StateNotStarted, StateLaunching) {
		return nil
	}

	_, span := o.tracer.Start(ctx, "launcher.launch", trace.WithAttributes(attribute.String("game.version", inst.Version)))
	err = o.supervisor.LaunchExternalProcess(inst.Version)
	endSpan(span, err)
	if err != nil {
		return err
	}

	if o.cfg.Presence.Enabled {
		o.startPresence()
	}

	return o.WaitForGame(ctx)
}

func (o *Orchestrator) acquirePIDFile() error {
	if o.pidFile == nil {
		return nil
	}

	stale, err := o.pidFile.CreateReplacingStale(os.Getpid())
	if err != nil {
		if errors.Is(err, lifecycle.ErrPIDFileExists) || errors.Is(err, lifecycle.ErrPIDFileLocked) {
			return o.fatal("Launcher is already running, please close it and try again!", err)
		}
		return o.fatal("Failed to create the launcher PID file", err)
	}
	o.pidHeld.Store(true)
	if stale != 0 {
		o.logger.Warn("replaced stale PID file", log.PIDKey, stale, "path", o.pidFile.Path())
		o.events.LogStalePID(stale)
	}
	return nil
}

func (o *Orchestrator) discover(ctx context.Context) (inst discovery.Install, err error) {
	_, span := o.tracer.Start(ctx, "launcher.discover", trace.WithAttributes(attribute.String("source", o.source.Describe())))
	defer func() { endSpan(span, err) }()

	inst, err = o.resolver.Resolve(o.source)
	switch {
	case errors.Is(err, discovery.ErrLocalData):
		return inst, o.fatal("Failed to get path of localAppData", err)
	case err != nil:
		return inst, o.fatal("Please launch the game at least once, failed to read "+o.source.Describe(), err)
	}

	o.logger.Info("game installation found",
		"root", inst.RootPath,
		"version", inst.Version,
		"user_path", inst.UserPath)

	if inst.MPUserPath != "" {
		o.mu.Lock()
		o.mods = mods.NewManager(inst.MPUserPath, log.WithComponent(o.logger, "mods"))
		o.mu.Unlock()
	}
	return inst, nil
}

func (o *Orchestrator) startPresence() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.coord.ShutdownRequested() || o.presenceCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.presenceCancel = cancel
	o.presence.Start(ctx)
}

// startIPCRelay starts the IPC relay goroutine unless shutdown has been
// requested. It reports whether the relay is running.
func (o *Orchestrator) startIPCRelay() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.coord.ShutdownRequested() {
		return false
	}
	if o.ipcDone != nil {
		return true
	}

	ipcLogger := log.WithComponent(o.logger, "ipc")
	r := ipc.NewRelay(o.inbound, o, o.coord.Requested(), o.cfg.IPC.ReceiveTimeout, ipcLogger)

	done := make(chan struct{})
	o.ipcDone = done
	go func() {
		defer close(done)
		defer lifecycle.LogPanic(ipcLogger)

		if err := r.Run(); err != nil {
			ipcLogger.Error("ipc relay stopped", log.Error(err))
		}
	}()
	return true
}

// WaitForGame polls for the game process until it appears, shutdown is
// requested or the configured wait timeout elapses. Once found, it starts
// the IPC relay and supervises the process until it disappears or
// shutdown is requested.
func (o *Orchestrator) WaitForGame(ctx context.Context) error {
	if !o.advance(StateLaunching, StateWaitingForProcess) && !o.advance(StateNotStarted, StateWaitingForProcess) {
		return nil
	}
	o.logger.Info("Waiting for the game, please start BeamNG manually in case of steam issues")

	_, waitSpan := o.tracer.Start(ctx, "launcher.wait_for_game")
	waitEnded := false
	endWait := func(err error) {
		if !waitEnded {
			waitEnded = true
			endSpan(waitSpan, err)
		}
	}
	defer func() { endWait(nil) }()

	interval := o.cfg.Lifecycle.PollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if o.cfg.Game.WaitTimeout > 0 {
		timer := time.NewTimer(o.cfg.Game.WaitTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	pid := o.supervisor.FindPID()
	for pid == 0 {
		select {
		case <-o.coord.Requested():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			err := o.fatal("Game process not found! aborting", nil)
			endWait(err)
			return err
		case <-ticker.C:
		}
		pid = o.supervisor.FindPID()
	}

	o.logger.Info("Game found!", log.PIDKey, pid)
	waitSpan.SetAttributes(attribute.Int("game.pid", pid))
	endWait(nil)
	if !o.adoptGame(pid) {
		return nil
	}
	metrics.SetGameRunning(true)
	o.events.LogGameFound(pid)
	found := time.Now()

	if !o.startIPCRelay() {
		return nil
	}

	o.connectNetwork(ctx)
	if o.coord.ShutdownRequested() {
		return nil
	}

	if err := o.injector.Inject(pid); err != nil {
		if o.coord.ShutdownRequested() {
			return nil
		}
		return o.fatal("Failed to attach to the game process", err)
	}

	o.presence.SetStatus(statusInMenus)
	o.advance(StateWaitingForProcess, StateRunning)

	_, runSpan := o.tracer.Start(ctx, "launcher.supervise", trace.WithAttributes(attribute.Int("game.pid", pid)))
	defer runSpan.End()

	for {
		select {
		case <-o.coord.Requested():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !o.supervisor.stillRunning(pid) {
			break
		}
	}

	o.logger.Info("Game process was lost")
	runSpan.AddEvent("game_lost")
	o.gameExited.Store(true)
	if lost := o.supervisor.takePID(); lost != 0 {
		o.events.LogGameLost(lost, time.Since(found))
	}
	metrics.SetGameRunning(false)
	return nil
}

// adoptGame publishes pid as the supervised process. The PID is stored
// before shutdown is checked, so a teardown that starts afterwards always
// sees it. If shutdown was already requested, teardown may have taken the
// empty PID before this one was stored; once it finishes, whatever it left
// is terminated here. It reports whether supervision should continue.
func (o *Orchestrator) adoptGame(pid int) bool {
	o.supervisor.setPID(pid)
	if !o.coord.ShutdownRequested() {
		return true
	}

	<-o.coord.Done()
	if killed := o.supervisor.terminateIfGame(); killed != 0 {
		o.logger.Info("terminated game found during shutdown", log.PIDKey, killed)
	}
	return false
}

// connectNetwork dials the relay server, retrying once when the failure
// is retryable. Failures leave the session running offline.
func (o *Orchestrator) connectNetwork(ctx context.Context) {
	err := o.network.Connect(ctx)
	if launchererrors.IsRetryable(err) && !o.coord.ShutdownRequested() {
		o.logger.Debug("retrying relay connection", log.Error(err))
		err = o.network.Connect(ctx)
	}

	switch {
	case err == nil:
	case errors.Is(err, relay.ErrClosed), o.coord.ShutdownRequested():
		o.logger.Debug("relay connection abandoned for shutdown", log.Error(err))
	default:
		o.logger.Warn("could not connect to the relay server, multiplayer traffic will be dropped", log.Error(err))
	}
}

// Teardown stops every background activity. The shutdown coordinator
// calls it exactly once.
func (o *Orchestrator) Teardown() {
	start := time.Now()
	o.setState(StateShuttingDown)
	source := string(o.coord.Source())
	metrics.RecordShutdown(source)

	_, span := o.tracer.Start(context.Background(), "launcher.teardown", trace.WithAttributes(attribute.String("shutdown.source", source)))
	defer span.End()

	if err := o.network.Close(); err != nil {
		o.logger.Debug("failed to close network relay", log.Error(err))
	}

	o.mu.Lock()
	presenceCancel := o.presenceCancel
	ipcDone := o.ipcDone
	modManager := o.mods
	o.mu.Unlock()

	if presenceCancel != nil {
		presenceCancel()
		o.presence.Wait()
	}

	if ipcDone != nil {
		<-ipcDone
	}

	if modManager != nil {
		if err := modManager.Reset(); err != nil {
			o.logger.Warn("failed to reset multiplayer mods", "dir", modManager.Dir(), log.Error(err))
		}
	}

	terminated := o.supervisor.terminateIfGame()
	metrics.SetGameRunning(false)
	if terminated != 0 {
		span.SetAttributes(attribute.Int("game.terminated_pid", terminated))
	}

	o.setState(StateStopped)
	o.events.LogShutdown(terminated, time.Since(start))
	o.logger.Info("shutdown complete", log.DurationKey, time.Since(start).String())
}

// Close requests shutdown if nothing else has, waits for teardown, closes
// the IPC endpoints, removes the PID file and acknowledges exit. It is
// safe to call more than once.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		source := shutdown.SourceClose
		switch {
		case o.failed.Load():
			source = shutdown.SourceFatal
		case o.gameExited.Load():
			source = shutdown.SourceGameExit
		}
		if err := o.coord.RequestShutdownFrom(source); err != nil {
			o.closeErr = err
		}
		<-o.coord.Done()

		o.closeEndpoints()

		if o.pidHeld.Load() {
			if err := o.pidFile.Remove(); err != nil && !os.IsNotExist(err) {
				o.logger.Debug("failed to remove PID file", log.Error(err))
			}
		}

		if err := o.coord.Acknowledge(); err != nil && o.closeErr == nil {
			o.closeErr = err
		}
	})
	return o.closeErr
}

func (o *Orchestrator) fatal(msg string, cause error) error {
	return fatal(o.logger, o.events, msg, cause)
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
