// Package session runs one launcher session: check the runtime, make sure
// dependencies exist, start the server, wait for it, open the browser and
// forward its output until the user stops it.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/axislauncher/internal/browser"
	"git.home.luguber.info/inful/axislauncher/internal/config"
	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
	"git.home.luguber.info/inful/axislauncher/internal/liveness"
	"git.home.luguber.info/inful/axislauncher/internal/logfields"
	"git.home.luguber.info/inful/axislauncher/internal/metrics"
	"git.home.luguber.info/inful/axislauncher/internal/readiness"
)

const (
	bannerWidth  = 50
	outputBuffer = 256
	drainTimeout = time.Second
)

// Config holds the session settings derived from the launcher configuration.
type Config struct {
	Name        string
	Title       string
	URL         string
	Addr        string
	RuntimeName string
	InstallHint string

	Readiness    readiness.Options
	GracePeriod  time.Duration
	FailureGrace time.Duration
	OpenBrowser  bool

	LivenessInterval time.Duration
}

// FromConfig derives session settings from a loaded configuration.
func FromConfig(c *config.Config) Config {
	return Config{
		Name:        c.Name,
		Title:       c.Title,
		URL:         c.BaseURL(),
		Addr:        c.ProbeAddr(),
		RuntimeName: c.Runtime.Name,
		InstallHint: c.Runtime.InstallHint,
		Readiness: readiness.Options{
			Timeout:        c.Readiness.Timeout,
			ConnectTimeout: c.Readiness.ConnectTimeout,
			Interval:       c.Readiness.Interval,
			SettleDelay:    c.Readiness.SettleDelay,
		},
		GracePeriod:      c.Shutdown.GracePeriod,
		FailureGrace:     c.Shutdown.FailureGrace,
		OpenBrowser:      c.Browser.Open,
		LivenessInterval: c.Liveness.Interval,
	}
}

// Collaborators are the components a Controller drives.
type Collaborators struct {
	Runtime  RuntimeProber
	Deps     Dependencies
	Spawner  Spawner
	Poller   Poller
	Browser  browser.Opener
	Recorder metrics.Recorder

	// Restarts delivers restart requests, e.g. from a file watcher. Nil disables restarts.
	Restarts <-chan struct{}
	// Console receives user-facing progress lines and the server's output.
	Console io.Writer
	// Notify derives the context cancelled by interrupt/termination signals.
	// Defaults to signal.NotifyContext for SIGINT and SIGTERM.
	Notify func(context.Context) (context.Context, context.CancelFunc)
}

// Controller is the launcher state machine. A Controller runs once.
type Controller struct {
	cfg Config
	co  Collaborators
	log *slog.Logger

	mu    sync.Mutex
	state State

	mon *liveness.Monitor // nil unless liveness probing is enabled
}

// New creates a Controller in state INIT.
func New(cfg Config, co Collaborators) *Controller {
	if co.Recorder == nil {
		co.Recorder = metrics.NoopRecorder{}
	}
	if co.Console == nil {
		co.Console = os.Stdout
	}
	if co.Notify == nil {
		co.Notify = func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		}
	}
	if co.Browser == nil {
		co.Browser = browser.NewSystem()
	}
	if co.Poller == nil {
		co.Poller = readiness.New(nil)
	}
	return &Controller{
		cfg:   cfg,
		co:    co,
		log:   slog.Default().With(logfields.SessionID(uuid.NewString())),
		state: StateInit,
	}
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) transition(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	if !CanTransition(from, to) {
		c.log.Warn("Unexpected state transition", logfields.From(string(from)), logfields.To(string(to)))
		return
	}
	c.log.Debug("State transition", logfields.From(string(from)), logfields.To(string(to)))
}

func (c *Controller) fail(err error) error {
	c.transition(StateFailed)
	return err
}

func (c *Controller) say(format string, args ...any) {
	_, _ = fmt.Fprintf(c.co.Console, format+"\n", args...)
}

// Run executes the session. It returns nil after a signal-triggered shutdown
// and a classified error for every failure.
func (c *Controller) Run(ctx context.Context) error {
	c.say("%s", strings.Repeat("=", bannerWidth))
	c.say("  %s", c.cfg.Title)
	c.say("%s", strings.Repeat("=", bannerWidth))
	c.say("")

	c.transition(StateCheckingRuntime)
	if !c.co.Runtime.IsRuntimeAvailable(ctx) {
		return c.fail(ferrors.RuntimeNotFound(c.cfg.RuntimeName).WithHint(c.cfg.InstallHint).Build())
	}
	c.log.Debug("Runtime detected", slog.String("version", c.co.Runtime.Version()))
	c.say("✓ %s is installed", c.cfg.RuntimeName)

	c.transition(StateCheckingDeps)
	if c.co.Deps.Present() {
		c.say("✓ Dependencies are installed")
	} else {
		c.say("Node modules not found.")
		for _, pkg := range c.co.Deps.Missing() {
			c.log.Debug("Missing package", logfields.Package(pkg))
		}
		c.transition(StateInstalling)
		c.say("Installing dependencies...")
		if err := c.co.Deps.Install(ctx); err != nil {
			return c.fail(err)
		}
		c.say("✓ Dependencies installed successfully")
	}

	c.transition(StateStarting)
	// Signals are watched from here on so the child is always cleaned up.
	sigCtx, stop := c.co.Notify(ctx)
	defer stop()

	c.say("Starting %s server on %s...", c.cfg.Name, c.cfg.URL)
	srv, err := c.spawn(sigCtx)
	if err != nil {
		if sigCtx.Err() != nil {
			c.transition(StateShuttingDown)
			c.transition(StateStopped)
			return nil
		}
		return c.fail(err)
	}

	if err := c.awaitReady(sigCtx, srv); err != nil || sigCtx.Err() != nil {
		if sigCtx.Err() != nil {
			return c.shutdown(srv)
		}
		return err
	}

	c.say("✓ Server is running at %s", c.cfg.URL)
	if c.cfg.OpenBrowser {
		c.say("Opening browser at %s...", c.cfg.URL)
		if err := c.co.Browser.Open(c.cfg.URL); err != nil {
			c.log.Warn("Could not open browser", logfields.URL(c.cfg.URL), logfields.Error(err))
		}
	}
	c.say("")
	c.say("Press Ctrl+C to stop the server")
	c.say("%s", strings.Repeat("-", bannerWidth))
	c.say("")

	if c.cfg.LivenessInterval > 0 {
		mon, err := liveness.New(liveness.Config{
			Addr:     c.cfg.Addr,
			Interval: c.cfg.LivenessInterval,
			Timeout:  c.cfg.Readiness.ConnectTimeout,
		}, c.co.Poller, c.co.Recorder)
		if err == nil {
			err = mon.Start(sigCtx)
		}
		if err != nil {
			c.log.Warn("Liveness monitor disabled", logfields.Error(err))
		} else {
			c.mon = mon
			defer func() { _ = mon.Stop() }()
		}
	}

	return c.stream(sigCtx, srv)
}

// server pairs a process with the channel its output lines arrive on.
type server struct {
	proc    Process
	lines   <-chan string
	stop    chan struct{} // closed to release the line reader
	once    sync.Once
	started time.Time
}

func (s *server) release() {
	s.once.Do(func() { close(s.stop) })
}

func (c *Controller) spawn(ctx context.Context) (*server, error) {
	proc, err := c.co.Spawner.Spawn(ctx)
	if err != nil {
		return nil, err
	}
	c.co.Recorder.IncServerStart()
	c.log.Debug("Server started", logfields.PID(proc.PID()), logfields.Addr(c.cfg.Addr))

	lines := make(chan string, outputBuffer)
	stop := make(chan struct{})
	go readLines(proc.Output(), lines, stop)
	return &server{proc: proc, lines: lines, stop: stop, started: time.Now()}, nil
}

// readLines forwards output lines, newline included, until EOF, a read error
// or stop is closed.
func readLines(r io.Reader, lines chan<- string, stop <-chan struct{}) {
	defer close(lines)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			select {
			case lines <- line:
			case <-stop:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// awaitReady moves through WAITING_READY. It returns nil once the server is
// ready or when ctx was cancelled; the caller checks ctx.
func (c *Controller) awaitReady(ctx context.Context, srv *server) error {
	c.transition(StateWaitingReady)
	c.say("Waiting for server to start...")

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-srv.proc.Done():
			cancel()
		case <-waitCtx.Done():
		}
	}()

	start := time.Now()
	ready := c.co.Poller.WaitReady(waitCtx, c.cfg.Addr, c.cfg.Readiness)
	elapsed := time.Since(start)

	switch {
	case ready:
		c.co.Recorder.ObserveReadiness(metrics.ReadinessReady, elapsed)
		c.log.Debug("Server is ready", logfields.URL(c.cfg.URL), logfields.DurationMS(float64(elapsed.Milliseconds())))
		c.transition(StateRunning)
		return nil
	case ctx.Err() != nil:
		c.co.Recorder.ObserveReadiness(metrics.ReadinessCanceled, elapsed)
		return nil
	}

	c.co.Recorder.ObserveReadiness(metrics.ReadinessTimeout, elapsed)
	exited := isDone(srv.proc)
	_ = srv.proc.Terminate(c.cfg.FailureGrace)
	c.flush(srv)
	if exited {
		c.co.Recorder.IncUnexpectedExit()
		return c.fail(ferrors.ChildExitedUnexpectedly().
			WithContext("pid", srv.proc.PID()).
			Build())
	}
	return c.fail(ferrors.ReadinessTimeout(c.cfg.Addr).
		WithContext("timeout", c.cfg.Readiness.Timeout.String()).
		Build())
}

// stream echoes server output while RUNNING until a signal, an exit or a failed restart.
func (c *Controller) stream(ctx context.Context, srv *server) error {
	for {
		select {
		case <-ctx.Done():
			return c.shutdown(srv)

		case line, ok := <-srv.lines:
			if !ok {
				return c.unexpectedExit(srv)
			}
			c.echo(line)

		case <-srv.proc.Done():
			c.flush(srv)
			return c.unexpectedExit(srv)

		case <-c.co.Restarts:
			next, err := c.restart(ctx, srv)
			switch {
			case err != nil:
				return err
			case next == nil:
				return nil
			case ctx.Err() != nil:
				return c.shutdown(next)
			}
			srv = next
		}
	}
}

func (c *Controller) echo(line string) {
	_, _ = io.WriteString(c.co.Console, line)
	c.co.Recorder.IncOutputLines(1)
}

// flush echoes whatever output is still buffered, giving up after drainTimeout.
func (c *Controller) flush(srv *server) {
	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	for {
		select {
		case line, ok := <-srv.lines:
			if !ok {
				return
			}
			c.echo(line)
		case <-timer.C:
			// Something else still holds the pipe open, or nobody is reading.
			srv.release()
			_ = srv.proc.Close()
			return
		}
	}
}

func (c *Controller) unexpectedExit(srv *server) error {
	c.transition(StateShuttingDown)
	_ = srv.proc.Terminate(c.cfg.GracePeriod)
	c.co.Recorder.IncUnexpectedExit()
	c.co.Recorder.IncShutdown(metrics.ShutdownExited)
	c.co.Recorder.SetServerUp(false)
	c.log.Warn("Server process exited", logfields.PID(srv.proc.PID()), logfields.Elapsed(srv.started))
	c.say("")
	c.transition(StateStopped)
	return ferrors.ChildExitedUnexpectedly().WithContext("pid", srv.proc.PID()).Build()
}

func (c *Controller) shutdown(srv *server) error {
	c.transition(StateShuttingDown)
	c.say("\n\nShutting down %s server...", c.cfg.Name)
	start := time.Now()
	if err := srv.proc.Terminate(c.cfg.GracePeriod); err != nil {
		c.log.Warn("Stopping server failed", logfields.PID(srv.proc.PID()), logfields.Error(err))
	}
	c.flush(srv)
	c.co.Recorder.IncShutdown(metrics.ShutdownOutcome(srv.proc.State()))
	c.co.Recorder.SetServerUp(false)
	c.log.Debug("Server stopped", logfields.State(string(srv.proc.State())), logfields.Elapsed(start))
	c.say("Server stopped.")
	c.transition(StateStopped)
	return nil
}

// restart replaces the running server after a change. The browser is not opened again.
func (c *Controller) restart(ctx context.Context, old *server) (*server, error) {
	c.say("")
	c.say("Restarting %s server...", c.cfg.Name)
	c.co.Recorder.IncServerRestart("watch")
	if c.mon != nil {
		c.mon.Pause()
	}
	if err := old.proc.Terminate(c.cfg.GracePeriod); err != nil {
		c.log.Warn("Stopping server failed", logfields.PID(old.proc.PID()), logfields.Error(err))
	}
	c.flush(old)

	c.transition(StateStarting)
	srv, err := c.spawn(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.transition(StateShuttingDown)
			c.say("Server stopped.")
			c.transition(StateStopped)
			return nil, nil
		}
		return nil, c.fail(err)
	}
	if err := c.awaitReady(ctx, srv); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return srv, nil
	}
	if c.mon != nil {
		c.mon.Resume()
	}
	c.say("✓ Server is running at %s", c.cfg.URL)
	return srv, nil
}

func isDone(p Process) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}
