// Package liveness periodically probes the server port while it is running
// and logs when reachability changes.
package liveness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
	"git.home.luguber.info/inful/axislauncher/internal/logfields"
	"git.home.luguber.info/inful/axislauncher/internal/metrics"
)

// Prober makes one connection attempt. *readiness.Poller satisfies it.
type Prober interface {
	Probe(ctx context.Context, addr string, timeout time.Duration) bool
}

// Config tunes a Monitor.
type Config struct {
	Addr     string
	Interval time.Duration
	Timeout  time.Duration // per-probe connect timeout
}

// Monitor runs a gocron job that probes Addr every Interval.
// It assumes the server is healthy when started and only logs transitions.
type Monitor struct {
	cfg      Config
	prober   Prober
	recorder metrics.Recorder
	sched    gocron.Scheduler

	mu      sync.Mutex
	ctx     context.Context
	healthy bool
	paused  bool
}

// New creates a Monitor. The scheduler is created but not started.
func New(cfg Config, prober Prober, recorder metrics.Recorder) (*Monitor, error) {
	if cfg.Interval <= 0 {
		return nil, ferrors.ValidationError("liveness interval must be > 0").Build()
	}
	if prober == nil {
		return nil, ferrors.ValidationError("liveness prober is required").Build()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Monitor{cfg: cfg, prober: prober, recorder: recorder, sched: s, healthy: true}, nil
}

// Start schedules the probe job and starts the scheduler. Probes run with ctx.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	_, err := m.sched.NewJob(
		gocron.DurationJob(m.cfg.Interval),
		gocron.NewTask(m.tick),
		gocron.WithName("liveness-probe"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create liveness job: %w", err)
	}
	m.recorder.SetServerUp(true)
	m.sched.Start()
	slog.Debug("Liveness monitor started", logfields.Addr(m.cfg.Addr), slog.Duration("interval", m.cfg.Interval))
	return nil
}

// Stop shuts the scheduler down, waiting for a running probe to finish.
func (m *Monitor) Stop() error {
	if err := m.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop liveness monitor: %w", err)
	}
	return nil
}

// Pause suspends probing while the server is down on purpose, e.g. during a restart.
// A probe already in flight is discarded.
func (m *Monitor) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

// Resume restarts probing once the server is known to be ready again.
func (m *Monitor) Resume() {
	m.mu.Lock()
	m.paused = false
	changed := !m.healthy
	m.healthy = true
	m.mu.Unlock()
	if changed {
		m.recorder.SetServerUp(true)
	}
}

// Healthy reports the result of the latest probe.
func (m *Monitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

func (m *Monitor) tick() {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	m.Check(ctx)
}

// Check probes once and records a transition. It returns the new health.
func (m *Monitor) Check(ctx context.Context) bool {
	m.mu.Lock()
	paused := m.paused
	m.mu.Unlock()
	if paused || ctx.Err() != nil {
		return m.Healthy()
	}
	up := m.prober.Probe(ctx, m.cfg.Addr, m.cfg.Timeout)

	m.mu.Lock()
	if m.paused {
		healthy := m.healthy
		m.mu.Unlock()
		return healthy
	}
	changed := up != m.healthy
	m.healthy = up
	m.mu.Unlock()

	if !changed {
		return up
	}
	m.recorder.SetServerUp(up)
	if up {
		slog.Info("Server is reachable again", logfields.Addr(m.cfg.Addr))
	} else {
		slog.Warn("Server stopped accepting connections", logfields.Addr(m.cfg.Addr))
	}
	return up
}
