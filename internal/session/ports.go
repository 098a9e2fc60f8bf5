package session

import (
	"context"
	"io"
	"time"

	"git.home.luguber.info/inful/axislauncher/internal/readiness"
	"git.home.luguber.info/inful/axislauncher/internal/supervisor"
)

// RuntimeProber checks for the server runtime. *prober.Prober satisfies it.
type RuntimeProber interface {
	IsRuntimeAvailable(ctx context.Context) bool
	Version() string
}

// Dependencies checks and installs packages. *deps.Manager satisfies it.
type Dependencies interface {
	Present() bool
	Missing() []string
	Install(ctx context.Context) error
}

// Process is one running server.
type Process interface {
	PID() int
	Output() io.Reader
	Done() <-chan struct{}
	Terminate(grace time.Duration) error
	State() supervisor.State
	Close() error
}

// Spawner starts server processes.
type Spawner interface {
	Spawn(ctx context.Context) (Process, error)
}

// Poller waits for and probes the server port. *readiness.Poller satisfies it.
type Poller interface {
	WaitReady(ctx context.Context, addr string, opts readiness.Options) bool
	Probe(ctx context.Context, addr string, timeout time.Duration) bool
}

// SupervisorSpawner adapts a *supervisor.Supervisor to Spawner.
func SupervisorSpawner(s *supervisor.Supervisor) Spawner {
	return supervisorSpawner{s}
}

type supervisorSpawner struct {
	s *supervisor.Supervisor
}

func (a supervisorSpawner) Spawn(ctx context.Context) (Process, error) {
	c, err := a.s.Spawn(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}
