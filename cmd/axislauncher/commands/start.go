package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/axislauncher/internal/browser"
	"git.home.luguber.info/inful/axislauncher/internal/config"
	"git.home.luguber.info/inful/axislauncher/internal/deps"
	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
	"git.home.luguber.info/inful/axislauncher/internal/logfields"
	"git.home.luguber.info/inful/axislauncher/internal/metrics"
	"git.home.luguber.info/inful/axislauncher/internal/prober"
	"git.home.luguber.info/inful/axislauncher/internal/readiness"
	"git.home.luguber.info/inful/axislauncher/internal/session"
	"git.home.luguber.info/inful/axislauncher/internal/supervisor"
	"git.home.luguber.info/inful/axislauncher/internal/watch"
)

// StartCmd implements the default command: run one launcher session.
type StartCmd struct {
	Port          int    `name:"port" help:"Server port (default 3000)"`
	NoBrowser     bool   `name:"no-browser" help:"Do not open the browser once the server is ready"`
	Watch         bool   `name:"watch" help:"Restart the server when watched files change"`
	MetricsListen string `name:"metrics-listen" placeholder:"ADDR" help:"Serve Prometheus metrics on ADDR (e.g. 127.0.0.1:9464)"`
}

func (s *StartCmd) overrides() config.Overrides {
	return config.Overrides{
		Port:          s.Port,
		NoBrowser:     s.NoBrowser,
		Watch:         s.Watch,
		MetricsListen: s.MetricsListen,
	}
}

func (s *StartCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, s.overrides())
	if err != nil {
		return err
	}
	ctx := context.Background()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Listen != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		srv, err := metrics.Listen(ctx, cfg.Metrics.Listen, reg)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "cannot serve metrics").
				WithContext("listen", cfg.Metrics.Listen).
				Build()
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				slog.Warn("Metrics server shutdown", logfields.Error(err))
			}
		}()
	}

	var restarts <-chan struct{}
	if cfg.Watch.Enabled {
		w, err := watch.New(watch.Config{
			Root:     cfg.Dir,
			Paths:    cfg.Watch.Paths,
			Ignore:   cfg.Watch.Ignore,
			Debounce: cfg.Watch.Debounce,
		})
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "cannot watch files").Build()
		}
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		defer func() { _ = w.Close() }()
		go func() { _ = w.Run(watchCtx) }()
		restarts = w.Changes()
	}

	controller := session.New(session.FromConfig(cfg), session.Collaborators{
		Runtime:  prober.New(cfg.Dir, cfg.Runtime.VersionQuery),
		Deps:     deps.NewManager(cfg.Dir, cfg.Dependencies.Dir, cfg.Dependencies.Required, cfg.Dependencies.Install),
		Spawner:  session.SupervisorSpawner(supervisor.New(cfg.Dir, cfg.Server.Command, cfg.Server.Env)),
		Poller:   readiness.New(nil),
		Browser:  browser.NewSystem(),
		Recorder: recorder,
		Restarts: restarts,
		Console:  os.Stdout,
	})
	return controller.Run(ctx)
}
