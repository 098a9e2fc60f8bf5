package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"git.home.luguber.info/inful/axislauncher/internal/config"
	"git.home.luguber.info/inful/axislauncher/internal/deps"
	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
	"git.home.luguber.info/inful/axislauncher/internal/prober"
	"git.home.luguber.info/inful/axislauncher/internal/readiness"
	"git.home.luguber.info/inful/axislauncher/internal/session"
)

// DoctorCmd reports whether the launcher could start the server, without starting it.
type DoctorCmd struct{}

func (d *DoctorCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, config.Overrides{})
	if err != nil {
		return err
	}
	return runDoctor(context.Background(), os.Stdout, cfg,
		prober.New(cfg.Dir, cfg.Runtime.VersionQuery),
		deps.NewManager(cfg.Dir, cfg.Dependencies.Dir, cfg.Dependencies.Required, cfg.Dependencies.Install),
		readiness.New(nil))
}

// runDoctor prints one line per check. A port already in use is reported but
// is not a failure; a missing runtime or missing packages are.
func runDoctor(ctx context.Context, out io.Writer, cfg *config.Config, rt session.RuntimeProber, dm session.Dependencies, poller session.Poller) error {
	p := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format+"\n", args...) }

	p("Launcher directory: %s", cfg.Dir)
	p("Server command:     %s", config.Describe(cfg.Server.Command))
	p("")

	var problems []string
	if rt.IsRuntimeAvailable(ctx) {
		p("✓ %s is installed (%s)", cfg.Runtime.Name, rt.Version())
	} else {
		p("✗ %s is not installed", cfg.Runtime.Name)
		problems = append(problems, "runtime")
	}

	if dm.Present() {
		p("✓ Dependencies are installed")
	} else {
		missing := dm.Missing()
		if len(missing) == 0 {
			p("✗ Dependency directory %s not found", cfg.Dependencies.Dir)
		} else {
			p("✗ Missing packages: %s", strings.Join(missing, ", "))
		}
		problems = append(problems, "dependencies")
	}

	if poller.Probe(ctx, cfg.ProbeAddr(), cfg.Readiness.ConnectTimeout) {
		p("! Port %d is already in use; the server may fail to start", cfg.Port)
	} else {
		p("✓ Port %d is free", cfg.Port)
	}

	if len(problems) == 0 {
		return nil
	}
	return ferrors.ValidationError("environment check failed").
		WithContext("problems", strings.Join(problems, ",")).
		WithHint(cfg.Runtime.InstallHint + "; missing packages are installed on the next start").
		Build()
}
