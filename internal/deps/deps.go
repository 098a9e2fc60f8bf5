// Package deps checks for and installs the server's package dependencies.
package deps

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
	"git.home.luguber.info/inful/axislauncher/internal/logfields"
)

// Manager knows where dependencies live and how to install them.
type Manager struct {
	dir      string
	depDir   string
	required []string
	install  []string
	stdout   io.Writer
	stderr   io.Writer
}

// NewManager creates a Manager for launcher directory dir. depDir is relative
// to dir unless absolute; install is the package-manager argv, e.g. ["npm", "install"].
func NewManager(dir, depDir string, required, install []string) *Manager {
	if !filepath.IsAbs(depDir) {
		depDir = filepath.Join(dir, depDir)
	}
	return &Manager{
		dir:      dir,
		depDir:   depDir,
		required: append([]string(nil), required...),
		install:  append([]string(nil), install...),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
}

// WithOutput redirects the install command's console output.
func (m *Manager) WithOutput(stdout, stderr io.Writer) *Manager {
	m.stdout = stdout
	m.stderr = stderr
	return m
}

// Present reports whether the dependency root exists and holds every required package.
func (m *Manager) Present() bool {
	if !isDir(m.depDir) {
		return false
	}
	return len(m.Missing()) == 0
}

// Missing lists the required packages that are absent, in configuration order.
// When the dependency root itself is absent every required package is missing.
func (m *Manager) Missing() []string {
	var missing []string
	for _, pkg := range m.required {
		if !isDir(filepath.Join(m.depDir, filepath.FromSlash(pkg))) {
			missing = append(missing, pkg)
		}
	}
	return missing
}

// Install runs the package manager synchronously in the launcher directory.
// A non-zero exit yields an install error carrying the exit status.
func (m *Manager) Install(ctx context.Context) error {
	if len(m.install) == 0 {
		return ferrors.InstallFailed(-1).WithCause(errors.New("no install command configured")).Build()
	}
	command := strings.Join(m.install, " ")

	// #nosec G204 -- argv comes from launcher configuration
	cmd := exec.CommandContext(ctx, m.install[0], m.install[1:]...)
	cmd.Dir = m.dir
	cmd.Stdout = m.stdout
	cmd.Stderr = m.stderr

	start := time.Now()
	slog.Debug("Installing dependencies", logfields.Command(command), logfields.Dir(m.dir))
	err := cmd.Run()
	if err == nil {
		slog.Debug("Dependencies installed", logfields.Elapsed(start))
		return nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	slog.Debug("Dependency install failed", logfields.Command(command), logfields.ExitCode(exitCode), logfields.Error(err))
	return ferrors.InstallFailed(exitCode).
		WithCause(err).
		WithContext("command", command).
		Build()
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}
