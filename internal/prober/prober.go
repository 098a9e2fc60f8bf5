// Package prober checks whether the runtime the server needs is callable.
package prober

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"git.home.luguber.info/inful/axislauncher/internal/logfields"
)

// Prober runs a version-query command to detect the runtime.
type Prober struct {
	dir  string
	argv []string

	mu      sync.Mutex
	version string
}

// New creates a Prober for the given version-query command, e.g. ["node", "--version"].
// The query runs in dir, the directory the server is started from.
func New(dir string, argv []string) *Prober {
	return &Prober{dir: dir, argv: append([]string(nil), argv...)}
}

// IsRuntimeAvailable reports whether the version query can be run and exits zero.
// A missing executable is reported as false, never as an error. Output is
// captured, never inherited by the console.
func (p *Prober) IsRuntimeAvailable(ctx context.Context) bool {
	if len(p.argv) == 0 {
		return false
	}

	// #nosec G204 -- argv comes from launcher configuration
	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.Dir = p.dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		slog.Debug("Runtime probe failed",
			logfields.Command(strings.Join(p.argv, " ")),
			logfields.Error(err))
		return false
	}

	v := strings.TrimSpace(out.String())
	p.mu.Lock()
	p.version = v
	p.mu.Unlock()
	slog.Debug("Runtime probe succeeded", logfields.Command(strings.Join(p.argv, " ")), slog.String("version", v))
	return true
}

// Version returns the output of the last successful probe.
func (p *Prober) Version() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}
