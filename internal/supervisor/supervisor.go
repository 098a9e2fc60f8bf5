// Package supervisor starts the server process and stops it in two phases.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
	"git.home.luguber.info/inful/axislauncher/internal/logfields"
)

// Supervisor spawns server processes from a fixed command line.
type Supervisor struct {
	dir     string
	command []string
	env     []string
}

// New creates a Supervisor. Children run with dir as working directory and
// env (KEY=VALUE entries) appended to the launcher's environment.
func New(dir string, command, env []string) *Supervisor {
	return &Supervisor{
		dir:     dir,
		command: append([]string(nil), command...),
		env:     append([]string(nil), env...),
	}
}

// Command renders the command line for messages.
func (s *Supervisor) Command() string {
	return strings.Join(s.command, " ")
}

// Spawn launches one server process. Its stdout and stderr share a single
// pipe exposed by Child.Output. A process that cannot be started at all
// yields a spawn error.
func (s *Supervisor) Spawn(ctx context.Context) (*Child, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.command) == 0 {
		return nil, ferrors.SpawnFailed("").WithCause(errors.New("empty server command")).Build()
	}

	// The child is stopped deliberately through Terminate, so it is not bound to ctx.
	// #nosec G204 -- argv comes from launcher configuration
	cmd := exec.Command(s.command[0], s.command[1:]...)
	cmd.Dir = s.dir
	if len(s.env) > 0 {
		cmd.Env = append(os.Environ(), s.env...)
	}
	setProcAttr(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, ferrors.SpawnFailed(s.Command()).WithCause(err).Build()
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, ferrors.SpawnFailed(s.Command()).
			WithCause(err).
			WithContext("dir", s.dir).
			Build()
	}
	// Only the child holds the write end now; EOF on pr means it is gone.
	_ = pw.Close()

	c := newChild(cmd, pr)
	slog.Debug("Server process started", logfields.Command(s.Command()), logfields.PID(c.PID()), logfields.Dir(s.dir))
	return c, nil
}
