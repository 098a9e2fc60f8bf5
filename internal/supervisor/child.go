package supervisor

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"git.home.luguber.info/inful/axislauncher/internal/logfields"
)

// State is the lifecycle position of a Child.
type State string

const (
	StateRunning    State = "running"
	StateTerminated State = "terminated" // stopped by the graceful signal
	StateKilled     State = "killed"     // grace period elapsed, force-killed
	StateExited     State = "exited"     // exited on its own
)

// Child is one running server process.
type Child struct {
	cmd    *exec.Cmd
	output *os.File
	done   chan struct{}

	mu       sync.Mutex
	state    State
	stopping bool
	exitErr  error
}

func newChild(cmd *exec.Cmd, output *os.File) *Child {
	c := &Child{
		cmd:    cmd,
		output: output,
		done:   make(chan struct{}),
		state:  StateRunning,
	}
	go c.wait()
	return c
}

func (c *Child) wait() {
	err := c.cmd.Wait()
	c.mu.Lock()
	c.exitErr = err
	if !c.stopping {
		c.state = StateExited
	}
	c.mu.Unlock()
	close(c.done)
}

// PID is the operating-system process id.
func (c *Child) PID() int {
	return c.cmd.Process.Pid
}

// Output is the merged stdout/stderr stream. It reaches EOF once the process
// and anything holding its output have exited.
func (c *Child) Output() io.Reader {
	return c.output
}

// Close releases the read end of the output pipe, unblocking a pending read.
func (c *Child) Close() error {
	err := c.output.Close()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// Done is closed when the process has exited.
func (c *Child) Done() <-chan struct{} {
	return c.done
}

// ExitErr is the result of waiting on the process. Valid after Done is closed.
func (c *Child) ExitErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitErr
}

// ExitCode is the process exit code, or -1 while running or when killed by a signal.
func (c *Child) ExitCode() int {
	select {
	case <-c.done:
	default:
		return -1
	}
	if c.cmd.ProcessState == nil {
		return -1
	}
	return c.cmd.ProcessState.ExitCode()
}

// State reports the current lifecycle state.
func (c *Child) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Terminate asks the process to stop, waits up to grace for it to exit, then
// force-kills it. Once the process has exited, or another caller is already
// stopping it, Terminate only waits for the exit and returns nil.
func (c *Child) Terminate(grace time.Duration) error {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return nil
	default:
	}
	if c.stopping {
		c.mu.Unlock()
		<-c.done
		return nil
	}
	c.stopping = true
	c.mu.Unlock()

	pid := c.PID()
	start := time.Now()
	if grace > 0 {
		if err := signalTerminate(c.cmd.Process); err != nil && !processGone(err) {
			slog.Debug("Graceful stop signal failed", logfields.PID(pid), logfields.Error(err))
		}
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-c.done:
			c.setState(StateTerminated)
			slog.Debug("Server process terminated", logfields.PID(pid), logfields.Elapsed(start))
			return nil
		case <-timer.C:
		}
		slog.Warn("Server did not stop within grace period, killing", logfields.PID(pid), slog.Duration("grace", grace))
	}

	if err := forceKill(c.cmd.Process); err != nil && !processGone(err) {
		// Still wait: the process may be exiting on its own right now.
		slog.Debug("Force kill failed", logfields.PID(pid), logfields.Error(err))
	}
	<-c.done
	c.setState(StateKilled)
	slog.Debug("Server process killed", logfields.PID(pid), logfields.Elapsed(start))
	return nil
}

func (c *Child) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func processGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}
