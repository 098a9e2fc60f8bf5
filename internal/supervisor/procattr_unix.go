//go:build unix

package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcAttr puts the child in its own process group so a terminal Ctrl+C
// reaches only the launcher.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalTerminate(p *os.Process) error {
	return signalGroup(p, syscall.SIGTERM)
}

func forceKill(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}

// signalGroup signals the whole process group, falling back to the process
// itself when the group is already gone.
func signalGroup(p *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-p.Pid, sig)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ESRCH) {
		return p.Signal(sig)
	}
	return err
}
