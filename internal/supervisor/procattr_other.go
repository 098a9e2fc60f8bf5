//go:build !unix

package supervisor

import (
	"os"
	"os/exec"
)

func setProcAttr(*exec.Cmd) {}

// Windows has no graceful signal for console processes started this way.
func signalTerminate(p *os.Process) error {
	return p.Kill()
}

func forceKill(p *os.Process) error {
	return p.Kill()
}
