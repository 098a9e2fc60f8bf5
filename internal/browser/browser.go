// Package browser opens URLs with the operating system's default handler.
package browser

import (
	"errors"
	"log/slog"
	"os/exec"
	"runtime"

	"git.home.luguber.info/inful/axislauncher/internal/logfields"
)

// Opener opens a URL for the user.
type Opener interface {
	Open(url string) error
}

// System opens URLs through the platform's URL handler. The handler process
// is started and never waited on by the caller.
type System struct {
	goos  string
	start func(argv []string) error
}

// NewSystem returns an Opener for the running platform.
func NewSystem() *System {
	return &System{goos: runtime.GOOS, start: startDetached}
}

// Open launches the handler for url. Errors only mean the handler could not
// be started; whether a tab actually appeared is not observable.
func (s *System) Open(url string) error {
	argv := Command(s.goos, url)
	if err := s.start(argv); err != nil {
		slog.Debug("Browser open failed", logfields.URL(url), logfields.Error(err))
		return err
	}
	return nil
}

// Command is the handler command line for goos.
func Command(goos, url string) []string {
	switch goos {
	case "darwin":
		return []string{"open", url}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}
	default:
		return []string{"xdg-open", url}
	}
}

func startDetached(argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty browser command")
	}
	// #nosec G204 -- fixed handler, url is the launcher's own base URL
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the handler so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}

// Func adapts a function to Opener.
type Func func(url string) error

// Open calls f(url).
func (f Func) Open(url string) error { return f(url) }
