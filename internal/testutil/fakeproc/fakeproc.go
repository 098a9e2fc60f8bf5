// Package fakeproc lets tests spawn the test binary itself as a stand-in for
// node, npm and the application server.
//
// A package using it declares
//
//	func TestHelperProcess(t *testing.T) { fakeproc.Run() }
//
// and builds child command lines with Argv.
package fakeproc

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

// EnvVar switches the test binary into helper mode.
const EnvVar = "AXISLAUNCHER_FAKEPROC"

// Modes understood by Run.
const (
	ModeExit       = "exit"        // exit <code>: print a version line, exit with code
	ModeMerged     = "merged"      // print one line on stdout and one on stderr, exit 0
	ModeLines      = "lines"       // lines <n>: print n numbered lines, exit 0
	ModeServe      = "serve"       // serve <port> [ignore-term] [exit-after=<dur>]: listen until SIGTERM/interrupt
	ModeIgnoreTerm = "ignore-term" // ignore SIGTERM, sleep until killed
	ModeMkdirs     = "mkdirs"      // mkdirs <root> <pkg>...: create package dirs, exit 0
	ModeWorkdir    = "workdir"     // print the working directory, exit 0
)

// Argv returns a command line that re-executes the test binary in the given mode.
// It sets EnvVar for the duration of the test so children inherit it.
func Argv(t testing.TB, mode string, args ...string) []string {
	t.Helper()
	t.Setenv(EnvVar, "1")
	argv := []string{os.Args[0], "-test.run=^TestHelperProcess$", "--", mode}
	return append(argv, args...)
}

// Run executes the requested mode and exits when EnvVar is set; otherwise it returns immediately.
func Run() {
	if os.Getenv(EnvVar) != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "fakeproc: missing mode")
		os.Exit(2)
	}
	os.Exit(run(args[1], args[2:]))
}

func run(mode string, args []string) int {
	switch mode {
	case ModeExit:
		code := atoi(args, 0)
		fmt.Println("v20.11.1")
		return code
	case ModeMerged:
		fmt.Fprintln(os.Stdout, "to stdout")
		fmt.Fprintln(os.Stderr, "to stderr")
		return 0
	case ModeLines:
		for i := 1; i <= atoi(args, 3); i++ {
			fmt.Printf("line %d\n", i)
		}
		return 0
	case ModeServe:
		return serve(args)
	case ModeIgnoreTerm:
		signal.Ignore(syscall.SIGTERM, os.Interrupt)
		fmt.Println("ignoring termination")
		for {
			time.Sleep(time.Hour)
		}
	case ModeMkdirs:
		if len(args) < 1 {
			return 2
		}
		for _, pkg := range args[1:] {
			if err := os.MkdirAll(filepath.Join(args[0], pkg), 0o750); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
		fmt.Println("added", len(args)-1, "packages")
		return 0
	case ModeWorkdir:
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(wd)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "fakeproc: unknown mode %q\n", mode)
		return 2
	}
}

func serve(args []string) int {
	port := atoi(args, 0)
	ignoreTerm := false
	var exitAfter <-chan time.Time
	for _, opt := range args[min(1, len(args)):] {
		switch {
		case opt == "ignore-term":
			ignoreTerm = true
		case strings.HasPrefix(opt, "exit-after="):
			d, err := time.ParseDuration(strings.TrimPrefix(opt, "exit-after="))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 2
			}
			exitAfter = time.After(d)
		}
	}

	stop := make(chan os.Signal, 1)
	if ignoreTerm {
		signal.Ignore(syscall.SIGTERM, os.Interrupt)
	} else {
		signal.Notify(stop, syscall.SIGTERM, os.Interrupt)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = ln.Close() }()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	fmt.Printf("Server listening on %s\n", ln.Addr())
	select {
	case <-stop:
		fmt.Println("shutting down")
		return 0
	case <-exitAfter:
		fmt.Fprintln(os.Stderr, "fatal: crashed")
		return 3
	}
}

func atoi(args []string, def int) int {
	if len(args) == 0 {
		return def
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return def
	}
	return n
}
