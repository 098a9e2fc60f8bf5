package session

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
	"git.home.luguber.info/inful/axislauncher/internal/readiness"
	"git.home.luguber.info/inful/axislauncher/internal/supervisor"
	"git.home.luguber.info/inful/axislauncher/internal/testutil/fakeproc"
)

func TestHelperProcess(t *testing.T) { fakeproc.Run() }

// console is a goroutine-safe buffer.
type console struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *console) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *console) waitFor(t *testing.T, s string) {
	t.Helper()
	require.Eventually(t, func() bool { return strings.Contains(c.String(), s) }, 10*time.Second, 10*time.Millisecond, "console never showed %q:\n%s", s, c.String())
}

type fakeRuntime struct{ available bool }

func (f fakeRuntime) IsRuntimeAvailable(context.Context) bool { return f.available }
func (fakeRuntime) Version() string                          { return "v20.11.1" }

type fakeDeps struct {
	present    bool
	installErr error
	installs   atomic.Int32
}

func (f *fakeDeps) Present() bool     { return f.present }
func (f *fakeDeps) Missing() []string { return []string{"express"} }
func (f *fakeDeps) Install(context.Context) error {
	f.installs.Add(1)
	return f.installErr
}

type countingSpawner struct {
	inner Spawner
	err   error
	calls atomic.Int32
}

func (s *countingSpawner) Spawn(ctx context.Context) (Process, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Spawn(ctx)
}

type fakeBrowser struct {
	mu   sync.Mutex
	urls []string
}

func (b *fakeBrowser) Open(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.urls = append(b.urls, url)
	return nil
}

func (b *fakeBrowser) opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.urls...)
}

// manualSignal stands in for signal.NotifyContext.
type manualSignal struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	ready  chan struct{}
}

func newManualSignal() *manualSignal { return &manualSignal{ready: make(chan struct{})} }

func (m *manualSignal) notify(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	close(m.ready)
	return ctx, cancel
}

func (m *manualSignal) fire(t *testing.T) {
	t.Helper()
	select {
	case <-m.ready:
	case <-time.After(10 * time.Second):
		t.Fatal("signal handler was never installed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel()
}

type harness struct {
	cfg     Config
	out     *console
	deps    *fakeDeps
	spawner *countingSpawner
	browser *fakeBrowser
	sig     *manualSignal
	runtime fakeRuntime
	restart chan struct{}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// newHarness wires a controller around a fake server run from the test binary.
func newHarness(t *testing.T, mode string, args ...string) *harness {
	t.Helper()
	port := freePort(t)
	if mode == fakeproc.ModeServe {
		args = append([]string{strconv.Itoa(port)}, args...)
	}
	h := &harness{
		cfg: Config{
			Name:        "Axis",
			Title:       "Axis - AI Study Planner",
			URL:         "http://localhost:" + strconv.Itoa(port),
			Addr:        net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
			RuntimeName: "Node.js",
			InstallHint: "Please install Node.js from https://nodejs.org/",
			Readiness: readiness.Options{
				Timeout:        5 * time.Second,
				ConnectTimeout: 200 * time.Millisecond,
				Interval:       20 * time.Millisecond,
				SettleDelay:    10 * time.Millisecond,
			},
			GracePeriod:  2 * time.Second,
			FailureGrace: 200 * time.Millisecond,
			OpenBrowser:  true,
		},
		out:     &console{},
		deps:    &fakeDeps{present: true},
		browser: &fakeBrowser{},
		sig:     newManualSignal(),
		runtime: fakeRuntime{available: true},
		restart: make(chan struct{}, 1),
	}
	h.spawner = &countingSpawner{inner: SupervisorSpawner(supervisor.New(t.TempDir(), fakeproc.Argv(t, mode, args...), nil))}
	return h
}

func (h *harness) controller() *Controller {
	return New(h.cfg, Collaborators{
		Runtime:  h.runtime,
		Deps:     h.deps,
		Spawner:  h.spawner,
		Poller:   readiness.New(nil),
		Browser:  h.browser,
		Restarts: h.restart,
		Console:  h.out,
		Notify:   h.sig.notify,
	})
}

func runAsync(c *Controller) <-chan error {
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	return done
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(20 * time.Second):
		t.Fatal("controller did not return")
		return nil
	}
}

func TestRun_RuntimeMissing(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe)
	h.runtime = fakeRuntime{available: false}
	c := h.controller()

	err := c.Run(context.Background())

	require.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
	require.Equal(t, StateFailed, c.State())
	require.Zero(t, h.spawner.calls.Load())
	require.Zero(t, h.deps.installs.Load())
	require.True(t, strings.HasPrefix(h.out.String(), strings.Repeat("=", 50)+"\n  Axis - AI Study Planner\n"))

	msg := ferrors.NewCLIErrorAdapter(false, nil).FormatError(err)
	require.Contains(t, msg, "Node.js is not installed")
	require.Contains(t, msg, "Please install Node.js from https://nodejs.org/")
}

func TestRun_InstallFailureDoesNotSpawn(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe)
	h.deps = &fakeDeps{installErr: ferrors.InstallFailed(1).Build()}
	c := h.controller()

	err := c.Run(context.Background())

	require.True(t, ferrors.HasCategory(err, ferrors.CategoryInstall))
	require.Equal(t, StateFailed, c.State())
	require.Equal(t, int32(1), h.deps.installs.Load())
	require.Zero(t, h.spawner.calls.Load())
	require.Contains(t, h.out.String(), "Node modules not found.\nInstalling dependencies...\n")
	require.NotContains(t, h.out.String(), "installed successfully")
}

func TestRun_InstallSuccessProceedsToSpawn(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe)
	h.deps = &fakeDeps{}
	h.spawner.err = ferrors.SpawnFailed("node server.js").Build()
	c := h.controller()

	err := c.Run(context.Background())

	require.True(t, ferrors.HasCategory(err, ferrors.CategorySpawn))
	require.Equal(t, int32(1), h.deps.installs.Load())
	require.Equal(t, int32(1), h.spawner.calls.Load())
	require.Contains(t, h.out.String(), "✓ Dependencies installed successfully")
	require.Equal(t, StateFailed, c.State())
}

func TestRun_DependenciesPresentSkipsInstall(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe)
	h.spawner.err = errors.New("stop here")
	c := h.controller()

	_ = c.Run(context.Background())

	require.Zero(t, h.deps.installs.Load())
	require.Contains(t, h.out.String(), "✓ Node.js is installed\n✓ Dependencies are installed\n")
}

func TestRun_SpawnFailureOfMissingExecutable(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe)
	h.spawner = &countingSpawner{inner: SupervisorSpawner(supervisor.New(t.TempDir(), []string{"axislauncher-no-such-node", "server.js"}, nil))}
	c := h.controller()

	err := c.Run(context.Background())

	require.True(t, ferrors.HasCategory(err, ferrors.CategorySpawn))
	require.Equal(t, 1, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestRun_ReadyThenInterrupt(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe)
	c := h.controller()
	done := runAsync(c)

	h.out.waitFor(t, "Server listening on")
	require.Equal(t, StateRunning, c.State())
	h.sig.fire(t)

	require.NoError(t, waitResult(t, done))
	require.Equal(t, StateStopped, c.State())
	require.Equal(t, []string{h.cfg.URL}, h.browser.opened())

	out := h.out.String()
	require.Contains(t, out, "Starting Axis server on "+h.cfg.URL+"...\nWaiting for server to start...\n✓ Server is running at "+h.cfg.URL+"\nOpening browser at "+h.cfg.URL+"...\n")
	require.Contains(t, out, "\nPress Ctrl+C to stop the server\n"+strings.Repeat("-", 50)+"\n\n")
	require.Contains(t, out, "\n\nShutting down Axis server...\n")
	require.True(t, strings.HasSuffix(out, "Server stopped.\n"))

	sep := strings.Index(out, strings.Repeat("-", 50))
	echoed := strings.Index(out, "Server listening on")
	require.Less(t, sep, echoed, "server output is echoed only after the banner separator")
}

func TestRun_NoBrowserWhenDisabled(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe)
	h.cfg.OpenBrowser = false
	c := h.controller()
	done := runAsync(c)

	h.out.waitFor(t, "Press Ctrl+C")
	h.sig.fire(t)

	require.NoError(t, waitResult(t, done))
	require.Empty(t, h.browser.opened())
	require.NotContains(t, h.out.String(), "Opening browser")
}

func TestRun_InterruptKillsStubbornServer(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe, "ignore-term")
	h.cfg.GracePeriod = 300 * time.Millisecond
	c := h.controller()
	done := runAsync(c)

	h.out.waitFor(t, "Server listening on")
	start := time.Now()
	h.sig.fire(t)

	require.NoError(t, waitResult(t, done))
	require.GreaterOrEqual(t, time.Since(start), h.cfg.GracePeriod)
	require.Less(t, time.Since(start), h.cfg.GracePeriod+5*time.Second)
	require.Contains(t, h.out.String(), "Server stopped.")
}

func TestRun_ReadinessTimeoutTerminatesChild(t *testing.T) {
	h := newHarness(t, fakeproc.ModeIgnoreTerm)
	h.cfg.Readiness.Timeout = 300 * time.Millisecond
	c := h.controller()

	start := time.Now()
	err := c.Run(context.Background())

	require.True(t, ferrors.HasCategory(err, ferrors.CategoryReadiness))
	require.Equal(t, StateFailed, c.State())
	require.Empty(t, h.browser.opened())
	require.Less(t, time.Since(start), 5*time.Second)
	require.Equal(t, "✗ Server failed to start within timeout", ferrors.NewCLIErrorAdapter(false, nil).FormatError(err))
}

func TestRun_InterruptWhileWaitingForReadiness(t *testing.T) {
	h := newHarness(t, fakeproc.ModeIgnoreTerm)
	h.cfg.Readiness.Timeout = time.Minute
	c := h.controller()
	done := runAsync(c)

	h.out.waitFor(t, "Waiting for server to start...")
	h.sig.fire(t)

	require.NoError(t, waitResult(t, done))
	require.Equal(t, StateStopped, c.State())
	require.Contains(t, h.out.String(), "Shutting down Axis server...\n")
	require.Contains(t, h.out.String(), "Server stopped.\n")
	require.Empty(t, h.browser.opened())
}

func TestRun_ChildExitsBeforeReady(t *testing.T) {
	h := newHarness(t, fakeproc.ModeExit, "1")
	h.cfg.Readiness.Timeout = time.Minute
	c := h.controller()

	start := time.Now()
	err := c.Run(context.Background())

	require.True(t, ferrors.HasCategory(err, ferrors.CategoryChild))
	require.Less(t, time.Since(start), 10*time.Second)
	require.Equal(t, StateFailed, c.State())
	require.Contains(t, h.out.String(), "v20.11.1", "output of the failed server is shown")
}

func TestRun_ChildExitsWhileRunning(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe, "exit-after=1s")
	c := h.controller()

	err := c.Run(context.Background())

	require.True(t, ferrors.HasCategory(err, ferrors.CategoryChild))
	require.Equal(t, 1, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	require.Equal(t, StateStopped, c.State())
	require.Contains(t, h.out.String(), "fatal: crashed\n")
	require.Equal(t, "✗ Server process ended unexpectedly", ferrors.NewCLIErrorAdapter(false, nil).FormatError(err))
}

func TestRun_RestartOnRequest(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe)
	c := h.controller()
	done := runAsync(c)

	h.out.waitFor(t, "Server listening on")
	h.restart <- struct{}{}
	h.out.waitFor(t, "Restarting Axis server...")
	require.Eventually(t, func() bool {
		return strings.Count(h.out.String(), "✓ Server is running at") == 2
	}, 10*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return strings.Count(h.out.String(), "Server listening on") == 2
	}, 10*time.Second, 10*time.Millisecond)

	h.sig.fire(t)
	require.NoError(t, waitResult(t, done))
	require.Equal(t, int32(2), h.spawner.calls.Load())
	require.Len(t, h.browser.opened(), 1, "browser opens once per session")
}

func TestRun_LivenessMonitorRuns(t *testing.T) {
	h := newHarness(t, fakeproc.ModeServe)
	h.cfg.LivenessInterval = 20 * time.Millisecond
	c := h.controller()
	done := runAsync(c)

	h.out.waitFor(t, "Server listening on")
	time.Sleep(100 * time.Millisecond)
	h.sig.fire(t)

	require.NoError(t, waitResult(t, done))
}

func TestFromConfigCarriesSettings(t *testing.T) {
	cfg := FromConfig(configForTest())
	require.Equal(t, "http://localhost:3000", cfg.URL)
	require.Equal(t, "127.0.0.1:3000", cfg.Addr)
	require.Equal(t, "Axis", cfg.Name)
	require.Equal(t, 30*time.Second, cfg.Readiness.Timeout)
	require.Equal(t, 5*time.Second, cfg.GracePeriod)
	require.True(t, cfg.OpenBrowser)
}

// endlessOutput never reaches EOF, like a pipe some grandchild keeps open.
type endlessOutput struct{}

func (endlessOutput) Read(p []byte) (int, error) {
	return copy(p, "still talking\n"), nil
}

func TestReadLines_StopReleasesBlockedSender(t *testing.T) {
	lines := make(chan string)
	stop := make(chan struct{})
	go readLines(endlessOutput{}, lines, stop)

	require.Equal(t, "still talking\n", <-lines)
	close(stop)

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-lines:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond, "reader must exit once stop is closed")
}
