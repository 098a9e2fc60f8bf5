package liveness

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
	"git.home.luguber.info/inful/axislauncher/internal/metrics"
)

type scriptedProber struct {
	up    atomic.Bool
	calls atomic.Int32
}

func (p *scriptedProber) Probe(context.Context, string, time.Duration) bool {
	p.calls.Add(1)
	return p.up.Load()
}

type upRecorder struct {
	metrics.NoopRecorder
	mu  sync.Mutex
	ups []bool
}

func (r *upRecorder) SetServerUp(up bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ups = append(r.ups, up)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Interval: 0}, &scriptedProber{}, nil)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	_, err = New(Config{Interval: time.Second}, nil, nil)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestCheck_LogsTransitionsOnly(t *testing.T) {
	logs := captureLogs(t)
	p := &scriptedProber{}
	p.up.Store(true)
	rec := &upRecorder{}
	m, err := New(Config{Addr: "127.0.0.1:3000", Interval: time.Hour}, p, rec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })

	ctx := context.Background()
	require.True(t, m.Check(ctx))
	require.True(t, m.Check(ctx))
	require.Empty(t, logs.String())

	p.up.Store(false)
	require.False(t, m.Check(ctx))
	require.False(t, m.Check(ctx))
	require.False(t, m.Healthy())

	p.up.Store(true)
	require.True(t, m.Check(ctx))

	out := logs.String()
	require.Equal(t, 1, strings.Count(out, "Server stopped accepting connections"))
	require.Equal(t, 1, strings.Count(out, "Server is reachable again"))
	require.Equal(t, []bool{false, true}, rec.ups)
}

func TestCheck_CanceledContextSkipsProbe(t *testing.T) {
	p := &scriptedProber{}
	m, err := New(Config{Interval: time.Hour}, p, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.True(t, m.Check(ctx))
	require.Zero(t, p.calls.Load())
}

func TestMonitor_SchedulesProbes(t *testing.T) {
	p := &scriptedProber{}
	m, err := New(Config{Addr: "127.0.0.1:3000", Interval: 20 * time.Millisecond}, p, nil)
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	require.True(t, m.Healthy())

	require.Eventually(t, func() bool { return !m.Healthy() }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, m.Stop())

	calls := p.calls.Load()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, calls, p.calls.Load())
}

func TestCheck_PausedDuringRestart(t *testing.T) {
	logs := captureLogs(t)
	p := &scriptedProber{}
	rec := &upRecorder{}
	m, err := New(Config{Addr: "127.0.0.1:3000", Interval: time.Hour}, p, rec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })

	ctx := context.Background()
	m.Pause()
	require.True(t, m.Check(ctx))
	require.Zero(t, p.calls.Load())

	m.Resume()
	p.up.Store(true)
	require.True(t, m.Check(ctx))
	require.Empty(t, logs.String())
	require.Empty(t, rec.ups)
}

func TestResume_MarksServerUpAfterOutage(t *testing.T) {
	p := &scriptedProber{}
	rec := &upRecorder{}
	m, err := New(Config{Interval: time.Hour}, p, rec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })

	require.False(t, m.Check(context.Background()))
	m.Pause()
	m.Resume()
	require.True(t, m.Healthy())
	require.Equal(t, []bool{false, true}, rec.ups)
}
