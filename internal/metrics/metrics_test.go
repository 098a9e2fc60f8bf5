package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncServerStart()
	pr.IncServerStart()
	pr.IncServerRestart("watch")
	pr.ObserveReadiness(ReadinessReady, 800*time.Millisecond)
	pr.ObserveReadiness(ReadinessTimeout, 30*time.Second)
	pr.IncOutputLines(3)
	pr.IncOutputLines(0)
	pr.IncUnexpectedExit()
	pr.IncShutdown(ShutdownTerminated)
	pr.SetServerUp(true)

	require.InDelta(t, 2, testutil.ToFloat64(pr.starts), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.restarts.WithLabelValues("watch")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.readiness.WithLabelValues("ready")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.readiness.WithLabelValues("timeout")), 0)
	require.InDelta(t, 3, testutil.ToFloat64(pr.outputLines), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.unexpectedExit), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.shutdowns.WithLabelValues("terminated")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.serverUp), 0)

	pr.SetServerUp(false)
	require.InDelta(t, 0, testutil.ToFloat64(pr.serverUp), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestPrometheusRecorder_NilReceiver(t *testing.T) {
	var pr *PrometheusRecorder
	require.NotPanics(t, func() {
		pr.IncServerStart()
		pr.ObserveReadiness(ReadinessCanceled, time.Second)
		pr.SetServerUp(true)
	})
}

func TestListen_ServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncServerStart()

	srv, err := Listen(context.Background(), "127.0.0.1:0", reg)
	require.NoError(t, err)
	defer func() { _ = srv.Stop(context.Background()) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "axislauncher_server_starts_total 1")
}

func TestListen_AddressInUse(t *testing.T) {
	first, err := Listen(context.Background(), "127.0.0.1:0", prom.NewRegistry())
	require.NoError(t, err)
	defer func() { _ = first.Stop(context.Background()) }()

	_, err = Listen(context.Background(), first.Addr(), prom.NewRegistry())
	require.Error(t, err)
}
