package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "axislauncher"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	starts         prom.Counter
	restarts       *prom.CounterVec
	readiness      *prom.CounterVec
	readinessWait  prom.Histogram
	outputLines    prom.Counter
	unexpectedExit prom.Counter
	shutdowns      *prom.CounterVec
	serverUp       prom.Gauge
}

// NewPrometheusRecorder constructs the launcher metrics and registers them with reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		starts: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "server_starts_total",
			Help:      "Server processes spawned",
		}),
		restarts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "server_restarts_total",
			Help:      "Server restarts by reason",
		}, []string{"reason"}),
		readiness: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "readiness_results_total",
			Help:      "Readiness waits by result",
		}, []string{"result"}),
		readinessWait: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "readiness_wait_seconds",
			Help:      "Time from spawn until the server accepted connections or the wait gave up",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		outputLines: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "output_lines_total",
			Help:      "Server output lines forwarded to the console",
		}),
		unexpectedExit: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "unexpected_exits_total",
			Help:      "Server processes that exited while supervised",
		}),
		shutdowns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "shutdowns_total",
			Help:      "Server stops by outcome",
		}, []string{"outcome"}),
		serverUp: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "server_up",
			Help:      "1 while the server port accepts connections",
		}),
	}
	reg.MustRegister(pr.starts, pr.restarts, pr.readiness, pr.readinessWait, pr.outputLines, pr.unexpectedExit, pr.shutdowns, pr.serverUp)
	return pr
}

func (p *PrometheusRecorder) IncServerStart() {
	if p == nil {
		return
	}
	p.starts.Inc()
}

func (p *PrometheusRecorder) IncServerRestart(reason string) {
	if p == nil {
		return
	}
	p.restarts.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) ObserveReadiness(result ReadinessResult, d time.Duration) {
	if p == nil {
		return
	}
	p.readiness.WithLabelValues(string(result)).Inc()
	p.readinessWait.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncOutputLines(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.outputLines.Add(float64(n))
}

func (p *PrometheusRecorder) IncUnexpectedExit() {
	if p == nil {
		return
	}
	p.unexpectedExit.Inc()
}

func (p *PrometheusRecorder) IncShutdown(outcome ShutdownOutcome) {
	if p == nil {
		return
	}
	p.shutdowns.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetServerUp(up bool) {
	if p == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	p.serverUp.Set(v)
}
