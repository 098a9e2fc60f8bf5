// Package metrics provides launcher session metrics.
//
// # Design
//
// The package uses the Null Object pattern so callers never check for nil:
// components hold a Recorder and default to NoopRecorder. When a metrics
// listen address is configured the session swaps in a PrometheusRecorder and
// Server exposes its registry over HTTP.
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	srv, err := metrics.Listen(ctx, "127.0.0.1:9464", reg)
//
// # Metrics
//
//   - axislauncher_server_starts_total
//   - axislauncher_server_restarts_total{reason}
//   - axislauncher_readiness_results_total{result}
//   - axislauncher_readiness_wait_seconds
//   - axislauncher_output_lines_total
//   - axislauncher_unexpected_exits_total
//   - axislauncher_shutdowns_total{outcome}
//   - axislauncher_server_up
package metrics
