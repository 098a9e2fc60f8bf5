package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/axislauncher/internal/logfields"
)

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Server exposes /metrics on a dedicated listener.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr and serves the registry at /metrics in the background.
// Binding happens before Listen returns so address conflicts surface at once.
func Listen(ctx context.Context, addr string, reg *prom.Registry) (*Server, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", HTTPHandler(reg))
	s := &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", logfields.Addr(ln.Addr().String()), logfields.Error(err))
		}
	}()
	slog.Info("Metrics endpoint listening", logfields.URL("http://"+ln.Addr().String()+"/metrics"))
	return s, nil
}

// Addr is the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Stop gracefully shuts the metrics server down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	return nil
}
