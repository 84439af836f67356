package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forcerelay/forcerelay/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is where the scrape endpoint listens when no
	// --metrics-addr is given.
	DefaultMetricsAddr = ":9090"

	// DefaultShutdownTimeout bounds the graceful drain at process shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	metricsReadHeaderTimeout = 10 * time.Second
	metricsWriteTimeout      = 10 * time.Second
	metricsIdleTimeout       = 60 * time.Second
)

// MetricsServer serves the Prometheus scrape endpoint on its own listener so
// operational metrics never share a port with client traffic.
type MetricsServer struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewMetricsServer builds the scrape server. The instrumentation provider
// must be enabled: its prometheus exporter feeds the default registry that
// /metrics exposes, so without it the endpoint would serve nothing.
func NewMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*MetricsServer, error) {
	if provider == nil || !provider.Enabled() {
		return nil, fmt.Errorf("metrics server needs an enabled instrumentation provider")
	}
	if addr == "" {
		addr = DefaultMetricsAddr
	}
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: metricsReadHeaderTimeout,
			WriteTimeout:      metricsWriteTimeout,
			IdleTimeout:       metricsIdleTimeout,
		},
		logger: logger,
	}, nil
}

// Start serves scrapes until Shutdown or a listener error. It blocks; run it
// on its own goroutine.
func (s *MetricsServer) Start() error {
	s.logger.Info("metrics server listening", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown drains the scrape server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.logger.Info("metrics server stopping")
	return s.srv.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *MetricsServer) Addr() string {
	return s.srv.Addr
}
