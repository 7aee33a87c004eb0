package telemetry

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"reduction.dev/linedup/util/httpu"
)

// NewMetricsHandler serves prometheus collectors at /metrics and the core
// pipeline counters at /metrics/core.
func NewMetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/metrics/core", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, false)
	})
	return mux
}

// MetricsServer serves the metrics handler until its context is canceled.
type MetricsServer struct {
	listener net.Listener
	server   *httpu.Server
	logger   *slog.Logger
}

// ListenMetrics binds addr. Binding before the run starts surfaces a bad
// address as a config problem instead of a background failure.
func ListenMetrics(addr string) (*MetricsServer, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &MetricsServer{
		listener: l,
		server:   httpu.NewServer(NewMetricsHandler()),
		logger:   slog.With("component", "metrics"),
	}, nil
}

func (s *MetricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Start serves in the background until ctx is done.
func (s *MetricsServer) Start(ctx context.Context) {
	s.logger.Info("serving metrics", "addr", s.Addr())
	go func() {
		if err := s.server.Serve(ctx, s.listener); err != nil {
			s.logger.Error("metrics server stopped", "err", err)
		}
	}()
}
