// Package metrics exposes daemon counters and gauges over Prometheus'
// standard /metrics HTTP endpoint. The retrieval pack pulls in
// prometheus/client_golang without exercising it directly, so this package
// follows the library's own documented promauto/promhttp idiom rather than
// a pack-local pattern.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tilewm",
		Name:      "discovery_scans_total",
		Help:      "Total number of discovery scans performed.",
	})

	DispatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tilewm",
		Name:      "layout_dispatches_total",
		Help:      "Total number of schedule requests dispatched to the animator.",
	})

	ActiveAnimationJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tilewm",
		Name:      "animator_active_jobs",
		Help:      "Number of animation jobs currently in flight.",
	})

	ManagedWindows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tilewm",
		Name:      "layout_managed_windows",
		Help:      "Number of windows currently tracked by the managed list.",
	})

	ZombieWindows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tilewm",
		Name:      "layout_zombie_windows",
		Help:      "Number of windows currently preserved as zombies.",
	})
)

// Server serves the /metrics endpoint on a dedicated listener.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer constructs a metrics Server bound to addr.
func NewServer(addr string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		logger:     logger,
	}
}

func (s *Server) String() string { return "metrics" }

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
