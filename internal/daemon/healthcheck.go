package daemon

import (
	"context"
	"log/slog"
	"time"

	"tilewm/internal/layout"
)

// HealthCheckInterval is the default period between invariant assertions.
const HealthCheckInterval = 10 * time.Second

// EngineInspector is the subset of layout.Engine the health-check ticker
// reads. It never mutates state: the reconciliation algorithm in
// layout.List.Update is the only corrector (spec.md section 8).
type EngineInspector interface {
	Records() []layout.Record
}

// HealthCheck periodically asserts the Layout Engine's list invariants and
// logs a warning if one is violated. It is a debugging aid, grounded on the
// teacher's internal/daemon/reconciler.go periodic-ticker shape, repurposed
// here since state drift correction already lives in the reconciliation
// algorithm rather than in a separate corrective pass.
type HealthCheck struct {
	interval time.Duration
	engine   EngineInspector
	logger   *slog.Logger
}

// NewHealthCheck constructs a HealthCheck. A non-positive interval falls
// back to HealthCheckInterval.
func NewHealthCheck(interval time.Duration, engine EngineInspector, logger *slog.Logger) *HealthCheck {
	if interval <= 0 {
		interval = HealthCheckInterval
	}
	return &HealthCheck{interval: interval, engine: engine, logger: logger}
}

func (h *HealthCheck) String() string { return "healthcheck" }

// Serve runs the health-check loop until ctx is cancelled.
func (h *HealthCheck) Serve(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Info("healthcheck started", "interval", h.interval)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("healthcheck stopped")
			return ctx.Err()
		case <-ticker.C:
			h.check()
		}
	}
}

func (h *HealthCheck) check() {
	defer func() {
		if err := recover(); err != nil {
			h.logger.Error("healthcheck panic recovered", "error", err)
		}
	}()

	records := h.engine.Records()

	seen := make(map[uint32]bool, len(records))
	for _, r := range records {
		id := uint32(r.WindowID)
		if seen[id] {
			h.logger.Warn("invariant violated: duplicate window id in managed list", "window_id", r.WindowID)
		}
		seen[id] = true
	}
}
