// Package discovery periodically enumerates tileable windows through two
// independent oracles (the compositor's on-screen list and per-application
// accessibility trees), applying the tileability filter chain described in
// spec section 4.1. It is grounded in the teacher's terminal-class detector,
// generalized from "is this WM_CLASS a terminal" to the full filter chain.
package discovery

import (
	"context"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tilewm/internal/layout"
	"tilewm/internal/platform"
)

// Discovery produces fresh snapshots of candidate tileable windows on a
// periodic timer and on external triggers (spec section 4.1). Snapshots are
// posted, in scan order, onto SnapshotCh; internal scanning state is not
// shared with the consumer (spec section 5).
type Discovery struct {
	backend    platform.Backend
	SnapshotCh chan []layout.Record
	requestCh  chan scanRequest
	logger     *slog.Logger
	period     time.Duration

	onExternalChange func()
	subscriptions    map[platform.Handle]func()
}

type scanRequest struct {
	forceVisible bool
}

// New constructs a Discovery worker over backend. bufSize sizes the
// snapshot channel; 1 is enough since Run always blocks on send in scan
// order and the consumer is expected to drain promptly. period sets the
// interval between periodic background scans; a non-positive value falls
// back to Period. This is the config.Discovery.DebugInterval escape hatch
// (spec section 6.3), letting integration tests run the scan loop faster
// than production cadence.
func New(backend platform.Backend, logger *slog.Logger, bufSize int, period time.Duration) *Discovery {
	if bufSize < 1 {
		bufSize = 1
	}
	if period <= 0 {
		period = Period
	}
	return &Discovery{
		backend:       backend,
		SnapshotCh:    make(chan []layout.Record, bufSize),
		requestCh:     make(chan scanRequest, 8),
		logger:        logger,
		period:        period,
		subscriptions: make(map[platform.Handle]func()),
	}
}

// NotifyOnChange registers fn to be called whenever a move/resize observer
// installed by installSubscriptions fires (spec section 6.2). fn is
// expected to debounce internally; Engine.RequestApplyLayout does this via
// the ApplyLayoutDebounce window.
func (d *Discovery) NotifyOnChange(fn func()) {
	d.onExternalChange = fn
}

// Run drives the periodic scan loop (startPeriodicScan) and services
// on-demand scan requests until ctx is cancelled. Snapshots are always
// posted in the order they were produced.
func (d *Discovery) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	if d.logger != nil {
		d.logger.Info("discovery started", "period", d.period)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.scanAndPost(ctx, false)
		case req := <-d.requestCh:
			d.scanAndPost(ctx, req.forceVisible)
		}
	}
}

// ForceImmediateScan schedules a single snapshot as soon as possible (used
// on user-initiated reload and on space-change completion).
func (d *Discovery) ForceImmediateScan() {
	select {
	case d.requestCh <- scanRequest{forceVisible: false}:
	default:
	}
}

// StartBurstScan schedules BurstCount forced-visibility snapshots spaced
// BurstInterval apart, used immediately after a space switch or window
// throw to defeat stale on-screen reports. It returns immediately; the
// scans run against ctx.
func (d *Discovery) StartBurstScan(ctx context.Context) {
	go func() {
		for i := 0; i < BurstCount; i++ {
			select {
			case d.requestCh <- scanRequest{forceVisible: true}:
			case <-ctx.Done():
				return
			}
			select {
			case <-time.After(BurstInterval):
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (d *Discovery) scanAndPost(ctx context.Context, forceVisible bool) {
	scanID := uuid.NewString()

	snapshot, err := d.ScanOnce(forceVisible)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("discovery scan failed", "scan_id", scanID, "error", err)
		}
		return
	}
	if d.logger != nil {
		d.logger.Debug("discovery scan completed", "scan_id", scanID, "window_count", len(snapshot))
	}
	d.installSubscriptions(snapshot)
	select {
	case d.SnapshotCh <- snapshot:
	case <-ctx.Done():
	}
}

// installSubscriptions installs move/resize observers on every on-screen
// window in snapshot, and tears down subscriptions for windows no longer
// present (spec section 6.2: "installed by Discovery on every window found
// on-screen"). It runs only on the Run goroutine, so the subscriptions map
// needs no locking.
func (d *Discovery) installSubscriptions(snapshot []layout.Record) {
	seen := make(map[platform.Handle]struct{}, len(snapshot))
	for _, r := range snapshot {
		if !r.OnScreen || r.Handle == nil {
			continue
		}
		seen[r.Handle] = struct{}{}
		if _, ok := d.subscriptions[r.Handle]; ok {
			continue
		}
		d.subscriptions[r.Handle] = d.backend.Subscribe(r.Handle, d.fireExternalChange, d.fireExternalChange)
	}
	for h, unsubscribe := range d.subscriptions {
		if _, ok := seen[h]; ok {
			continue
		}
		unsubscribe()
		delete(d.subscriptions, h)
	}
}

func (d *Discovery) fireExternalChange() {
	if d.onExternalChange != nil {
		d.onExternalChange()
	}
}

// ScanOnce performs one snapshot (spec section 4.1). A failed or
// not-yet-trusted scan yields the empty list rather than a partial one.
func (d *Discovery) ScanOnce(forceVisible bool) ([]layout.Record, error) {
	if !d.backend.Trusted() {
		return nil, nil
	}

	primary, err := d.backend.PrimaryScreenFrame()
	if err != nil {
		return nil, nil
	}

	var onScreen map[platform.WindowID]struct{}
	if !forceVisible {
		onScreen, _ = d.backend.OnScreenWindowIDs()
	}

	apps, err := d.backend.Applications()
	if err != nil {
		return nil, nil
	}

	var records []layout.Record
	for _, app := range apps {
		windows, err := d.backend.AppWindows(app)
		if err != nil {
			continue
		}
		for _, w := range windows {
			if !passesTileabilityFilters(w) {
				continue
			}
			records = append(records, layout.Record{
				WindowID: resolveWindowID(w),
				PID:      w.OwnerPID,
				AppName:  w.OwnerName,
				BundleID: w.OwnerBundleID,
				Frame:    w.Frame,
				OnScreen: computeOnScreen(w, primary, onScreen, forceVisible),
				Handle:   w.Handle,
			})
		}
	}
	return records, nil
}

// FocusedWindow reads the currently focused application's focused window
// without mutating any internal state.
func (d *Discovery) FocusedWindow() (layout.Record, bool, error) {
	info, ok, err := d.backend.FocusedWindow()
	if err != nil || !ok {
		return layout.Record{}, false, err
	}
	return layout.Record{
		WindowID: resolveWindowID(info),
		PID:      info.OwnerPID,
		AppName:  info.OwnerName,
		BundleID: info.OwnerBundleID,
		Frame:    info.Frame,
		OnScreen: true,
		Handle:   info.Handle,
	}, true, nil
}

// computeOnScreen implements spec section 4.1 step 4.
func computeOnScreen(w platform.WindowInfo, primary platform.Rect, onScreen map[platform.WindowID]struct{}, forceVisible bool) bool {
	isOnScreen := primary.Intersects(w.Frame)

	if !forceVisible && !isBrowserWhitelisted(w.OwnerName) {
		if w.HasWindowNumber {
			_, isOnScreen = onScreen[w.WindowNumber]
		} else {
			isOnScreen = false
		}
	}

	if forceVisible && primary.Intersects(w.Frame) {
		isOnScreen = true
	}

	return isOnScreen
}

// resolveWindowID prefers the accessibility window-number attribute,
// deriving a stable surrogate from the handle identity otherwise (spec
// section 4.1 step 5).
func resolveWindowID(w platform.WindowInfo) platform.WindowID {
	if w.HasWindowNumber && w.WindowNumber != 0 {
		return w.WindowNumber
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(w.Handle.String()))
	return platform.WindowID(h.Sum32())
}
