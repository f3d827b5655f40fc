package layout

import (
	"log/slog"
	"sync"
	"time"

	"tilewm/internal/metrics"
	"tilewm/internal/platform"
)

// ScheduleRequest is posted from the Layout Engine to the Animator when a
// window's target rectangle changes meaningfully (spec section 9: callback
// delegates replaced by typed message channels).
type ScheduleRequest struct {
	Handle platform.Handle
	Target platform.Rect
}

// ThrowChecker reports whether a space-throw is currently in progress
// (spec section 6.2, external space/throw manager collaborator).
type ThrowChecker func() bool

// Engine owns the ManagedList, ZombieTable and TargetFrameCache, and
// dispatches schedule requests to the Animator over scheduleCh. Methods are
// safe to call from several goroutines (the snapshot consumer, hotkey
// callbacks and the debounce timers): mu serializes every access to the
// list and the cache.
type Engine struct {
	mu          sync.Mutex
	list        *List
	cache       *TargetFrameCache
	scheduleCh  chan<- ScheduleRequest
	isThrowing  ThrowChecker
	logger      *slog.Logger
	lastFocused platform.WindowID

	settleDebounce   *Debouncer
	externalDebounce *Debouncer
}

// NewEngine constructs an Engine. scheduleCh is the channel the Animator
// consumes ScheduleRequests from; isThrowing reports the external
// throw-in-progress flag.
func NewEngine(scheduleCh chan<- ScheduleRequest, isThrowing ThrowChecker, logger *slog.Logger) *Engine {
	if isThrowing == nil {
		isThrowing = func() bool { return false }
	}
	return &Engine{
		list:             New(),
		cache:            NewTargetFrameCache(),
		scheduleCh:       scheduleCh,
		isThrowing:       isThrowing,
		logger:           logger,
		settleDebounce:   NewDebouncer(),
		externalDebounce: NewDebouncer(),
	}
}

// Update reconciles a fresh discovery snapshot into the managed list and
// reports whether the snapshot introduced a new window id (spec section
// 4.2.5). Most callers want UpdateAndSchedule instead, which also applies
// the resulting scheduling policy.
func (e *Engine) Update(snapshot []Record, now time.Time) UpdateResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list.Update(snapshot, now)
}

// UpdateAndSchedule reconciles a fresh discovery snapshot and applies the
// scheduling policy from spec section 4.2.5: ApplyLayout runs immediately
// when the snapshot introduced no new window id; when it did, ApplyLayout is
// deferred by NewWindowSettle so the newly created window has time to
// publish its initial frame, avoiding a teleport from the center of the
// screen. A later UpdateAndSchedule call that again introduces a new window
// cancels and restarts an unfired settling delay; a later call without a new
// window and RequestApplyLayout leave it pending.
func (e *Engine) UpdateAndSchedule(snapshot []Record, now time.Time, screens []platform.Screen) UpdateResult {
	result := e.Update(snapshot, now)
	if result.IntroducedNewWindow {
		e.settleDebounce.Trigger(NewWindowSettle, func() { e.ApplyLayout(screens) })
	} else {
		e.ApplyLayout(screens)
	}
	return result
}

// RequestApplyLayout coalesces rapid external ApplyLayout triggers - the
// move/resize observers and mouse-up monitor of spec section 6.2 - into a
// single deferred call using the ApplyLayoutDebounce window. A later call
// cancels and supersedes an earlier, still-pending one.
func (e *Engine) RequestApplyLayout(screens []platform.Screen) {
	e.externalDebounce.Trigger(ApplyLayoutDebounce, func() { e.ApplyLayout(screens) })
}

// Records returns a snapshot of the current managed list order.
func (e *Engine) Records() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list.Records()
}

// ZombieCount returns the number of windows currently preserved as zombies.
func (e *Engine) ZombieCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list.ZombieCount()
}

// MoveFocused applies one manual reorder direction to the given window id
// and, if the order changed, runs ApplyLayout for the given screens.
func (e *Engine) MoveFocused(id platform.WindowID, dir Direction, screens []platform.Screen) {
	e.mu.Lock()
	changed := e.list.MoveFocused(id, dir)
	e.mu.Unlock()
	if changed {
		e.ApplyLayout(screens)
	}
}

// PromoteToMaster promotes id to the master slot and, if the order changed,
// runs ApplyLayout for the given screens.
func (e *Engine) PromoteToMaster(id platform.WindowID, screens []platform.Screen) {
	e.mu.Lock()
	changed := e.list.PromoteToMaster(id)
	e.mu.Unlock()
	if changed {
		e.ApplyLayout(screens)
	}
}

// ResetCache empties the target-frame cache (spec section 4.2.6), called by
// the space-manager collaborator after a space change.
func (e *Engine) ResetCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.Reset()
}

// ApplyLayout computes master-stack geometry per screen and dispatches
// schedule requests for windows whose target rectangle changed meaningfully
// (spec section 4.2.4).
func (e *Engine) ApplyLayout(screens []platform.Screen) {
	if e.isThrowing() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, screen := range screens {
		bounds := insetBy(screen.Bounds, Gap)
		active := e.activeOnScreen(screen.Bounds)
		targets := ComputeMasterStack(bounds, active)

		for i, rec := range active {
			target := targets[i]
			if !e.cache.ShouldDispatch(rec.WindowID, target) {
				continue
			}
			if e.logger != nil {
				e.logger.Debug("dispatching layout target",
					"window_id", rec.WindowID, "app", rec.AppName, "target", target)
			}
			if rec.Handle != nil && e.scheduleCh != nil {
				e.scheduleCh <- ScheduleRequest{Handle: rec.Handle, Target: target}
				metrics.DispatchesTotal.Inc()
			}
		}
	}
}

// activeOnScreen filters the managed list to records that participate in
// layout on the given screen: not a zombie, and either reported on-screen
// or whose last known frame intersects the screen. This is the
// implementation's chosen deterministic criterion for the open multi-screen
// filter question in spec section 9; the multi-monitor case itself remains
// a non-goal (spec section 1), so only one screen is ever passed in
// practice.
func (e *Engine) activeOnScreen(screenBounds platform.Rect) []Record {
	var out []Record
	for _, r := range e.list.records {
		if e.list.IsZombie(r.WindowID) {
			continue
		}
		if r.OnScreen || screenBounds.Intersects(r.Frame) {
			out = append(out, r)
		}
	}
	return out
}

func insetBy(r platform.Rect, gap float64) platform.Rect {
	return platform.Rect{
		X:      r.X + gap,
		Y:      r.Y + gap,
		Width:  r.Width - 2*gap,
		Height: r.Height - 2*gap,
	}
}
