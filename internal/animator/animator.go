// Package animator drives a display-refresh-driven interpolation loop that
// issues size/position writes to the platform accessibility interface with
// backpressure control against a slow, unpredictable sink (spec section
// 4.3). There is no display-refresh binding anywhere in this project's
// dependency set, so the driver falls back to a 60Hz time.Ticker, exactly
// the fallback spec section 7 licenses.
package animator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tilewm/internal/layout"
	"tilewm/internal/platform"
)

type writeJob struct {
	handle platform.Handle
	frame  platform.Rect
}

type writeResult struct {
	handle platform.Handle
}

// Animator owns the animation tables (active jobs, LastAppliedCache,
// BusySet, suppressionDeadline). All reads and writes to these tables
// happen on the single goroutine running Run (spec section 5, Animator
// logic worker). Schedule requests arrive on scheduleCh; Suppress and
// ForceIntoPlace are safe to call from other goroutines because they are
// serialized through control closures posted onto controlCh.
type Animator struct {
	backend platform.Backend
	logger  *slog.Logger

	scheduleCh <-chan layout.ScheduleRequest
	controlCh  chan func(*Animator)
	writeCh    chan writeJob
	writeDone  chan writeResult

	jobs                map[platform.Handle]*Job
	lastApplied         map[platform.Handle]platform.Rect
	busy                map[platform.Handle]bool
	suppressionDeadline time.Time

	ticker *time.Ticker
}

// New constructs an Animator that consumes schedule requests from
// scheduleCh and issues writes against backend.
func New(backend platform.Backend, scheduleCh <-chan layout.ScheduleRequest, logger *slog.Logger) *Animator {
	return &Animator{
		backend:     backend,
		logger:      logger,
		scheduleCh:  scheduleCh,
		controlCh:   make(chan func(*Animator), 16),
		writeCh:     make(chan writeJob, 16),
		writeDone:   make(chan writeResult, 16),
		jobs:        make(map[platform.Handle]*Job),
		lastApplied: make(map[platform.Handle]platform.Rect),
		busy:        make(map[platform.Handle]bool),
	}
}

// Run is the Animator logic worker: it owns every mutable table and is the
// only goroutine that touches them directly. Call RunWriteWorker
// concurrently to drive the serial accessibility write queue.
func (a *Animator) Run(ctx context.Context) error {
	for {
		var tickC <-chan time.Time
		if a.ticker != nil {
			tickC = a.ticker.C
		}

		select {
		case <-ctx.Done():
			a.stopDriver()
			return ctx.Err()
		case req := <-a.scheduleCh:
			a.schedule(req.Handle, req.Target)
		case fn := <-a.controlCh:
			// Apply schedule requests queued ahead of this control call
			// first, so a caller that schedules and then queries or
			// controls the animator observes its own request.
			for pending := true; pending; {
				select {
				case req := <-a.scheduleCh:
					a.schedule(req.Handle, req.Target)
				default:
					pending = false
				}
			}
			fn(a)
		case done := <-a.writeDone:
			delete(a.busy, done.handle)
		case <-tickC:
			a.tick()
		}
	}
}

// RunWriteWorker is the dedicated, serial accessibility write queue (spec
// section 5, Animator write worker). It owns no mutable state; it only
// performs writes and posts completion back to the logic worker.
func (a *Animator) RunWriteWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-a.writeCh:
			a.performWrite(job.handle, job.frame)
			select {
			case a.writeDone <- writeResult{handle: job.handle}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// performWrite issues the raw write for one frame. Size is set before
// position (spec section 4.3.4): setting position first can place the
// window against a screen edge and trigger the OS to clamp the subsequent
// resize.
func (a *Animator) performWrite(h platform.Handle, frame platform.Rect) {
	if err := a.backend.SetSize(h, frame.Width, frame.Height); err != nil && a.logger != nil {
		a.logger.Warn("animator write failed", "op", "size", "handle", h, "error", err)
	}
	if err := a.backend.SetPosition(h, frame.X, frame.Y); err != nil && a.logger != nil {
		a.logger.Warn("animator write failed", "op", "position", "handle", h, "error", err)
	}
}

// Suppress sets the suppression deadline to now+duration; schedule calls
// made before the deadline passes perform instantaneous writes (spec
// section 4.3.3). It is safe to call from any goroutine.
func (a *Animator) Suppress(duration time.Duration) {
	a.post(func(a *Animator) {
		a.suppressionDeadline = time.Now().Add(duration)
	})
}

// ForceIntoPlace clears any job for h and dispatches an immediate write,
// repeated once after ForcedPlacementSettle to counter races where the OS
// repositions the window mid-transition (spec section 4.3.3). It is safe
// to call from any goroutine.
func (a *Animator) ForceIntoPlace(h platform.Handle, rect platform.Rect) {
	a.post(func(a *Animator) {
		delete(a.jobs, h)
		delete(a.busy, h)
		delete(a.lastApplied, h)
		a.dispatchWrite(h, roundRect(rect))
		time.AfterFunc(ForcedPlacementSettle, func() {
			a.post(func(a *Animator) {
				a.dispatchWrite(h, roundRect(rect))
			})
		})
	})
}

// post serializes fn onto the logic worker and returns once fn has run.
// Blocking is intentional: callers are expected to be infrequent
// (space-manager notifications), and waiting preserves ordering against
// schedule requests sent after post returns.
func (a *Animator) post(fn func(*Animator)) {
	done := make(chan struct{})
	a.controlCh <- func(a *Animator) {
		fn(a)
		close(done)
	}
	<-done
}

// schedule implements spec section 4.3.1, running on the logic worker.
func (a *Animator) schedule(h platform.Handle, target platform.Rect) {
	rounded := roundRect(target)

	if time.Now().Before(a.suppressionDeadline) {
		delete(a.jobs, h)
		a.dispatchWrite(h, rounded)
		return
	}

	if job, ok := a.jobs[h]; ok && job.TargetFrame == rounded {
		return
	}

	current, err := a.backend.FrameOf(h)
	if err != nil {
		delete(a.jobs, h)
		a.dispatchWrite(h, rounded)
		return
	}

	if chebyshevDistance(current, rounded) < DeadZone {
		delete(a.jobs, h)
		a.dispatchWrite(h, rounded)
		return
	}

	jobID := uuid.NewString()
	if a.logger != nil {
		a.logger.Debug("animation job started", "job_id", jobID, "handle", h)
	}
	a.jobs[h] = &Job{
		ID:          jobID,
		StartFrame:  current,
		TargetFrame: rounded,
		StartedAt:   time.Now(),
		Duration:    ReferenceDuration,
	}
	a.ensureDriverRunning()
}

// tick advances every active job by one display-refresh frame (spec
// section 4.3.2).
func (a *Animator) tick() {
	if len(a.jobs) == 0 {
		a.stopDriver()
		return
	}

	now := time.Now()
	var completed []platform.Handle

	for h, job := range a.jobs {
		if a.busy[h] {
			continue
		}

		eased, done := job.progress(now)
		if done {
			completed = append(completed, h)
			continue
		}

		frame := job.frameAt(eased)
		if cached, ok := a.lastApplied[h]; ok && cached == frame {
			continue
		}
		a.dispatchWrite(h, frame)
	}

	for _, h := range completed {
		job := a.jobs[h]
		delete(a.jobs, h)
		// Final write at exactly targetFrame to defeat sub-point drift.
		a.dispatchWrite(h, job.TargetFrame)
	}
}

// dispatchWrite records the write as the last-applied frame, marks the
// handle busy, and enqueues it onto the serial write worker.
func (a *Animator) dispatchWrite(h platform.Handle, frame platform.Rect) {
	a.lastApplied[h] = frame
	a.busy[h] = true
	select {
	case a.writeCh <- writeJob{handle: h, frame: frame}:
	default:
		// Write queue saturated; drop the busy mark so the next tick
		// retries rather than wedging the handle forever.
		delete(a.busy, h)
	}
}

func (a *Animator) ensureDriverRunning() {
	if a.ticker != nil {
		return
	}
	a.ticker = time.NewTicker(DriverInterval)
}

func (a *Animator) stopDriver() {
	if a.ticker != nil {
		a.ticker.Stop()
		a.ticker = nil
	}
}

// ActiveJobCount reports the number of in-flight animation jobs, for the
// metrics gauge and the status report. Safe to call from any goroutine.
func (a *Animator) ActiveJobCount(ctx context.Context) int {
	result := make(chan int, 1)
	select {
	case a.controlCh <- func(a *Animator) { result <- len(a.jobs) }:
	case <-ctx.Done():
		return 0
	}
	select {
	case n := <-result:
		return n
	case <-ctx.Done():
		return 0
	}
}
