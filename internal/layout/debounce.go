package layout

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid external applyLayout triggers into one deferred
// call, cancellable by a later call (spec section 9: "the natural shape is
// a single replaceable scheduled task handle").
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer returns a Debouncer with no pending call.
func NewDebouncer() *Debouncer {
	return &Debouncer{}
}

// Trigger schedules fn to run after delay, cancelling any previously
// scheduled call.
func (d *Debouncer) Trigger(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, fn)
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
