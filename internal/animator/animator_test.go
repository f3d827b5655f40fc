package animator

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"tilewm/internal/layout"
	"tilewm/internal/platform"
)

type fakeHandle struct{ id string }

func (h fakeHandle) String() string               { return h.id }
func (h fakeHandle) Equal(o platform.Handle) bool { other, ok := o.(fakeHandle); return ok && other.id == h.id }

type writeRecord struct {
	op    string
	value [2]float64
}

// fakeBackend records every SetPosition/SetSize call and can optionally
// stall each write for a configurable duration to simulate the slow
// accessibility sink spec section 4.3 backpressures against.
type fakeBackend struct {
	mu     sync.Mutex
	frames map[platform.Handle]platform.Rect
	writes map[platform.Handle][]writeRecord
	delay  time.Duration
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		frames: make(map[platform.Handle]platform.Rect),
		writes: make(map[platform.Handle][]writeRecord),
	}
}

func (b *fakeBackend) Trusted() bool                                    { return true }
func (b *fakeBackend) Applications() ([]platform.AppInfo, error)        { return nil, nil }
func (b *fakeBackend) AppWindows(platform.AppInfo) ([]platform.WindowInfo, error) { return nil, nil }
func (b *fakeBackend) OnScreenWindowIDs() (map[platform.WindowID]struct{}, error) {
	return nil, nil
}
func (b *fakeBackend) PrimaryScreenFrame() (platform.Rect, error) { return platform.Rect{}, nil }
func (b *fakeBackend) Screens() ([]platform.Screen, error)        { return nil, nil }
func (b *fakeBackend) FocusedWindow() (platform.WindowInfo, bool, error) {
	return platform.WindowInfo{}, false, nil
}

func (b *fakeBackend) FrameOf(h platform.Handle) (platform.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames[h], nil
}

func (b *fakeBackend) SetSize(h platform.Handle, w, height float64) error {
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	f := b.frames[h]
	f.Width, f.Height = w, height
	b.frames[h] = f
	b.writes[h] = append(b.writes[h], writeRecord{op: "size", value: [2]float64{w, height}})
	return nil
}

func (b *fakeBackend) SetPosition(h platform.Handle, x, y float64) error {
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	f := b.frames[h]
	f.X, f.Y = x, y
	b.frames[h] = f
	b.writes[h] = append(b.writes[h], writeRecord{op: "position", value: [2]float64{x, y}})
	return nil
}

func (b *fakeBackend) Subscribe(platform.Handle, func(), func()) func() { return func() {} }

func (b *fakeBackend) writeCount(h platform.Handle) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.writes[h])
}

func (b *fakeBackend) lastFrame(h platform.Handle) platform.Rect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames[h]
}

func newTestAnimator(backend platform.Backend) (*Animator, chan layout.ScheduleRequest, context.CancelFunc) {
	scheduleCh := make(chan layout.ScheduleRequest, 8)
	a := New(backend, scheduleCh, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	go a.RunWriteWorker(ctx)
	return a, scheduleCh, cancel
}

func TestSchedule_BelowDeadZone_WritesInstantaneously(t *testing.T) {
	backend := newFakeBackend()
	h := fakeHandle{id: "w1"}
	backend.frames[h] = platform.Rect{X: 100, Y: 100, Width: 400, Height: 400}

	_, scheduleCh, cancel := newTestAnimator(backend)
	defer cancel()

	// Target is within DeadZone of the current frame; must not animate.
	scheduleCh <- layout.ScheduleRequest{Handle: h, Target: platform.Rect{X: 101, Y: 100, Width: 400, Height: 400}}

	deadline := time.After(500 * time.Millisecond)
	for {
		if backend.writeCount(h) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected instantaneous write pair, got %d writes", backend.writeCount(h))
		case <-time.After(10 * time.Millisecond):
		}
	}

	// No animation ticks should have run: only the single instantaneous
	// size+position pair should ever land.
	time.Sleep(50 * time.Millisecond)
	if got := backend.writeCount(h); got != 2 {
		t.Errorf("expected exactly 2 writes for a dead-zone schedule, got %d", got)
	}
}

func TestSchedule_AboveDeadZone_AnimatesToExactFinalFrame(t *testing.T) {
	backend := newFakeBackend()
	h := fakeHandle{id: "w1"}
	backend.frames[h] = platform.Rect{X: 0, Y: 0, Width: 400, Height: 400}
	target := platform.Rect{X: 500, Y: 0, Width: 400, Height: 400}

	_, scheduleCh, cancel := newTestAnimator(backend)
	defer cancel()

	scheduleCh <- layout.ScheduleRequest{Handle: h, Target: target}

	deadline := time.After(2 * time.Second)
	for {
		if backend.lastFrame(h) == target {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("animation never converged to exact target, last frame: %+v", backend.lastFrame(h))
		case <-time.After(20 * time.Millisecond):
		}
	}

	if backend.writeCount(h) < 3 {
		t.Errorf("expected multiple interpolated writes plus a final write, got %d", backend.writeCount(h))
	}
}

func TestSchedule_Suppressed_WritesInstantaneously(t *testing.T) {
	backend := newFakeBackend()
	h := fakeHandle{id: "w1"}
	backend.frames[h] = platform.Rect{X: 0, Y: 0, Width: 400, Height: 400}
	target := platform.Rect{X: 800, Y: 0, Width: 400, Height: 400}

	a, scheduleCh, cancel := newTestAnimator(backend)
	defer cancel()

	a.Suppress(500 * time.Millisecond)
	scheduleCh <- layout.ScheduleRequest{Handle: h, Target: target}

	deadline := time.After(500 * time.Millisecond)
	for {
		if backend.lastFrame(h) == target {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("suppressed schedule should write target instantaneously, got %+v", backend.lastFrame(h))
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Give the animator a moment to see whether it wrongly starts animating.
	time.Sleep(50 * time.Millisecond)
	if got := backend.writeCount(h); got != 2 {
		t.Errorf("expected exactly 2 writes (no animation) for a suppressed schedule, got %d", got)
	}
}

func TestBackpressure_SlowSinkDoesNotBlockLogicWorker(t *testing.T) {
	backend := newFakeBackend()
	backend.delay = 50 * time.Millisecond
	h := fakeHandle{id: "slow"}
	backend.frames[h] = platform.Rect{X: 0, Y: 0, Width: 400, Height: 400}

	a, scheduleCh, cancel := newTestAnimator(backend)
	defer cancel()

	scheduleCh <- layout.ScheduleRequest{Handle: h, Target: platform.Rect{X: 800, Y: 0, Width: 400, Height: 400}}

	// The logic worker must remain responsive to ActiveJobCount even while
	// writes to the slow sink are in flight (spec section 4.3.2's BusySet
	// backpressure: skip busy handles rather than block the tick loop).
	ctx, cancelQuery := context.WithTimeout(context.Background(), time.Second)
	defer cancelQuery()
	if n := a.ActiveJobCount(ctx); n == 0 {
		t.Error("expected an active job while animating against a slow sink")
	}
}

func TestForceIntoPlace_IssuesDoubleWrite(t *testing.T) {
	backend := newFakeBackend()
	h := fakeHandle{id: "w1"}
	backend.frames[h] = platform.Rect{X: 0, Y: 0, Width: 400, Height: 400}
	target := platform.Rect{X: 200, Y: 200, Width: 400, Height: 400}

	a, _, cancel := newTestAnimator(backend)
	defer cancel()

	a.ForceIntoPlace(h, target)

	time.Sleep(ForcedPlacementSettle + 100*time.Millisecond)

	if got := backend.writeCount(h); got != 4 {
		t.Errorf("expected 2 size+position write pairs (immediate + settle), got %d", got)
	}
	if backend.lastFrame(h) != target {
		t.Errorf("expected final frame to equal forced target, got %+v", backend.lastFrame(h))
	}
}
