package discovery

import (
	"context"
	"testing"
	"time"

	"tilewm/internal/platform"
)

type fakeHandle struct{ id string }

func (h fakeHandle) String() string        { return h.id }
func (h fakeHandle) Equal(o platform.Handle) bool {
	other, ok := o.(fakeHandle)
	return ok && other.id == h.id
}

type fakeBackend struct {
	trusted   bool
	primary   platform.Rect
	apps      []platform.AppInfo
	windows   map[int][]platform.WindowInfo
	onScreen  map[platform.WindowID]struct{}
	appsErr   error
	onScreenErr error
}

func (b *fakeBackend) Trusted() bool { return b.trusted }
func (b *fakeBackend) Applications() ([]platform.AppInfo, error) { return b.apps, b.appsErr }
func (b *fakeBackend) AppWindows(app platform.AppInfo) ([]platform.WindowInfo, error) {
	return b.windows[app.PID], nil
}
func (b *fakeBackend) OnScreenWindowIDs() (map[platform.WindowID]struct{}, error) {
	return b.onScreen, b.onScreenErr
}
func (b *fakeBackend) PrimaryScreenFrame() (platform.Rect, error) { return b.primary, nil }
func (b *fakeBackend) FrameOf(h platform.Handle) (platform.Rect, error) {
	for _, ws := range b.windows {
		for _, w := range ws {
			if w.Handle.Equal(h) {
				return w.Frame, nil
			}
		}
	}
	return platform.Rect{}, nil
}
func (b *fakeBackend) Screens() ([]platform.Screen, error) {
	return []platform.Screen{{ID: 0, Bounds: b.primary}}, nil
}
func (b *fakeBackend) FocusedWindow() (platform.WindowInfo, bool, error) {
	for _, ws := range b.windows {
		if len(ws) > 0 {
			return ws[0], true, nil
		}
	}
	return platform.WindowInfo{}, false, nil
}
func (b *fakeBackend) SetPosition(h platform.Handle, x, y float64) error { return nil }
func (b *fakeBackend) SetSize(h platform.Handle, w, h2 float64) error    { return nil }
func (b *fakeBackend) Subscribe(h platform.Handle, onMoved, onResized func()) func() {
	return func() {}
}

func validWindow(pid int, title string, frame platform.Rect) platform.WindowInfo {
	return platform.WindowInfo{
		Handle:          fakeHandle{id: title},
		OwnerPID:        pid,
		OwnerName:       "TestApp",
		Role:            "window",
		Title:           title,
		Frame:           frame,
		SizeSettable:    true,
		WindowNumber:    platform.WindowID(pid),
		HasWindowNumber: true,
	}
}

func TestScanOnce_NotTrusted_ReturnsEmpty(t *testing.T) {
	b := &fakeBackend{trusted: false}
	d := New(b, nil, 1, 0)

	records, err := d.ScanOnce(false)
	if err != nil || records != nil {
		t.Fatalf("expected nil, nil for untrusted backend; got %v, %v", records, err)
	}
}

func TestScanOnce_FiltersNonTileableWindows(t *testing.T) {
	primary := platform.Rect{X: 0, Y: 0, Width: 1440, Height: 900}
	tileable := validWindow(1, "Editor", platform.Rect{X: 0, Y: 0, Width: 400, Height: 400})
	tooSmall := validWindow(2, "Splash", platform.Rect{X: 0, Y: 0, Width: 40, Height: 40})
	minimized := validWindow(3, "Minimized", platform.Rect{X: 0, Y: 0, Width: 400, Height: 400})
	minimized.Minimized = true
	untitled := validWindow(4, "", platform.Rect{X: 0, Y: 0, Width: 400, Height: 400})
	dialog := validWindow(5, "Dialog", platform.Rect{X: 0, Y: 0, Width: 400, Height: 400})
	dialog.Subrole = "system-dialog"

	b := &fakeBackend{
		trusted: true,
		primary: primary,
		apps: []platform.AppInfo{
			{PID: 1, Name: "TestApp"}, {PID: 2, Name: "TestApp"},
			{PID: 3, Name: "TestApp"}, {PID: 4, Name: "TestApp"}, {PID: 5, Name: "TestApp"},
		},
		windows: map[int][]platform.WindowInfo{
			1: {tileable}, 2: {tooSmall}, 3: {minimized}, 4: {untitled}, 5: {dialog},
		},
		onScreen: map[platform.WindowID]struct{}{1: {}},
	}
	d := New(b, nil, 1, 0)

	records, err := d.ScanOnce(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 tileable record, got %d: %+v", len(records), records)
	}
	if records[0].WindowID != 1 {
		t.Errorf("expected surviving record to be window 1, got %d", records[0].WindowID)
	}
}

func TestComputeOnScreen_BrowserWhitelistBypassesCompositor(t *testing.T) {
	primary := platform.Rect{X: 0, Y: 0, Width: 1440, Height: 900}
	w := validWindow(1, "Tab", platform.Rect{X: 0, Y: 0, Width: 400, Height: 400})
	w.OwnerName = "Safari"

	// Compositor reports it NOT on screen, but the browser is whitelisted so
	// geometry intersection alone decides.
	onScreen := map[platform.WindowID]struct{}{}
	if !computeOnScreen(w, primary, onScreen, false) {
		t.Error("whitelisted browser with intersecting geometry should be on-screen")
	}
}

func TestComputeOnScreen_NonWhitelistedRequiresCompositorMembership(t *testing.T) {
	primary := platform.Rect{X: 0, Y: 0, Width: 1440, Height: 900}
	w := validWindow(1, "Doc", platform.Rect{X: 0, Y: 0, Width: 400, Height: 400})

	onScreen := map[platform.WindowID]struct{}{}
	if computeOnScreen(w, primary, onScreen, false) {
		t.Error("non-whitelisted app absent from compositor list should not be on-screen")
	}

	onScreen[w.WindowNumber] = struct{}{}
	if !computeOnScreen(w, primary, onScreen, false) {
		t.Error("non-whitelisted app present in compositor list should be on-screen")
	}
}

func TestComputeOnScreen_ForceVisibleOverridesToTrueWhenIntersecting(t *testing.T) {
	primary := platform.Rect{X: 0, Y: 0, Width: 1440, Height: 900}
	w := validWindow(1, "Doc", platform.Rect{X: 0, Y: 0, Width: 400, Height: 400})

	if !computeOnScreen(w, primary, nil, true) {
		t.Error("forceVisible with intersecting frame should force on-screen true")
	}
}

func TestResolveWindowID_FallsBackToHandleSurrogate(t *testing.T) {
	w := platform.WindowInfo{Handle: fakeHandle{id: "unique"}, HasWindowNumber: false}
	id1 := resolveWindowID(w)
	id2 := resolveWindowID(w)
	if id1 != id2 {
		t.Error("surrogate id must be deterministic for the same handle identity")
	}
	if id1 == 0 {
		t.Error("surrogate id should not be zero for a non-empty handle string")
	}
}

func TestDiscovery_ForceImmediateScan_PostsSnapshot(t *testing.T) {
	b := &fakeBackend{
		trusted: true,
		primary: platform.Rect{X: 0, Y: 0, Width: 1440, Height: 900},
		apps:    []platform.AppInfo{{PID: 1, Name: "TestApp"}},
		windows: map[int][]platform.WindowInfo{
			1: {validWindow(1, "Editor", platform.Rect{X: 0, Y: 0, Width: 400, Height: 400})},
		},
		onScreen: map[platform.WindowID]struct{}{1: {}},
	}
	d := New(b, nil, 4, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.ForceImmediateScan()

	select {
	case snapshot := <-d.SnapshotCh:
		if len(snapshot) != 1 {
			t.Errorf("expected 1 record, got %d", len(snapshot))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forced scan snapshot")
	}
}
