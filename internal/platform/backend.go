// Package platform defines the opaque accessibility interface consumed by
// the discovery and animator subsystems. Two implementations exist: darwin
// (osascript-driven, addressing the real Accessibility API surface) and x11
// (a Linux/EWMH double used for local development and tests).
package platform

import "fmt"

// WindowID is a stable, platform-neutral window identifier. It corresponds
// to the accessibility window-number attribute when available, or a
// deterministic surrogate derived from a handle's identity otherwise.
type WindowID uint32

// Rect describes a rectangular region in screen points.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Intersects reports whether r and other share any area.
func (r Rect) Intersects(other Rect) bool {
	if r.Width <= 0 || r.Height <= 0 || other.Width <= 0 || other.Height <= 0 {
		return false
	}
	return r.X < other.X+other.Width && other.X < r.X+r.Width &&
		r.Y < other.Y+other.Height && other.Y < r.Y+r.Height
}

// Screen describes one active display's usable work area, already inset for
// any menu bar or dock.
type Screen struct {
	ID     int
	Bounds Rect
}

// Handle is an opaque accessibility-element identity token. Equality must be
// defined by the implementation: pointer identity where the platform
// guarantees stable handles, otherwise a stable id keyed by window-number.
type Handle interface {
	fmt.Stringer
	Equal(Handle) bool
}

// AppInfo describes one running, regular, non-hidden application as reported
// by the platform's process/application list.
type AppInfo struct {
	PID      int
	Name     string
	BundleID string
}

// WindowInfo is the raw attribute bundle produced by a single accessibility
// probe of one window, before any tileability filtering is applied.
type WindowInfo struct {
	Handle          Handle
	OwnerPID        int
	OwnerName       string
	OwnerBundleID   string
	Role            string
	Subrole         string
	Minimized       bool
	Title           string
	Frame           Rect
	SizeSettable    bool
	WindowNumber    WindowID
	HasWindowNumber bool
}

// Backend is the platform accessibility interface required by the core
// (spec section 6.1): obtaining an app's window list, reading and writing
// per-window attributes, and reading the compositor's on-screen set.
type Backend interface {
	// Trusted reports whether accessibility permission has been granted.
	Trusted() bool

	// Applications enumerates running applications whose activation policy
	// is regular and which are not hidden.
	Applications() ([]AppInfo, error)

	// AppWindows reads the accessibility window list for one application.
	AppWindows(app AppInfo) ([]WindowInfo, error)

	// OnScreenWindowIDs returns the compositor's set of on-screen window ids
	// at layer 0.
	OnScreenWindowIDs() (map[WindowID]struct{}, error)

	// PrimaryScreenFrame returns the usable bounds of the primary screen.
	PrimaryScreenFrame() (Rect, error)

	// Screens returns the usable bounds of every active screen.
	Screens() ([]Screen, error)

	// FocusedWindow reads the currently focused application's focused
	// window without mutating any internal state. ok is false when nothing
	// is focused or the read failed.
	FocusedWindow() (WindowInfo, bool, error)

	// FrameOf reads a handle's current position and size in one probe.
	FrameOf(h Handle) (Rect, error)

	// SetPosition writes a window's top-left position. Atomic per attribute;
	// no bulk write primitive is assumed.
	SetPosition(h Handle, x, y float64) error

	// SetSize writes a window's size.
	SetSize(h Handle, width, height float64) error

	// Subscribe installs "moved" and "resized" notification callbacks for a
	// window, delivered on the caller's goroutine of choice by the backend.
	// It returns a function that cancels the subscription.
	Subscribe(h Handle, onMoved, onResized func()) (unsubscribe func())
}
