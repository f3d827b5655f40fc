package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// MoveResizeWindow is the write primitive behind X11Backend.SetPosition and
// SetSize, and therefore behind every animator write (spec section 4.3.4).
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// Best-effort: not every window manager exposes maximize state.
	c.unmaximizeWindow(windowID)

	// Prefer EWMH MoveResize for better window-manager compatibility; fall
	// back to a direct configure request if the WM doesn't honor it.
	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}

	return nil
}

// unmaximizeWindow clears any maximized state on windowID before a resize,
// since most window managers ignore MoveResize on a maximized window.
func (c *Connection) unmaximizeWindow(windowID xproto.Window) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return
	}

	// Check if window is maximized
	hasMaxH := false
	hasMaxV := false

	for _, state := range states {
		if state == "_NET_WM_STATE_MAXIMIZED_HORZ" {
			hasMaxH = true
		}
		if state == "_NET_WM_STATE_MAXIMIZED_VERT" {
			hasMaxV = true
		}
	}

	// Remove maximized states if present
	if hasMaxH || hasMaxV {
		// Request state removal
		if hasMaxH {
			ewmh.WmStateReq(c.XUtil, windowID, 0, "_NET_WM_STATE_MAXIMIZED_HORZ")
		}
		if hasMaxV {
			ewmh.WmStateReq(c.XUtil, windowID, 0, "_NET_WM_STATE_MAXIMIZED_VERT")
		}
	}
}

// IsNormalWindow reports whether windowID is a regular application window,
// backing the client-list filtering X11Backend uses in place of a real
// per-application accessibility tree (spec section 4.1's tileability filter
// chain, applied one layer up in discovery).
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	// Check for normal window type
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		// Reject desktop, dock, splash, etc.
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" {
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

// GetActiveWindow backs X11Backend.FocusedWindow.
func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}
