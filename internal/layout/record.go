// Package layout owns the durable ManagedList of tileable windows, the
// zombie-preservation table, the master-stack geometry calculation, and the
// target-frame dispatch cache. It is the reconciliation core described in
// spec section 4.2, generalized from the grid/master-stack code in the
// teacher's tiling package.
package layout

import "tilewm/internal/platform"

// Record is a value snapshot of one tileable window at scan time, owned
// long-term only by ManagedList (spec section 3, WindowRecord).
type Record struct {
	WindowID platform.WindowID
	PID      int
	AppName  string
	BundleID string
	Frame    platform.Rect
	OnScreen bool
	Handle   platform.Handle
}

// SameWindow reports whether two records refer to the same window.
func (r Record) SameWindow(other Record) bool {
	return r.WindowID == other.WindowID
}
