package layout

import "tilewm/internal/platform"

// TargetFrameCache records the last rectangle dispatched per window id, to
// suppress redundant animation commands (spec section 3). It is cleared in
// full on space change and individually replaced on dispatch.
type TargetFrameCache struct {
	targets map[platform.WindowID]platform.Rect
}

// NewTargetFrameCache returns an empty cache.
func NewTargetFrameCache() *TargetFrameCache {
	return &TargetFrameCache{targets: make(map[platform.WindowID]platform.Rect)}
}

// Reset empties the cache; nothing else is affected (spec section 4.2.6).
func (c *TargetFrameCache) Reset() {
	c.targets = make(map[platform.WindowID]platform.Rect)
}

// ShouldDispatch reports whether target differs from the cached rectangle
// for id by at least MovementDeadZone on any component, and if so records
// target as the new cached value.
func (c *TargetFrameCache) ShouldDispatch(id platform.WindowID, target platform.Rect) bool {
	cached, ok := c.targets[id]
	if ok && !differsBeyond(cached, target, MovementDeadZone) {
		return false
	}
	c.targets[id] = target
	return true
}

func differsBeyond(a, b platform.Rect, threshold float64) bool {
	return absDiff(a.X, b.X) >= threshold ||
		absDiff(a.Y, b.Y) >= threshold ||
		absDiff(a.Width, b.Width) >= threshold ||
		absDiff(a.Height, b.Height) >= threshold
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
