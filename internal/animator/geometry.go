package animator

import (
	"math"

	"tilewm/internal/platform"
)

func roundRect(r platform.Rect) platform.Rect {
	return platform.Rect{
		X:      math.Round(r.X),
		Y:      math.Round(r.Y),
		Width:  math.Round(r.Width),
		Height: math.Round(r.Height),
	}
}

// chebyshevDistance returns the largest per-component absolute difference
// between a and b's origin and size, used against DeadZone (spec section
// 4.3.1).
func chebyshevDistance(a, b platform.Rect) float64 {
	max := func(vals ...float64) float64 {
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m
	}
	return max(
		math.Abs(a.X-b.X),
		math.Abs(a.Y-b.Y),
		math.Abs(a.Width-b.Width),
		math.Abs(a.Height-b.Height),
	)
}
