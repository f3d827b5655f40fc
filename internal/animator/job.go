package animator

import (
	"time"

	"tilewm/internal/platform"
)

// Job is an in-flight interpolation from a window's rectangle at the moment
// it was scheduled to its latest requested target (spec section 3,
// AnimationJob). It is keyed by the window's accessibility handle.
type Job struct {
	ID          string
	StartFrame  platform.Rect
	TargetFrame platform.Rect
	StartedAt   time.Time
	Duration    time.Duration
}

// progress returns the eased completion fraction at now, and whether the
// job has reached its target.
func (j *Job) progress(now time.Time) (eased float64, done bool) {
	t := float64(now.Sub(j.StartedAt)) / float64(j.Duration)
	if t >= 1 {
		return 1, true
	}
	if t < 0 {
		t = 0
	}
	return ease(t, EaseExponent), false
}

// frameAt linearly interpolates x, y, width, height using the eased
// fraction, then rounds each component to an integer point.
func (j *Job) frameAt(eased float64) platform.Rect {
	lerp := func(a, b float64) float64 { return a + (b-a)*eased }
	return roundRect(platform.Rect{
		X:      lerp(j.StartFrame.X, j.TargetFrame.X),
		Y:      lerp(j.StartFrame.Y, j.TargetFrame.Y),
		Width:  lerp(j.StartFrame.Width, j.TargetFrame.Width),
		Height: lerp(j.StartFrame.Height, j.TargetFrame.Height),
	})
}
