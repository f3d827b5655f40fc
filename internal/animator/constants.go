package animator

import "time"

// Bit-exact constants from spec section 6.3 governing interpolation.
const (
	// ReferenceDuration is the animation duration used by this
	// implementation, within the spec-allowed [0.18s, 0.25s] range.
	ReferenceDuration = 180 * time.Millisecond
	// EaseExponent is the deceleration exponent k in e = 1 - (1-t)^k. The
	// reference uses k=5 for a sharp deceleration that hides sink latency.
	EaseExponent = 5.0
	// DeadZone is the Chebyshev-distance threshold below which a schedule
	// call performs an instantaneous write instead of animating.
	DeadZone = 2.0
	// DriverInterval is the fallback tick rate used when no real
	// display-refresh driver is available (spec section 7).
	DriverInterval = time.Second / 60
	// ForcedPlacementSettle is the delay between the two forced writes
	// issued by forceIntoPlace, to counter races with OS repositioning.
	ForcedPlacementSettle = 10 * time.Millisecond
)
