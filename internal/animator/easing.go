package animator

import "math"

// ease applies the exponential ease-out curve e = 1 - (1-t)^k described in
// spec section 4.3.2, decelerating sharply near completion to hide sink
// latency.
func ease(t, k float64) float64 {
	return 1 - math.Pow(1-t, k)
}
