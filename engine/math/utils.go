package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Lerp interpolates between a and b; t is clamped to [0, 1].
func Lerp[T constraints.Float](a, b, t T) T {
	t = Clamp(t, 0, 1)
	return a + (b-a)*t
}
