package utils

import (
	"golang.org/x/exp/constraints"
)

// Clamp returns val limited to the closed range [low, high].
func Clamp[T constraints.Integer | constraints.Float](val, low, high T) T {
	if val < low {
		return low
	}
	if val > high {
		return high
	}
	return val
}
