// Package safe provides overflow-checked numeric conversions.
package safe

import (
	"math"
)

// IntToInt32 safely converts an int value to int32, clamping to the int32
// range if overflow would occur.
// Returns the converted value and a boolean indicating whether clamping occurred.
func IntToInt32(val int) (int32, bool) {
	if val > math.MaxInt32 {
		return math.MaxInt32, true
	}
	if val < math.MinInt32 {
		return math.MinInt32, true
	}
	return int32(val), false
}

// Int64ToUint64 safely converts an int64 value to uint64, clamping negative
// values to zero.
// Returns the converted value and a boolean indicating whether clamping occurred.
func Int64ToUint64(val int64) (uint64, bool) {
	if val < 0 {
		return 0, true
	}
	return uint64(val), false
}
