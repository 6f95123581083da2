package util

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ParseClampedInt parses a base-10 integer and bounds it to [lo, hi]. Values
// too large for an int saturate instead of failing. ok is false for empty or
// non-integer input.
func ParseClampedInt(s string, lo, hi int) (v int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		// n is already saturated to MinInt64 or MaxInt64
	}
	switch {
	case n < int64(lo):
		return lo, true
	case n > int64(hi):
		return hi, true
	}
	return int(n), true
}

// ParseFinite parses a decimal number, rejecting NaN and infinities.
// Separators and currency signs are not stripped: "182,5" and "$10" fail.
func ParseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
