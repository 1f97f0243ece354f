package safe

import (
	"math"
)

// IsFinite reports whether f is neither NaN nor ±Inf.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// IsFinitePositive reports whether f is finite and strictly greater than zero.
func IsFinitePositive(f float64) bool {
	return IsFinite(f) && f > 0
}

// Div performs float division and returns 0 when the divisor is zero.
// Non-finite operands are not guarded: NaN and ±Inf propagate as in a / b.
func Div(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// ApproxEqual reports whether a and b differ by at most tol, relative to the
// larger magnitude once that exceeds 1.
func ApproxEqual(a, b, tol float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol*scale
}
