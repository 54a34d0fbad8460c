// Package render holds the value types exchanged between the editing
// control flow and the execution engine: per-request render configuration,
// and the typed render output with its derived geometry metadata.
package render

import (
	"fmt"
	"math"
)

// Transform is a 2D affine transform in column-major order, mapping
// (x, y) to (A*x + C*y + E, B*x + D*y + F).
type Transform struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{A: 1, D: 1}
}

// Translate returns a pure translation.
func Translate(x, y float64) Transform {
	return Transform{A: 1, D: 1, E: x, F: y}
}

// Scale returns a pure scale about the origin.
func Scale(x, y float64) Transform {
	return Transform{A: x, D: y}
}

// Mul composes two transforms, applying o first.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		A: t.A*o.A + t.C*o.B,
		B: t.B*o.A + t.D*o.B,
		C: t.A*o.C + t.C*o.D,
		D: t.B*o.C + t.D*o.D,
		E: t.A*o.E + t.C*o.F + t.E,
		F: t.B*o.E + t.D*o.F + t.F,
	}
}

// Apply maps a point through the transform.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return t.A*x + t.C*y + t.E, t.B*x + t.D*y + t.F
}

// IsIdentity reports whether the transform is (numerically) the identity.
func (t Transform) IsIdentity() bool {
	const eps = 1e-12
	return math.Abs(t.A-1) < eps && math.Abs(t.B) < eps &&
		math.Abs(t.C) < eps && math.Abs(t.D-1) < eps &&
		math.Abs(t.E) < eps && math.Abs(t.F) < eps
}

// CSSMatrix renders the transform as an SVG/CSS matrix attribute value.
// The identity renders as the empty string so callers can omit the
// attribute entirely.
func (t Transform) CSSMatrix() string {
	if t.IsIdentity() {
		return ""
	}
	return fmt.Sprintf("matrix(%g, %g, %g, %g, %g, %g)", t.A, t.B, t.C, t.D, t.E, t.F)
}

// Rect is an axis-aligned rectangle in document space.
type Rect struct {
	X, Y, W, H float64
}
