package common

import (
	"math"

	"github.com/jakecoffman/cp"
)

type ShapeKind uint8

const (
	ShapeCircle ShapeKind = iota
	ShapeRect
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapeRect:
		return "rect"
	default:
		return "unknown"
	}
}

// Shape is a world-space hitbox. Circles use Radius, rects use HalfW/HalfH
// around Center.
type Shape struct {
	Kind   ShapeKind
	Center Vec
	Radius float64
	HalfW  float64
	HalfH  float64
}

func Circle(center Vec, r float64) Shape {
	return Shape{Kind: ShapeCircle, Center: center, Radius: math.Abs(r)}
}

func Rect(center Vec, w, h float64) Shape {
	return Shape{Kind: ShapeRect, Center: center, HalfW: math.Abs(w) / 2, HalfH: math.Abs(h) / 2}
}

// Bounds returns the axis-aligned box enclosing s.
func (s Shape) Bounds() cp.BB {
	if s.Kind == ShapeRect {
		return cp.NewBBForExtents(s.Center, s.HalfW, s.HalfH)
	}
	return cp.NewBBForCircle(s.Center, s.Radius)
}

// CircleCircle reports overlap of two circles. Touching counts as overlap.
func CircleCircle(a Vec, ar float64, b Vec, br float64) bool {
	r := ar + br
	return a.DistanceSq(b) <= r*r
}

// CircleRect reports overlap of a circle with an axis-aligned box.
func CircleRect(c Vec, r float64, bb cp.BB) bool {
	closest := Vec{X: Clamp(c.X, bb.L, bb.R), Y: Clamp(c.Y, bb.B, bb.T)}
	return c.DistanceSq(closest) <= r*r
}

func RectRect(a, b cp.BB) bool {
	return a.Intersects(b)
}

// Overlap dispatches to the primitive test matching both shapes.
func Overlap(a, b Shape) bool {
	switch {
	case a.Kind == ShapeCircle && b.Kind == ShapeCircle:
		return CircleCircle(a.Center, a.Radius, b.Center, b.Radius)
	case a.Kind == ShapeCircle && b.Kind == ShapeRect:
		return CircleRect(a.Center, a.Radius, b.Bounds())
	case a.Kind == ShapeRect && b.Kind == ShapeCircle:
		return CircleRect(b.Center, b.Radius, a.Bounds())
	default:
		return RectRect(a.Bounds(), b.Bounds())
	}
}
