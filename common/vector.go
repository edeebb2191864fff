package common

import (
	"math"

	"github.com/jakecoffman/cp"
)

// Vec is a 2D point or vector in playfield units. Y grows downward.
type Vec = cp.Vector

// V is shorthand for building a Vec.
func V(x, y float64) Vec {
	return Vec{X: x, Y: y}
}

func Add(a, b Vec) Vec {
	return a.Add(b)
}

func Sub(a, b Vec) Vec {
	return a.Sub(b)
}

func Scale(v Vec, s float64) Vec {
	return v.Mult(s)
}

func Length(v Vec) float64 {
	return v.Length()
}

// Normalize returns the unit vector of v, or the zero vector when v has no length.
func Normalize(v Vec) Vec {
	l := v.Length()
	if l == 0 || !Finite(l) {
		return Vec{}
	}
	return Vec{X: v.X / l, Y: v.Y / l}
}

// WithLength rescales v to length l keeping its direction. A zero v stays zero.
func WithLength(v Vec, l float64) Vec {
	return Normalize(v).Mult(l)
}

// Rotate turns v by rad radians (positive turns +X toward +Y).
func Rotate(v Vec, rad float64) Vec {
	s, c := math.Sincos(rad)
	return Vec{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

func Distance(a, b Vec) float64 {
	return a.Distance(b)
}

func DistanceSq(a, b Vec) float64 {
	return a.DistanceSq(b)
}

// Angle returns the heading of v in radians, 0 for the zero vector.
func Angle(v Vec) float64 {
	if v.X == 0 && v.Y == 0 {
		return 0
	}
	return math.Atan2(v.Y, v.X)
}

// AngleTo returns the heading from a toward b, 0 when the points coincide.
func AngleTo(from, to Vec) float64 {
	return Angle(to.Sub(from))
}

// FromAngle builds a vector of length l pointing along rad.
func FromAngle(rad, l float64) Vec {
	s, c := math.Sincos(rad)
	return Vec{X: c * l, Y: s * l}
}
