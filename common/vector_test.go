package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   Vec
		want Vec
	}{
		{"zero", V(0, 0), V(0, 0)},
		{"axis", V(0, -5), V(0, -1)},
		{"diagonal", V(3, 4), V(0.6, 0.8)},
		{"nan", V(math.NaN(), 1), V(0, 0)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Normalize(c.in)
			assert.InDelta(t, c.want.X, got.X, 1e-9)
			assert.InDelta(t, c.want.Y, got.Y, 1e-9)
		})
	}
}

func TestRotateAndAngles(t *testing.T) {
	r := Rotate(V(1, 0), math.Pi/2)
	assert.InDelta(t, 0, r.X, 1e-9)
	assert.InDelta(t, 1, r.Y, 1e-9)

	assert.Equal(t, 0.0, AngleTo(V(10, 10), V(10, 10)))
	assert.InDelta(t, math.Pi/2, AngleTo(V(0, 0), V(0, 300)), 1e-12)

	v := FromAngle(DegToRad(180), 2)
	assert.InDelta(t, -2, v.X, 1e-9)
	assert.InDelta(t, 0, v.Y, 1e-9)

	assert.Equal(t, Vec{}, WithLength(Vec{}, 4))
	assert.InDelta(t, 5, Distance(V(100, 200), V(103, 204)), 1e-9)
}

func TestOverlap(t *testing.T) {
	cases := []struct {
		name string
		a, b Shape
		want bool
	}{
		{"circles_apart", Circle(V(0, 0), 1), Circle(V(3, 0), 1), false},
		{"circles_touching", Circle(V(0, 0), 1), Circle(V(2, 0), 1), true},
		{"circles_inside", Circle(V(400, 300), 10), Circle(V(401, 301), 1), true},
		{"circle_rect_corner_miss", Circle(V(0, 0), 1), Rect(V(2, 2), 2, 2), false},
		{"circle_rect_edge_hit", Circle(V(0, 0), 1.5), Rect(V(2, 0), 2, 2), true},
		{"rect_circle_swapped", Rect(V(2, 0), 2, 2), Circle(V(0, 0), 1.5), true},
		{"rects_overlap", Rect(V(0, 0), 4, 4), Rect(V(3, 3), 4, 4), true},
		{"rects_apart", Rect(V(0, 0), 2, 2), Rect(V(5, 0), 2, 2), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Overlap(c.a, c.b))
			assert.Equal(t, c.want, Overlap(c.b, c.a))
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 1))
	assert.Equal(t, 1.0, Clamp(5, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
