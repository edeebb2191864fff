package ecs

import (
	"github.com/milk9111/danmaku/config"
	"github.com/milk9111/danmaku/ecs/component"
)

// categoryRange is the contiguous block of pool slots owned by one category.
type categoryRange struct {
	start   int
	cap     int
	free    []int // LIFO
	active  int
	pending int
	dropped uint64
}

func (r *categoryRange) contains(slot int) bool {
	return slot >= r.start && slot < r.start+r.cap
}

func (r *categoryRange) resetFree() {
	r.free = r.free[:0]
	for i := r.cap - 1; i >= 0; i-- {
		r.free = append(r.free, r.start+i)
	}
	r.active, r.pending = 0, 0
}

// layoutRanges assigns slot ranges in category order.
func layoutRanges(caps config.Capacities) ([component.CategoryCount]categoryRange, int) {
	var ranges [component.CategoryCount]categoryRange
	next := 0
	for c := 0; c < component.CategoryCount; c++ {
		n := caps.For(component.Category(c))
		if n < 0 {
			n = 0
		}
		ranges[c] = categoryRange{start: next, cap: n, free: make([]int, 0, n)}
		ranges[c].resetFree()
		next += n
	}
	return ranges, next
}
