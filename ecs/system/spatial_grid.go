package system

import (
	"math"
	"sort"

	"github.com/jakecoffman/cp"
)

// SpatialGrid is a uniform broadphase grid over the playfield plus margin.
// Cells hold indices into the caller's candidate slice. Shapes outside the
// covered area are clamped into the border cells.
type SpatialGrid struct {
	cellSize   float64
	minX, minY float64
	cols, rows int
	cells      [][]int32
	used       []int
}

func NewSpatialGrid(minX, minY, maxX, maxY, cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 32
	}
	cols := int(math.Ceil((maxX-minX)/cellSize)) + 1
	rows := int(math.Ceil((maxY-minY)/cellSize)) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &SpatialGrid{
		cellSize: cellSize,
		minX:     minX,
		minY:     minY,
		cols:     cols,
		rows:     rows,
		cells:    make([][]int32, cols*rows),
	}
}

func (g *SpatialGrid) cell(x, y float64) (int, int) {
	cx := int(math.Floor((x - g.minX) / g.cellSize))
	cy := int(math.Floor((y - g.minY) / g.cellSize))
	return clampInt(cx, 0, g.cols-1), clampInt(cy, 0, g.rows-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clear empties every cell touched since the last Clear.
func (g *SpatialGrid) Clear() {
	for _, idx := range g.used {
		g.cells[idx] = g.cells[idx][:0]
	}
	g.used = g.used[:0]
}

// Insert adds idx to every cell bb covers.
func (g *SpatialGrid) Insert(idx int, bb cp.BB) {
	x0, y0 := g.cell(bb.L, bb.B)
	x1, y1 := g.cell(bb.R, bb.T)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c := y*g.cols + x
			if len(g.cells[c]) == 0 {
				g.used = append(g.used, c)
			}
			g.cells[c] = append(g.cells[c], int32(idx))
		}
	}
}

// Query appends to dst the indices in cells covered by bb, ascending and
// without duplicates.
func (g *SpatialGrid) Query(bb cp.BB, dst []int) []int {
	start := len(dst)
	x0, y0 := g.cell(bb.L, bb.B)
	x1, y1 := g.cell(bb.R, bb.T)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			for _, idx := range g.cells[y*g.cols+x] {
				dst = append(dst, int(idx))
			}
		}
	}

	found := dst[start:]
	sort.Ints(found)
	n := 0
	for i, v := range found {
		if i > 0 && v == found[n-1] {
			continue
		}
		found[n] = v
		n++
	}
	return dst[:start+n]
}
