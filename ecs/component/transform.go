package component

import "github.com/milk9111/danmaku/common"

type Transform struct {
	Pos      common.Vec
	Rotation float64
}

// Velocity is in playfield units per tick.
type Velocity struct {
	V common.Vec
}
