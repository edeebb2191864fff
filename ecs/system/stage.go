package system

import (
	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/stage"
)

// StageSystem advances the stage director once per tick. Entities it spawns
// are pending until the end of the tick.
type StageSystem struct {
	director *stage.Director
}

func NewStageSystem(d *stage.Director) *StageSystem {
	return &StageSystem{director: d}
}

func (s *StageSystem) Update(w *ecs.World) {
	if s == nil || w == nil {
		return
	}
	s.director.Advance(w)
}
