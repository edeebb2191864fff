package system

import "github.com/milk9111/danmaku/ecs"

// PromoteSystem activates entities spawned during the tick. It must run last
// so nothing spawned this tick moves or collides before the next one.
type PromoteSystem struct{}

func NewPromoteSystem() *PromoteSystem {
	return &PromoteSystem{}
}

func (s *PromoteSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	w.Pool().Promote()
}
