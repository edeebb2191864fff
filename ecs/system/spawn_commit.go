package system

import "github.com/milk9111/danmaku/ecs"

// SpawnCommitSystem turns the spawn requests queued this tick into pending
// entities.
type SpawnCommitSystem struct{}

func NewSpawnCommitSystem() *SpawnCommitSystem {
	return &SpawnCommitSystem{}
}

func (s *SpawnCommitSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	w.CommitSpawns()
}
