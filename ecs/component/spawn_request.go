package component

import "github.com/milk9111/danmaku/common"

// SpawnRequest asks the pool for a new entity. Category and stats come from
// the named archetype; Script overrides the archetype's default script.
type SpawnRequest struct {
	Archetype string
	Script    string
	Position  common.Vec
	Velocity  common.Vec
	Owner     uint64
	Wave      int
}
