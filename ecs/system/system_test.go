package system

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/config"
	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/pattern"
	"github.com/milk9111/danmaku/script"
	"github.com/milk9111/danmaku/stage"
)

func circle(r float64) component.Hitbox {
	return component.Hitbox{Shape: common.ShapeCircle, Radius: r}
}

func testStage(t *testing.T) *stage.Stage {
	t.Helper()
	st := stage.New("test")
	for _, a := range []component.Archetype{
		{Name: "ship", Category: component.CategoryPlayer, Hitbox: circle(2), Health: 3},
		{Name: "fairy", Category: component.CategoryEnemy, Hitbox: circle(8), Health: 3, Damage: 1, Value: 100},
		{Name: "shot", Category: component.CategoryPlayerBullet, Hitbox: circle(2), Damage: 1},
		{Name: "orb", Category: component.CategoryEnemyBullet, Hitbox: circle(3), Damage: 1},
		{Name: "power", Category: component.CategoryPowerUp, Hitbox: circle(4), Value: 5},
		{Name: "spark", Category: component.CategoryEffect, TTL: component.TTL{Frames: 3}},
	} {
		st.Archetypes[a.Name] = a
	}
	st.Patterns["twin"] = &pattern.Pattern{
		Name: "twin", Kind: pattern.KindAimed, Count: 2, Speed: 10, Angle: -1.5707963267948966, Spread: 0.2, Archetype: "shot",
	}
	st.PlayerArchetype = "ship"
	st.Player = component.Player{Speed: 4, FocusSpeed: 2, FireRate: 3, ShotPattern: "twin", Bombs: 1, IFrames: 0}
	return st
}

func compileInto(t *testing.T, st *stage.Stage, name string, raw []any) {
	t.Helper()
	p, err := script.Compile(name, raw, st)
	require.NoError(t, err)
	st.Scripts[name] = p
}

func newTestWorld(t *testing.T, st *stage.Stage) *ecs.World {
	t.Helper()
	return ecs.NewWorld(config.Default(), st, nil)
}

// spawnActive spawns and promotes immediately.
func spawnActive(t *testing.T, w *ecs.World, archetype string, x, y float64) ecs.Entity {
	t.Helper()
	e, ok := w.Spawn(component.SpawnRequest{Archetype: archetype, Position: common.V(x, y)})
	require.True(t, ok)
	w.Pool().Promote()
	return e
}

func spawnPlayer(t *testing.T, w *ecs.World, st *stage.Stage, x, y float64) ecs.Entity {
	t.Helper()
	e := spawnActive(t, w, st.PlayerArchetype, x, y)
	w.SetPlayer(e)
	*w.PlayerController() = st.Player
	return e
}

func circleBB(x, y, r float64) cp.BB {
	return common.Circle(common.V(x, y), r).Bounds()
}
