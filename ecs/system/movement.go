package system

import (
	"github.com/sirupsen/logrus"

	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/script"
)

// defaultMovement says how a category moves when it has no script.
var defaultMovement = [component.CategoryCount]func(d *ecs.EntityData){
	component.CategoryPlayer:       nil, // driven by PlayerControlSystem
	component.CategoryEnemy:        integrate,
	component.CategoryPlayerBullet: integrate,
	component.CategoryEnemyBullet:  integrate,
	component.CategoryEffect:       integrate,
	component.CategoryPowerUp:      integrate,
}

func integrate(d *ecs.EntityData) {
	script.Integrate(d.Body())
}

// MovementSystem steps the script of every active non-player entity and
// queues the spawn requests the scripts produce.
type MovementSystem struct{}

func NewMovementSystem() *MovementSystem {
	return &MovementSystem{}
}

func (s *MovementSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	interp := w.Interpreter()
	env := w.Env()
	mask := component.MaskAll &^ component.CategoryPlayer.Bit()

	w.Pool().ForEachActive(mask, func(d *ecs.EntityData) {
		d.Age++
		if d.Script == nil {
			if move := defaultMovement[d.Category]; move != nil {
				move(d)
			}
			return
		}

		res := interp.Step(d.Script, &d.Exec, d.Body(), &env)
		if len(res.Spawns) > 0 {
			w.QueueSpawn(res.Spawns...)
		}
		if res.Yielded {
			w.Log().WithFields(logrus.Fields{
				"system": "movement",
				"entity": d.Handle.String(),
				"script": d.Script.Name,
				"tick":   w.Tick(),
			}).Debug("script step budget exhausted, yielding")
		}
		if res.Err != nil {
			w.Log().WithFields(logrus.Fields{
				"system": "movement",
				"entity": d.Handle.String(),
				"script": d.Script.Name,
			}).WithError(res.Err).Error("script condition failed")
		}
	})
}
