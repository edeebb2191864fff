package system

import (
	"github.com/sirupsen/logrus"

	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/pattern"
)

// PlayerControlSystem applies the tick's intent to the player: movement
// (slower while focused), firing on a cooldown and bombs on the rising edge
// of Special.
type PlayerControlSystem struct {
	shots []pattern.Shot
}

func NewPlayerControlSystem() *PlayerControlSystem {
	return &PlayerControlSystem{}
}

func (s *PlayerControlSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	ctl := w.PlayerController()
	d := w.PlayerData()
	if d == nil || !w.Pool().IsActive(d.Handle) {
		return
	}
	in := w.Intent()
	d.Age++

	speed := ctl.Speed
	if in.Focus {
		speed = ctl.FocusSpeed
	}
	dir := common.V(common.Clamp(in.MoveX, -1, 1), common.Clamp(in.MoveY, -1, 1))
	if common.Length(dir) > 1 {
		dir = common.Normalize(dir)
	}
	d.Velocity.V = dir.Mult(speed)
	d.Transform.Pos = d.Transform.Pos.Add(d.Velocity.V)

	if ctl.Cooldown > 0 {
		ctl.Cooldown--
	}
	if in.Fire && ctl.Cooldown == 0 {
		s.fire(w, ctl, d, in.Focus)
	}

	if in.Special && !ctl.Special && ctl.Bombs > 0 {
		s.bomb(w, ctl, d)
	}
	ctl.Special = in.Special
}

func (s *PlayerControlSystem) fire(w *ecs.World, ctl *component.Player, d *ecs.EntityData, focus bool) {
	name := ctl.ShotPattern
	if focus && ctl.FocusShot != "" {
		name = ctl.FocusShot
	}
	if name == "" {
		return
	}
	cat := w.Catalog()
	if cat == nil {
		return
	}
	p, ok := cat.Pattern(name)
	if !ok {
		w.Violation("player shot pattern missing", logrus.Fields{"system": "player_control", "pattern": name})
		return
	}

	s.shots = p.AppendShots(s.shots[:0], pattern.Origin{Pos: d.Transform.Pos, Shot: ctl.Shots})
	for _, shot := range s.shots {
		w.QueueSpawn(component.SpawnRequest{
			Archetype: shot.Archetype,
			Script:    shot.Script,
			Position:  d.Transform.Pos.Add(shot.Offset),
			Velocity:  shot.Velocity,
			Owner:     uint64(d.Handle),
			Wave:      -1,
		})
	}
	ctl.Shots++
	ctl.Cooldown = ctl.FireRate
}

// bomb clears every active enemy bullet.
func (s *PlayerControlSystem) bomb(w *ecs.World, ctl *component.Player, d *ecs.EntityData) {
	ctl.Bombs--
	cleared := 0
	w.Pool().ForEachActive(component.CategoryEnemyBullet.Bit(), func(b *ecs.EntityData) {
		if w.Retire(b.Handle, ecs.ReasonBomb) {
			cleared++
		}
	})
	w.Emit(ecs.Event{Kind: ecs.EventBombUsed, Entity: d.Handle, Value: cleared})
}
