package system

import (
	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
)

type boundsPolicy uint8

const (
	boundsRetire boundsPolicy = iota
	boundsClamp
)

// cullBounds says what leaving the playfield means per category.
var cullBounds = [component.CategoryCount]boundsPolicy{
	component.CategoryPlayer:       boundsClamp,
	component.CategoryEnemy:        boundsRetire,
	component.CategoryPlayerBullet: boundsRetire,
	component.CategoryEnemyBullet:  boundsRetire,
	component.CategoryEffect:       boundsRetire,
	component.CategoryPowerUp:      boundsRetire,
}

// CullSystem retires entities whose lifecycle ended this tick: finished
// scripts, expired TTLs, zero health and leaving the playfield by more than
// the cull margin. It also counts down invulnerability.
type CullSystem struct{}

func NewCullSystem() *CullSystem {
	return &CullSystem{}
}

func (s *CullSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	pf := w.Config().Playfield

	w.Pool().ForEachActive(component.MaskAll, func(d *ecs.EntityData) {
		if d.Invulnerable.Frames > 0 {
			d.Invulnerable.Frames--
		}

		switch {
		case d.Script != nil && d.Exec.Finished:
			w.Retire(d.Handle, ecs.ReasonFinished)
			return
		case d.TTL.Expired(d.Age):
			w.Retire(d.Handle, ecs.ReasonExpired)
			return
		case d.Health.Max > 0 && d.Health.Current <= 0:
			w.Retire(d.Handle, ecs.ReasonKilled)
			return
		}

		pos := d.Transform.Pos
		switch cullBounds[d.Category] {
		case boundsClamp:
			d.Transform.Pos = common.V(
				common.Clamp(pos.X, 0, pf.Width),
				common.Clamp(pos.Y, 0, pf.Height),
			)
		case boundsRetire:
			m := pf.CullMargin
			if pos.X < -m || pos.X > pf.Width+m || pos.Y < -m || pos.Y > pf.Height+m || !common.Finite(pos.X) || !common.Finite(pos.Y) {
				w.Retire(d.Handle, ecs.ReasonOutOfBounds)
			}
		}
	})
}
