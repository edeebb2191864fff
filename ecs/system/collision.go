package system

import (
	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
)

// CollisionSystem resolves hits between active entities according to a
// RuleTable. Rules run in table order, A entities in slot order, and B
// candidates in slot order whether or not the grid is used.
type CollisionSystem struct {
	rules     *RuleTable
	grid      *SpatialGrid
	threshold int

	as, bs []*ecs.EntityData
	shapes []common.Shape
	cands  []int

	// players hit during the current pass; their i-frames start after it.
	hit []*ecs.EntityData
}

// NewCollisionSystem builds the broadphase grid from the world config. A
// nil table uses DefaultRuleTable.
func NewCollisionSystem(w *ecs.World, rules *RuleTable) *CollisionSystem {
	if rules == nil {
		rules = DefaultRuleTable()
	}
	cfg := w.Config()
	m := cfg.Playfield.CullMargin
	return &CollisionSystem{
		rules:     rules,
		grid:      NewSpatialGrid(-m, -m, cfg.Playfield.Width+m, cfg.Playfield.Height+m, cfg.Collision.CellSize),
		threshold: cfg.Collision.BroadphaseThreshold,
	}
}

// SetBroadphaseThreshold sets the B-side count above which the grid is
// used; negative forces the naive pass.
func (s *CollisionSystem) SetBroadphaseThreshold(n int) {
	if s == nil {
		return
	}
	s.threshold = n
}

func (s *CollisionSystem) useGrid(n int) bool {
	return s.threshold >= 0 && n > s.threshold
}

func (s *CollisionSystem) Update(w *ecs.World) {
	if s == nil || w == nil {
		return
	}
	pool := w.Pool()
	s.hit = s.hit[:0]

	for _, r := range s.rules.Rules() {
		s.as = pool.AppendActive(s.as[:0], r.A)
		if len(s.as) == 0 {
			continue
		}
		s.bs = pool.AppendActive(s.bs[:0], r.B)
		if len(s.bs) == 0 {
			continue
		}

		s.shapes = s.shapes[:0]
		for _, b := range s.bs {
			s.shapes = append(s.shapes, b.Hitbox.At(b.Transform.Pos))
		}
		grid := s.useGrid(len(s.bs))
		if grid {
			s.grid.Clear()
			for i, b := range s.bs {
				if !b.Hitbox.Empty() {
					s.grid.Insert(i, s.shapes[i].Bounds())
				}
			}
		}

		for _, a := range s.as {
			if !pool.IsActive(a.Handle) || a.Hitbox.Empty() {
				continue
			}
			shapeA := a.Hitbox.At(a.Transform.Pos)

			s.cands = s.cands[:0]
			if grid {
				s.cands = s.grid.Query(shapeA.Bounds(), s.cands)
			} else {
				for i := range s.bs {
					s.cands = append(s.cands, i)
				}
			}

			for _, i := range s.cands {
				if !pool.IsActive(a.Handle) {
					break
				}
				b := s.bs[i]
				if !pool.IsActive(b.Handle) || b.Hitbox.Empty() {
					continue
				}
				if !a.Layer.Accepts(b.Category) || !b.Layer.Accepts(a.Category) {
					continue
				}
				if !common.Overlap(shapeA, s.shapes[i]) {
					continue
				}
				s.resolve(w, r, a, b)
			}
		}
	}

	s.grantIFrames(w)
}

// grantIFrames starts invulnerability for every player damaged this pass.
// The +1 covers the cull countdown later in the same tick.
func (s *CollisionSystem) grantIFrames(w *ecs.World) {
	ctl := w.PlayerController()
	if ctl == nil || ctl.IFrames <= 0 {
		return
	}
	for _, d := range s.hit {
		if d.Invulnerable.Frames < ctl.IFrames+1 {
			d.Invulnerable.Frames = ctl.IFrames + 1
		}
	}
}

func (s *CollisionSystem) markHit(d *ecs.EntityData) {
	for _, h := range s.hit {
		if h == d {
			return
		}
	}
	s.hit = append(s.hit, d)
}

// resolve applies both sides of r to the overlapping pair. Health changes
// are applied before any retirement so each side sees the other intact.
func (s *CollisionSystem) resolve(w *ecs.World, r Rule, a, b *ecs.EntityData) {
	w.Metrics().Collision(r.Name)

	killA := s.applyDamage(w, r.OnA, a, b)
	killB := s.applyDamage(w, r.OnB, b, a)
	collect(w, r.OnA, a, b)
	collect(w, r.OnB, b, a)

	if killA {
		destroy(w, a, b)
	}
	if killB {
		destroy(w, b, a)
	}
	if r.OnA.Consume {
		w.Retire(a.Handle, ecs.ReasonConsumed)
	}
	if r.OnB.Consume {
		w.Retire(b.Handle, ecs.ReasonConsumed)
	}
}

// applyDamage reports whether the hit brought self to zero health. Every
// hit in a pass lands; i-frames earned by one only take effect after it.
func (s *CollisionSystem) applyDamage(w *ecs.World, p Policy, self, other *ecs.EntityData) bool {
	if !p.Damage || other.Damage <= 0 || self.Invulnerable.Active() {
		return false
	}
	dead := self.Health.Apply(other.Damage)
	if self.Category == component.CategoryPlayer {
		w.Emit(ecs.Event{
			Kind:     ecs.EventPlayerHit,
			Entity:   self.Handle,
			Other:    other.Handle,
			Category: other.Category,
			Value:    other.Damage,
		})
		s.markHit(self)
	}
	return dead
}

func collect(w *ecs.World, p Policy, self, other *ecs.EntityData) {
	if !p.Collect {
		return
	}
	if self.Category == component.CategoryPlayer {
		if ctl := w.PlayerController(); ctl != nil {
			ctl.Power += other.Value
		}
	}
	w.Emit(ecs.Event{
		Kind:     ecs.EventPowerUpCollected,
		Entity:   self.Handle,
		Other:    other.Handle,
		Category: other.Category,
		Value:    other.Value,
		Name:     other.Archetype,
	})
}

func destroy(w *ecs.World, dead, by *ecs.EntityData) {
	evt := ecs.Event{
		Kind:     ecs.EventEnemyDestroyed,
		Entity:   dead.Handle,
		Other:    by.Handle,
		Category: dead.Category,
		Value:    dead.Value,
		Wave:     dead.Wave,
		Name:     dead.Archetype,
	}
	if dead.Category == component.CategoryPlayer {
		evt.Kind = ecs.EventPlayerDestroyed
	}
	w.Emit(evt)
	w.Retire(dead.Handle, ecs.ReasonKilled)
}
