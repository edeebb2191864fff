package sim

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/stage"
)

// EntityView is the render-facing copy of one entity. Alive is false for
// entities spawned this tick that have not been promoted yet.
type EntityView struct {
	ID       uint64
	Category component.Category
	X, Y     float64
	Rotation float64
	Sprite   component.Sprite
	Hitbox   component.Hitbox
	Alive    bool
}

type DirectorView struct {
	State      stage.State
	Clock      int
	Paused     bool
	Waves      int
	Cleared    int
	Transition string
}

type PlayerView struct {
	Alive  bool
	Health int
	Power  int
	Bombs  int
}

// Snapshot is the post-tick world as seen by renderers and the replay
// checker. Entities are ordered by category, then slot.
type Snapshot struct {
	Tick     uint64
	Entities []EntityView
	Director DirectorView
	Player   PlayerView
}

// Snapshot copies the current state. The result does not alias the world.
func (s *Simulation) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return s.AppendSnapshot(Snapshot{})
}

// AppendSnapshot is Snapshot reusing dst.Entities.
func (s *Simulation) AppendSnapshot(dst Snapshot) Snapshot {
	if s == nil {
		return dst
	}
	w := s.world
	dst.Tick = w.Tick()
	dst.Entities = dst.Entities[:0]
	w.Pool().ForEach(component.MaskAll, func(d *ecs.EntityData, state ecs.SlotState) {
		dst.Entities = append(dst.Entities, EntityView{
			ID:       uint64(d.Handle),
			Category: d.Category,
			X:        d.Transform.Pos.X,
			Y:        d.Transform.Pos.Y,
			Rotation: d.Transform.Rotation,
			Sprite:   d.Sprite,
			Hitbox:   d.Hitbox,
			Alive:    state == ecs.SlotActive,
		})
	})

	spawned, cleared := s.director.Waves()
	dst.Director = DirectorView{
		State:      s.director.State(),
		Clock:      s.director.Clock(),
		Paused:     s.Paused(),
		Waves:      spawned,
		Cleared:    cleared,
		Transition: s.director.Transition(),
	}

	ctl := w.PlayerController()
	dst.Player = PlayerView{Power: ctl.Power, Bombs: ctl.Bombs}
	if p := w.PlayerData(); p != nil {
		dst.Player.Alive = true
		dst.Player.Health = p.Health.Current
	}
	return dst
}

// Digest hashes everything that affects gameplay. Two runs fed the same
// intents produce the same digest at every tick.
func (s Snapshot) Digest() uint64 {
	h := xxhash.New()
	var buf [8]byte
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	f64 := func(v float64) { u64(math.Float64bits(v)) }
	b := func(v bool) {
		if v {
			u64(1)
		} else {
			u64(0)
		}
	}

	u64(s.Tick)
	u64(uint64(len(s.Entities)))
	for _, e := range s.Entities {
		u64(e.ID)
		u64(uint64(e.Category))
		f64(e.X)
		f64(e.Y)
		f64(e.Rotation)
		_, _ = h.WriteString(e.Sprite.Key)
		u64(uint64(e.Sprite.Frame))
		b(e.Alive)
	}
	u64(uint64(s.Director.State))
	u64(uint64(s.Director.Clock))
	b(s.Director.Paused)
	u64(uint64(s.Director.Waves))
	u64(uint64(s.Director.Cleared))
	b(s.Player.Alive)
	u64(uint64(s.Player.Health))
	u64(uint64(s.Player.Power))
	u64(uint64(s.Player.Bombs))
	return h.Sum64()
}

// Digest is shorthand for Snapshot().Digest().
func (s *Simulation) Digest() uint64 {
	return s.Snapshot().Digest()
}
