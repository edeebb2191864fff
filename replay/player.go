package replay

import (
	"fmt"

	"github.com/milk9111/danmaku/sim"
)

// Player feeds recorded intents back one tick at a time.
type Player struct {
	rep *Replay
	pos int
}

func NewPlayer(r *Replay) *Player {
	return &Player{rep: r}
}

// Next returns the intent for the next tick. After the last recorded tick
// it keeps returning the zero intent and false.
func (p *Player) Next() (sim.Intent, bool) {
	if p == nil || p.pos >= p.rep.Len() {
		return sim.Intent{}, false
	}
	in := p.rep.Intents[p.pos]
	p.pos++
	return in, true
}

func (p *Player) Done() bool {
	return p == nil || p.pos >= p.rep.Len()
}

// Tick is the number of intents handed out so far.
func (p *Player) Tick() int {
	if p == nil {
		return 0
	}
	return p.pos
}

func (p *Player) Rewind() {
	if p != nil {
		p.pos = 0
	}
}

// Run plays r through s from its current state and calls fn with the digest
// after every tick. If r carries digests, the first tick whose digest
// differs stops the run with ErrDiverged.
func Run(s *sim.Simulation, r *Replay, fn func(tick int, digest uint64)) error {
	if s == nil {
		return sim.ErrNoStage
	}
	p := NewPlayer(r)
	for {
		in, ok := p.Next()
		if !ok {
			return nil
		}
		s.Tick(in)
		tick := p.Tick() - 1
		digest := s.Digest()
		if fn != nil {
			fn(tick, digest)
		}
		if tick < len(r.Digests) && r.Digests[tick] != digest {
			return fmt.Errorf("%w at tick %d: recorded %016x, got %016x", ErrDiverged, tick, r.Digests[tick], digest)
		}
	}
}
