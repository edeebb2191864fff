package script

import (
	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/pattern"
)

// DefaultMaxSteps bounds the zero-cost instructions executed in one frame.
const DefaultMaxSteps = 256

// Body is the view of an entity the interpreter reads and moves.
type Body struct {
	Transform *component.Transform
	Velocity  *component.Velocity
	Health    component.Health
	Age       int
	Owner     uint64
	Wave      int
}

// Env carries the world facts scripts may observe.
type Env struct {
	Player    common.Vec
	HasPlayer bool
}

type Result struct {
	// Spawns is only valid until the next call to Step.
	Spawns   []component.SpawnRequest
	Finished bool
	// Yielded is set when the frame ran out of zero-cost steps.
	Yielded bool
	// Err is the first predicate evaluation error of the frame, if any.
	Err error
}

// Interpreter steps programs. It owns a reusable spawn buffer and its own
// expression VMs, and holds no per-entity state. Programs are only read, so
// any number of interpreters may share them.
type Interpreter struct {
	MaxSteps int

	spawns []component.SpawnRequest
	shots  []pattern.Shot
	vms    exprVMs
}

func NewInterpreter(maxSteps int) *Interpreter {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Interpreter{MaxSteps: maxSteps, vms: exprVMs{}}
}

// Forget drops the expression VMs, e.g. after the programs were replaced.
func (in *Interpreter) Forget() {
	if in == nil {
		return
	}
	in.vms = exprVMs{}
}

// Integrate applies one tick of velocity. It is the default movement for
// entities without a script.
func Integrate(b Body) {
	if b.Transform == nil || b.Velocity == nil {
		return
	}
	b.Transform.Pos = b.Transform.Pos.Add(b.Velocity.V)
	if v := b.Velocity.V; v.X != 0 || v.Y != 0 {
		b.Transform.Rotation = common.Angle(v)
	}
}

// Step advances s by exactly one frame.
func (in *Interpreter) Step(p *Program, s *State, b Body, env *Env) Result {
	in.spawns = in.spawns[:0]
	if b.Transform == nil || b.Velocity == nil || s == nil {
		return Result{}
	}
	if p == nil {
		Integrate(b)
		return Result{}
	}
	if s.Finished {
		return Result{Finished: true}
	}

	startPos, startVel, startRot := b.Transform.Pos, b.Velocity.V, b.Transform.Rotation
	maxSteps := in.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	var res Result
	steps := 0
	for {
		if s.PC < 0 || s.PC >= len(p.Code) || s.Finished {
			s.Finished = true
			b.Transform.Pos, b.Velocity.V, b.Transform.Rotation = startPos, startVel, startRot
			res.Finished = true
			res.Spawns = in.spawns
			return res
		}

		ins := &p.Code[s.PC]
		if ins.Op.Timed() {
			if ins.Op == OpWait && !s.Busy && ins.Frames <= 0 {
				s.PC++
				continue
			}
			in.timed(ins, s, b, env)
			res.Spawns = in.spawns
			return res
		}

		steps++
		if steps > maxSteps {
			Integrate(b)
			res.Yielded = true
			res.Spawns = in.spawns
			return res
		}

		if err := in.exec(ins, s, b, env); err != nil && res.Err == nil {
			res.Err = err
		}
	}
}

// timed runs one frame of a frame-consuming instruction, including the
// velocity integration for that frame.
func (in *Interpreter) timed(ins *Instruction, s *State, b Body, env *Env) {
	if !s.Busy {
		s.Busy = true
		s.Countdown = ins.Frames
		if ins.Op == OpMoveTo {
			target := ins.Vec
			if ins.AtPlayer {
				target = b.Transform.Pos
				if env != nil && env.HasPlayer {
					target = env.Player
				}
			}
			s.Target = target
			s.Step = target.Sub(b.Transform.Pos).Mult(1 / float64(ins.Frames))
		}
	}

	switch ins.Op {
	case OpHold:
		Integrate(b)
		return
	case OpAccelerate:
		b.Velocity.V = b.Velocity.V.Add(ins.Vec)
	case OpMoveTo:
		b.Velocity.V = s.Step
	}

	Integrate(b)
	s.Countdown--
	if s.Countdown > 0 {
		return
	}

	if ins.Op == OpMoveTo {
		b.Transform.Pos = s.Target
		b.Velocity.V = common.Vec{}
	}
	s.Busy = false
	s.Countdown = 0
	s.PC++
}

func (in *Interpreter) exec(ins *Instruction, s *State, b Body, env *Env) error {
	switch ins.Op {
	case OpSetVelocity:
		if ins.HasSpeed {
			b.Velocity.V = common.FromAngle(ins.Angle, ins.Speed)
		} else {
			b.Velocity.V = ins.Vec
		}
		faceVelocity(b)
	case OpSetSpeed:
		b.Velocity.V = common.FromAngle(heading(b), ins.Speed)
	case OpSetAngle:
		h := ins.Angle
		if ins.Relative {
			h += heading(b)
		}
		b.Velocity.V = common.FromAngle(h, common.Length(b.Velocity.V))
		b.Transform.Rotation = h
	case OpAim:
		h := heading(b)
		if env != nil && env.HasPlayer {
			h = common.AngleTo(b.Transform.Pos, env.Player)
		}
		h += ins.Angle
		speed := common.Length(b.Velocity.V)
		if ins.HasSpeed {
			speed = ins.Speed
		}
		b.Velocity.V = common.FromAngle(h, speed)
		b.Transform.Rotation = h
	case OpRepeat:
		if ins.Count == 0 || s.Depth >= MaxLoopDepth {
			s.PC = ins.Jump + 1
			return nil
		}
		s.Loops[s.Depth] = Loop{Repeat: s.PC, End: ins.Jump, Left: ins.Count}
		s.Depth++
	case OpEnd:
		if s.Depth > 0 && s.Loops[s.Depth-1].Repeat == ins.Jump {
			top := &s.Loops[s.Depth-1]
			top.Index++
			if top.Left == Forever || top.Index < top.Left {
				s.PC = top.Repeat + 1
				return nil
			}
			s.Depth--
		}
	case OpJump:
		s.jumpTo(ins.Jump)
		return nil
	case OpJumpIf:
		ok, err := ins.Cond.eval(in.vms, b, s, env)
		if ok {
			s.jumpTo(ins.Jump)
			return err
		}
		s.PC++
		return err
	case OpSetVar:
		s.Vars[ins.Var] = ins.Value
	case OpAddVar:
		s.Vars[ins.Var] += ins.Value
	case OpSpawn:
		in.spawn(ins.Spawn, b, env)
	case OpFire:
		in.fire(ins.Fire, s, b, env)
	case OpVanish:
		s.Finished = true
		return nil
	}
	s.PC++
	return nil
}

// jumpTo moves the program counter, unwinding loops whose body does not
// contain the target.
func (s *State) jumpTo(pc int) {
	for s.Depth > 0 {
		top := s.Loops[s.Depth-1]
		if pc > top.Repeat && pc <= top.End {
			break
		}
		s.Depth--
	}
	s.PC = pc
}

func heading(b Body) float64 {
	if v := b.Velocity.V; v.X != 0 || v.Y != 0 {
		return common.Angle(v)
	}
	return b.Transform.Rotation
}

func faceVelocity(b Body) {
	if v := b.Velocity.V; v.X != 0 || v.Y != 0 {
		b.Transform.Rotation = common.Angle(v)
	}
}

func (in *Interpreter) spawn(spec *SpawnSpec, b Body, env *Env) {
	if spec == nil {
		return
	}
	angle := spec.Angle
	switch {
	case spec.Aim && env != nil && env.HasPlayer:
		angle += common.AngleTo(b.Transform.Pos, env.Player)
	case spec.Relative:
		angle += heading(b)
	}
	in.spawns = append(in.spawns, component.SpawnRequest{
		Archetype: spec.Archetype,
		Script:    spec.Script,
		Position:  b.Transform.Pos.Add(spec.Offset),
		Velocity:  common.FromAngle(angle, spec.Speed),
		Owner:     b.Owner,
		Wave:      -1,
	})
}

func (in *Interpreter) fire(spec *FireSpec, s *State, b Body, env *Env) {
	if spec == nil || spec.Pattern == nil {
		return
	}
	origin := pattern.Origin{Pos: b.Transform.Pos, Shot: s.Shots}
	if env != nil && env.HasPlayer {
		origin.Target = env.Player
		origin.HasTarget = true
	}
	in.shots = spec.Pattern.AppendShots(in.shots[:0], origin)
	s.Shots++

	for _, shot := range in.shots {
		offset, vel := shot.Offset, shot.Velocity
		if spec.Angle != 0 {
			offset = common.Rotate(offset, spec.Angle)
			vel = common.Rotate(vel, spec.Angle)
		}
		archetype, sub := shot.Archetype, shot.Script
		if spec.Archetype != "" {
			archetype = spec.Archetype
		}
		if spec.Script != "" {
			sub = spec.Script
		}
		in.spawns = append(in.spawns, component.SpawnRequest{
			Archetype: archetype,
			Script:    sub,
			Position:  b.Transform.Pos.Add(offset),
			Velocity:  vel,
			Owner:     b.Owner,
			Wave:      -1,
		})
	}
}
