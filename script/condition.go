package script

import (
	"fmt"
	"math"
	"strings"

	"github.com/d5/tengo/v2"

	"github.com/milk9111/danmaku/common"
)

type Subject uint8

const (
	SubjectHealth Subject = iota + 1
	SubjectHealthRatio
	SubjectPlayerDistance
	SubjectAge
	SubjectVar
	SubjectLoopIndex
)

var subjectNames = map[string]Subject{
	"health":          SubjectHealth,
	"health_ratio":    SubjectHealthRatio,
	"player_distance": SubjectPlayerDistance,
	"age":             SubjectAge,
	"loop_index":      SubjectLoopIndex,
}

type Cmp uint8

const (
	CmpLT Cmp = iota + 1
	CmpLE
	CmpGT
	CmpGE
	CmpEQ
	CmpNE
)

var cmpNames = map[string]Cmp{
	"lt": CmpLT, "<": CmpLT,
	"le": CmpLE, "<=": CmpLE,
	"gt": CmpGT, ">": CmpGT,
	"ge": CmpGE, ">=": CmpGE,
	"eq": CmpEQ, "==": CmpEQ,
	"ne": CmpNE, "!=": CmpNE,
}

// Condition is a predicate over entity state used by jump_if. Either the
// structured form (Subject/Cmp/Value) or Expr is set.
type Condition struct {
	Subject Subject
	Cmp     Cmp
	Value   float64
	Var     int
	Expr    *Expr
}

// farAway stands in for the player distance when there is no player.
const farAway = math.MaxFloat64

func (c *Condition) eval(vms exprVMs, b Body, s *State, env *Env) (bool, error) {
	if c == nil {
		return false, nil
	}
	if c.Expr != nil {
		return c.Expr.eval(vms.get(c.Expr), b, s, env)
	}

	var lhs float64
	switch c.Subject {
	case SubjectHealth:
		lhs = float64(b.Health.Current)
	case SubjectHealthRatio:
		lhs = b.Health.Ratio()
	case SubjectPlayerDistance:
		lhs = playerDistance(b, env)
	case SubjectAge:
		lhs = float64(b.Age)
	case SubjectVar:
		lhs = s.Vars[c.Var]
	case SubjectLoopIndex:
		lhs = float64(s.loopIndex())
	}

	switch c.Cmp {
	case CmpLT:
		return lhs < c.Value, nil
	case CmpLE:
		return lhs <= c.Value, nil
	case CmpGT:
		return lhs > c.Value, nil
	case CmpGE:
		return lhs >= c.Value, nil
	case CmpEQ:
		return lhs == c.Value, nil
	case CmpNE:
		return lhs != c.Value, nil
	}
	return false, nil
}

func playerDistance(b Body, env *Env) float64 {
	if env == nil || !env.HasPlayer || b.Transform == nil {
		return farAway
	}
	return common.Distance(b.Transform.Pos, env.Player)
}

// exprBuiltins are the names every expression may read.
var exprBuiltins = []string{
	"health", "max_health", "age", "x", "y", "vx", "vy",
	"player_x", "player_y", "player_distance", "has_player", "loop_index",
}

const exprResult = "__result"

// Expr is a tengo boolean expression compiled once at load time. The
// compiled program is a template and is never run; evaluation goes through
// a clone owned by the caller.
type Expr struct {
	Source   string
	vars     []string
	compiled *tengo.Compiled
}

// CompileExpr compiles src with the builtin names plus the script's local
// variable names in scope.
func CompileExpr(src string, vars []string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty expression")
	}

	s := tengo.NewScript([]byte(exprResult + " := (" + src + ")"))
	for _, name := range exprBuiltins {
		if err := s.Add(name, 0); err != nil {
			return nil, err
		}
	}
	for _, name := range vars {
		if err := s.Add(name, 0.0); err != nil {
			return nil, err
		}
	}

	compiled, err := s.Compile()
	if err != nil {
		return nil, err
	}
	return &Expr{Source: src, vars: append([]string(nil), vars...), compiled: compiled}, nil
}

// exprVMs maps each expression to the clone one Interpreter evaluates it
// with. Not safe for concurrent use.
type exprVMs map[*Expr]*tengo.Compiled

func (m exprVMs) get(e *Expr) *tengo.Compiled {
	if e == nil || e.compiled == nil {
		return nil
	}
	if m == nil {
		return e.compiled.Clone()
	}
	vm, ok := m[e]
	if !ok {
		vm = e.compiled.Clone()
		m[e] = vm
	}
	return vm
}

func (e *Expr) eval(vm *tengo.Compiled, b Body, s *State, env *Env) (bool, error) {
	if e == nil || vm == nil {
		return false, nil
	}

	var x, y, vx, vy float64
	if b.Transform != nil {
		x, y = b.Transform.Pos.X, b.Transform.Pos.Y
	}
	if b.Velocity != nil {
		vx, vy = b.Velocity.V.X, b.Velocity.V.Y
	}
	var px, py float64
	hasPlayer := env != nil && env.HasPlayer
	if hasPlayer {
		px, py = env.Player.X, env.Player.Y
	}

	values := [...]any{
		b.Health.Current, b.Health.Max, b.Age, x, y, vx, vy,
		px, py, playerDistance(b, env), hasPlayer, s.loopIndex(),
	}
	for i, name := range exprBuiltins {
		if err := vm.Set(name, values[i]); err != nil {
			return false, err
		}
	}
	for i, name := range e.vars {
		if err := vm.Set(name, s.Vars[i]); err != nil {
			return false, err
		}
	}

	if err := vm.Run(); err != nil {
		return false, fmt.Errorf("expr %q: %w", e.Source, err)
	}
	return vm.Get(exprResult).Bool(), nil
}
