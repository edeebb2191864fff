package script

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/pattern"
)

var (
	ErrUnknownOp        = errors.New("script: unknown instruction")
	ErrBadOperand       = errors.New("script: bad operand")
	ErrUndefinedLabel   = errors.New("script: undefined label")
	ErrDuplicateLabel   = errors.New("script: duplicate label")
	ErrUnbalancedBlock  = errors.New("script: unbalanced repeat/end")
	ErrUnknownReference = errors.New("script: unknown reference")
	ErrInfiniteLoop     = errors.New("script: loop without a time-consuming instruction")
	ErrTooManyVars      = errors.New("script: too many variables")
)

// Resolver answers the cross-references a script may make. It is consulted
// only while compiling.
type Resolver interface {
	HasArchetype(name string) bool
	HasScript(name string) bool
	Pattern(name string) (*pattern.Pattern, bool)
}

type compiler struct {
	name   string
	refs   Resolver
	code   []Instruction
	labels map[string]int
	vars   []string
	blocks []int
	errs   []error
}

// Compile turns raw instruction data into a Program. Each item is either a
// bare op name ("end", "hold", "vanish") or a single-key map of op name to
// operand. Every problem found is reported, joined into one error.
func Compile(name string, raw []any, refs Resolver) (*Program, error) {
	c := &compiler{name: name, refs: refs, labels: map[string]int{}}

	// Labels and variables first so jumps and expressions can refer forward.
	for _, item := range raw {
		op, arg, ok := splitItem(item)
		if !ok {
			continue
		}
		switch op {
		case "label":
			label := strings.TrimSpace(asString(arg))
			if _, dup := c.labels[label]; dup {
				c.errs = append(c.errs, fmt.Errorf("script %q: %w %q", name, ErrDuplicateLabel, label))
			}
			c.labels[label] = -1
		case "set_var", "add_var":
			if m, ok := arg.(map[string]any); ok {
				c.varIndex(asString(m["name"]))
			}
		}
	}

	for i, item := range raw {
		ins, err := c.decode(i, item)
		if err != nil {
			c.errs = append(c.errs, fmt.Errorf("script %q: instruction %d: %w", name, i, err))
			ins = Instruction{Op: OpNop}
		}
		if ins.Op == OpLabel {
			c.labels[ins.Label] = len(c.code)
		}
		c.code = append(c.code, ins)
	}
	for _, pc := range c.blocks {
		c.errs = append(c.errs, fmt.Errorf("script %q: instruction %d: %w: repeat without end", name, pc, ErrUnbalancedBlock))
	}

	c.resolveJumps()
	c.checkLoops()

	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	return &Program{Name: name, Code: c.code, Vars: c.vars}, nil
}

func (c *compiler) resolveJumps() {
	for pc := range c.code {
		ins := &c.code[pc]
		if ins.Op != OpJump && ins.Op != OpJumpIf {
			continue
		}
		target, ok := c.labels[ins.Label]
		if !ok || target < 0 {
			c.errs = append(c.errs, fmt.Errorf("script %q: instruction %d: %w %q", c.name, pc, ErrUndefinedLabel, ins.Label))
			continue
		}
		ins.Jump = target
	}
}

// checkLoops rejects loops that could spin forever inside a single frame:
// unbounded repeats and unconditional backward jumps whose body never
// consumes a frame.
func (c *compiler) checkLoops() {
	for pc, ins := range c.code {
		switch {
		case ins.Op == OpRepeat && ins.Count == Forever:
			if !c.consumesTime(pc+1, ins.Jump) {
				c.errs = append(c.errs, fmt.Errorf("script %q: instruction %d: %w", c.name, pc, ErrInfiniteLoop))
			}
		case ins.Op == OpJump && ins.Jump <= pc:
			if !c.consumesTime(ins.Jump, pc) {
				c.errs = append(c.errs, fmt.Errorf("script %q: instruction %d: %w", c.name, pc, ErrInfiniteLoop))
			}
		}
	}
}

func (c *compiler) consumesTime(from, to int) bool {
	for i := from; i < to && i < len(c.code); i++ {
		ins := c.code[i]
		if ins.Op == OpVanish || (ins.Op.Timed() && (ins.Op != OpWait || ins.Frames > 0)) {
			return true
		}
	}
	return false
}

func (c *compiler) varIndex(name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: variable needs a name", ErrBadOperand)
	}
	for i, v := range c.vars {
		if v == name {
			return i, nil
		}
	}
	for _, b := range exprBuiltins {
		if b == name {
			return 0, fmt.Errorf("%w: variable %q shadows a builtin", ErrBadOperand, name)
		}
	}
	if len(c.vars) >= MaxVars {
		return 0, fmt.Errorf("%w: %q exceeds %d", ErrTooManyVars, name, MaxVars)
	}
	c.vars = append(c.vars, name)
	return len(c.vars) - 1, nil
}

func (c *compiler) decode(pc int, item any) (Instruction, error) {
	op, arg, ok := splitItem(item)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: expected an op name or single-key map, got %T", ErrUnknownOp, item)
	}
	build, ok := opBuilders[op]
	if !ok {
		return Instruction{}, fmt.Errorf("%w %q", ErrUnknownOp, op)
	}
	ins, err := build(c, arg)
	if err != nil {
		return Instruction{}, fmt.Errorf("%s: %w", op, err)
	}

	switch ins.Op {
	case OpRepeat:
		if len(c.blocks) >= MaxLoopDepth {
			return Instruction{}, fmt.Errorf("%w: repeat nested deeper than %d", ErrUnbalancedBlock, MaxLoopDepth)
		}
		c.blocks = append(c.blocks, pc)
	case OpEnd:
		if len(c.blocks) == 0 {
			return Instruction{}, fmt.Errorf("%w: end without repeat", ErrUnbalancedBlock)
		}
		open := c.blocks[len(c.blocks)-1]
		c.blocks = c.blocks[:len(c.blocks)-1]
		ins.Jump = open
		c.code[open].Jump = pc
	}
	return ins, nil
}

type opBuilder func(c *compiler, arg any) (Instruction, error)

var opBuilders map[string]opBuilder

func init() {
	opBuilders = map[string]opBuilder{
		"wait":         buildWait,
		"hold":         func(*compiler, any) (Instruction, error) { return Instruction{Op: OpHold}, nil },
		"set_velocity": buildSetVelocity,
		"set_speed":    buildSetSpeed,
		"set_angle":    buildSetAngle,
		"aim":          buildAim,
		"accelerate":   buildAccelerate,
		"move_to":      buildMoveTo,
		"repeat":       buildRepeat,
		"end":          func(*compiler, any) (Instruction, error) { return Instruction{Op: OpEnd}, nil },
		"label":        buildLabel,
		"jump":         buildJump,
		"jump_if":      buildJumpIf,
		"set_var":      buildVar(OpSetVar),
		"add_var":      buildVar(OpAddVar),
		"spawn":        buildSpawn,
		"fire":         buildFire,
		"vanish":       func(*compiler, any) (Instruction, error) { return Instruction{Op: OpVanish}, nil },
	}
}

func buildWait(_ *compiler, arg any) (Instruction, error) {
	n, ok := asInt(arg)
	if !ok || n < 0 {
		return Instruction{}, fmt.Errorf("%w: frames must be a non-negative integer", ErrBadOperand)
	}
	return Instruction{Op: OpWait, Frames: n}, nil
}

func buildSetVelocity(_ *compiler, arg any) (Instruction, error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: expected {vx, vy} or {speed, angle}", ErrBadOperand)
	}
	if _, polar := m["speed"]; polar {
		speed, err := floatField(m, "speed", 0)
		if err != nil {
			return Instruction{}, err
		}
		angle, err := floatField(m, "angle", 0)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Op: OpSetVelocity, HasSpeed: true, Speed: speed, Angle: common.DegToRad(angle)}, nil
	}
	vx, err := floatField(m, "vx", 0)
	if err != nil {
		return Instruction{}, err
	}
	vy, err := floatField(m, "vy", 0)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: OpSetVelocity, Vec: common.V(vx, vy)}, nil
}

func buildSetSpeed(_ *compiler, arg any) (Instruction, error) {
	s, ok := asFloat(arg)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: speed must be a number", ErrBadOperand)
	}
	return Instruction{Op: OpSetSpeed, Speed: s}, nil
}

func buildSetAngle(_ *compiler, arg any) (Instruction, error) {
	if a, ok := asFloat(arg); ok {
		return Instruction{Op: OpSetAngle, Angle: common.DegToRad(a)}, nil
	}
	m, ok := arg.(map[string]any)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: expected degrees or {angle, relative}", ErrBadOperand)
	}
	a, err := floatField(m, "angle", 0)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: OpSetAngle, Angle: common.DegToRad(a), Relative: asBool(m["relative"])}, nil
}

func buildAim(_ *compiler, arg any) (Instruction, error) {
	ins := Instruction{Op: OpAim}
	if arg == nil {
		return ins, nil
	}
	if s, ok := asFloat(arg); ok {
		ins.Speed, ins.HasSpeed = s, true
		return ins, nil
	}
	m, ok := arg.(map[string]any)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: expected speed or {speed, offset}", ErrBadOperand)
	}
	if _, ok := m["speed"]; ok {
		s, err := floatField(m, "speed", 0)
		if err != nil {
			return Instruction{}, err
		}
		ins.Speed, ins.HasSpeed = s, true
	}
	off, err := floatField(m, "offset", 0)
	if err != nil {
		return Instruction{}, err
	}
	ins.Angle = common.DegToRad(off)
	return ins, nil
}

func buildAccelerate(_ *compiler, arg any) (Instruction, error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: expected {ax, ay, frames}", ErrBadOperand)
	}
	ax, err := floatField(m, "ax", 0)
	if err != nil {
		return Instruction{}, err
	}
	ay, err := floatField(m, "ay", 0)
	if err != nil {
		return Instruction{}, err
	}
	frames, ok := asInt(m["frames"])
	if !ok || frames < 1 {
		return Instruction{}, fmt.Errorf("%w: frames must be >= 1", ErrBadOperand)
	}
	return Instruction{Op: OpAccelerate, Vec: common.V(ax, ay), Frames: frames}, nil
}

func buildMoveTo(_ *compiler, arg any) (Instruction, error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: expected {x, y, frames} or {player: true, frames}", ErrBadOperand)
	}
	frames, ok := asInt(m["frames"])
	if !ok || frames < 1 {
		return Instruction{}, fmt.Errorf("%w: frames must be >= 1", ErrBadOperand)
	}
	ins := Instruction{Op: OpMoveTo, Frames: frames, AtPlayer: asBool(m["player"])}
	if ins.AtPlayer {
		return ins, nil
	}
	x, err := floatField(m, "x", math.NaN())
	if err != nil {
		return Instruction{}, err
	}
	y, err := floatField(m, "y", math.NaN())
	if err != nil {
		return Instruction{}, err
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return Instruction{}, fmt.Errorf("%w: move_to needs x and y", ErrBadOperand)
	}
	ins.Vec = common.V(x, y)
	return ins, nil
}

func buildRepeat(_ *compiler, arg any) (Instruction, error) {
	if s, ok := arg.(string); ok && strings.TrimSpace(s) == "forever" {
		return Instruction{Op: OpRepeat, Count: Forever}, nil
	}
	n, ok := asInt(arg)
	if !ok || n < 0 {
		return Instruction{}, fmt.Errorf("%w: repeat count must be a non-negative integer or \"forever\"", ErrBadOperand)
	}
	return Instruction{Op: OpRepeat, Count: n}, nil
}

func buildLabel(_ *compiler, arg any) (Instruction, error) {
	label := strings.TrimSpace(asString(arg))
	if label == "" {
		return Instruction{}, fmt.Errorf("%w: label needs a name", ErrBadOperand)
	}
	return Instruction{Op: OpLabel, Label: label}, nil
}

func buildJump(_ *compiler, arg any) (Instruction, error) {
	label := strings.TrimSpace(asString(arg))
	if label == "" {
		return Instruction{}, fmt.Errorf("%w: jump needs a label", ErrBadOperand)
	}
	return Instruction{Op: OpJump, Label: label}, nil
}

func buildJumpIf(c *compiler, arg any) (Instruction, error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: expected {label, subject, op, value} or {label, expr}", ErrBadOperand)
	}
	label := strings.TrimSpace(asString(m["label"]))
	if label == "" {
		return Instruction{}, fmt.Errorf("%w: jump_if needs a label", ErrBadOperand)
	}

	if src, ok := m["expr"]; ok {
		expr, err := CompileExpr(asString(src), c.vars)
		if err != nil {
			return Instruction{}, fmt.Errorf("%w: %v", ErrBadOperand, err)
		}
		return Instruction{Op: OpJumpIf, Label: label, Cond: &Condition{Expr: expr}}, nil
	}

	cond := &Condition{}
	subject := strings.TrimSpace(asString(m["subject"]))
	if name, ok := strings.CutPrefix(subject, "var:"); ok {
		idx, err := c.varIndex(name)
		if err != nil {
			return Instruction{}, err
		}
		cond.Subject, cond.Var = SubjectVar, idx
	} else if s, ok := subjectNames[subject]; ok {
		cond.Subject = s
	} else {
		return Instruction{}, fmt.Errorf("%w: unknown subject %q", ErrBadOperand, subject)
	}

	cmp, ok := cmpNames[strings.TrimSpace(asString(m["op"]))]
	if !ok {
		return Instruction{}, fmt.Errorf("%w: unknown comparison %q", ErrBadOperand, asString(m["op"]))
	}
	cond.Cmp = cmp

	v, err := floatField(m, "value", math.NaN())
	if err != nil {
		return Instruction{}, err
	}
	if math.IsNaN(v) {
		return Instruction{}, fmt.Errorf("%w: jump_if needs a value", ErrBadOperand)
	}
	cond.Value = v
	return Instruction{Op: OpJumpIf, Label: label, Cond: cond}, nil
}

func buildVar(op Op) opBuilder {
	return func(c *compiler, arg any) (Instruction, error) {
		m, ok := arg.(map[string]any)
		if !ok {
			return Instruction{}, fmt.Errorf("%w: expected {name, value}", ErrBadOperand)
		}
		idx, err := c.varIndex(asString(m["name"]))
		if err != nil {
			return Instruction{}, err
		}
		v, err := floatField(m, "value", 0)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Op: op, Var: idx, Value: v}, nil
	}
}

func buildSpawn(c *compiler, arg any) (Instruction, error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: expected {archetype, ...}", ErrBadOperand)
	}
	spec := &SpawnSpec{
		Archetype: strings.TrimSpace(asString(m["archetype"])),
		Script:    strings.TrimSpace(asString(m["script"])),
		Aim:       asBool(m["aim"]),
		Relative:  asBool(m["relative"]),
	}
	if err := c.checkArchetype(spec.Archetype); err != nil {
		return Instruction{}, err
	}
	if err := c.checkScript(spec.Script); err != nil {
		return Instruction{}, err
	}
	fields := []struct {
		key string
		dst *float64
	}{{"speed", &spec.Speed}, {"angle", &spec.Angle}, {"x", &spec.Offset.X}, {"y", &spec.Offset.Y}}
	for _, f := range fields {
		v, err := floatField(m, f.key, 0)
		if err != nil {
			return Instruction{}, err
		}
		*f.dst = v
	}
	spec.Angle = common.DegToRad(spec.Angle)
	return Instruction{Op: OpSpawn, Spawn: spec}, nil
}

func buildFire(c *compiler, arg any) (Instruction, error) {
	spec := &FireSpec{}
	var name string
	switch v := arg.(type) {
	case string:
		name = v
	case map[string]any:
		name = asString(v["pattern"])
		spec.Archetype = strings.TrimSpace(asString(v["archetype"]))
		spec.Script = strings.TrimSpace(asString(v["script"]))
		a, err := floatField(v, "angle", 0)
		if err != nil {
			return Instruction{}, err
		}
		spec.Angle = common.DegToRad(a)
	default:
		return Instruction{}, fmt.Errorf("%w: expected a pattern name or {pattern, ...}", ErrBadOperand)
	}

	name = strings.TrimSpace(name)
	if c.refs == nil {
		return Instruction{}, fmt.Errorf("%w: pattern %q (no resolver)", ErrUnknownReference, name)
	}
	p, ok := c.refs.Pattern(name)
	if !ok {
		return Instruction{}, fmt.Errorf("%w: pattern %q", ErrUnknownReference, name)
	}
	spec.Pattern = p
	if spec.Archetype != "" {
		if err := c.checkArchetype(spec.Archetype); err != nil {
			return Instruction{}, err
		}
	}
	if err := c.checkScript(spec.Script); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: OpFire, Fire: spec}, nil
}

func (c *compiler) checkArchetype(name string) error {
	if name == "" {
		return fmt.Errorf("%w: archetype required", ErrBadOperand)
	}
	if c.refs == nil || !c.refs.HasArchetype(name) {
		return fmt.Errorf("%w: archetype %q", ErrUnknownReference, name)
	}
	return nil
}

func (c *compiler) checkScript(name string) error {
	if name == "" {
		return nil
	}
	if c.refs == nil || !c.refs.HasScript(name) {
		return fmt.Errorf("%w: script %q", ErrUnknownReference, name)
	}
	return nil
}

// splitItem unpacks "op" or {op: arg}.
func splitItem(item any) (string, any, bool) {
	switch v := item.(type) {
	case string:
		return strings.TrimSpace(v), nil, true
	case map[string]any:
		if len(v) != 1 {
			return "", nil, false
		}
		for k, a := range v {
			return strings.TrimSpace(k), a, true
		}
	}
	return "", nil, false
}

// floatField reads an optional numeric field, returning def when absent.
func floatField(m map[string]any, key string, def float64) (float64, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return def, nil
	}
	f, ok := asFloat(raw)
	if !ok || !common.Finite(f) {
		return 0, fmt.Errorf("%w: %s must be a finite number", ErrBadOperand, key)
	}
	return f, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// OpNames lists the instruction names accepted by Compile.
func OpNames() []string {
	names := make([]string, 0, len(opBuilders))
	for name := range opBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
