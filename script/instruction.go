// Package script implements the movement script language: a tagged
// instruction array compiled once from data, executed one tick at a time
// against per-entity state.
package script

import (
	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/pattern"
)

type Op uint8

const (
	OpNop Op = iota
	OpWait
	OpHold
	OpSetVelocity
	OpSetSpeed
	OpSetAngle
	OpAim
	OpAccelerate
	OpMoveTo
	OpRepeat
	OpEnd
	OpLabel
	OpJump
	OpJumpIf
	OpSetVar
	OpAddVar
	OpSpawn
	OpFire
	OpVanish
)

var opNames = map[string]Op{
	"wait":         OpWait,
	"hold":         OpHold,
	"set_velocity": OpSetVelocity,
	"set_speed":    OpSetSpeed,
	"set_angle":    OpSetAngle,
	"aim":          OpAim,
	"accelerate":   OpAccelerate,
	"move_to":      OpMoveTo,
	"repeat":       OpRepeat,
	"end":          OpEnd,
	"label":        OpLabel,
	"jump":         OpJump,
	"jump_if":      OpJumpIf,
	"set_var":      OpSetVar,
	"add_var":      OpAddVar,
	"spawn":        OpSpawn,
	"fire":         OpFire,
	"vanish":       OpVanish,
}

func (o Op) String() string {
	for name, op := range opNames {
		if op == o {
			return name
		}
	}
	return "nop"
}

// Timed reports whether the op consumes frames rather than executing
// instantly.
func (o Op) Timed() bool {
	switch o {
	case OpWait, OpHold, OpAccelerate, OpMoveTo:
		return true
	}
	return false
}

// Instruction is one tagged step. Only the fields relevant to Op are set.
type Instruction struct {
	Op Op

	Frames   int
	Count    int // repeat iterations, Forever for an unbounded loop
	Jump     int // jump target; repeat -> matching end; end -> matching repeat
	Var      int
	Vec      common.Vec
	Speed    float64
	HasSpeed bool
	Angle    float64 // radians
	Relative bool
	AtPlayer bool
	Value    float64
	Label    string

	Cond  *Condition
	Spawn *SpawnSpec
	Fire  *FireSpec
}

const Forever = -1

// SpawnSpec describes a single entity spawned by a script.
type SpawnSpec struct {
	Archetype string
	Script    string
	Offset    common.Vec
	Speed     float64
	Angle     float64
	Aim       bool // angle is relative to the direction of the player
	Relative  bool // angle is relative to the spawner's heading
}

// FireSpec delegates to a bullet pattern. Archetype and Script override the
// pattern's own values when set.
type FireSpec struct {
	Pattern   *pattern.Pattern
	Archetype string
	Script    string
	Angle     float64
}
