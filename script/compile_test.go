package script

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/danmaku/pattern"
)

type fakeRefs struct {
	archetypes map[string]bool
	scripts    map[string]bool
	patterns   map[string]*pattern.Pattern
}

func (f fakeRefs) HasArchetype(name string) bool { return f.archetypes[name] }
func (f fakeRefs) HasScript(name string) bool    { return f.scripts[name] }
func (f fakeRefs) Pattern(name string) (*pattern.Pattern, bool) {
	p, ok := f.patterns[name]
	return p, ok
}

func testRefs() fakeRefs {
	return fakeRefs{
		archetypes: map[string]bool{"bullet": true, "fairy": true},
		scripts:    map[string]bool{"curve": true},
		patterns: map[string]*pattern.Pattern{
			"ring2": {Name: "ring2", Kind: pattern.KindRing, Count: 2, Speed: 1, Archetype: "bullet"},
		},
	}
}

func mustCompile(t *testing.T, raw []any) *Program {
	t.Helper()
	p, err := Compile("test", raw, testRefs())
	require.NoError(t, err)
	return p
}

func TestCompileFromYAML(t *testing.T) {
	src := `
- set_velocity: {speed: 2, angle: 90}
- repeat: 3
- fire: ring2
- wait: 10
- end
- label: loop
- aim: {speed: 4, offset: 15}
- jump_if: {label: loop, subject: "var:n", op: "<", value: 2}
- add_var: {name: n, value: 1}
- move_to: {x: 100, y: 50, frames: 20}
- hold
`
	var raw []any
	require.NoError(t, yaml.Unmarshal([]byte(src), &raw))

	p := mustCompile(t, raw)
	require.Equal(t, 11, p.Len())

	assert.Equal(t, OpSetVelocity, p.Code[0].Op)
	assert.True(t, p.Code[0].HasSpeed)
	assert.InDelta(t, math.Pi/2, p.Code[0].Angle, 1e-12)

	assert.Equal(t, OpRepeat, p.Code[1].Op)
	assert.Equal(t, 4, p.Code[1].Jump, "repeat points at its end")
	assert.Equal(t, 1, p.Code[4].Jump, "end points at its repeat")

	assert.Equal(t, 5, p.Code[7].Jump)
	assert.Equal(t, SubjectVar, p.Code[7].Cond.Subject)
	assert.Equal(t, CmpLT, p.Code[7].Cond.Cmp)
	assert.Equal(t, []string{"n"}, p.Vars)

	assert.Equal(t, OpHold, p.Code[10].Op)
}

func TestCompileRejectsAuthoringErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []any
		want error
	}{
		{
			name: "unknown op",
			raw:  []any{"teleport"},
			want: ErrUnknownOp,
		},
		{
			name: "undefined label",
			raw:  []any{map[string]any{"jump": "nowhere"}},
			want: ErrUndefinedLabel,
		},
		{
			name: "duplicate label",
			raw:  []any{map[string]any{"label": "a"}, map[string]any{"wait": 1}, map[string]any{"label": "a"}},
			want: ErrDuplicateLabel,
		},
		{
			name: "end without repeat",
			raw:  []any{map[string]any{"wait": 1}, "end"},
			want: ErrUnbalancedBlock,
		},
		{
			name: "repeat without end",
			raw:  []any{map[string]any{"repeat": 2}, map[string]any{"wait": 1}},
			want: ErrUnbalancedBlock,
		},
		{
			name: "unknown archetype",
			raw:  []any{map[string]any{"spawn": map[string]any{"archetype": "dragon"}}},
			want: ErrUnknownReference,
		},
		{
			name: "unknown pattern",
			raw:  []any{map[string]any{"fire": "nova"}},
			want: ErrUnknownReference,
		},
		{
			name: "unknown script",
			raw:  []any{map[string]any{"spawn": map[string]any{"archetype": "bullet", "script": "zigzag"}}},
			want: ErrUnknownReference,
		},
		{
			name: "forever without wait",
			raw:  []any{map[string]any{"repeat": "forever"}, map[string]any{"fire": "ring2"}, "end"},
			want: ErrInfiniteLoop,
		},
		{
			name: "backward jump without wait",
			raw:  []any{map[string]any{"label": "a"}, map[string]any{"wait": 0}, map[string]any{"jump": "a"}},
			want: ErrInfiniteLoop,
		},
		{
			name: "move_to needs frames",
			raw:  []any{map[string]any{"move_to": map[string]any{"x": 1, "y": 1, "frames": 0}}},
			want: ErrBadOperand,
		},
		{
			name: "negative wait",
			raw:  []any{map[string]any{"wait": -3}},
			want: ErrBadOperand,
		},
		{
			name: "non finite speed",
			raw:  []any{map[string]any{"set_velocity": map[string]any{"speed": math.Inf(1)}}},
			want: ErrBadOperand,
		},
		{
			name: "variable shadows builtin",
			raw:  []any{map[string]any{"set_var": map[string]any{"name": "age", "value": 1}}},
			want: ErrBadOperand,
		},
		{
			name: "bad expression",
			raw:  []any{map[string]any{"label": "a"}, map[string]any{"jump_if": map[string]any{"label": "a", "expr": "age >"}}},
			want: ErrBadOperand,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile("bad", tt.raw, testRefs())
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCompileReportsEveryError(t *testing.T) {
	raw := []any{"teleport", map[string]any{"jump": "nowhere"}, "end"}
	_, err := Compile("many", raw, testRefs())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownOp)
	assert.ErrorIs(t, err, ErrUndefinedLabel)
	assert.ErrorIs(t, err, ErrUnbalancedBlock)
}

func TestCompileLimitsVariables(t *testing.T) {
	var raw []any
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		raw = append(raw, map[string]any{"set_var": map[string]any{"name": name, "value": 1}})
	}
	_, err := Compile("vars", raw, testRefs())
	assert.ErrorIs(t, err, ErrTooManyVars)
}

func TestCompileLimitsNesting(t *testing.T) {
	var raw []any
	for i := 0; i <= MaxLoopDepth; i++ {
		raw = append(raw, map[string]any{"repeat": 2})
	}
	raw = append(raw, map[string]any{"wait": 1})
	for i := 0; i <= MaxLoopDepth; i++ {
		raw = append(raw, "end")
	}
	_, err := Compile("deep", raw, testRefs())
	assert.ErrorIs(t, err, ErrUnbalancedBlock)
}

func TestForeverWithWaitCompiles(t *testing.T) {
	p := mustCompile(t, []any{
		map[string]any{"repeat": "forever"},
		map[string]any{"fire": "ring2"},
		map[string]any{"wait": 5},
		"end",
	})
	assert.Equal(t, Forever, p.Code[0].Count)
}
