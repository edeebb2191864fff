package pattern

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/danmaku/common"
)

func TestRingSpreadsEvenly(t *testing.T) {
	p := &Pattern{Name: "ring", Kind: KindRing, Count: 4, Speed: 2, Radius: 10, Archetype: "b"}
	require.NoError(t, p.Validate())

	shots := p.Generate(Origin{Pos: common.V(100, 100)})
	require.Len(t, shots, 4)

	want := []common.Vec{common.V(2, 0), common.V(0, 2), common.V(-2, 0), common.V(0, -2)}
	for i, s := range shots {
		assert.InDelta(t, want[i].X, s.Velocity.X, 1e-9)
		assert.InDelta(t, want[i].Y, s.Velocity.Y, 1e-9)
		assert.InDelta(t, 10, common.Length(s.Offset), 1e-9)
		assert.Equal(t, "b", s.Archetype)
	}
}

func TestAimedFansAroundTarget(t *testing.T) {
	p := &Pattern{Name: "fan", Kind: KindAimed, Count: 3, Speed: 1, Spread: math.Pi / 2, Archetype: "b"}
	shots := p.Generate(Origin{Pos: common.V(0, 0), Target: common.V(0, 50), HasTarget: true})
	require.Len(t, shots, 3)

	assert.InDelta(t, math.Pi/4, common.Angle(shots[0].Velocity), 1e-9)
	assert.InDelta(t, math.Pi/2, common.Angle(shots[1].Velocity), 1e-9)
	assert.InDelta(t, 3*math.Pi/4, common.Angle(shots[2].Velocity), 1e-9)
}

func TestSpiralAdvancesWithShotIndex(t *testing.T) {
	p := &Pattern{Name: "spiral", Kind: KindSpiral, Count: 1, Speed: 1, Step: 0.25, Archetype: "b"}
	first := p.Generate(Origin{Shot: 0})
	third := p.Generate(Origin{Shot: 2})
	assert.InDelta(t, 0, common.Angle(first[0].Velocity), 1e-9)
	assert.InDelta(t, 0.5, common.Angle(third[0].Velocity), 1e-9)

	again := p.Generate(Origin{Shot: 2})
	assert.Equal(t, third, again)
}

func TestBurstRampsSpeed(t *testing.T) {
	p := &Pattern{Name: "burst", Kind: KindBurst, Count: 3, Speed: 1, SpeedMax: 3, Archetype: "b"}
	shots := p.Generate(Origin{})
	require.Len(t, shots, 3)
	assert.InDelta(t, 1, common.Length(shots[0].Velocity), 1e-9)
	assert.InDelta(t, 2, common.Length(shots[1].Velocity), 1e-9)
	assert.InDelta(t, 3, common.Length(shots[2].Velocity), 1e-9)
}

func TestValidateRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		p    Pattern
	}{
		{"no_kind", Pattern{Count: 1, Speed: 1, Archetype: "b"}},
		{"zero_count", Pattern{Kind: KindRing, Speed: 1, Archetype: "b"}},
		{"zero_speed", Pattern{Kind: KindRing, Count: 1, Archetype: "b"}},
		{"nan_speed", Pattern{Kind: KindRing, Count: 1, Speed: math.NaN(), Archetype: "b"}},
		{"negative_spread", Pattern{Kind: KindAimed, Count: 1, Speed: 1, Spread: -1, Archetype: "b"}},
		{"burst_max_below", Pattern{Kind: KindBurst, Count: 2, Speed: 2, SpeedMax: 1, Archetype: "b"}},
		{"no_archetype", Pattern{Kind: KindRing, Count: 1, Speed: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
		})
	}
}
