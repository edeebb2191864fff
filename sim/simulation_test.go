package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/prefabs"
	"github.com/milk9111/danmaku/stage"
)

const blinkStage = `
name: blink
player:
  archetype: ship
  speed: 3
  fire_rate: 4
  shot: single
archetypes:
  ship:
    category: player
    hitbox: { radius: 2 }
    health: 3
  shot:
    category: player_bullet
    hitbox: { radius: 2 }
    damage: 1
  fairy:
    category: enemy
    hitbox: { radius: 8 }
    health: 50
    script: blink
  orb:
    category: enemy_bullet
    hitbox: { radius: 3 }
    damage: 1
patterns:
  single:
    kind: aimed
    count: 1
    speed: 10
    angle: -90
    archetype: shot
  ring4:
    kind: ring
    count: 4
    speed: 3
    archetype: orb
scripts:
  blink:
    - wait: 5
    - fire: ring4
    - vanish
timeline:
  - at: 3
    archetype: fairy
    count: 2
    formation: { kind: line, x: 200, y: 100, dx: 80 }
`

func buildStage(t *testing.T, src string) *stage.Stage {
	t.Helper()
	spec, err := prefabs.ParseStage([]byte(src))
	require.NoError(t, err)
	st, err := prefabs.Build(spec)
	require.NoError(t, err)
	return st
}

func newSim(t *testing.T, st *stage.Stage) *Simulation {
	t.Helper()
	s, err := New(st, Options{})
	require.NoError(t, err)
	return s
}

// scriptedIntent is a fixed input sequence that moves, focuses, fires and
// bombs once.
func scriptedIntent(tick int) Intent {
	in := Intent{Fire: tick%3 != 0}
	switch (tick / 40) % 4 {
	case 0:
		in.MoveX = -1
	case 1:
		in.MoveY = -0.5
	case 2:
		in.MoveX, in.MoveY = 1, 1
		in.Focus = true
	}
	in.Special = tick == 500
	return in
}

func TestNewRejectsInvalidStage(t *testing.T) {
	_, err := New(nil, Options{})
	assert.ErrorIs(t, err, ErrNoStage)

	broken := stage.New("broken")
	tl, err := stage.NewTimeline(nil)
	require.NoError(t, err)
	broken.Timeline = tl

	_, err = New(broken, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, stage.ErrUnknownName)
}

func TestPlayerPendingUntilFirstTick(t *testing.T) {
	s := newSim(t, buildStage(t, blinkStage))

	snap := s.Snapshot()
	assert.Equal(t, uint64(0), snap.Tick)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, component.CategoryPlayer, snap.Entities[0].Category)
	assert.False(t, snap.Entities[0].Alive)
	assert.Equal(t, 240.0, snap.Entities[0].X)
	assert.Equal(t, 560.0, snap.Entities[0].Y)

	s.Tick(Intent{})
	snap = s.Snapshot()
	assert.Equal(t, uint64(1), snap.Tick)
	require.Len(t, snap.Entities, 1)
	assert.True(t, snap.Entities[0].Alive)
	assert.True(t, snap.Player.Alive)
	assert.Equal(t, 3, snap.Player.Health)
}

func TestDeterministicDigests(t *testing.T) {
	st, err := prefabs.BuildStage("stage1")
	require.NoError(t, err)

	a := newSim(t, st)
	b := newSim(t, st)
	require.Equal(t, a.Digest(), b.Digest())

	most := 0
	for tick := 0; tick < 900; tick++ {
		in := scriptedIntent(tick)
		a.Tick(in)
		b.Tick(in)

		sa, sb := a.Snapshot(), b.Snapshot()
		require.Equal(t, sa.Digest(), sb.Digest(), "tick %d", tick)
		most = max(most, len(sa.Entities))
	}
	assert.Greater(t, most, 10, "the stage should have put bullets on screen")
}

// runDigests ticks a fresh simulation of st and returns every digest.
func runDigests(st *stage.Stage, ticks int) ([]uint64, error) {
	s, err := New(st, Options{})
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, ticks)
	for tick := 0; tick < ticks; tick++ {
		s.Tick(scriptedIntent(tick))
		out = append(out, s.Digest())
	}
	return out, nil
}

func TestConcurrentSimulationsShareStage(t *testing.T) {
	st, err := prefabs.BuildStage("stage1")
	require.NoError(t, err)

	const ticks = 900
	serial, err := runDigests(st, ticks)
	require.NoError(t, err)

	results := make([][]uint64, 4)
	errs := make([]error, len(results))
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = runDigests(st, ticks)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, serial, results[i], "simulation %d", i)
	}
}

func TestDigestTracksState(t *testing.T) {
	s := newSim(t, buildStage(t, blinkStage))
	before := s.Digest()
	s.Tick(Intent{MoveX: 1})
	assert.NotEqual(t, before, s.Digest())
}

func TestPauseFreezesEverything(t *testing.T) {
	s := newSim(t, buildStage(t, blinkStage))
	for range 4 {
		s.Tick(Intent{Fire: true})
	}

	s.Pause()
	assert.True(t, s.Paused())
	assert.True(t, s.Director().Paused())
	frozen := s.Snapshot()
	for range 10 {
		s.Tick(Intent{Fire: true, MoveX: 1})
	}
	assert.Equal(t, frozen.Digest(), s.Digest())
	assert.Equal(t, uint64(4), s.Snapshot().Tick)

	s.Resume()
	s.Tick(Intent{})
	assert.Equal(t, uint64(5), s.Snapshot().Tick)
}

func TestResetRestartsStage(t *testing.T) {
	s := newSim(t, buildStage(t, blinkStage))
	for range 20 {
		s.Tick(Intent{Fire: true})
	}
	require.NotEmpty(t, s.Events())

	require.NoError(t, s.Reset())
	snap := s.Snapshot()
	assert.Equal(t, uint64(0), snap.Tick)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, component.CategoryPlayer, snap.Entities[0].Category)
	assert.Equal(t, stage.StateRunning, snap.Director.State)
	assert.Equal(t, 0, snap.Director.Clock)
	assert.Empty(t, s.Events())
}

func TestStageRunsToCompletion(t *testing.T) {
	s := newSim(t, buildStage(t, blinkStage))

	var kinds []ecs.EventKind
	for range 100 {
		s.Tick(Intent{})
		for _, evt := range s.Events() {
			kinds = append(kinds, evt.Kind)
		}
		if s.Director().State() == stage.StateComplete {
			break
		}
	}

	require.Equal(t, stage.StateComplete, s.Director().State())
	assert.Equal(t, []ecs.EventKind{ecs.EventWaveCleared, ecs.EventStageComplete}, kinds)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Director.Waves)
	assert.Equal(t, 1, snap.Director.Cleared)
	assert.Empty(t, s.Events(), "events are drained once")
}

func TestReloadSwapsStage(t *testing.T) {
	s := newSim(t, buildStage(t, blinkStage))
	s.Tick(Intent{})

	st, err := prefabs.BuildStage("stage1")
	require.NoError(t, err)
	require.NoError(t, s.Reload(st))

	assert.Equal(t, "stage1", s.Stage().Name)
	assert.Equal(t, uint64(0), s.Snapshot().Tick)
	assert.Error(t, s.Reload(nil))
}
