package stage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
)

type fakeSpawner struct {
	next   ecs.Entity
	alive  map[ecs.Entity]bool
	reqs   []component.SpawnRequest
	events []ecs.Event
	full   bool
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{alive: map[ecs.Entity]bool{}}
}

func (f *fakeSpawner) Spawn(req component.SpawnRequest) (ecs.Entity, bool) {
	if f.full {
		return 0, false
	}
	f.next++
	f.alive[f.next] = true
	f.reqs = append(f.reqs, req)
	return f.next, true
}

func (f *fakeSpawner) IsAlive(e ecs.Entity) bool { return f.alive[e] }
func (f *fakeSpawner) Emit(evt ecs.Event)        { f.events = append(f.events, evt) }

func (f *fakeSpawner) killAll() {
	for e := range f.alive {
		delete(f.alive, e)
	}
}

func (f *fakeSpawner) kinds() []ecs.EventKind {
	var out []ecs.EventKind
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

func spawnAt(at int, archetype string, count int) Event {
	return Event{At: at, Kind: EventSpawn, Archetype: archetype, Count: count, Formation: Formation{Kind: FormationSingle}}
}

func TestTimelineOrdersStably(t *testing.T) {
	tl, err := NewTimeline([]Event{
		spawnAt(7, "c", 1),
		spawnAt(3, "a", 1),
		spawnAt(3, "b", 1),
	})
	require.NoError(t, err)

	var got []string
	for _, e := range tl.Events() {
		got = append(got, e.Archetype)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 3, tl.SpawnCount())
}

func TestTimelineRejectsInvalidEvents(t *testing.T) {
	tests := []struct {
		name string
		evt  Event
	}{
		{"negative tick", spawnAt(-1, "a", 1)},
		{"no archetype", spawnAt(0, "", 1)},
		{"zero count", spawnAt(0, "a", 0)},
		{"bad formation", Event{Kind: EventSpawn, Archetype: "a", Count: 1}},
		{"nan formation", Event{Kind: EventSpawn, Archetype: "a", Count: 1, Formation: Formation{Kind: FormationLine, DX: math.NaN()}}},
		{"negative hold", Event{Kind: EventTransition, Hold: -2}},
		{"unknown kind", Event{At: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTimeline([]Event{tt.evt})
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestFormationPositions(t *testing.T) {
	tests := []struct {
		name string
		f    Formation
		n    int
		want []common.Vec
	}{
		{"single", Formation{Kind: FormationSingle, X: 5, Y: 6}, 2, []common.Vec{common.V(5, 6), common.V(5, 6)}},
		{"line", Formation{Kind: FormationLine, X: 0, Y: 10, DX: 20}, 3, []common.Vec{common.V(0, 10), common.V(20, 10), common.V(40, 10)}},
		{"v", Formation{Kind: FormationV, X: 100, Y: 0, DX: 10, DY: -5}, 5, []common.Vec{
			common.V(100, 0), common.V(90, -5), common.V(110, -5), common.V(80, -10), common.V(120, -10),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Positions(tt.n, nil))
		})
	}

	circle := Formation{Kind: FormationCircle, X: 50, Y: 50, Radius: 10}.Positions(4, nil)
	require.Len(t, circle, 4)
	assert.InDelta(t, 60, circle[0].X, 1e-9)
	assert.InDelta(t, 60, circle[1].Y, 1e-9)
	assert.InDelta(t, 40, circle[2].X, 1e-9)
}

func TestDirectorFiresEventsAtTheirTick(t *testing.T) {
	tl, err := NewTimeline([]Event{spawnAt(7, "c", 1), spawnAt(3, "a", 2), spawnAt(3, "b", 1)})
	require.NoError(t, err)
	d := NewDirector()
	require.NoError(t, d.Start(tl))
	assert.Equal(t, StateRunning, d.State())

	sp := newFakeSpawner()
	spawnedAt := map[string]int{}
	for tick := 0; tick < 10; tick++ {
		before := len(sp.reqs)
		d.Advance(sp)
		for _, r := range sp.reqs[before:] {
			if _, ok := spawnedAt[r.Archetype]; !ok {
				spawnedAt[r.Archetype] = tick
			}
		}
	}
	assert.Equal(t, map[string]int{"a": 3, "b": 3, "c": 7}, spawnedAt)

	var order []string
	var waves []int
	for _, r := range sp.reqs {
		order = append(order, r.Archetype)
		waves = append(waves, r.Wave)
	}
	assert.Equal(t, []string{"a", "a", "b", "c"}, order)
	assert.Equal(t, []int{0, 0, 1, 2}, waves)
	assert.Equal(t, 10, d.Clock())
}

func TestDirectorWavesAndCompletion(t *testing.T) {
	tl, err := NewTimeline([]Event{spawnAt(0, "a", 2), spawnAt(2, "b", 1)})
	require.NoError(t, err)
	d := NewDirector()
	require.NoError(t, d.Start(tl))
	sp := newFakeSpawner()

	d.Advance(sp) // tick 0: wave 0
	sp.killAll()
	d.Advance(sp) // tick 1: wave 0 cleared
	assert.Equal(t, []ecs.EventKind{ecs.EventWaveCleared}, sp.kinds())
	assert.Equal(t, 0, sp.events[0].Wave)

	d.Advance(sp) // tick 2: wave 1
	d.Advance(sp)
	assert.Equal(t, StateRunning, d.State(), "final wave still alive")

	sp.killAll()
	d.Advance(sp)
	assert.Equal(t, StateComplete, d.State())
	assert.Equal(t, []ecs.EventKind{ecs.EventWaveCleared, ecs.EventWaveCleared, ecs.EventStageComplete}, sp.kinds())

	clock := d.Clock()
	d.Advance(sp)
	assert.Equal(t, clock, d.Clock(), "complete is terminal")
	spawned, cleared := d.Waves()
	assert.Equal(t, 2, spawned)
	assert.Equal(t, 2, cleared)
}

func TestDirectorDroppedWaveCountsAsCleared(t *testing.T) {
	tl, err := NewTimeline([]Event{spawnAt(0, "a", 3)})
	require.NoError(t, err)
	d := NewDirector()
	require.NoError(t, d.Start(tl))
	sp := newFakeSpawner()
	sp.full = true

	d.Advance(sp)
	d.Advance(sp)
	assert.Equal(t, StateComplete, d.State())
}

func TestDirectorTransitionFreezesClock(t *testing.T) {
	tl, err := NewTimeline([]Event{
		{At: 1, Kind: EventTransition, Name: "boss", Hold: 3},
		spawnAt(2, "boss", 1),
	})
	require.NoError(t, err)
	d := NewDirector()
	require.NoError(t, d.Start(tl))
	sp := newFakeSpawner()

	d.Advance(sp) // tick 0
	d.Advance(sp) // tick 1: transition fires
	assert.Equal(t, StateTransitioning, d.State())
	assert.Equal(t, "boss", d.Transition())
	assert.Equal(t, 2, d.Clock())

	for i := 0; i < 3; i++ {
		assert.Empty(t, sp.reqs)
		assert.Equal(t, 2, d.Clock())
		d.Advance(sp)
	}
	assert.Equal(t, StateRunning, d.State())

	d.Advance(sp)
	require.Len(t, sp.reqs, 1)
	assert.Equal(t, "boss", sp.reqs[0].Archetype)
	assert.Equal(t, ecs.EventStageTransition, sp.events[0].Kind)
}

func TestDirectorPauseAndReset(t *testing.T) {
	tl, err := NewTimeline([]Event{spawnAt(1, "a", 1)})
	require.NoError(t, err)
	d := NewDirector()
	require.NoError(t, d.Start(tl))
	sp := newFakeSpawner()

	d.Advance(sp)
	d.Pause()
	for i := 0; i < 5; i++ {
		d.Advance(sp)
	}
	assert.True(t, d.Paused())
	assert.Equal(t, 1, d.Clock())
	assert.Empty(t, sp.reqs)

	d.Resume()
	d.Advance(sp)
	assert.Len(t, sp.reqs, 1)

	d.Reset()
	assert.Equal(t, StateIdle, d.State())
	assert.Zero(t, d.Clock())
	d.Advance(sp)
	assert.Zero(t, d.Clock(), "idle does not tick")
	assert.ErrorIs(t, d.Start(nil), ErrNoTimeline)
}

func TestEmptyTimelineCompletesImmediately(t *testing.T) {
	tl, err := NewTimeline(nil)
	require.NoError(t, err)
	d := NewDirector()
	require.NoError(t, d.Start(tl))
	sp := newFakeSpawner()
	d.Advance(sp)
	assert.Equal(t, StateComplete, d.State())
}

func TestStageValidate(t *testing.T) {
	s := New("test")
	s.Archetypes["ship"] = component.Archetype{Name: "ship", Category: component.CategoryPlayer}
	s.Archetypes["fairy"] = component.Archetype{Name: "fairy", Category: component.CategoryEnemy, Script: "missing"}
	s.PlayerArchetype = "ship"
	tl, err := NewTimeline([]Event{spawnAt(0, "ghost", 1)})
	require.NoError(t, err)
	s.Timeline = tl

	err = s.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownName)
	assert.Contains(t, err.Error(), `"missing"`)
	assert.Contains(t, err.Error(), `"ghost"`)

	s.Archetypes["fairy"] = component.Archetype{Name: "fairy", Category: component.CategoryEnemy}
	s.Timeline, _ = NewTimeline([]Event{spawnAt(0, "fairy", 1)})
	assert.NoError(t, s.Validate())
}
