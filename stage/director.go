package stage

import (
	"errors"

	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
)

var ErrNoTimeline = errors.New("stage: no timeline")

type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateTransitioning
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTransitioning:
		return "transitioning"
	case StateComplete:
		return "complete"
	}
	return "idle"
}

// Spawner is the part of the world the director drives.
type Spawner interface {
	Spawn(req component.SpawnRequest) (ecs.Entity, bool)
	IsAlive(e ecs.Entity) bool
	Emit(evt ecs.Event)
}

type wave struct {
	handles []ecs.Entity
	cleared bool
}

// Director walks a Timeline against a tick clock. It owns only the clock,
// the cursor and the waves it spawned; the timeline is shared and read-only.
type Director struct {
	timeline   *Timeline
	state      State
	paused     bool
	clock      int
	cursor     int
	holdLeft   int
	transition string
	waves      []wave
	positions  []common.Vec
}

func NewDirector() *Director {
	return &Director{}
}

// Start begins t from tick 0. Any previous run is discarded.
func (d *Director) Start(t *Timeline) error {
	if d == nil {
		return ErrNoTimeline
	}
	if t == nil {
		return ErrNoTimeline
	}
	d.Reset()
	d.timeline = t
	d.state = StateRunning
	return nil
}

// Reset returns to Idle and forgets the timeline.
func (d *Director) Reset() {
	if d == nil {
		return
	}
	*d = Director{positions: d.positions[:0]}
}

func (d *Director) Pause() {
	if d == nil {
		return
	}
	d.paused = true
}

func (d *Director) Resume() {
	if d == nil {
		return
	}
	d.paused = false
}

func (d *Director) Paused() bool {
	return d != nil && d.paused
}

func (d *Director) State() State {
	if d == nil {
		return StateIdle
	}
	return d.state
}

// Clock is the next tick to be processed.
func (d *Director) Clock() int {
	if d == nil {
		return 0
	}
	return d.clock
}

// Cursor is the number of events fired so far.
func (d *Director) Cursor() int {
	if d == nil {
		return 0
	}
	return d.cursor
}

// HoldLeft is the number of frozen ticks remaining in a transition.
func (d *Director) HoldLeft() int {
	if d == nil {
		return 0
	}
	return d.holdLeft
}

// Transition names the last transition fired.
func (d *Director) Transition() string {
	if d == nil {
		return ""
	}
	return d.transition
}

// Waves returns how many waves were spawned and how many are cleared.
func (d *Director) Waves() (spawned, cleared int) {
	if d == nil {
		return 0, 0
	}
	for _, w := range d.waves {
		if w.cleared {
			cleared++
		}
	}
	return len(d.waves), cleared
}

// Advance processes one tick: it fires every due event in order, then moves
// the clock. While transitioning the clock stays frozen for the hold.
func (d *Director) Advance(sp Spawner) {
	if d == nil || sp == nil || d.paused {
		return
	}
	switch d.state {
	case StateIdle, StateComplete:
		return
	case StateTransitioning:
		d.updateWaves(sp)
		d.holdLeft--
		if d.holdLeft <= 0 {
			d.holdLeft = 0
			d.state = StateRunning
		}
		return
	}

	d.updateWaves(sp)
	d.checkComplete(sp)
	if d.state != StateRunning {
		return
	}

	for d.cursor < d.timeline.Len() {
		evt := d.timeline.Event(d.cursor)
		if evt.At > d.clock {
			break
		}
		d.cursor++
		if d.fire(sp, evt) {
			break
		}
	}
	d.clock++
}

// fire runs one event and reports whether it started a transition.
func (d *Director) fire(sp Spawner, evt Event) bool {
	switch evt.Kind {
	case EventSpawn:
		d.spawnWave(sp, evt)
	case EventTransition:
		d.transition = evt.Name
		sp.Emit(ecs.Event{Kind: ecs.EventStageTransition, Name: evt.Name, Value: evt.Hold})
		if evt.Hold > 0 {
			d.state = StateTransitioning
			d.holdLeft = evt.Hold
			return true
		}
	}
	return false
}

func (d *Director) spawnWave(sp Spawner, evt Event) {
	index := len(d.waves)
	d.positions = evt.Formation.Positions(evt.Count, d.positions[:0])
	vel := common.FromAngle(evt.Angle, evt.Speed)

	w := wave{handles: make([]ecs.Entity, 0, evt.Count)}
	for _, pos := range d.positions {
		e, ok := sp.Spawn(component.SpawnRequest{
			Archetype: evt.Archetype,
			Script:    evt.Script,
			Position:  pos,
			Velocity:  vel,
			Wave:      index,
		})
		if ok {
			w.handles = append(w.handles, e)
		}
	}
	d.waves = append(d.waves, w)
}

func (d *Director) updateWaves(sp Spawner) {
	for i := range d.waves {
		w := &d.waves[i]
		if w.cleared {
			continue
		}
		alive := false
		for _, e := range w.handles {
			if sp.IsAlive(e) {
				alive = true
				break
			}
		}
		if !alive {
			w.cleared = true
			sp.Emit(ecs.Event{Kind: ecs.EventWaveCleared, Wave: i})
		}
	}
}

// checkComplete ends the stage once every event has fired and the last
// spawned wave is gone.
func (d *Director) checkComplete(sp Spawner) {
	if d.cursor < d.timeline.Len() {
		return
	}
	if n := len(d.waves); n > 0 && !d.waves[n-1].cleared {
		return
	}
	d.state = StateComplete
	sp.Emit(ecs.Event{Kind: ecs.EventStageComplete, Value: d.clock})
}
