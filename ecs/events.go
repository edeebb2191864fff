package ecs

import "github.com/milk9111/danmaku/ecs/component"

type EventKind uint8

const (
	EventEnemyDestroyed EventKind = iota + 1
	EventPlayerHit
	EventPlayerDestroyed
	EventPowerUpCollected
	EventBombUsed
	EventWaveCleared
	EventStageTransition
	EventStageComplete
	EventSpawnDropped
)

var eventNames = map[EventKind]string{
	EventEnemyDestroyed:   "enemy_destroyed",
	EventPlayerHit:        "player_hit",
	EventPlayerDestroyed:  "player_destroyed",
	EventPowerUpCollected: "power_up_collected",
	EventBombUsed:         "bomb_used",
	EventWaveCleared:      "wave_cleared",
	EventStageTransition:  "stage_transition",
	EventStageComplete:    "stage_complete",
	EventSpawnDropped:     "spawn_dropped",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is a gameplay notification for score, audio and UI consumers.
// Fields not meaningful for Kind are zero.
type Event struct {
	Kind     EventKind
	Tick     uint64
	Entity   Entity
	Other    Entity // the entity that caused it, e.g. the bullet
	Category component.Category
	Value    int // score, damage or power amount
	Wave     int
	Name     string // archetype or transition name
}

// EventSink receives events at the end of every tick, in emission order.
type EventSink interface {
	Emit(Event)
}

// EventQueue is a simple FIFO queue.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Emit implements EventSink.
func (q *EventQueue) Emit(evt Event) {
	q.Push(evt)
}

func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *EventQueue) flush() {
	if q == nil {
		return
	}
	q.items = q.items[:0]
}
