package stage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/milk9111/danmaku/common"
)

var ErrInvalidEvent = errors.New("stage: invalid event")

type EventKind uint8

const (
	EventSpawn EventKind = iota + 1
	EventTransition
)

func ParseEventKind(name string) (EventKind, bool) {
	switch name {
	case "spawn":
		return EventSpawn, true
	case "transition":
		return EventTransition, true
	}
	return 0, false
}

func (k EventKind) String() string {
	switch k {
	case EventSpawn:
		return "spawn"
	case EventTransition:
		return "transition"
	}
	return "unknown"
}

// Event is one scheduled timeline entry.
type Event struct {
	At   int
	Kind EventKind

	// spawn
	Archetype string
	Script    string
	Count     int
	Formation Formation
	Speed     float64
	Angle     float64 // radians

	// transition
	Name string
	Hold int
}

func (e Event) Validate() error {
	if e.At < 0 {
		return fmt.Errorf("%w: tick %d is negative", ErrInvalidEvent, e.At)
	}
	switch e.Kind {
	case EventSpawn:
		if e.Archetype == "" {
			return fmt.Errorf("%w: spawn at %d has no archetype", ErrInvalidEvent, e.At)
		}
		if e.Count < 1 {
			return fmt.Errorf("%w: spawn at %d has count %d", ErrInvalidEvent, e.At, e.Count)
		}
		if !common.Finite(e.Speed) || !common.Finite(e.Angle) {
			return fmt.Errorf("%w: spawn at %d has a non-finite velocity", ErrInvalidEvent, e.At)
		}
		if err := e.Formation.Validate(); err != nil {
			return fmt.Errorf("spawn at %d: %w", e.At, err)
		}
	case EventTransition:
		if e.Hold < 0 {
			return fmt.Errorf("%w: transition at %d has negative hold", ErrInvalidEvent, e.At)
		}
	default:
		return fmt.Errorf("%w: unknown kind at %d", ErrInvalidEvent, e.At)
	}
	return nil
}

// Timeline is the read-only, tick-ordered event list of a stage.
type Timeline struct {
	events []Event
}

// NewTimeline validates events and sorts them by tick. Events sharing a
// tick keep their authoring order.
func NewTimeline(events []Event) (*Timeline, error) {
	sorted := append([]Event(nil), events...)
	var errs []error
	for i, e := range sorted {
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })
	return &Timeline{events: sorted}, nil
}

func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.events)
}

// Event returns the i-th event in firing order.
func (t *Timeline) Event(i int) Event {
	return t.events[i]
}

func (t *Timeline) Events() []Event {
	if t == nil {
		return nil
	}
	return append([]Event(nil), t.events...)
}

// SpawnCount is the number of spawn events, which is also the number of
// waves the timeline produces.
func (t *Timeline) SpawnCount() int {
	n := 0
	for _, e := range t.Events() {
		if e.Kind == EventSpawn {
			n++
		}
	}
	return n
}
