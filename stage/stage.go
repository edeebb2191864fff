// Package stage holds a loaded stage: its timeline, the named archetypes,
// scripts and patterns it references, and the Director that plays it.
package stage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/pattern"
	"github.com/milk9111/danmaku/script"
)

var ErrUnknownName = errors.New("stage: unknown name")

// Stage is immutable once built. It serves as the world's catalog and as
// the resolver scripts are compiled against.
type Stage struct {
	Name       string
	Timeline   *Timeline
	Archetypes map[string]component.Archetype
	Scripts    map[string]*script.Program
	Patterns   map[string]*pattern.Pattern

	PlayerArchetype string
	Player          component.Player
}

func New(name string) *Stage {
	return &Stage{
		Name:       name,
		Archetypes: map[string]component.Archetype{},
		Scripts:    map[string]*script.Program{},
		Patterns:   map[string]*pattern.Pattern{},
	}
}

func (s *Stage) Archetype(name string) (component.Archetype, bool) {
	if s == nil {
		return component.Archetype{}, false
	}
	a, ok := s.Archetypes[name]
	return a, ok
}

// Script returns the compiled program. A declared but not yet compiled name
// reports true with a nil program while the stage is being built.
func (s *Stage) Script(name string) (*script.Program, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.Scripts[name]
	return p, ok
}

func (s *Stage) Pattern(name string) (*pattern.Pattern, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.Patterns[name]
	return p, ok
}

func (s *Stage) HasArchetype(name string) bool {
	_, ok := s.Archetype(name)
	return ok
}

func (s *Stage) HasScript(name string) bool {
	_, ok := s.Script(name)
	return ok
}

// Validate checks the cross references that individual parts cannot see on
// their own: timeline names, archetype scripts and the player setup.
func (s *Stage) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil stage", ErrUnknownName)
	}
	var errs []error
	if s.Timeline == nil {
		errs = append(errs, ErrNoTimeline)
	}

	for _, name := range sortedKeys(s.Archetypes) {
		a := s.Archetypes[name]
		if a.Script != "" && !s.HasScript(a.Script) {
			errs = append(errs, fmt.Errorf("%w: archetype %q uses script %q", ErrUnknownName, name, a.Script))
		}
	}
	for _, name := range sortedKeys(s.Patterns) {
		p := s.Patterns[name]
		if !s.HasArchetype(p.Archetype) {
			errs = append(errs, fmt.Errorf("%w: pattern %q uses archetype %q", ErrUnknownName, name, p.Archetype))
		}
		if p.Script != "" && !s.HasScript(p.Script) {
			errs = append(errs, fmt.Errorf("%w: pattern %q uses script %q", ErrUnknownName, name, p.Script))
		}
	}

	for i, e := range s.Timeline.Events() {
		if e.Kind != EventSpawn {
			continue
		}
		if !s.HasArchetype(e.Archetype) {
			errs = append(errs, fmt.Errorf("%w: event %d spawns archetype %q", ErrUnknownName, i, e.Archetype))
		}
		if e.Script != "" && !s.HasScript(e.Script) {
			errs = append(errs, fmt.Errorf("%w: event %d uses script %q", ErrUnknownName, i, e.Script))
		}
	}

	if a, ok := s.Archetype(s.PlayerArchetype); !ok {
		errs = append(errs, fmt.Errorf("%w: player archetype %q", ErrUnknownName, s.PlayerArchetype))
	} else if a.Category != component.CategoryPlayer {
		errs = append(errs, fmt.Errorf("%w: player archetype %q has category %s", ErrUnknownName, s.PlayerArchetype, a.Category))
	}
	for _, shot := range []string{s.Player.ShotPattern, s.Player.FocusShot} {
		if shot != "" {
			if _, ok := s.Pattern(shot); !ok {
				errs = append(errs, fmt.Errorf("%w: player shot pattern %q", ErrUnknownName, shot))
			}
		}
	}
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
