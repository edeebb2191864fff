package prefabs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/ecs/system"
	"github.com/milk9111/danmaku/pattern"
	"github.com/milk9111/danmaku/script"
	"github.com/milk9111/danmaku/stage"
)

var ErrInvalidSpec = errors.New("prefabs: invalid spec")

// collidable is every category the default collision rules pair up. Those
// archetypes need a hitbox with a positive size.
var collidable = func() component.CategoryMask {
	var m component.CategoryMask
	for _, r := range system.DefaultRules() {
		m |= r.A.Bit() | r.B.Bit()
	}
	return m
}()

// BuildStage loads and builds the named stage.
func BuildStage(name string) (*stage.Stage, error) {
	spec, err := LoadStage(name)
	if err != nil {
		return nil, err
	}
	return Build(spec)
}

// Build validates spec and compiles it into a playable stage. Every problem
// found is reported; the returned stage is nil if there was any.
func Build(spec *StageSpec) (*stage.Stage, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil stage", ErrInvalidSpec)
	}
	b := &builder{spec: spec, st: stage.New(spec.Name)}
	b.archetypes()
	b.patterns()
	b.scripts()
	b.timeline()
	b.player()

	if len(b.errs) == 0 {
		if err := b.st.Validate(); err != nil {
			b.fail(err)
		}
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return b.st, nil
}

type builder struct {
	spec *StageSpec
	st   *stage.Stage
	errs []error
}

func (b *builder) fail(err error) {
	src := b.spec.File
	if src == "" {
		src = b.spec.Name
	}
	if src == "" {
		src = "stage"
	}
	b.errs = append(b.errs, fmt.Errorf("prefabs: %s: %w", src, err))
}

func (b *builder) archetypes() {
	for _, name := range sortedKeys(b.spec.Archetypes) {
		a, err := buildArchetype(name, b.spec.Archetypes[name])
		if err != nil {
			b.fail(fmt.Errorf("archetype %q: %w", name, err))
			continue
		}
		b.st.Archetypes[name] = a
	}
}

func buildArchetype(name string, s ArchetypeSpec) (component.Archetype, error) {
	cat, ok := component.ParseCategory(s.Category)
	if !ok {
		return component.Archetype{}, fmt.Errorf("%w: unknown category %q", ErrInvalidSpec, s.Category)
	}
	hb, err := buildHitbox(s.Hitbox)
	if err != nil {
		return component.Archetype{}, err
	}
	if hb.Empty() && collidable.Has(cat) {
		return component.Archetype{}, fmt.Errorf("%w: %s needs a hitbox with a positive size", ErrInvalidSpec, cat)
	}
	if s.Health < 0 || s.Damage < 0 || s.Value < 0 || s.TTL < 0 {
		return component.Archetype{}, fmt.Errorf("%w: health, damage, value and ttl must be >= 0", ErrInvalidSpec)
	}

	var mask component.CategoryMask
	for _, other := range s.CollidesWith {
		c, ok := component.ParseCategory(other)
		if !ok {
			return component.Archetype{}, fmt.Errorf("%w: collides_with has unknown category %q", ErrInvalidSpec, other)
		}
		mask |= c.Bit()
	}

	return component.Archetype{
		Name:     name,
		Category: cat,
		Hitbox:   hb,
		Health:   s.Health,
		Damage:   s.Damage,
		Value:    s.Value,
		TTL:      component.TTL{Frames: s.TTL},
		Layer:    component.CollisionLayer{Mask: mask},
		Sprite:   component.Sprite{Key: s.Sprite},
		Script:   strings.TrimSpace(s.Script),
	}, nil
}

func buildHitbox(s HitboxSpec) (component.Hitbox, error) {
	hb := component.Hitbox{
		Radius:  s.Radius,
		Width:   s.Width,
		Height:  s.Height,
		OffsetX: s.OffsetX,
		OffsetY: s.OffsetY,
	}
	for _, v := range []float64{s.Radius, s.Width, s.Height, s.OffsetX, s.OffsetY} {
		if !common.Finite(v) {
			return hb, fmt.Errorf("%w: hitbox has a non-finite value", ErrInvalidSpec)
		}
	}
	switch strings.ToLower(strings.TrimSpace(s.Shape)) {
	case "", "circle":
		hb.Shape = common.ShapeCircle
		if s.Radius < 0 {
			return hb, fmt.Errorf("%w: hitbox radius must be >= 0", ErrInvalidSpec)
		}
	case "rect":
		hb.Shape = common.ShapeRect
		if s.Width < 0 || s.Height < 0 {
			return hb, fmt.Errorf("%w: hitbox size must be >= 0", ErrInvalidSpec)
		}
	default:
		return hb, fmt.Errorf("%w: unknown hitbox shape %q", ErrInvalidSpec, s.Shape)
	}
	return hb, nil
}

func (b *builder) patterns() {
	for _, name := range sortedKeys(b.spec.Patterns) {
		s := b.spec.Patterns[name]
		kind, ok := pattern.ParseKind(strings.TrimSpace(s.Kind))
		if !ok {
			b.fail(fmt.Errorf("pattern %q: %w: unknown kind %q", name, pattern.ErrMalformed, s.Kind))
			continue
		}
		p := &pattern.Pattern{
			Name:      name,
			Kind:      kind,
			Count:     s.Count,
			Speed:     s.Speed,
			SpeedMax:  s.SpeedMax,
			Angle:     common.DegToRad(s.Angle),
			Spread:    common.DegToRad(s.Spread),
			Step:      common.DegToRad(s.Step),
			Radius:    s.Radius,
			Aim:       s.Aim,
			Archetype: strings.TrimSpace(s.Archetype),
			Script:    strings.TrimSpace(s.Script),
		}
		if err := p.Validate(); err != nil {
			b.fail(err)
			continue
		}
		b.st.Patterns[name] = p
	}
}

// scripts declares every name before compiling so scripts may spawn each
// other in any order.
func (b *builder) scripts() {
	names := sortedKeys(b.spec.Scripts)
	for _, name := range names {
		b.st.Scripts[name] = nil
	}
	for _, name := range names {
		p, err := script.Compile(name, b.spec.Scripts[name], b.st)
		if err != nil {
			b.fail(err)
			continue
		}
		b.st.Scripts[name] = p
	}
}

func (b *builder) timeline() {
	events := make([]stage.Event, 0, len(b.spec.Timeline))
	ok := true
	for i, s := range b.spec.Timeline {
		e, err := buildEvent(s)
		if err != nil {
			b.fail(fmt.Errorf("timeline event %d: %w", i, err))
			ok = false
			continue
		}
		events = append(events, e)
	}
	if !ok {
		return
	}
	tl, err := stage.NewTimeline(events)
	if err != nil {
		b.fail(fmt.Errorf("timeline: %w", err))
		return
	}
	b.st.Timeline = tl
}

func buildEvent(s EventSpec) (stage.Event, error) {
	kindName := strings.TrimSpace(s.Kind)
	if kindName == "" {
		kindName = "spawn"
	}
	kind, ok := stage.ParseEventKind(kindName)
	if !ok {
		return stage.Event{}, fmt.Errorf("%w: unknown kind %q", stage.ErrInvalidEvent, s.Kind)
	}
	e := stage.Event{
		At:   s.At,
		Kind: kind,
		Name: s.Name,
		Hold: s.Hold,
	}
	if kind != stage.EventSpawn {
		return e, nil
	}

	e.Archetype = strings.TrimSpace(s.Archetype)
	e.Script = strings.TrimSpace(s.Script)
	e.Count = s.Count
	if e.Count == 0 {
		e.Count = 1
	}
	e.Speed = s.Speed
	e.Angle = common.DegToRad(s.Angle)

	formName := strings.TrimSpace(s.Formation.Kind)
	if formName == "" {
		formName = "single"
	}
	fk, ok := stage.ParseFormationKind(formName)
	if !ok {
		return stage.Event{}, fmt.Errorf("%w: unknown formation %q", stage.ErrInvalidEvent, s.Formation.Kind)
	}
	e.Formation = stage.Formation{
		Kind:   fk,
		X:      s.Formation.X,
		Y:      s.Formation.Y,
		DX:     s.Formation.DX,
		DY:     s.Formation.DY,
		Radius: s.Formation.Radius,
		Start:  common.DegToRad(s.Formation.Start),
	}
	return e, nil
}

func (b *builder) player() {
	s := b.spec.Player
	if s.Speed < 0 || s.FocusSpeed < 0 || s.FireRate < 0 || s.Bombs < 0 || s.IFrames < 0 {
		b.fail(fmt.Errorf("player: %w: negative tuning value", ErrInvalidSpec))
		return
	}
	b.st.PlayerArchetype = strings.TrimSpace(s.Archetype)
	b.st.Player = component.Player{
		Speed:       s.Speed,
		FocusSpeed:  s.FocusSpeed,
		FireRate:    s.FireRate,
		ShotPattern: strings.TrimSpace(s.Shot),
		FocusShot:   strings.TrimSpace(s.FocusShot),
		Bombs:       s.Bombs,
		IFrames:     s.IFrames,
	}
	if b.st.Player.FocusSpeed == 0 {
		b.st.Player.FocusSpeed = b.st.Player.Speed
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
