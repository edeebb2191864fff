package ecs

import (
	"github.com/milk9111/danmaku/config"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/script"
)

type SlotState uint8

const (
	SlotFree SlotState = iota
	SlotPending
	SlotActive
)

func (s SlotState) String() string {
	switch s {
	case SlotPending:
		return "pending"
	case SlotActive:
		return "active"
	}
	return "free"
}

// EntityData is everything the engine tracks for one entity. It lives in a
// pool slot and is cleared when the slot is retired.
type EntityData struct {
	Handle    Entity
	Category  component.Category
	Archetype string

	Transform    component.Transform
	Velocity     component.Velocity
	Hitbox       component.Hitbox
	Health       component.Health
	Damage       int
	Value        int
	Layer        component.CollisionLayer
	TTL          component.TTL
	Sprite       component.Sprite
	Invulnerable component.Invulnerable

	Script *script.Program
	Exec   script.State

	Age   int
	Owner Entity
	Wave  int
}

// Body is the interpreter view of d. Requests spawned by the script are
// owned by d.
func (d *EntityData) Body() script.Body {
	return script.Body{
		Transform: &d.Transform,
		Velocity:  &d.Velocity,
		Health:    d.Health,
		Age:       d.Age,
		Owner:     uint64(d.Handle),
		Wave:      d.Wave,
	}
}

type slot struct {
	gen   generation
	state SlotState
	data  EntityData
}

// Pool is a fixed-size arena partitioned into per-category slot ranges. It
// never grows: a spawn into a full category is dropped and counted.
type Pool struct {
	slots   []slot
	ranges  [component.CategoryCount]categoryRange
	pending []int
}

func NewPool(caps config.Capacities) *Pool {
	ranges, total := layoutRanges(caps)
	return &Pool{
		slots:   make([]slot, total),
		ranges:  ranges,
		pending: make([]int, 0, 64),
	}
}

// Spawn places d in a free slot of d.Category in the pending state. It
// returns false when the category is full.
func (p *Pool) Spawn(d EntityData) (Entity, bool) {
	if p == nil || !d.Category.Valid() {
		return 0, false
	}
	r := &p.ranges[d.Category]
	if len(r.free) == 0 {
		r.dropped++
		return 0, false
	}
	idx := r.free[len(r.free)-1]
	r.free = r.free[:len(r.free)-1]

	s := &p.slots[idx]
	d.Handle = makeEntity(idx, s.gen)
	s.data = d
	s.state = SlotPending
	r.pending++
	p.pending = append(p.pending, idx)
	return d.Handle, true
}

func (p *Pool) lookup(e Entity) (*slot, bool) {
	if p == nil || !e.Valid() {
		return nil, false
	}
	idx := e.Slot()
	if idx >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[idx]
	if s.state == SlotFree || s.gen != e.generation() {
		return nil, false
	}
	return s, true
}

// Retire frees the slot behind e. Stale or already retired handles are
// ignored and report false.
func (p *Pool) Retire(e Entity) bool {
	s, ok := p.lookup(e)
	if !ok {
		return false
	}
	r := &p.ranges[s.data.Category]
	switch s.state {
	case SlotActive:
		r.active--
	case SlotPending:
		r.pending--
	}
	s.data = EntityData{}
	s.state = SlotFree
	s.gen++
	r.free = append(r.free, e.Slot())
	return true
}

// Get returns the data of a pending or active entity.
func (p *Pool) Get(e Entity) *EntityData {
	s, ok := p.lookup(e)
	if !ok {
		return nil
	}
	return &s.data
}

func (p *Pool) IsAlive(e Entity) bool {
	_, ok := p.lookup(e)
	return ok
}

// State reports the slot state of e; stale handles are SlotFree.
func (p *Pool) State(e Entity) SlotState {
	s, ok := p.lookup(e)
	if !ok {
		return SlotFree
	}
	return s.state
}

// IsActive reports whether e is alive and promoted.
func (p *Pool) IsActive(e Entity) bool {
	return p.State(e) == SlotActive
}

// ForEachActive visits active entities whose category is in mask, in
// category order then slot order. Entities retired or spawned during the
// pass are not visited.
func (p *Pool) ForEachActive(mask component.CategoryMask, fn func(d *EntityData)) {
	if p == nil || fn == nil {
		return
	}
	for c := 0; c < component.CategoryCount; c++ {
		if !mask.Has(component.Category(c)) {
			continue
		}
		r := &p.ranges[c]
		for i := r.start; i < r.start+r.cap; i++ {
			s := &p.slots[i]
			if s.state != SlotActive {
				continue
			}
			fn(&s.data)
		}
	}
}

// ForEach visits pending and active entities in mask in the same order as
// ForEachActive. Renderers use it to show entities spawned before the first
// tick.
func (p *Pool) ForEach(mask component.CategoryMask, fn func(d *EntityData, state SlotState)) {
	if p == nil || fn == nil {
		return
	}
	for c := 0; c < component.CategoryCount; c++ {
		if !mask.Has(component.Category(c)) {
			continue
		}
		r := &p.ranges[c]
		for i := r.start; i < r.start+r.cap; i++ {
			s := &p.slots[i]
			if s.state != SlotFree {
				fn(&s.data, s.state)
			}
		}
	}
}

// AppendActive appends the active entities of cat in slot order to dst.
func (p *Pool) AppendActive(dst []*EntityData, cat component.Category) []*EntityData {
	if p == nil || !cat.Valid() {
		return dst
	}
	r := &p.ranges[cat]
	for i := r.start; i < r.start+r.cap; i++ {
		if p.slots[i].state == SlotActive {
			dst = append(dst, &p.slots[i].data)
		}
	}
	return dst
}

// Promote activates every entity spawned since the last call and returns how
// many were promoted.
func (p *Pool) Promote() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, idx := range p.pending {
		s := &p.slots[idx]
		if s.state != SlotPending {
			continue
		}
		s.state = SlotActive
		r := &p.ranges[s.data.Category]
		r.pending--
		r.active++
		n++
	}
	p.pending = p.pending[:0]
	return n
}

// Reset frees every slot. Generations of live slots advance so handles
// issued before the reset go stale.
func (p *Pool) Reset() {
	if p == nil {
		return
	}
	for i := range p.slots {
		s := &p.slots[i]
		if s.state != SlotFree {
			s.gen++
		}
		s.state = SlotFree
		s.data = EntityData{}
	}
	for c := range p.ranges {
		p.ranges[c].resetFree()
		p.ranges[c].dropped = 0
	}
	p.pending = p.pending[:0]
}

// Counts returns the active entities per category.
func (p *Pool) Counts() [component.CategoryCount]int {
	var out [component.CategoryCount]int
	if p == nil {
		return out
	}
	for c := range p.ranges {
		out[c] = p.ranges[c].active
	}
	return out
}

func (p *Pool) ActiveCount(cat component.Category) int {
	if p == nil || !cat.Valid() {
		return 0
	}
	return p.ranges[cat].active
}

func (p *Pool) PendingCount(cat component.Category) int {
	if p == nil || !cat.Valid() {
		return 0
	}
	return p.ranges[cat].pending
}

// Dropped is the number of spawns rejected for cat since the last Reset.
func (p *Pool) Dropped(cat component.Category) uint64 {
	if p == nil || !cat.Valid() {
		return 0
	}
	return p.ranges[cat].dropped
}

func (p *Pool) Capacity(cat component.Category) int {
	if p == nil || !cat.Valid() {
		return 0
	}
	return p.ranges[cat].cap
}
