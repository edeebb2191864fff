package ecs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/config"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/logging"
	"github.com/milk9111/danmaku/metrics"
	"github.com/milk9111/danmaku/pattern"
	"github.com/milk9111/danmaku/script"
)

// Retire reasons, used as the metrics label.
const (
	ReasonKilled      = "killed"
	ReasonConsumed    = "consumed"
	ReasonExpired     = "expired"
	ReasonOutOfBounds = "out_of_bounds"
	ReasonFinished    = "finished"
	ReasonBomb        = "bomb"
)

// Catalog resolves the names carried by spawn requests and the player's
// shot patterns.
type Catalog interface {
	Archetype(name string) (component.Archetype, bool)
	Script(name string) (*script.Program, bool)
	Pattern(name string) (*pattern.Pattern, bool)
}

// World is the simulation context handed to every system. There is no
// package-level state; several worlds may run side by side.
type World struct {
	cfg     *config.Config
	log     logrus.FieldLogger
	metrics *metrics.Collector
	catalog Catalog

	pool   *Pool
	interp *script.Interpreter
	spawns []component.SpawnRequest
	events EventQueue
	sink   EventSink

	tick      uint64
	player    Entity
	playerCtl component.Player
	intent    component.Input
}

// NewWorld creates a world sized by cfg. A nil cfg uses the defaults and a
// nil log discards output.
func NewWorld(cfg *config.Config, catalog Catalog, log logrus.FieldLogger) *World {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &World{
		cfg:     cfg,
		log:     log,
		catalog: catalog,
		pool:    NewPool(cfg.Capacity),
		interp:  script.NewInterpreter(cfg.Script.MaxStepsPerFrame),
		spawns:  make([]component.SpawnRequest, 0, 128),
	}
}

func (w *World) Config() *config.Config {
	if w == nil {
		return config.Default()
	}
	return w.cfg
}

func (w *World) Log() logrus.FieldLogger {
	if w == nil || w.log == nil {
		return logging.Discard()
	}
	return w.log
}

func (w *World) SetMetrics(m *metrics.Collector) {
	if w == nil {
		return
	}
	w.metrics = m
}

func (w *World) Metrics() *metrics.Collector {
	if w == nil {
		return nil
	}
	return w.metrics
}

// SetSink sets where events go at the end of each tick. With no sink events
// are discarded.
func (w *World) SetSink(s EventSink) {
	if w == nil {
		return
	}
	w.sink = s
}

func (w *World) SetCatalog(c Catalog) {
	if w == nil {
		return
	}
	w.catalog = c
	w.interp.Forget()
}

func (w *World) Catalog() Catalog {
	if w == nil {
		return nil
	}
	return w.catalog
}

func (w *World) Pool() *Pool {
	if w == nil {
		return nil
	}
	return w.pool
}

func (w *World) Interpreter() *script.Interpreter {
	if w == nil {
		return nil
	}
	return w.interp
}

// Tick is the number of completed ticks.
func (w *World) Tick() uint64 {
	if w == nil {
		return 0
	}
	return w.tick
}

// Spawn resolves req against the catalog and allocates a pending entity.
// A full category drops the request, counts it and emits SpawnDropped.
func (w *World) Spawn(req component.SpawnRequest) (Entity, bool) {
	if w == nil {
		return 0, false
	}
	if w.catalog == nil {
		w.Violation("spawn without catalog", logrus.Fields{"archetype": req.Archetype})
		return 0, false
	}
	a, ok := w.catalog.Archetype(req.Archetype)
	if !ok {
		w.Violation("spawn of unknown archetype", logrus.Fields{"archetype": req.Archetype})
		return 0, false
	}

	d := EntityData{
		Category:  a.Category,
		Archetype: a.Name,
		Transform: component.Transform{Pos: req.Position},
		Velocity:  component.Velocity{V: req.Velocity},
		Hitbox:    a.Hitbox,
		Health:    component.Health{Current: a.Health, Max: a.Health},
		Damage:    a.Damage,
		Value:     a.Value,
		Layer:     a.Layer,
		TTL:       a.TTL,
		Sprite:    a.Sprite,
		Owner:     Entity(req.Owner),
		Wave:      req.Wave,
	}
	if v := req.Velocity; v.X != 0 || v.Y != 0 {
		d.Transform.Rotation = common.Angle(v)
	}

	name := req.Script
	if name == "" {
		name = a.Script
	}
	if name != "" {
		prog, ok := w.catalog.Script(name)
		if !ok {
			w.Violation("spawn with unknown script", logrus.Fields{"archetype": a.Name, "script": name})
		}
		d.Script = prog
	}

	e, ok := w.pool.Spawn(d)
	if !ok {
		w.metrics.Dropped(a.Category.String())
		w.Emit(Event{Kind: EventSpawnDropped, Category: a.Category, Name: a.Name, Wave: req.Wave})
		w.log.WithFields(logrus.Fields{
			"category":  a.Category.String(),
			"archetype": a.Name,
			"tick":      w.tick,
		}).Debug("pool full, spawn dropped")
		return 0, false
	}
	w.metrics.Spawned(a.Category.String())
	return e, true
}

// IsAlive reports whether e is a pending or active entity.
func (w *World) IsAlive(e Entity) bool {
	if w == nil {
		return false
	}
	return w.pool.IsAlive(e)
}

// QueueSpawn defers req until the spawn commit step of this tick.
func (w *World) QueueSpawn(reqs ...component.SpawnRequest) {
	if w == nil {
		return
	}
	w.spawns = append(w.spawns, reqs...)
}

// QueuedSpawns is the number of spawn requests waiting for commit.
func (w *World) QueuedSpawns() int {
	if w == nil {
		return 0
	}
	return len(w.spawns)
}

// CommitSpawns spawns every queued request in queue order and returns how
// many entities were allocated.
func (w *World) CommitSpawns() int {
	if w == nil {
		return 0
	}
	n := 0
	for _, req := range w.spawns {
		if _, ok := w.Spawn(req); ok {
			n++
		}
	}
	w.spawns = w.spawns[:0]
	return n
}

// Retire frees e and records why. Stale handles are ignored.
func (w *World) Retire(e Entity, reason string) bool {
	if w == nil {
		return false
	}
	d := w.pool.Get(e)
	if d == nil {
		return false
	}
	cat := d.Category
	if !w.pool.Retire(e) {
		return false
	}
	w.metrics.Retired(cat.String(), reason)
	return true
}

// Emit queues evt for delivery at the end of the tick.
func (w *World) Emit(evt Event) {
	if w == nil {
		return
	}
	evt.Tick = w.tick
	w.events.Push(evt)
}

// Events is the queue of events emitted so far this tick.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

// EndTick delivers this tick's events to the sink and advances the tick
// counter.
func (w *World) EndTick() {
	if w == nil {
		return
	}
	if w.sink != nil {
		for _, evt := range w.events.items {
			w.sink.Emit(evt)
		}
	}
	w.events.flush()
	w.tick++

	if w.metrics != nil {
		w.metrics.Tick()
		counts := w.pool.Counts()
		for c, n := range counts {
			w.metrics.SetActive(component.Category(c).String(), n)
		}
	}
}

func (w *World) SetPlayer(e Entity) {
	if w == nil {
		return
	}
	w.player = e
}

// Player is the player handle; it may be stale after the player dies.
func (w *World) Player() Entity {
	if w == nil {
		return 0
	}
	return w.player
}

// PlayerData returns the live player, or nil.
func (w *World) PlayerData() *EntityData {
	if w == nil {
		return nil
	}
	return w.pool.Get(w.player)
}

// PlayerController holds the player's tuning and counters.
func (w *World) PlayerController() *component.Player {
	if w == nil {
		return nil
	}
	return &w.playerCtl
}

func (w *World) SetIntent(in component.Input) {
	if w == nil {
		return
	}
	w.intent = in
}

func (w *World) Intent() component.Input {
	if w == nil {
		return component.Input{}
	}
	return w.intent
}

// Env is what scripts can observe this tick.
func (w *World) Env() script.Env {
	d := w.PlayerData()
	if d == nil {
		return script.Env{}
	}
	return script.Env{Player: d.Transform.Pos, HasPlayer: true}
}

// Violation reports a broken runtime invariant. It logs at error level, or
// panics in strict mode.
func (w *World) Violation(msg string, fields logrus.Fields) {
	if w == nil {
		return
	}
	if w.cfg != nil && w.cfg.Strict {
		panic(fmt.Sprintf("ecs: %s: %v", msg, fields))
	}
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["tick"] = w.tick
	w.log.WithFields(fields).Error(msg)
}

// Reset discards every entity, queued spawn and event and rewinds the tick
// counter. The player controller is cleared too.
func (w *World) Reset() {
	if w == nil {
		return
	}
	w.pool.Reset()
	w.spawns = w.spawns[:0]
	w.events.flush()
	w.tick = 0
	w.player = 0
	w.playerCtl = component.Player{}
	w.intent = component.Input{}
}
