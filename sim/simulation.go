// Package sim runs a stage: it wires the world, the director and the tick
// systems in their fixed order and exposes the per-tick render view.
package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/config"
	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/ecs/system"
	"github.com/milk9111/danmaku/logging"
	"github.com/milk9111/danmaku/metrics"
	"github.com/milk9111/danmaku/stage"
)

var ErrNoStage = errors.New("sim: no stage")

// Intent is the player input for one tick.
type Intent = component.Input

type Options struct {
	Config  *config.Config
	Logger  logrus.FieldLogger
	Metrics *metrics.Collector
	// Rules replaces the default collision table when set.
	Rules *system.RuleTable
}

// Simulation is one deterministic run of a stage. It is not safe for
// concurrent use; separate Simulations share nothing.
type Simulation struct {
	stage     *stage.Stage
	world     *ecs.World
	director  *stage.Director
	scheduler *ecs.Scheduler
	events    ecs.EventQueue
	paused    bool
	log       logrus.FieldLogger
}

func New(st *stage.Stage, opts Options) (*Simulation, error) {
	if st == nil {
		return nil, ErrNoStage
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("sim: stage %q: %w", st.Name, err)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	s := &Simulation{
		stage:    st,
		director: stage.NewDirector(),
		log:      log.WithField("stage", st.Name),
	}
	s.world = ecs.NewWorld(cfg, st, s.log)
	s.world.SetMetrics(opts.Metrics)
	s.world.SetSink(&s.events)

	s.scheduler = ecs.NewScheduler(
		system.NewStageSystem(s.director),
		system.NewPlayerControlSystem(),
		system.NewMovementSystem(),
		system.NewSpawnCommitSystem(),
		system.NewCollisionSystem(s.world, opts.Rules),
		system.NewCullSystem(),
		system.NewPromoteSystem(),
	)

	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

// start spawns the player and begins the timeline on a clean world.
func (s *Simulation) start() error {
	cfg := s.world.Config()
	e, ok := s.world.Spawn(component.SpawnRequest{
		Archetype: s.stage.PlayerArchetype,
		Position:  common.V(cfg.Player.StartX, cfg.Player.StartY),
		Wave:      -1,
	})
	if !ok {
		return fmt.Errorf("sim: stage %q: could not spawn player %q", s.stage.Name, s.stage.PlayerArchetype)
	}
	s.world.SetPlayer(e)
	*s.world.PlayerController() = s.stage.Player

	if err := s.director.Start(s.stage.Timeline); err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"events": s.stage.Timeline.Len(),
		"waves":  s.stage.Timeline.SpawnCount(),
	}).Info("stage started")
	return nil
}

// Tick advances the simulation by one frame. It does nothing while paused.
func (s *Simulation) Tick(intent Intent) {
	if s == nil || s.paused {
		return
	}
	before := s.director.State()
	s.world.SetIntent(intent)
	s.scheduler.Update(s.world)
	s.world.EndTick()

	if before != stage.StateComplete && s.director.State() == stage.StateComplete {
		s.log.WithField("tick", s.world.Tick()).Info("stage complete")
	}
}

// Events returns and clears the events emitted since the last call.
func (s *Simulation) Events() []ecs.Event {
	if s == nil {
		return nil
	}
	return s.events.Drain()
}

// Reset discards every entity and restarts the stage from tick 0.
func (s *Simulation) Reset() error {
	if s == nil {
		return ErrNoStage
	}
	s.world.Reset()
	s.director.Reset()
	s.events.Drain()
	s.paused = false
	return s.start()
}

// Reload swaps in a rebuilt stage and restarts it.
func (s *Simulation) Reload(st *stage.Stage) error {
	if s == nil || st == nil {
		return ErrNoStage
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("sim: reload %q: %w", st.Name, err)
	}
	s.stage = st
	s.world.SetCatalog(st)
	return s.Reset()
}

// Pause freezes both the stage clock and entity simulation.
func (s *Simulation) Pause() {
	if s == nil {
		return
	}
	s.paused = true
	s.director.Pause()
}

func (s *Simulation) Resume() {
	if s == nil {
		return
	}
	s.paused = false
	s.director.Resume()
}

func (s *Simulation) Paused() bool {
	return s != nil && s.paused
}

func (s *Simulation) World() *ecs.World {
	if s == nil {
		return nil
	}
	return s.world
}

func (s *Simulation) Director() *stage.Director {
	if s == nil {
		return nil
	}
	return s.director
}

func (s *Simulation) Stage() *stage.Stage {
	if s == nil {
		return nil
	}
	return s.stage
}
