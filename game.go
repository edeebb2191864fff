package main

import (
	"fmt"
	"image/color"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/colornames"

	"github.com/milk9111/danmaku/common"
	"github.com/milk9111/danmaku/ecs"
	"github.com/milk9111/danmaku/ecs/component"
	"github.com/milk9111/danmaku/prefabs"
	"github.com/milk9111/danmaku/replay"
	"github.com/milk9111/danmaku/sim"
)

var categoryColors = [component.CategoryCount]color.Color{
	component.CategoryPlayer:       colornames.Crimson,
	component.CategoryEnemy:        colornames.Mediumpurple,
	component.CategoryPlayerBullet: colornames.Lightskyblue,
	component.CategoryEnemyBullet:  colornames.Gold,
	component.CategoryEffect:       colornames.Lightgrey,
	component.CategoryPowerUp:      colornames.Limegreen,
}

type Game struct {
	sim       *sim.Simulation
	stageName string
	width     int
	height    int

	debug    bool
	paused   bool
	ui       *ebitenui.UI
	watcher  *prefabs.Watcher
	recorder *replay.Recorder
	log      logrus.FieldLogger

	snap  sim.Snapshot
	score int
	last  string
}

func NewGame(s *sim.Simulation, stageName string, debug bool, log logrus.FieldLogger) *Game {
	cfg := s.World().Config()
	g := &Game{
		sim:       s,
		stageName: stageName,
		width:     int(cfg.Playfield.Width),
		height:    int(cfg.Playfield.Height),
		debug:     debug,
		log:       log,
	}
	g.ui = NewPauseUI(g)
	g.snap = s.AppendSnapshot(g.snap)

	if debug {
		w, err := prefabs.NewWatcher("prefabs/stages")
		if err != nil {
			log.WithError(err).Warn("stage hot reload disabled")
		} else {
			g.watcher = w
		}
	}
	return g
}

// Record starts capturing every tick's intent.
func (g *Game) Record(tickRate int) {
	g.recorder = replay.NewRecorder(g.stageName, tickRate)
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.setPaused(!g.paused)
	}
	if g.paused {
		g.ui.Update()
		return nil
	}
	g.pollReload()

	intent := readIntent()
	g.sim.Tick(intent)
	if g.recorder != nil {
		g.recorder.Record(intent, g.sim.Digest())
	}
	for _, evt := range g.sim.Events() {
		g.handle(evt)
	}
	g.snap = g.sim.AppendSnapshot(g.snap)
	return nil
}

func (g *Game) handle(evt ecs.Event) {
	switch evt.Kind {
	case ecs.EventEnemyDestroyed:
		g.score += evt.Value
	case ecs.EventStageTransition, ecs.EventStageComplete, ecs.EventPlayerDestroyed:
		g.last = evt.Kind.String()
	}
	if g.debug {
		g.log.WithFields(logrus.Fields{
			"event":  evt.Kind.String(),
			"tick":   evt.Tick,
			"entity": evt.Entity.String(),
			"value":  evt.Value,
		}).Debug("event")
	}
}

// pollReload rebuilds the current stage when its yaml changes. A stage
// that fails to build is logged and the running one is kept.
func (g *Game) pollReload() {
	if g.watcher == nil {
		return
	}
	for {
		select {
		case change, ok := <-g.watcher.Changes:
			if !ok {
				g.watcher = nil
				return
			}
			if change.Stage != g.stageName {
				continue
			}
			st, err := prefabs.BuildStage(g.stageName)
			if err != nil {
				g.log.WithError(err).Error("stage reload failed")
				continue
			}
			if err := g.sim.Reload(st); err != nil {
				g.log.WithError(err).Error("stage reload failed")
				continue
			}
			g.log.WithField("stage", g.stageName).Info("stage reloaded")
		case err, ok := <-g.watcher.Errors:
			if !ok {
				g.watcher = nil
				return
			}
			g.log.WithError(err).Warn("watcher error")
		default:
			return
		}
	}
}

func (g *Game) setPaused(paused bool) {
	g.paused = paused
	if paused {
		g.sim.Pause()
	} else {
		g.sim.Resume()
	}
}

func (g *Game) restart() {
	if err := g.sim.Reset(); err != nil {
		g.log.WithError(err).Error("restart failed")
		return
	}
	g.score = 0
	g.last = ""
	if g.recorder != nil {
		g.Record(g.recorder.Replay().Header.TickRate)
	}
	g.snap = g.sim.AppendSnapshot(g.snap)
	g.setPaused(false)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Midnightblue)

	for _, e := range g.snap.Entities {
		if !e.Alive {
			continue
		}
		drawEntity(screen, e, g.debug)
	}

	p := g.snap.Player
	hud := fmt.Sprintf("Score %d  Lives %d  Bombs %d  Power %d", g.score, p.Health, p.Bombs, p.Power)
	if g.last != "" {
		hud += "\n" + g.last
	}
	if g.debug {
		d := g.snap.Director
		hud += fmt.Sprintf("\ntick %d  clock %d  %s  waves %d/%d  entities %d  FPS %.1f",
			g.snap.Tick, d.Clock, d.State, d.Cleared, d.Waves, len(g.snap.Entities), ebiten.ActualFPS())
	}
	ebitenutil.DebugPrint(screen, hud)

	if g.paused {
		g.ui.Draw(screen)
	}
}

func drawEntity(screen *ebiten.Image, e sim.EntityView, outline bool) {
	clr := categoryColors[e.Category]
	hb := e.Hitbox
	x, y := float32(e.X+hb.OffsetX), float32(e.Y+hb.OffsetY)

	if hb.Shape == common.ShapeRect {
		w, h := float32(hb.Width), float32(hb.Height)
		vector.DrawFilledRect(screen, x-w/2, y-h/2, w, h, clr, false)
		if outline {
			vector.StrokeRect(screen, x-w/2, y-h/2, w, h, 1, colornames.White, false)
		}
		return
	}

	r := float32(hb.Radius)
	if r <= 0 {
		r = 2
	}
	vector.DrawFilledCircle(screen, x, y, r, clr, true)
	if outline {
		vector.StrokeCircle(screen, x, y, r, 1, colornames.White, true)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}

// Close stops the watcher and writes the recording, if any.
func (g *Game) Close(recordPath string) error {
	if g.watcher != nil {
		_ = g.watcher.Close()
	}
	if g.recorder == nil || recordPath == "" {
		return nil
	}
	return replay.Save(recordPath, g.recorder.Replay())
}
