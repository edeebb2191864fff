package main

import (
	"flag"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/milk9111/danmaku/config"
	"github.com/milk9111/danmaku/logging"
	"github.com/milk9111/danmaku/metrics"
	"github.com/milk9111/danmaku/prefabs"
	"github.com/milk9111/danmaku/sim"
)

func main() {
	stageName := flag.String("stage", "stage1", "stage name in prefabs/stages (basename, .yaml optional)")
	configPath := flag.String("config", "", "engine config yaml overlaid on the defaults")
	debug := flag.Bool("debug", false, "enable debug mode: hitbox outlines, stage hot reload, debug logging")
	recordPath := flag.String("record", "", "write a replay of the session to this file on exit")
	metricsAddr := flag.String("metrics", "", "serve prometheus metrics on this address, e.g. :9100")
	flag.Parse()

	log := logging.FromEnv()
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	st, err := prefabs.BuildStage(*stageName)
	if err != nil {
		log.WithError(err).Fatal("load stage")
	}

	var collector *metrics.Collector
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		if collector, err = metrics.New(reg); err != nil {
			log.WithError(err).Fatal("register metrics")
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	s, err := sim.New(st, sim.Options{Config: cfg, Logger: log, Metrics: collector})
	if err != nil {
		log.WithError(err).Fatal("start simulation")
	}

	base := filepath.Base(*stageName)
	game := NewGame(s, strings.TrimSuffix(base, filepath.Ext(base)), *debug, log)
	if *recordPath != "" {
		game.Record(cfg.TickRate)
	}

	ebiten.SetTPS(cfg.TickRate)
	ebiten.SetWindowSize(int(cfg.Playfield.Width), int(cfg.Playfield.Height))
	ebiten.SetWindowTitle("danmaku")

	runErr := ebiten.RunGame(game)
	if err := game.Close(*recordPath); err != nil {
		log.WithError(err).Error("save replay")
	}
	if runErr != nil {
		log.WithError(runErr).Fatal("game stopped")
	}
}
