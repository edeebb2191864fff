// Command replay runs a stage headless, either from a recorded replay or
// with an idle player, prints per-tick digests and checks that a second run
// reproduces them.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/danmaku/config"
	"github.com/milk9111/danmaku/logging"
	"github.com/milk9111/danmaku/prefabs"
	"github.com/milk9111/danmaku/replay"
	"github.com/milk9111/danmaku/sim"
)

func main() {
	in := flag.String("in", "", "replay file to play back")
	out := flag.String("out", "", "write the run as a replay file")
	stageName := flag.String("stage", "", "stage name in prefabs/stages (defaults to the replay's stage or stage1)")
	configPath := flag.String("config", "", "engine config yaml overlaid on the defaults")
	ticks := flag.Int("ticks", 3600, "ticks to run with an idle player when no replay is given")
	quiet := flag.Bool("q", false, "only print the final digest")
	logLevel := flag.String("log", "info", "log level")
	flag.Parse()

	log := logging.New(*logLevel, "text")
	if err := run(log, *in, *out, *stageName, *configPath, *ticks, *quiet); err != nil {
		log.WithError(err).Error("replay failed")
		os.Exit(1)
	}
}

func run(log *logrus.Logger, in, out, stageName, configPath string, ticks int, quiet bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	rep := &replay.Replay{Header: replay.Header{Version: replay.Version}}
	if in != "" {
		if rep, err = replay.Load(in); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"id": rep.Header.ID, "ticks": rep.Len()}).Info("loaded replay")
	} else {
		rep.Intents = make([]sim.Intent, ticks)
	}
	if stageName == "" {
		stageName = rep.Header.Stage
	}
	if stageName == "" {
		stageName = "stage1"
	}

	st, err := prefabs.BuildStage(stageName)
	if err != nil {
		return err
	}

	first, err := sim.New(st, sim.Options{Config: cfg, Logger: log})
	if err != nil {
		return err
	}
	rec := replay.NewRecorder(st.Name, cfg.TickRate)
	var last uint64
	err = replay.Run(first, rep, func(tick int, digest uint64) {
		rec.Record(rep.Intents[tick], digest)
		last = digest
		if !quiet {
			fmt.Printf("%d %016x\n", tick, digest)
		}
	})
	if err != nil {
		return err
	}

	second, err := sim.New(st, sim.Options{Config: cfg, Logger: logging.Discard()})
	if err != nil {
		return err
	}
	if err := replay.Run(second, rec.Replay(), nil); err != nil {
		return fmt.Errorf("second run: %w", err)
	}
	fmt.Printf("final %016x after %d ticks: deterministic\n", last, rep.Len())

	if out != "" {
		if err := replay.Save(out, rec.Replay()); err != nil {
			return err
		}
		log.WithField("path", out).Info("saved replay")
	}
	return nil
}
