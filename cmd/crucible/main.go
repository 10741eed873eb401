// Command crucible runs the evolution simulator headless: it evolves a
// population for a configured number of generations, streams per-generation
// telemetry to CSV, and optionally checkpoints the full run state as JSON.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/pthm-cable/crucible/config"
	"github.com/pthm-cable/crucible/evo"
	"github.com/pthm-cable/crucible/telemetry"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config (embedded defaults if empty)")
		generations = flag.Int("generations", 0, "override configured generation count")
		outputDir   = flag.String("output", "out", "output directory for CSV telemetry (empty to disable)")
		seed        = flag.Uint64("seed", 1, "run seed")
		loadPath    = flag.String("load", "", "resume from a snapshot file")
		savePath    = flag.String("save", "", "write a snapshot file when done")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(log)

	if err := run(*configPath, *outputDir, *loadPath, *savePath, *seed, *generations, log); err != nil {
		log.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath, outputDir, loadPath, savePath string, seed uint64, generations int, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if generations > 0 {
		cfg.Evolution.Generations = generations
	}

	out, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}

	recorder := telemetry.NewRecorder(cfg.Telemetry.Buffer, func(rec telemetry.Record) {
		if err := out.WriteRecord(rec); err != nil {
			log.Warn("telemetry write failed", "err", err)
		}
	})
	defer recorder.Close()

	engine := evo.New(cfg, seed, recorder, log)
	if loadPath != "" {
		var snap evo.Snapshot
		if err := telemetry.ReadJSON(loadPath, &snap); err != nil {
			return err
		}
		if err := engine.RestoreState(&snap); err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}
		log.Info("resumed from snapshot",
			"generation", engine.Generation(), "population", len(engine.Population()))
	}

	start := time.Now()
	log.Info("starting run",
		"population", cfg.Evolution.Population,
		"generations", cfg.Evolution.Generations,
		"grid", fmt.Sprintf("%dx%d", cfg.Grid.Width, cfg.Grid.Height),
		"persist", cfg.Grid.Persist,
		"seed", seed)

	engine.Run(cfg.Evolution.Generations)

	log.Info("run complete",
		"generation", engine.Generation(),
		"best_fitness", engine.BestFitness(),
		"mean_fitness", engine.MeanFitness(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	if savePath != "" {
		if err := telemetry.WriteJSON(savePath, engine.SerializeState()); err != nil {
			return err
		}
		log.Info("snapshot written", "path", savePath)
	}
	return nil
}
