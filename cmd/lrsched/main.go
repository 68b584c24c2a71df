package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/thyrook/lrsched/internal/checkpoint"
	"github.com/thyrook/lrsched/internal/config"
	"github.com/thyrook/lrsched/internal/logger"
	"github.com/thyrook/lrsched/internal/scheduler"
	"github.com/thyrook/lrsched/internal/training"
)

func main() {
	var (
		configPath = flag.String("config", "config.json", "Path to configuration file")
		mode       = flag.String("mode", "preview", "Operation mode: preview, train, resume")
		kind       = flag.String("kind", "", "Override scheduler kind (constant, step, warmup, noam, cosine, exponential)")
		steps      = flag.Int("steps", 0, "Number of steps (0 uses the config value)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg := config.LoadOrDefault(*configPath)
	if *kind != "" {
		cfg.Scheduler.Kind = *kind
	}
	if *steps > 0 {
		cfg.Training.Steps = *steps
	}
	if *verbose {
		cfg.Interface.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if *mode == "preview" {
		if err := preview(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Preview failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Level(cfg.Interface.LogLevel), cfg.Interface.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "train", "resume":
		if err := train(ctx, cfg, *mode == "resume", log); err != nil {
			log.Error("Training failed", zap.Error(err))
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		flag.PrintDefaults()
		os.Exit(2)
	}
}

func preview(cfg *config.Config) error {
	sched, err := cfg.Scheduler.Build()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "STEP\tLEARNING RATE\n")
	for step := 1; step <= cfg.Training.Steps; step++ {
		fmt.Fprintf(w, "%d\t%.8g\n", step, sched.Step())
	}
	return w.Flush()
}

func train(ctx context.Context, cfg *config.Config, resume bool, log *zap.Logger) error {
	sched, err := cfg.Scheduler.Build()
	if err != nil {
		return err
	}

	store, err := checkpoint.Open(cfg.Training.CheckpointPath)
	if err != nil {
		return err
	}
	defer store.Close()

	trainCfg := training.DefaultConfig()
	trainCfg.Samples = cfg.Training.Samples
	trainCfg.CheckpointInterval = cfg.Training.CheckpointInterval

	trainer, err := training.NewTrainer(trainCfg, sched, store, log)
	if err != nil {
		return err
	}
	defer trainer.Close()

	kind := mustKind(cfg.Scheduler.Kind)

	if resume {
		if prev, err := store.GetMetadata("scheduler_kind"); err == nil && prev != string(kind) {
			log.Warn("Checkpoint was written by a different scheduler kind",
				zap.String("checkpoint_kind", prev),
				zap.String("kind", string(kind)))
		}

		err := trainer.Resume()
		switch {
		case errors.Is(err, checkpoint.ErrNotFound):
			log.Warn("No checkpoint found, starting from scratch",
				zap.String("path", store.Path()))
		case err != nil:
			return err
		}
	} else if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear old checkpoint: %w", err)
	}

	if err := store.SetMetadata("scheduler_kind", string(kind)); err != nil {
		log.Warn("Failed to record scheduler kind", zap.Error(err))
	}

	remaining := cfg.Training.Steps - trainer.Step()
	if remaining <= 0 {
		log.Info("Nothing to do, target step already reached",
			zap.Int("step", trainer.Step()),
			zap.Int("target", cfg.Training.Steps))
		return nil
	}

	return trainer.Run(ctx, remaining)
}

// mustKind is only called after Validate has accepted the kind.
func mustKind(name string) scheduler.Kind {
	k, err := scheduler.ParseKind(name)
	if err != nil {
		panic(err)
	}
	return k
}
