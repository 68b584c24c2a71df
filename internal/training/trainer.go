package training

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thyrook/lrsched/internal/scheduler"
)

const (
	// ModelComponent is the checkpoint key of the model weights.
	ModelComponent = "model"
	// TrainerComponent is the checkpoint key of the loop's own progress.
	TrainerComponent = "trainer"
)

// CheckpointStore persists component records keyed by name.
type CheckpointStore interface {
	SaveAll(records map[string][]byte) error
	Get(component string) ([]byte, error)
	SetMetadata(key, value string) error
}

// trainable is the model state advanced once per scheduler step.
type trainable interface {
	TrainStep(lr float64) (float64, error)
	Weights() (Weights, error)
	Close() error
}

// Config holds training loop settings
type Config struct {
	Samples            int
	Slope              float64
	Intercept          float64
	CheckpointInterval int // Checkpoint every N steps, 0 disables periodic checkpoints
}

// DefaultConfig returns the settings used by the CLI when none are given.
func DefaultConfig() Config {
	return Config{
		Samples:            64,
		Slope:              2.0,
		Intercept:          1.0,
		CheckpointInterval: 10,
	}
}

// StepMetrics describes a single optimizer update.
type StepMetrics struct {
	Step         int
	Loss         float64
	LearningRate float64
}

// ProgressCallback is invoked after every update.
type ProgressCallback func(metrics StepMetrics)

type trainerState struct {
	Step int `json:"step"`
}

// Trainer owns a model and the learning rate scheduler driving it. Exactly
// one scheduler step is taken per model update.
type Trainer struct {
	config   Config
	sched    scheduler.Checkpointable
	store    CheckpointStore
	logger   *zap.Logger
	data     Dataset
	model    trainable
	step     int
	history  []StepMetrics
	progress ProgressCallback
}

// NewTrainer creates a trainer with zero-initialised weights. store may be nil,
// in which case checkpoints are skipped.
func NewTrainer(config Config, sched scheduler.Checkpointable, store CheckpointStore, logger *zap.Logger) (*Trainer, error) {
	if sched == nil {
		return nil, fmt.Errorf("scheduler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	data := LinearDataset(config.Samples, config.Slope, config.Intercept)
	model, err := NewLinearModel(data, Weights{})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	return &Trainer{
		config: config,
		sched:  sched,
		store:  store,
		logger: logger.With(zap.String("scheduler", sched.Name())),
		data:   data,
		model:  model,
	}, nil
}

// OnProgress registers a callback invoked after every update.
func (t *Trainer) OnProgress(cb ProgressCallback) {
	t.progress = cb
}

// Run performs steps updates. It stops early, without taking a scheduler step,
// once ctx is done. A failed update rolls the scheduler back so it stays in
// step with the completed update count.
func (t *Trainer) Run(ctx context.Context, steps int) error {
	startTime := time.Now()
	t.logger.Info("Training started",
		zap.Int("from_step", t.step),
		zap.Int("steps", steps),
	)

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("training interrupted at step %d: %w", t.step, err)
		}

		before, err := t.sched.MarshalRecord()
		if err != nil {
			return fmt.Errorf("failed to snapshot scheduler: %w", err)
		}

		lr := t.sched.Step()
		loss, err := t.model.TrainStep(lr)
		if err != nil {
			if rerr := t.sched.UnmarshalRecord(before); rerr != nil {
				t.logger.Error("Failed to roll back scheduler", zap.Error(rerr))
			}
			return fmt.Errorf("step %d failed: %w", t.step+1, err)
		}
		t.step++

		metrics := StepMetrics{Step: t.step, Loss: loss, LearningRate: lr}
		t.history = append(t.history, metrics)
		if t.progress != nil {
			t.progress(metrics)
		}

		t.logger.Debug("Step completed",
			zap.Int("step", t.step),
			zap.Float64("lr", lr),
			zap.Float64("loss", loss),
		)

		if t.config.CheckpointInterval > 0 && t.step%t.config.CheckpointInterval == 0 {
			if err := t.Checkpoint(); err != nil {
				return err
			}
		}
	}

	if err := t.Checkpoint(); err != nil {
		return err
	}

	weights, err := t.model.Weights()
	if err != nil {
		t.logger.Warn("Failed to read final weights", zap.Error(err))
	}
	t.logger.Info("Training finished",
		zap.Int("step", t.step),
		zap.Float64("weight", weights.Weight),
		zap.Float64("bias", weights.Bias),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return nil
}

// Checkpoint saves the scheduler record, the weights and the step count in a
// single write.
func (t *Trainer) Checkpoint() error {
	if t.store == nil {
		return nil
	}

	schedRecord, err := t.sched.MarshalRecord()
	if err != nil {
		return err
	}

	weights, err := t.model.Weights()
	if err != nil {
		return fmt.Errorf("failed to read weights: %w", err)
	}
	modelRecord, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	trainerRecord, err := json.Marshal(trainerState{Step: t.step})
	if err != nil {
		return fmt.Errorf("failed to marshal trainer state: %w", err)
	}

	err = t.store.SaveAll(map[string][]byte{
		t.sched.Name():   schedRecord,
		ModelComponent:   modelRecord,
		TrainerComponent: trainerRecord,
	})
	if err != nil {
		return err
	}

	if err := t.store.SetMetadata("updated_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		t.logger.Warn("Failed to update checkpoint metadata", zap.Error(err))
	}

	t.logger.Info("Checkpoint saved", zap.Int("step", t.step))
	return nil
}

// Resume restores the scheduler, the weights and the step count from the
// store. The trainer's scheduler must have been built from the same config as
// the one that produced the checkpoint.
func (t *Trainer) Resume() error {
	if t.store == nil {
		return fmt.Errorf("no checkpoint store configured")
	}

	trainerRecord, err := t.store.Get(TrainerComponent)
	if err != nil {
		return fmt.Errorf("failed to load trainer state: %w", err)
	}
	var state trainerState
	if err := json.Unmarshal(trainerRecord, &state); err != nil {
		return fmt.Errorf("failed to decode trainer state: %w", err)
	}

	modelRecord, err := t.store.Get(ModelComponent)
	if err != nil {
		return fmt.Errorf("failed to load weights: %w", err)
	}
	var weights Weights
	if err := json.Unmarshal(modelRecord, &weights); err != nil {
		return fmt.Errorf("failed to decode weights: %w", err)
	}

	schedRecord, err := t.store.Get(t.sched.Name())
	if err != nil {
		return fmt.Errorf("failed to load scheduler record: %w", err)
	}
	if err := t.sched.UnmarshalRecord(schedRecord); err != nil {
		return err
	}

	model, err := NewLinearModel(t.data, weights)
	if err != nil {
		return fmt.Errorf("failed to rebuild model: %w", err)
	}
	t.model.Close()
	t.model = model
	t.step = state.Step

	t.logger.Info("Resumed from checkpoint",
		zap.Int("step", t.step),
		zap.Float64("weight", weights.Weight),
		zap.Float64("bias", weights.Bias),
	)
	return nil
}

// Step returns the number of completed updates.
func (t *Trainer) Step() int {
	return t.step
}

// History returns the metrics of every update run by this trainer.
func (t *Trainer) History() []StepMetrics {
	return t.history
}

// Weights returns the current model parameters.
func (t *Trainer) Weights() (Weights, error) {
	return t.model.Weights()
}

// Close releases the model.
func (t *Trainer) Close() error {
	return t.model.Close()
}
