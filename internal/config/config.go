package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thyrook/lrsched/internal/scheduler"
)

// SchedulerComponent is the checkpoint key of the learning rate scheduler.
const SchedulerComponent = "lr_scheduler"

// Config represents the application configuration
type Config struct {
	AppName   string          `json:"app_name"`
	Version   string          `json:"version"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Training  TrainingConfig  `json:"training"`
	Interface InterfaceConfig `json:"interface"`
}

// SchedulerConfig selects a policy by Kind. Each policy reads only its own
// section, so parameters with the same name never share a default.
type SchedulerConfig struct {
	Kind        string            `json:"kind"`
	InitLR      float64           `json:"init_lr"`
	Step        StepParams        `json:"step"`
	Warmup      WarmupParams      `json:"warmup"`
	Noam        NoamParams        `json:"noam"`
	Cosine      CosineParams      `json:"cosine"`
	Exponential ExponentialParams `json:"exponential"`
}

// StepParams configures step decay.
type StepParams struct {
	StepSize int64   `json:"step_size"`
	Gamma    float64 `json:"gamma"`
}

// WarmupParams configures polynomial warmup.
type WarmupParams struct {
	NumWarmupSteps int     `json:"num_warmup_steps"`
	Power          float64 `json:"power"`
}

// NoamParams configures the Noam schedule.
type NoamParams struct {
	WarmupSteps int `json:"warmup_steps"`
	ModelSize   int `json:"model_size"`
}

// CosineParams configures cosine annealing.
type CosineParams struct {
	WarmupSteps int     `json:"warmup_steps"`
	TotalSteps  int     `json:"total_steps"`
	MinLR       float64 `json:"min_lr"`
}

// ExponentialParams configures exponential decay.
type ExponentialParams struct {
	Gamma float64 `json:"gamma"`
}

// TrainingConfig contains training loop and checkpoint settings
type TrainingConfig struct {
	Steps              int    `json:"steps"`
	Samples            int    `json:"samples"`
	CheckpointInterval int    `json:"checkpoint_interval"`
	CheckpointPath     string `json:"checkpoint_path"`
}

// InterfaceConfig contains logging settings
type InterfaceConfig struct {
	LogLevel string `json:"log_level"`
	LogPath  string `json:"log_path"`
}

// DefaultConfig returns a step decay schedule driving a short training run.
func DefaultConfig() *Config {
	return &Config{
		AppName: "lrsched",
		Version: "0.1.0",
		Scheduler: SchedulerConfig{
			Kind:   string(scheduler.KindStep),
			InitLR: 0.1,
			Step: StepParams{
				StepSize: scheduler.DefaultStepSize,
				Gamma:    scheduler.DefaultGamma,
			},
			Warmup: WarmupParams{
				NumWarmupSteps: scheduler.DefaultNumWarmupSteps,
				Power:          scheduler.DefaultWarmupPower,
			},
			Noam: NoamParams{
				WarmupSteps: scheduler.DefaultNoamWarmupSteps,
				ModelSize:   scheduler.DefaultModelSize,
			},
			Cosine: CosineParams{
				TotalSteps: 1000,
			},
			Exponential: ExponentialParams{
				Gamma: scheduler.DefaultExponentialGamma,
			},
		},
		Training: TrainingConfig{
			Steps:              100,
			Samples:            64,
			CheckpointInterval: 10,
			CheckpointPath:     "checkpoints/lrsched.db",
		},
		Interface: InterfaceConfig{
			LogLevel: "info",
			LogPath:  "logs/lrsched.log",
		},
	}
}

// Load reads and parses the configuration file. Missing fields keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to DefaultConfig on any error.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the training settings and the selected scheduler policy.
func (c *Config) Validate() error {
	if c.Training.Steps <= 0 {
		return fmt.Errorf("training steps must be positive, got %d", c.Training.Steps)
	}
	if c.Training.Samples <= 1 {
		return fmt.Errorf("training samples must be at least 2, got %d", c.Training.Samples)
	}
	if c.Training.CheckpointInterval < 0 {
		return fmt.Errorf("checkpoint interval must not be negative, got %d", c.Training.CheckpointInterval)
	}
	if c.Training.CheckpointPath == "" {
		return fmt.Errorf("checkpoint path must be set")
	}
	if _, err := c.Scheduler.Build(); err != nil {
		return err
	}
	return nil
}

// EnsureDirectories creates the parent directories of the log and checkpoint files.
func (c *Config) EnsureDirectories() error {
	paths := []string{c.Interface.LogPath, c.Training.CheckpointPath}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}
	return nil
}

// Build validates the selected policy and returns it behind
// scheduler.Checkpointable, keyed as SchedulerComponent.
func (s SchedulerConfig) Build() (scheduler.Checkpointable, error) {
	kind, err := scheduler.ParseKind(s.Kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case scheduler.KindConstant:
		cfg := scheduler.NewConstantConfig(s.InitLR)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return scheduler.Erase[scheduler.ConstantRecord](SchedulerComponent, cfg.Init()), nil

	case scheduler.KindStep:
		cfg := scheduler.NewStepConfig(s.InitLR).
			WithStepSize(s.Step.StepSize).
			WithGamma(s.Step.Gamma)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return scheduler.Erase[scheduler.StepRecord](SchedulerComponent, cfg.Init()), nil

	case scheduler.KindWarmup:
		cfg := scheduler.NewWarmupConfig(s.InitLR).
			WithNumWarmupSteps(s.Warmup.NumWarmupSteps).
			WithPower(s.Warmup.Power)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return scheduler.Erase[scheduler.WarmupRecord](SchedulerComponent, cfg.Init()), nil

	case scheduler.KindNoam:
		cfg := scheduler.NewNoamConfig(s.InitLR).
			WithWarmupSteps(s.Noam.WarmupSteps).
			WithModelSize(s.Noam.ModelSize)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return scheduler.Erase[scheduler.NoamRecord](SchedulerComponent, cfg.Init()), nil

	case scheduler.KindCosine:
		cfg := scheduler.NewCosineConfig(s.InitLR, s.Cosine.TotalSteps).
			WithWarmupSteps(s.Cosine.WarmupSteps).
			WithMinLR(s.Cosine.MinLR)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return scheduler.Erase[scheduler.CosineRecord](SchedulerComponent, cfg.Init()), nil

	case scheduler.KindExponential:
		cfg := scheduler.NewExponentialConfig(s.InitLR).WithGamma(s.Exponential.Gamma)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return scheduler.Erase[scheduler.ExponentialRecord](SchedulerComponent, cfg.Init()), nil
	}

	return nil, fmt.Errorf("%w: %q", scheduler.ErrUnknownKind, s.Kind)
}
