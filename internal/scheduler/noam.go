package scheduler

import "math"

const (
	// DefaultNoamWarmupSteps is the step at which the Noam schedule peaks.
	DefaultNoamWarmupSteps = 4000
	// DefaultModelSize is the transformer width used for scaling.
	DefaultModelSize = 512
)

// NoamRecord is the progress of a NoamScheduler.
type NoamRecord uint64

// NoamConfig configures the transformer schedule from "Attention Is All You
// Need": linear warmup followed by inverse square root decay.
type NoamConfig struct {
	InitLR      LearningRate `json:"init_lr"`
	WarmupSteps int          `json:"warmup_steps"`
	ModelSize   int          `json:"model_size"`
}

// NewNoamConfig returns a Noam config with the usual 4000 warmup steps and a
// model width of 512.
func NewNoamConfig(initLR LearningRate) NoamConfig {
	return NoamConfig{
		InitLR:      initLR,
		WarmupSteps: DefaultNoamWarmupSteps,
		ModelSize:   DefaultModelSize,
	}
}

// WithWarmupSteps sets the step at which the rate peaks.
func (c NoamConfig) WithWarmupSteps(n int) NoamConfig {
	c.WarmupSteps = n
	return c
}

// WithModelSize sets the model width.
func (c NoamConfig) WithModelSize(n int) NoamConfig {
	c.ModelSize = n
	return c
}

// Validate rejects a non-positive peak step or model width.
func (c NoamConfig) Validate() error {
	if err := validateInitLR(c.InitLR); err != nil {
		return err
	}
	if c.WarmupSteps <= 0 {
		return invalidf("warmup_steps must be positive, got %d", c.WarmupSteps)
	}
	if c.ModelSize <= 0 {
		return invalidf("model_size must be positive, got %d", c.ModelSize)
	}
	return nil
}

// Init creates a fresh scheduler.
func (c NoamConfig) Init() *NoamScheduler {
	return &NoamScheduler{
		initLR:      c.InitLR,
		warmupSteps: float64(c.WarmupSteps),
		modelSize:   float64(c.ModelSize),
	}
}

// NoamScheduler computes
//
//	init_lr * model_size^-0.5 * min(step^-0.5, step * warmup_steps^-1.5)
//
// which grows linearly until warmup_steps and decays afterwards.
type NoamScheduler struct {
	initLR      LearningRate
	warmupSteps float64
	modelSize   float64
	step        float64
}

// Step implements Scheduler.
func (s *NoamScheduler) Step() LearningRate {
	s.step++

	decay := math.Pow(s.step, -0.5)
	warmup := s.step * math.Pow(s.warmupSteps, -1.5)
	return s.initLR * math.Pow(s.modelSize, -0.5) * math.Min(decay, warmup)
}

// ToRecord implements Scheduler.
func (s *NoamScheduler) ToRecord() NoamRecord {
	return NoamRecord(s.step)
}

// LoadRecord implements Scheduler.
func (s *NoamScheduler) LoadRecord(record NoamRecord) {
	s.step = float64(record)
}
