package scheduler

import "math"

const (
	// DefaultStepSize is the number of steps between two decays.
	DefaultStepSize = 10
	// DefaultGamma is the multiplicative decay factor.
	DefaultGamma = 0.1
)

// StepRecord is the progress of a StepScheduler.
type StepRecord uint64

// StepConfig configures a piecewise-constant exponential decay:
// init_lr * gamma^floor(step / step_size).
type StepConfig struct {
	InitLR   LearningRate `json:"init_lr"`
	StepSize int64        `json:"step_size"`
	Gamma    float64      `json:"gamma"`
}

// NewStepConfig returns a step decay config with the default period and factor.
func NewStepConfig(initLR LearningRate) StepConfig {
	return StepConfig{
		InitLR:   initLR,
		StepSize: DefaultStepSize,
		Gamma:    DefaultGamma,
	}
}

// WithStepSize sets the decay period.
func (c StepConfig) WithStepSize(stepSize int64) StepConfig {
	c.StepSize = stepSize
	return c
}

// WithGamma sets the decay factor.
func (c StepConfig) WithGamma(gamma float64) StepConfig {
	c.Gamma = gamma
	return c
}

// Validate checks the period and the initial rate. Gamma is not range checked;
// values above 1 grow the rate instead of decaying it.
func (c StepConfig) Validate() error {
	if err := validateInitLR(c.InitLR); err != nil {
		return err
	}
	if c.StepSize <= 0 {
		return invalidf("step_size must be positive, got %d", c.StepSize)
	}
	if math.IsNaN(c.Gamma) || c.Gamma < 0 {
		return invalidf("gamma must be non-negative, got %v", c.Gamma)
	}
	return nil
}

// Init creates a fresh scheduler.
func (c StepConfig) Init() *StepScheduler {
	return &StepScheduler{
		initLR:   c.InitLR,
		stepSize: c.StepSize,
		gamma:    c.Gamma,
	}
}

// StepScheduler decays the rate by gamma every stepSize steps.
type StepScheduler struct {
	initLR   LearningRate
	stepSize int64
	gamma    float64
	step     float64
}

// Step implements Scheduler. The first call yields the rate for step 1.
func (s *StepScheduler) Step() LearningRate {
	s.step++
	factor := math.Pow(s.gamma, decayExponent(s.step, s.stepSize))
	return s.initLR * factor
}

// ToRecord implements Scheduler.
func (s *StepScheduler) ToRecord() StepRecord {
	return StepRecord(s.step)
}

// LoadRecord implements Scheduler.
func (s *StepScheduler) LoadRecord(record StepRecord) {
	s.step = float64(record)
}

// decayExponent truncates step/stepSize with integer division. A zero period
// yields +Inf instead of panicking.
func decayExponent(step float64, stepSize int64) float64 {
	if stepSize == 0 {
		return math.Inf(1)
	}
	return float64(int64(step) / stepSize)
}
