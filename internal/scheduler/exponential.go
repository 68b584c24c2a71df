package scheduler

import "math"

// DefaultExponentialGamma shrinks the rate by 1% per step.
const DefaultExponentialGamma = 0.99

// ExponentialRecord is the progress of an ExponentialScheduler.
type ExponentialRecord uint64

// ExponentialConfig configures init_lr * gamma^step.
type ExponentialConfig struct {
	InitLR LearningRate `json:"init_lr"`
	Gamma  float64      `json:"gamma"`
}

// NewExponentialConfig returns an exponential decay config with gamma 0.99.
func NewExponentialConfig(initLR LearningRate) ExponentialConfig {
	return ExponentialConfig{InitLR: initLR, Gamma: DefaultExponentialGamma}
}

// WithGamma sets the per-step factor.
func (c ExponentialConfig) WithGamma(gamma float64) ExponentialConfig {
	c.Gamma = gamma
	return c
}

// Validate checks the initial rate and that gamma is non-negative.
func (c ExponentialConfig) Validate() error {
	if err := validateInitLR(c.InitLR); err != nil {
		return err
	}
	if math.IsNaN(c.Gamma) || c.Gamma < 0 {
		return invalidf("gamma must be non-negative, got %v", c.Gamma)
	}
	return nil
}

// Init creates a fresh scheduler.
func (c ExponentialConfig) Init() *ExponentialScheduler {
	return &ExponentialScheduler{initLR: c.InitLR, gamma: c.Gamma}
}

// ExponentialScheduler multiplies the rate by gamma on every step.
type ExponentialScheduler struct {
	initLR LearningRate
	gamma  float64
	step   float64
}

// Step implements Scheduler.
func (s *ExponentialScheduler) Step() LearningRate {
	s.step++
	return s.initLR * math.Pow(s.gamma, s.step)
}

// ToRecord implements Scheduler.
func (s *ExponentialScheduler) ToRecord() ExponentialRecord {
	return ExponentialRecord(s.step)
}

// LoadRecord implements Scheduler.
func (s *ExponentialScheduler) LoadRecord(record ExponentialRecord) {
	s.step = float64(record)
}
