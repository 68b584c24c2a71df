package scheduler

import "math"

const (
	// DefaultNumWarmupSteps is the length of the warmup ramp.
	DefaultNumWarmupSteps = 5
	// DefaultWarmupPower gives a linear ramp.
	DefaultWarmupPower = 1.0
)

// WarmupRecord is the progress of a WarmupScheduler.
type WarmupRecord uint64

// WarmupConfig configures a polynomial warmup. InitLR is the rate reached
// once warmup is over.
type WarmupConfig struct {
	InitLR         LearningRate `json:"init_lr"`
	NumWarmupSteps int          `json:"num_warmup_steps"`
	Power          float64      `json:"power"`
}

// NewWarmupConfig returns a linear five step warmup towards initLR.
func NewWarmupConfig(initLR LearningRate) WarmupConfig {
	return WarmupConfig{
		InitLR:         initLR,
		NumWarmupSteps: DefaultNumWarmupSteps,
		Power:          DefaultWarmupPower,
	}
}

// WithNumWarmupSteps sets the ramp length.
func (c WarmupConfig) WithNumWarmupSteps(n int) WarmupConfig {
	c.NumWarmupSteps = n
	return c
}

// WithPower sets the ramp exponent.
func (c WarmupConfig) WithPower(power float64) WarmupConfig {
	c.Power = power
	return c
}

// Validate checks the ramp length, exponent and target rate.
func (c WarmupConfig) Validate() error {
	if err := validateInitLR(c.InitLR); err != nil {
		return err
	}
	if c.NumWarmupSteps <= 0 {
		return invalidf("num_warmup_steps must be positive, got %d", c.NumWarmupSteps)
	}
	if math.IsNaN(c.Power) || c.Power < 0 {
		return invalidf("power must be non-negative, got %v", c.Power)
	}
	return nil
}

// Init creates a fresh scheduler.
func (c WarmupConfig) Init() *WarmupScheduler {
	return &WarmupScheduler{
		initLR:         c.InitLR,
		numWarmupSteps: float64(c.NumWarmupSteps),
		power:          c.Power,
	}
}

// WarmupScheduler ramps the rate up to initLR and then holds it.
type WarmupScheduler struct {
	initLR         LearningRate
	numWarmupSteps float64
	power          float64
	step           float64
}

// Step implements Scheduler.
//
// During warmup the rate is initLR * step / numWarmupSteps^power. Only the
// denominator is raised to power. Once step reaches numWarmupSteps the rate
// switches to initLR.
func (s *WarmupScheduler) Step() LearningRate {
	s.step++

	if s.step < s.numWarmupSteps {
		factor := s.step / math.Pow(s.numWarmupSteps, s.power)
		return s.initLR * factor
	}
	return s.initLR
}

// ToRecord implements Scheduler.
func (s *WarmupScheduler) ToRecord() WarmupRecord {
	return WarmupRecord(s.step)
}

// LoadRecord implements Scheduler.
func (s *WarmupScheduler) LoadRecord(record WarmupRecord) {
	s.step = float64(record)
}
