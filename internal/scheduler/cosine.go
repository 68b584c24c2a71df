package scheduler

import "math"

// CosineRecord is the progress of a CosineScheduler.
type CosineRecord uint64

// CosineConfig configures cosine annealing with an optional linear warmup.
type CosineConfig struct {
	InitLR      LearningRate `json:"init_lr"`
	MinLR       LearningRate `json:"min_lr"`
	WarmupSteps int          `json:"warmup_steps"`
	TotalSteps  int          `json:"total_steps"`
}

// NewCosineConfig anneals from initLR down to zero over totalSteps, without warmup.
func NewCosineConfig(initLR LearningRate, totalSteps int) CosineConfig {
	return CosineConfig{
		InitLR:     initLR,
		TotalSteps: totalSteps,
	}
}

// WithMinLR sets the floor reached at the end of the cycle.
func (c CosineConfig) WithMinLR(minLR LearningRate) CosineConfig {
	c.MinLR = minLR
	return c
}

// WithWarmupSteps sets the length of the linear ramp before annealing starts.
func (c CosineConfig) WithWarmupSteps(n int) CosineConfig {
	c.WarmupSteps = n
	return c
}

// Validate checks the rates and the step counts.
func (c CosineConfig) Validate() error {
	if err := validateInitLR(c.InitLR); err != nil {
		return err
	}
	if math.IsNaN(c.MinLR) || c.MinLR < 0 || c.MinLR > c.InitLR {
		return invalidf("min_lr must be within [0, init_lr], got %v", c.MinLR)
	}
	if c.WarmupSteps < 0 {
		return invalidf("warmup_steps must not be negative, got %d", c.WarmupSteps)
	}
	if c.TotalSteps <= c.WarmupSteps {
		return invalidf("total_steps (%d) must exceed warmup_steps (%d)", c.TotalSteps, c.WarmupSteps)
	}
	return nil
}

// Init creates a fresh scheduler.
func (c CosineConfig) Init() *CosineScheduler {
	return &CosineScheduler{
		initLR:      c.InitLR,
		minLR:       c.MinLR,
		warmupSteps: float64(c.WarmupSteps),
		totalSteps:  float64(c.TotalSteps),
	}
}

// CosineScheduler ramps linearly to initLR over warmupSteps, then follows half
// a cosine down to minLR at totalSteps and stays there.
type CosineScheduler struct {
	initLR      LearningRate
	minLR       LearningRate
	warmupSteps float64
	totalSteps  float64
	step        float64
}

// Step implements Scheduler.
func (s *CosineScheduler) Step() LearningRate {
	s.step++

	if s.step <= s.warmupSteps {
		return s.initLR * s.step / s.warmupSteps
	}

	progress := 1.0
	if span := s.totalSteps - s.warmupSteps; span > 0 {
		progress = math.Min((s.step-s.warmupSteps)/span, 1.0)
	}
	cosine := 0.5 * (1.0 + math.Cos(math.Pi*progress))
	return s.minLR + (s.initLR-s.minLR)*cosine
}

// ToRecord implements Scheduler.
func (s *CosineScheduler) ToRecord() CosineRecord {
	return CosineRecord(s.step)
}

// LoadRecord implements Scheduler.
func (s *CosineScheduler) LoadRecord(record CosineRecord) {
	s.step = float64(record)
}
