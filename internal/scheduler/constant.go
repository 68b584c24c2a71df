package scheduler

// ConstantRecord is the progress of a ConstantScheduler.
type ConstantRecord uint64

// ConstantConfig configures a fixed learning rate.
type ConstantConfig struct {
	InitLR LearningRate `json:"init_lr"`
}

// NewConstantConfig returns a config for a schedule that always yields initLR.
func NewConstantConfig(initLR LearningRate) ConstantConfig {
	return ConstantConfig{InitLR: initLR}
}

// Validate reports whether the config produces finite, non-negative rates.
func (c ConstantConfig) Validate() error {
	return validateInitLR(c.InitLR)
}

// Init creates a fresh scheduler.
func (c ConstantConfig) Init() *ConstantScheduler {
	return &ConstantScheduler{initLR: c.InitLR}
}

// ConstantScheduler returns the same rate on every step. The counter is only
// kept so its record has the same shape as the other policies.
type ConstantScheduler struct {
	initLR LearningRate
	step   float64
}

// Step implements Scheduler.
func (s *ConstantScheduler) Step() LearningRate {
	s.step++
	return s.initLR
}

// ToRecord implements Scheduler.
func (s *ConstantScheduler) ToRecord() ConstantRecord {
	return ConstantRecord(s.step)
}

// LoadRecord implements Scheduler.
func (s *ConstantScheduler) LoadRecord(record ConstantRecord) {
	s.step = float64(record)
}
