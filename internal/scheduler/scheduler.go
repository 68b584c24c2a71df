// Package scheduler computes step-indexed learning rates for a training loop.
//
// Every policy keeps a step counter that starts at zero and advances by one on
// each call to Step. Progress is exported as a small per-policy record so a
// restarted process can continue the exact same sequence of rates.
package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// LearningRate is the scalar handed to the optimizer on every update.
type LearningRate = float64

// ErrInvalidConfig is wrapped by every Validate error.
var ErrInvalidConfig = errors.New("invalid scheduler config")

// Scheduler is the contract shared by all learning rate policies.
//
// Step must be called exactly once per optimizer update. The scheduler does not
// check the call cadence; calling it more or less often simply shifts the
// schedule relative to training progress.
type Scheduler[R any] interface {
	// Step advances the schedule by one and returns the rate for that step.
	Step() LearningRate
	// ToRecord snapshots progress without changing it.
	ToRecord() R
	// LoadRecord resumes from a record produced by ToRecord. The record is
	// trusted as-is.
	LoadRecord(record R)
}

// Checkpointable is a scheduler with its record type erased, the shape a
// training loop stores next to its other checkpoint components.
type Checkpointable interface {
	Name() string
	Step() LearningRate
	MarshalRecord() ([]byte, error)
	UnmarshalRecord(data []byte) error
}

type erased[R any] struct {
	name  string
	sched Scheduler[R]
}

// Erase wraps a typed scheduler so it can be held behind Checkpointable.
// Records are encoded as JSON.
func Erase[R any](name string, s Scheduler[R]) Checkpointable {
	return &erased[R]{name: name, sched: s}
}

func (e *erased[R]) Name() string {
	return e.name
}

func (e *erased[R]) Step() LearningRate {
	return e.sched.Step()
}

func (e *erased[R]) MarshalRecord() ([]byte, error) {
	data, err := json.Marshal(e.sched.ToRecord())
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s record: %w", e.name, err)
	}
	return data, nil
}

func (e *erased[R]) UnmarshalRecord(data []byte) error {
	var record R
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("failed to decode %s record: %w", e.name, err)
	}
	e.sched.LoadRecord(record)
	return nil
}

// Sequence advances s n times and returns the produced rates.
func Sequence[R any](s Scheduler[R], n int) []LearningRate {
	if n <= 0 {
		return nil
	}
	rates := make([]LearningRate, n)
	for i := range rates {
		rates[i] = s.Step()
	}
	return rates
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func validateInitLR(lr LearningRate) error {
	if math.IsNaN(lr) || math.IsInf(lr, 0) || lr < 0 {
		return invalidf("init_lr must be finite and non-negative, got %v", lr)
	}
	return nil
}
