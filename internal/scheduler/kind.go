package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a scheduling policy in config files and on the command line.
type Kind string

const (
	KindConstant    Kind = "constant"
	KindStep        Kind = "step"
	KindWarmup      Kind = "warmup"
	KindNoam        Kind = "noam"
	KindCosine      Kind = "cosine"
	KindExponential Kind = "exponential"
)

// ErrUnknownKind is returned by ParseKind for unsupported policy names.
var ErrUnknownKind = errors.New("unknown scheduler kind")

// Kinds lists every supported policy.
func Kinds() []Kind {
	return []Kind{KindConstant, KindStep, KindWarmup, KindNoam, KindCosine, KindExponential}
}

// ParseKind matches name case-insensitively against the supported policies.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

var (
	_ Scheduler[ConstantRecord]    = (*ConstantScheduler)(nil)
	_ Scheduler[StepRecord]        = (*StepScheduler)(nil)
	_ Scheduler[WarmupRecord]      = (*WarmupScheduler)(nil)
	_ Scheduler[NoamRecord]        = (*NoamScheduler)(nil)
	_ Scheduler[CosineRecord]      = (*CosineScheduler)(nil)
	_ Scheduler[ExponentialRecord] = (*ExponentialScheduler)(nil)
)
