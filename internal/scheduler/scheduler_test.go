package scheduler

import (
	"errors"
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestStepSchedulerDecay(t *testing.T) {
	initLR := 10.0
	stepSize := int64(2)
	gamma := 0.9

	sched := NewStepConfig(initLR).
		WithStepSize(stepSize).
		WithGamma(gamma).
		Init()

	for epoch := int64(1); epoch < 10; epoch++ {
		lr := sched.Step()
		expected := initLR * math.Pow(gamma, float64(epoch/stepSize))
		if lr != expected {
			t.Errorf("epoch %d: got %v, want %v", epoch, lr, expected)
		}
	}
}

func TestStepSchedulerFirstValues(t *testing.T) {
	sched := NewStepConfig(10.0).WithStepSize(2).WithGamma(0.9).Init()
	want := []float64{10.0, 9.0, 9.0, 8.1}

	for i, w := range want {
		if lr := sched.Step(); !approxEqual(lr, w, 1e-12) {
			t.Errorf("step %d: got %v, want %v", i+1, lr, w)
		}
	}
}

func TestStepSchedulerDefaults(t *testing.T) {
	cfg := NewStepConfig(1.0)
	if cfg.StepSize != 10 {
		t.Errorf("Expected default step size 10, got %d", cfg.StepSize)
	}
	if cfg.Gamma != 0.1 {
		t.Errorf("Expected default gamma 0.1, got %v", cfg.Gamma)
	}

	rates := Sequence[StepRecord](cfg.Init(), 10)
	for i := 0; i < 9; i++ {
		if rates[i] != 1.0 {
			t.Errorf("step %d: expected undecayed rate, got %v", i+1, rates[i])
		}
	}
	if !approxEqual(rates[9], 0.1, 1e-15) {
		t.Errorf("step 10: expected 0.1, got %v", rates[9])
	}
}

func TestStepSchedulerZeroPeriodDoesNotPanic(t *testing.T) {
	sched := StepConfig{InitLR: 1.0, StepSize: 0, Gamma: 0.5}.Init()
	lr := sched.Step()
	if lr != 0 {
		t.Errorf("Expected rate to collapse to 0 with a zero period, got %v", lr)
	}
}

func TestWarmupScheduler(t *testing.T) {
	sched := WarmupConfig{InitLR: 0.1, NumWarmupSteps: 5, Power: 1.0}.Init()
	want := []float64{0.02, 0.04, 0.06, 0.08, 0.1, 0.1, 0.1}

	for i, w := range want {
		if lr := sched.Step(); !approxEqual(lr, w, 1e-5) {
			t.Errorf("step %d: got %v, want %v", i+1, lr, w)
		}
	}
}

func TestWarmupSchedulerBoundary(t *testing.T) {
	initLR := 0.5
	sched := NewWarmupConfig(initLR).WithNumWarmupSteps(20).Init()

	prev := 0.0
	for step := 1; step < 20; step++ {
		lr := sched.Step()
		if lr <= prev {
			t.Fatalf("step %d: rate %v did not increase over %v", step, lr, prev)
		}
		if lr >= initLR {
			t.Fatalf("step %d: rate %v reached init_lr during warmup", step, lr)
		}
		prev = lr
	}

	for step := 20; step < 100; step++ {
		if lr := sched.Step(); lr != initLR {
			t.Fatalf("step %d: expected %v after warmup, got %v", step, initLR, lr)
		}
	}
}

func TestWarmupSchedulerPowerUsesRawNumerator(t *testing.T) {
	sched := NewWarmupConfig(1.0).WithNumWarmupSteps(4).WithPower(2.0).Init()

	// step / 4^2
	want := []float64{1.0 / 16, 2.0 / 16, 3.0 / 16, 1.0}
	for i, w := range want {
		if lr := sched.Step(); !approxEqual(lr, w, 1e-12) {
			t.Errorf("step %d: got %v, want %v", i+1, lr, w)
		}
	}
}

func TestConstantScheduler(t *testing.T) {
	initLR := 0.0003
	sched := NewConstantConfig(initLR).Init()

	for i := 0; i < 1000; i++ {
		if lr := sched.Step(); lr != initLR {
			t.Fatalf("call %d: got %v, want %v", i+1, lr, initLR)
		}
	}
	if rec := sched.ToRecord(); rec != 1000 {
		t.Errorf("Expected record 1000, got %d", rec)
	}
}

func TestNoamSchedulerShape(t *testing.T) {
	warmup := 50
	sched := NewNoamConfig(1.0).WithWarmupSteps(warmup).WithModelSize(64).Init()
	rates := Sequence[NoamRecord](sched, 500)

	peak := 0
	for i := 1; i < len(rates); i++ {
		if rates[i] > rates[peak] {
			peak = i
		}
	}
	if peak != warmup-1 {
		t.Errorf("Expected peak at step %d, got step %d", warmup, peak+1)
	}

	for i := 1; i <= peak; i++ {
		if rates[i] <= rates[i-1] {
			t.Errorf("step %d: rate did not increase during warmup", i+1)
		}
	}
	for i := peak + 1; i < len(rates); i++ {
		if rates[i] >= rates[i-1] {
			t.Errorf("step %d: rate did not decrease after warmup", i+1)
		}
	}

	expectedPeak := math.Pow(64, -0.5) * math.Pow(float64(warmup), -0.5)
	if !approxEqual(rates[peak], expectedPeak, 1e-12) {
		t.Errorf("Expected peak rate %v, got %v", expectedPeak, rates[peak])
	}
}

func TestNoamDefaults(t *testing.T) {
	cfg := NewNoamConfig(2.0)
	if cfg.WarmupSteps != 4000 || cfg.ModelSize != 512 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestCosineScheduler(t *testing.T) {
	sched := NewCosineConfig(1.0, 12).WithWarmupSteps(2).WithMinLR(0.1).Init()
	rates := Sequence[CosineRecord](sched, 15)

	if !approxEqual(rates[0], 0.5, 1e-12) || !approxEqual(rates[1], 1.0, 1e-12) {
		t.Errorf("Unexpected warmup rates: %v", rates[:2])
	}
	for i := 2; i < 12; i++ {
		if rates[i] >= rates[i-1] {
			t.Errorf("step %d: rate did not decrease during annealing", i+1)
		}
	}
	for i := 11; i < len(rates); i++ {
		if !approxEqual(rates[i], 0.1, 1e-12) {
			t.Errorf("step %d: expected min_lr, got %v", i+1, rates[i])
		}
	}
}

func TestExponentialScheduler(t *testing.T) {
	sched := NewExponentialConfig(1.0).WithGamma(0.5).Init()
	want := []float64{0.5, 0.25, 0.125}
	for i, w := range want {
		if lr := sched.Step(); lr != w {
			t.Errorf("step %d: got %v, want %v", i+1, lr, w)
		}
	}
}

func TestRecordBeforeFirstStep(t *testing.T) {
	if rec := NewConstantConfig(1).Init().ToRecord(); rec != 0 {
		t.Errorf("constant: expected zero record, got %d", rec)
	}
	if rec := NewStepConfig(1).Init().ToRecord(); rec != 0 {
		t.Errorf("step: expected zero record, got %d", rec)
	}
	if rec := NewWarmupConfig(1).Init().ToRecord(); rec != 0 {
		t.Errorf("warmup: expected zero record, got %d", rec)
	}
	if rec := NewNoamConfig(1).Init().ToRecord(); rec != 0 {
		t.Errorf("noam: expected zero record, got %d", rec)
	}
}

// roundTrip steps original n times, restores a fresh instance from its record
// and checks both produce the same next rates.
func roundTrip[R any](t *testing.T, name string, original, fresh Scheduler[R], n int) {
	t.Helper()

	Sequence(original, n)
	fresh.LoadRecord(original.ToRecord())

	for i := 0; i < 50; i++ {
		want := original.Step()
		got := fresh.Step()
		if got != want {
			t.Fatalf("%s: step %d after restore: got %v, want %v", name, n+i+1, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 7, 25} {
		step := NewStepConfig(3.0).WithStepSize(4).WithGamma(0.8)
		roundTrip[StepRecord](t, "step", step.Init(), step.Init(), n)

		warmup := NewWarmupConfig(0.1).WithNumWarmupSteps(10).WithPower(1.5)
		roundTrip[WarmupRecord](t, "warmup", warmup.Init(), warmup.Init(), n)

		constant := NewConstantConfig(0.01)
		roundTrip[ConstantRecord](t, "constant", constant.Init(), constant.Init(), n)

		noam := NewNoamConfig(1.0).WithWarmupSteps(8).WithModelSize(16)
		roundTrip[NoamRecord](t, "noam", noam.Init(), noam.Init(), n)

		cosine := NewCosineConfig(1.0, 30).WithWarmupSteps(3)
		roundTrip[CosineRecord](t, "cosine", cosine.Init(), cosine.Init(), n)

		exp := NewExponentialConfig(1.0)
		roundTrip[ExponentialRecord](t, "exponential", exp.Init(), exp.Init(), n)
	}
}

func TestNonNegativeAndFinite(t *testing.T) {
	tests := []struct {
		name  string
		sched Checkpointable
	}{
		{"constant", Erase[ConstantRecord]("c", NewConstantConfig(0).Init())},
		{"step", Erase[StepRecord]("s", NewStepConfig(0.5).WithStepSize(1).WithGamma(1).Init())},
		{"step-small-gamma", Erase[StepRecord]("s", NewStepConfig(0.5).WithStepSize(3).WithGamma(1e-3).Init())},
		{"warmup", Erase[WarmupRecord]("w", NewWarmupConfig(2).WithPower(0).Init())},
		{"warmup-power", Erase[WarmupRecord]("w", NewWarmupConfig(2).WithPower(3).WithNumWarmupSteps(40).Init())},
		{"noam", Erase[NoamRecord]("n", NewNoamConfig(1).WithWarmupSteps(10).Init())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 2000; i++ {
				lr := tt.sched.Step()
				if lr < 0 || math.IsNaN(lr) || math.IsInf(lr, 0) {
					t.Fatalf("call %d: invalid rate %v", i+1, lr)
				}
			}
		})
	}
}

func TestEraseRecordRoundTrip(t *testing.T) {
	cfg := NewStepConfig(1.0).WithStepSize(3).WithGamma(0.5)
	original := Erase[StepRecord]("lr_scheduler", cfg.Init())
	for i := 0; i < 7; i++ {
		original.Step()
	}

	data, err := original.MarshalRecord()
	if err != nil {
		t.Fatalf("MarshalRecord failed: %v", err)
	}
	if string(data) != "7" {
		t.Errorf("Expected record 7, got %s", data)
	}

	restored := Erase[StepRecord]("lr_scheduler", cfg.Init())
	if err := restored.UnmarshalRecord(data); err != nil {
		t.Fatalf("UnmarshalRecord failed: %v", err)
	}
	if restored.Name() != "lr_scheduler" {
		t.Errorf("Unexpected name %q", restored.Name())
	}

	for i := 0; i < 10; i++ {
		if a, b := original.Step(), restored.Step(); a != b {
			t.Fatalf("step %d: got %v, want %v", i+8, b, a)
		}
	}
}

func TestEraseRejectsMalformedRecord(t *testing.T) {
	s := Erase[WarmupRecord]("warmup", NewWarmupConfig(1).Init())
	if err := s.UnmarshalRecord([]byte(`"not a number"`)); err == nil {
		t.Error("Expected error for malformed record")
	}
	if err := s.UnmarshalRecord([]byte(`-3`)); err == nil {
		t.Error("Expected error for negative record")
	}
}

func TestForeignRecordDoesNotCrash(t *testing.T) {
	noam := Erase[NoamRecord]("n", NewNoamConfig(1).WithWarmupSteps(5).Init())
	for i := 0; i < 12; i++ {
		noam.Step()
	}
	data, err := noam.MarshalRecord()
	if err != nil {
		t.Fatal(err)
	}

	step := Erase[StepRecord]("s", NewStepConfig(1).Init())
	if err := step.UnmarshalRecord(data); err != nil {
		t.Fatalf("Expected record of another policy to load, got %v", err)
	}
	if lr := step.Step(); !approxEqual(lr, 0.1, 1e-15) {
		t.Errorf("Expected rate for step 13, got %v", lr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"step default", NewStepConfig(0.1).Validate(), false},
		{"step zero period", NewStepConfig(0.1).WithStepSize(0).Validate(), true},
		{"step negative period", NewStepConfig(0.1).WithStepSize(-2).Validate(), true},
		{"step negative lr", NewStepConfig(-1).Validate(), true},
		{"step nan lr", NewStepConfig(math.NaN()).Validate(), true},
		{"warmup default", NewWarmupConfig(0.1).Validate(), false},
		{"warmup zero steps", NewWarmupConfig(0.1).WithNumWarmupSteps(0).Validate(), true},
		{"warmup negative power", NewWarmupConfig(0.1).WithPower(-1).Validate(), true},
		{"noam default", NewNoamConfig(1).Validate(), false},
		{"noam zero warmup", NewNoamConfig(1).WithWarmupSteps(0).Validate(), true},
		{"noam zero width", NewNoamConfig(1).WithModelSize(0).Validate(), true},
		{"constant", NewConstantConfig(0.2).Validate(), false},
		{"constant inf", NewConstantConfig(math.Inf(1)).Validate(), true},
		{"cosine", NewCosineConfig(1, 100).WithWarmupSteps(10).Validate(), false},
		{"cosine short", NewCosineConfig(1, 10).WithWarmupSteps(10).Validate(), true},
		{"cosine min above init", NewCosineConfig(1, 100).WithMinLR(2).Validate(), true},
		{"exponential", NewExponentialConfig(1).Validate(), false},
		{"exponential negative gamma", NewExponentialConfig(1).WithGamma(-0.1).Validate(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				if tt.err == nil {
					t.Fatal("Expected validation error")
				}
				if !errors.Is(tt.err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", tt.err)
				}
			} else if tt.err != nil {
				t.Errorf("Unexpected error: %v", tt.err)
			}
		})
	}
}

func TestInitDoesNotValidate(t *testing.T) {
	sched := NewWarmupConfig(0.1).WithNumWarmupSteps(0).Init()
	if lr := sched.Step(); lr != 0.1 {
		t.Errorf("Expected init_lr without warmup, got %v", lr)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"step", KindStep, false},
		{" Warmup ", KindWarmup, false},
		{"NOAM", KindNoam, false},
		{"constant", KindConstant, false},
		{"cosine", KindCosine, false},
		{"exponential", KindExponential, false},
		{"plateau", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownKind) {
				t.Errorf("ParseKind(%q): expected ErrUnknownKind, got %v", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
		}
	}
}

func TestSequenceNonPositive(t *testing.T) {
	sched := NewConstantConfig(1).Init()
	if rates := Sequence[ConstantRecord](sched, 0); rates != nil {
		t.Errorf("Expected nil, got %v", rates)
	}
	if rec := sched.ToRecord(); rec != 0 {
		t.Errorf("Sequence with n=0 must not step, record %d", rec)
	}
}
