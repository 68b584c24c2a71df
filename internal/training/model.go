package training

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Weights are the learnable parameters of LinearModel.
type Weights struct {
	Weight float64 `json:"weight"`
	Bias   float64 `json:"bias"`
}

// Dataset is a set of (x, y) pairs for a one-dimensional regression.
type Dataset struct {
	X []float64
	Y []float64
}

// LinearDataset samples y = slope*x + intercept on n evenly spaced points in [0, 1].
func LinearDataset(n int, slope, intercept float64) Dataset {
	ds := Dataset{X: make([]float64, n), Y: make([]float64, n)}
	for i := 0; i < n; i++ {
		x := 0.0
		if n > 1 {
			x = float64(i) / float64(n-1)
		}
		ds.X[i] = x
		ds.Y[i] = slope*x + intercept
	}
	return ds
}

// LinearModel fits y = w*x + b by minimising the mean squared error. The
// whole dataset is used as a single batch.
type LinearModel struct {
	g    *gorgonia.ExprGraph
	x    *gorgonia.Node
	y    *gorgonia.Node
	w    *gorgonia.Node
	b    *gorgonia.Node
	loss *gorgonia.Node
	vm   gorgonia.VM
}

// NewLinearModel builds the graph for len(ds.X) samples starting from init.
func NewLinearModel(ds Dataset, init Weights) (*LinearModel, error) {
	n := len(ds.X)
	if n == 0 || n != len(ds.Y) {
		return nil, fmt.Errorf("invalid dataset: %d inputs, %d targets", len(ds.X), len(ds.Y))
	}

	g := gorgonia.NewGraph()

	x := gorgonia.NewVector(g, tensor.Float64, gorgonia.WithShape(n), gorgonia.WithName("x"))
	y := gorgonia.NewVector(g, tensor.Float64, gorgonia.WithShape(n), gorgonia.WithName("y"))
	w := gorgonia.NewScalar(g, tensor.Float64, gorgonia.WithName("w"), gorgonia.WithValue(init.Weight))
	b := gorgonia.NewScalar(g, tensor.Float64, gorgonia.WithName("b"), gorgonia.WithValue(init.Bias))

	pred, err := gorgonia.Mul(x, w)
	if err != nil {
		return nil, fmt.Errorf("mul failed: %w", err)
	}
	pred, err = gorgonia.Add(pred, b)
	if err != nil {
		return nil, fmt.Errorf("add failed: %w", err)
	}
	diff, err := gorgonia.Sub(pred, y)
	if err != nil {
		return nil, fmt.Errorf("sub failed: %w", err)
	}
	sq, err := gorgonia.Square(diff)
	if err != nil {
		return nil, fmt.Errorf("square failed: %w", err)
	}
	loss, err := gorgonia.Mean(sq)
	if err != nil {
		return nil, fmt.Errorf("mean failed: %w", err)
	}

	if _, err := gorgonia.Grad(loss, w, b); err != nil {
		return nil, fmt.Errorf("failed to compute gradients: %w", err)
	}

	xT := tensor.New(tensor.WithShape(n), tensor.WithBacking(append([]float64(nil), ds.X...)))
	yT := tensor.New(tensor.WithShape(n), tensor.WithBacking(append([]float64(nil), ds.Y...)))
	if err := gorgonia.Let(x, xT); err != nil {
		return nil, fmt.Errorf("failed to set input: %w", err)
	}
	if err := gorgonia.Let(y, yT); err != nil {
		return nil, fmt.Errorf("failed to set target: %w", err)
	}

	return &LinearModel{
		g:    g,
		x:    x,
		y:    y,
		w:    w,
		b:    b,
		loss: loss,
		vm:   gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(w, b)),
	}, nil
}

// TrainStep runs one forward/backward pass and applies a plain SGD update
// with learning rate lr. It returns the loss before the update.
func (m *LinearModel) TrainStep(lr float64) (float64, error) {
	defer m.vm.Reset()

	if err := m.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("failed to run forward/backward: %w", err)
	}

	loss, err := scalarValue(m.loss.Value())
	if err != nil {
		return 0, fmt.Errorf("loss: %w", err)
	}

	// The solver carries no state between steps, so it is rebuilt whenever the
	// schedule hands out a new rate.
	solver := gorgonia.NewVanillaSolver(gorgonia.WithLearnRate(lr))
	valueGrads := []gorgonia.ValueGrad{m.w, m.b}
	if err := solver.Step(valueGrads); err != nil {
		return 0, fmt.Errorf("failed to update weights: %w", err)
	}

	return loss, nil
}

// Weights returns the current parameters.
func (m *LinearModel) Weights() (Weights, error) {
	w, err := scalarValue(m.w.Value())
	if err != nil {
		return Weights{}, fmt.Errorf("weight: %w", err)
	}
	b, err := scalarValue(m.b.Value())
	if err != nil {
		return Weights{}, fmt.Errorf("bias: %w", err)
	}
	return Weights{Weight: w, Bias: b}, nil
}

// Close releases the tape machine.
func (m *LinearModel) Close() error {
	return m.vm.Close()
}

func scalarValue(v gorgonia.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("value is nil")
	}

	switch d := v.Data().(type) {
	case float64:
		return d, nil
	case []float64:
		if len(d) == 0 {
			return 0, fmt.Errorf("value array is empty")
		}
		return d[0], nil
	default:
		return 0, fmt.Errorf("unexpected value type: %T", d)
	}
}
