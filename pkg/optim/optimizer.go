package optim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"battcore/internal/obs"
	"battcore/pkg/fit"
)

// Result reports an optimisation run. X is in search space; use
// fit.Parameters.ToModel to map it back.
type Result struct {
	X           []float64
	Cost        float64
	Iterations  int
	Evaluations int
}

// Optimizer runs a bound-constrained minimisation of a cost.
type Optimizer interface {
	// Run minimises cost within [lower, upper] starting from start.
	Run(ctx context.Context, cost Cost, lower, upper, start []float64) (Result, error)
}

// PatternSearch is a deterministic coordinate pattern search with shrinking
// steps. Robust for the low-dimensional, smooth-but-black-box objectives the
// toolkit produces; no gradients required.
type PatternSearch struct {
	// Sigma0 scales the initial step as a fraction of each bound range.
	// Defaults to 0.05.
	Sigma0 float64
	// MinIterations runs at least this many iterations before the stall
	// cutoff applies. Defaults to 20.
	MinIterations int
	// MaxIterations caps the run. Defaults to 100.
	MaxIterations int
	// MaxUnchanged stops the run after this many non-improving iterations
	// (once MinIterations have elapsed). Defaults to 20.
	MaxUnchanged int
	// Seed fixes the coordinate visiting order shuffle for reproducibility.
	Seed int64
	// Recorder observes run duration and outcome; nil disables recording.
	Recorder obs.MetricsRecorder
}

const optimiseOperation = "optimise"

func (p PatternSearch) withDefaults() PatternSearch {
	if p.Sigma0 <= 0 {
		p.Sigma0 = 0.05
	}
	if p.MinIterations <= 0 {
		p.MinIterations = 20
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = 100
	}
	if p.MaxUnchanged <= 0 {
		p.MaxUnchanged = 20
	}
	return p
}

// Run implements Optimizer.
func (p PatternSearch) Run(ctx context.Context, cost Cost, lower, upper, start []float64) (result Result, err error) {
	p = p.withDefaults()
	began := time.Now()
	if p.Recorder != nil {
		defer func() {
			p.Recorder.Observe(ctx, optimiseOperation, err == nil, time.Since(began))
		}()
	}

	dim := cost.Dim()
	if len(lower) != dim || len(upper) != dim {
		return Result{}, fmt.Errorf("pattern search: bounds dimension mismatch: cost has %d, bounds %d/%d", dim, len(lower), len(upper))
	}
	for i := range lower {
		if !(lower[i] < upper[i]) {
			return Result{}, fmt.Errorf("pattern search: coordinate %d: require lower < upper, got [%v, %v]", i, lower[i], upper[i])
		}
	}
	x := make([]float64, dim)
	if start != nil {
		if len(start) != dim {
			return Result{}, fmt.Errorf("pattern search: start dimension %d, want %d", len(start), dim)
		}
		copy(x, start)
		clamp(x, lower, upper)
	} else {
		for i := range x {
			x[i] = 0.5 * (lower[i] + upper[i])
		}
	}

	steps := make([]float64, dim)
	for i := range steps {
		steps[i] = p.Sigma0 * (upper[i] - lower[i])
	}

	rng := rand.New(rand.NewSource(p.Seed))
	order := rng.Perm(dim)

	best, err := cost.Evaluate(ctx, x)
	if err != nil {
		return Result{}, err
	}
	evals := 1
	unchanged := 0

	var iter int
	for iter = 1; iter <= p.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		improved := false
		for _, i := range order {
			for _, dir := range [2]float64{1, -1} {
				candidate := make([]float64, dim)
				copy(candidate, x)
				candidate[i] += dir * steps[i]
				clamp(candidate, lower, upper)
				c, err := cost.Evaluate(ctx, candidate)
				if err != nil {
					return Result{}, err
				}
				evals++
				if c < best {
					best = c
					x = candidate
					improved = true
					break
				}
			}
		}
		if improved {
			unchanged = 0
			continue
		}
		// No improving move at this scale; contract the pattern.
		for i := range steps {
			steps[i] *= 0.5
		}
		unchanged++
		if iter >= p.MinIterations && unchanged >= p.MaxUnchanged {
			break
		}
	}
	if iter > p.MaxIterations {
		iter = p.MaxIterations
	}
	if math.IsInf(best, 1) {
		return Result{}, fmt.Errorf("pattern search: objective never left the infeasible region")
	}
	return Result{X: x, Cost: best, Iterations: iter, Evaluations: evals}, nil
}

func clamp(x, lower, upper []float64) {
	for i := range x {
		if x[i] < lower[i] {
			x[i] = lower[i]
		}
		if x[i] > upper[i] {
			x[i] = upper[i]
		}
	}
}

// Minimise runs an optimiser over a cost using the fit parameters' search
// bounds and initial values, returning both the search-space result and the
// model-space parameter vector.
func Minimise(ctx context.Context, opt Optimizer, cost Cost, params *fit.Parameters) (Result, []float64, error) {
	lower, upper := params.SearchBounds()
	start, err := params.ToSearch(params.InitialValues())
	if err != nil {
		return Result{}, nil, err
	}
	res, err := opt.Run(ctx, cost, lower, upper, start)
	if err != nil {
		return Result{}, nil, err
	}
	modelX, err := params.ToModel(res.X)
	if err != nil {
		return Result{}, nil, err
	}
	return res, modelX, nil
}
