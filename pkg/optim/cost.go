package optim

import (
	"context"
	"fmt"
	"math"
)

// Cost is an objective over a search-space parameter vector. Optimisers
// minimise it; implementations map search space to model space internally.
type Cost interface {
	// Evaluate returns the cost at x (search space).
	Evaluate(ctx context.Context, x []float64) (float64, error)
	// Dim returns the search-space dimensionality.
	Dim() int
}

// GaussianLogLikelihood scores a fitting problem under i.i.d. Gaussian
// observation noise with known sigma. Evaluate returns the negative log
// likelihood so that minimising it maximises the likelihood.
type GaussianLogLikelihood struct {
	problem *FittingProblem
	sigma   float64
}

// NewGaussianLogLikelihood constructs the likelihood cost; sigma must be
// positive.
func NewGaussianLogLikelihood(problem *FittingProblem, sigma float64) (*GaussianLogLikelihood, error) {
	if problem == nil {
		return nil, fmt.Errorf("gaussian log likelihood: problem required")
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("gaussian log likelihood: sigma must be positive, got %v", sigma)
	}
	return &GaussianLogLikelihood{problem: problem, sigma: sigma}, nil
}

// Dim implements Cost.
func (g *GaussianLogLikelihood) Dim() int { return g.problem.Parameters().Len() }

// Evaluate implements Cost.
func (g *GaussianLogLikelihood) Evaluate(ctx context.Context, x []float64) (float64, error) {
	modelX, err := g.problem.Parameters().ToModel(x)
	if err != nil {
		return 0, err
	}
	predicted, err := g.problem.Simulate(ctx, modelX)
	if err != nil {
		return 0, err
	}
	target := g.problem.target
	n := float64(len(target))
	var sse float64
	for i, p := range predicted {
		r := p - target[i]
		sse += r * r
	}
	logL := -0.5*n*math.Log(2*math.Pi*g.sigma*g.sigma) - sse/(2*g.sigma*g.sigma)
	return -logL, nil
}

// LogPosterior combines a likelihood cost with the fit-parameter priors.
// Evaluate returns the negative log posterior (up to the evidence constant).
type LogPosterior struct {
	likelihood *GaussianLogLikelihood
}

// NewLogPosterior wraps a Gaussian log likelihood with its problem's priors.
func NewLogPosterior(likelihood *GaussianLogLikelihood) (*LogPosterior, error) {
	if likelihood == nil {
		return nil, fmt.Errorf("log posterior: likelihood required")
	}
	return &LogPosterior{likelihood: likelihood}, nil
}

// Dim implements Cost.
func (l *LogPosterior) Dim() int { return l.likelihood.Dim() }

// Evaluate implements Cost.
func (l *LogPosterior) Evaluate(ctx context.Context, x []float64) (float64, error) {
	params := l.likelihood.problem.Parameters()
	modelX, err := params.ToModel(x)
	if err != nil {
		return 0, err
	}
	logPrior, err := params.LogPrior(modelX)
	if err != nil {
		return 0, err
	}
	if math.IsInf(logPrior, -1) {
		// Outside the prior support; no need to simulate.
		return math.Inf(1), nil
	}
	negLogL, err := l.likelihood.Evaluate(ctx, x)
	if err != nil {
		return 0, err
	}
	return negLogL - logPrior, nil
}
