// Package optim glues fitting problems, likelihood costs and the
// bound-constrained optimiser together. Optimisers minimise; likelihood and
// posterior costs are negated accordingly.
package optim

import (
	"context"
	"fmt"

	"battcore/pkg/dataset"
	"battcore/pkg/fit"
	"battcore/pkg/model"
)

// FittingProblem pairs a simulator with fit parameters and observed data.
// Candidate parameter vectors are applied as prediction overrides; the
// simulator's base parameter set is never mutated.
type FittingProblem struct {
	sim    model.Simulator
	params *fit.Parameters
	data   dataset.Dataset
	inputs model.Inputs
	signal string
	target []float64
}

// NewFittingProblem validates and assembles a fitting problem. signal is the
// dataset column compared against model output (ColumnVoltage when empty).
func NewFittingProblem(sim model.Simulator, params *fit.Parameters, data dataset.Dataset, inputs model.Inputs, signal string) (*FittingProblem, error) {
	if sim == nil {
		return nil, fmt.Errorf("fitting problem: simulator required")
	}
	if params.Len() == 0 {
		return nil, fmt.Errorf("fitting problem: at least one fit parameter required")
	}
	if signal == "" {
		signal = model.ColumnVoltage
	}
	target, err := data.Column(signal)
	if err != nil {
		return nil, fmt.Errorf("fitting problem: %w", err)
	}
	if err := inputs.Experiment.Validate(); err != nil {
		return nil, fmt.Errorf("fitting problem: %w", err)
	}
	return &FittingProblem{
		sim:    sim,
		params: params,
		data:   data,
		inputs: inputs,
		signal: signal,
		target: target,
	}, nil
}

// Parameters returns the fit parameters under estimation.
func (p *FittingProblem) Parameters() *fit.Parameters { return p.params }

// Target returns a copy of the observed signal.
func (p *FittingProblem) Target() []float64 {
	return append([]float64(nil), p.target...)
}

// Simulate predicts the signal for a model-space parameter vector.
func (p *FittingProblem) Simulate(ctx context.Context, x []float64) ([]float64, error) {
	if len(x) != p.params.Len() {
		return nil, fmt.Errorf("fitting problem: expected %d parameters, got %d", p.params.Len(), len(x))
	}
	overrides := make(map[string]float64, len(x)+len(p.inputs.Overrides))
	for name, v := range p.inputs.Overrides {
		overrides[name] = v
	}
	for i, name := range p.params.Names() {
		overrides[name] = x[i]
	}
	in := p.inputs
	in.Overrides = overrides
	ds, err := p.sim.Predict(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("fitting problem: predict: %w", err)
	}
	predicted, err := ds.Column(p.signal)
	if err != nil {
		return nil, fmt.Errorf("fitting problem: %w", err)
	}
	if len(predicted) != len(p.target) {
		return nil, fmt.Errorf("fitting problem: prediction has %d samples, observed %d", len(predicted), len(p.target))
	}
	return predicted, nil
}
