// Package model defines the simulator boundary the toolkit drives. Concrete
// electrochemical or circuit models live behind the Simulator interface and
// are consumed through it only.
package model

import (
	"context"
	"fmt"

	"battcore/pkg/dataset"
)

// Standard column names produced by simulators.
const (
	ColumnVoltage = "Voltage [V]"
	ColumnCurrent = "Current [A]"
)

// Step is one experiment instruction: hold a C-rate for a duration, sampled
// at a fixed period. Positive rates discharge, negative rates charge, zero
// rests.
type Step struct {
	CRate     float64
	DurationS float64
	PeriodS   float64
}

// Discharge returns a discharge step at the given C-rate.
func Discharge(crate, durationS, periodS float64) Step {
	return Step{CRate: crate, DurationS: durationS, PeriodS: periodS}
}

// Charge returns a charge step at the given C-rate.
func Charge(crate, durationS, periodS float64) Step {
	return Step{CRate: -crate, DurationS: durationS, PeriodS: periodS}
}

// Rest returns a zero-current step.
func Rest(durationS, periodS float64) Step {
	return Step{DurationS: durationS, PeriodS: periodS}
}

// Experiment is an ordered sequence of steps.
type Experiment struct {
	Steps []Step
}

// Validate checks every step carries a positive duration and period.
func (e Experiment) Validate() error {
	if len(e.Steps) == 0 {
		return fmt.Errorf("experiment has no steps")
	}
	for i, step := range e.Steps {
		if step.DurationS <= 0 {
			return fmt.Errorf("step %d: duration must be positive", i)
		}
		if step.PeriodS <= 0 {
			return fmt.Errorf("step %d: period must be positive", i)
		}
	}
	return nil
}

// Inputs configures one prediction.
type Inputs struct {
	// InitialState seeds state variables by name (e.g. "Initial SoC").
	InitialState map[string]float64
	Experiment   Experiment
	// Overrides are parameter values applied over the model's base set for
	// this prediction only; the base set is never mutated.
	Overrides map[string]float64
}

// Simulator produces a dataset of model outputs for the given inputs.
type Simulator interface {
	Predict(ctx context.Context, in Inputs) (dataset.Dataset, error)
}
