// Package ecm implements the simulator boundary with a two-RC Thevenin
// equivalent-circuit model. It is the synthetic-data generator used by the
// demo and the fitting tests; full electrochemical simulation stays with
// external model libraries.
package ecm

import (
	"context"
	"fmt"

	"battcore/pkg/dataset"
	"battcore/pkg/model"
	"battcore/pkg/params"
)

// Parameter names the circuit reads from its parameter set.
const (
	KeyR0          = "R0 [Ohm]"
	KeyR1          = "R1 [Ohm]"
	KeyC1          = "C1 [F]"
	KeyR2          = "R2 [Ohm]"
	KeyC2          = "C2 [F]"
	KeyCapacity    = "Cell capacity [A.h]"
	KeyNominalCap  = "Nominal cell capacity [A.h]"
	KeyUpperCutoff = "Upper voltage cut-off [V]"
	KeyLowerCutoff = "Lower voltage cut-off [V]"
	KeyInitialSoC  = "Initial SoC"
)

var requiredKeys = []string{
	KeyR0, KeyR1, KeyC1, KeyR2, KeyC2,
	KeyCapacity, KeyNominalCap, KeyUpperCutoff, KeyLowerCutoff,
}

// Model is a two-RC Thevenin circuit with a linear open-circuit voltage
// between the voltage cut-offs. Deterministic and synchronous.
type Model struct {
	set *params.Set
}

// New validates the parameter set carries every circuit parameter and wraps
// it. The set is read at prediction time, so later updates are observed.
func New(set *params.Set) (*Model, error) {
	if set == nil {
		return nil, fmt.Errorf("ecm: parameter set required")
	}
	for _, key := range requiredKeys {
		if _, err := set.Get(key); err != nil {
			return nil, fmt.Errorf("ecm: %w", err)
		}
	}
	return &Model{set: set}, nil
}

var _ model.Simulator = (*Model)(nil)

// Predict runs the experiment and returns time, current and voltage columns.
func (m *Model) Predict(ctx context.Context, in model.Inputs) (dataset.Dataset, error) {
	if err := in.Experiment.Validate(); err != nil {
		return dataset.Dataset{}, fmt.Errorf("ecm: %w", err)
	}
	p := func(name string) float64 {
		if v, ok := in.Overrides[name]; ok {
			return v
		}
		return m.set.MustGet(name)
	}

	soc := 1.0
	if v, ok := in.InitialState[KeyInitialSoC]; ok {
		soc = v
	} else if v, err := m.set.Get(KeyInitialSoC); err == nil {
		soc = v
	}
	if soc < 0 || soc > 1 {
		return dataset.Dataset{}, fmt.Errorf("ecm: initial SoC %v outside [0, 1]", soc)
	}

	r0, r1, c1 := p(KeyR0), p(KeyR1), p(KeyC1)
	r2, c2 := p(KeyR2), p(KeyC2)
	capacity := p(KeyCapacity)
	nominal := p(KeyNominalCap)
	vmax, vmin := p(KeyUpperCutoff), p(KeyLowerCutoff)
	if r1 <= 0 || c1 <= 0 || r2 <= 0 || c2 <= 0 || capacity <= 0 || nominal <= 0 {
		return dataset.Dataset{}, fmt.Errorf("ecm: circuit parameters must be positive")
	}

	var times, currents, voltages []float64
	var v1, v2, now float64

	record := func(current float64) {
		ocv := vmin + (vmax-vmin)*soc
		times = append(times, now)
		currents = append(currents, current)
		voltages = append(voltages, ocv-current*r0-v1-v2)
	}

	for _, step := range in.Experiment.Steps {
		if err := ctx.Err(); err != nil {
			return dataset.Dataset{}, err
		}
		current := step.CRate * nominal
		record(current)
		for elapsed := step.PeriodS; elapsed <= step.DurationS; elapsed += step.PeriodS {
			dt := step.PeriodS
			v1 += dt * (current/c1 - v1/(r1*c1))
			v2 += dt * (current/c2 - v2/(r2*c2))
			soc -= current * dt / (3600 * capacity)
			if soc < 0 {
				soc = 0
			}
			if soc > 1 {
				soc = 1
			}
			now += dt
			record(current)
		}
	}

	return dataset.New(map[string][]float64{
		dataset.TimeColumn:  times,
		model.ColumnCurrent: currents,
		model.ColumnVoltage: voltages,
	})
}
