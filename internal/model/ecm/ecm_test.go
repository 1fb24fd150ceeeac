package ecm

import (
	"context"
	"testing"

	"battcore/pkg/model"
	"battcore/pkg/params"
)

func testSet(t *testing.T) *params.Set {
	t.Helper()
	set, err := params.NewFromValues(map[string]float64{
		KeyR0:          0.001,
		KeyR1:          0.0002,
		KeyC1:          10000,
		KeyR2:          0.0003,
		KeyC2:          5000,
		KeyCapacity:    5,
		KeyNominalCap:  5,
		KeyUpperCutoff: 4.2,
		KeyLowerCutoff: 3.0,
		KeyInitialSoC:  0.5,
	})
	if err != nil {
		t.Fatalf("parameter set: %v", err)
	}
	return set
}

func cycleExperiment() model.Experiment {
	return model.Experiment{Steps: []model.Step{
		model.Discharge(0.5, 180, 4),
		model.Charge(0.5, 180, 4),
	}}
}

func TestNewRequiresCircuitParameters(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected nil set rejection")
	}
	set, err := params.NewFromValues(map[string]float64{KeyR0: 0.001})
	if err != nil {
		t.Fatalf("parameter set: %v", err)
	}
	if _, err := New(set); err == nil {
		t.Fatalf("expected missing parameter rejection")
	}
}

func TestPredictProducesColumns(t *testing.T) {
	m, err := New(testSet(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ds, err := m.Predict(context.Background(), model.Inputs{
		InitialState: map[string]float64{KeyInitialSoC: 0.5},
		Experiment:   cycleExperiment(),
	})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if ds.Len() == 0 {
		t.Fatalf("empty prediction")
	}
	voltage, err := ds.Column(model.ColumnVoltage)
	if err != nil {
		t.Fatalf("voltage column: %v", err)
	}
	current, err := ds.Column(model.ColumnCurrent)
	if err != nil {
		t.Fatalf("current column: %v", err)
	}
	// Discharge at 0.5C of a 5 A.h cell draws 2.5 A.
	if current[0] != 2.5 {
		t.Fatalf("discharge current: got %v want 2.5", current[0])
	}
	// Voltage sags immediately under the ohmic drop.
	mid := 3.0 + (4.2-3.0)*0.5
	if voltage[0] >= mid {
		t.Fatalf("expected ohmic sag below %v, got %v", mid, voltage[0])
	}
}

func TestPredictDeterministic(t *testing.T) {
	m, err := New(testSet(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	in := model.Inputs{Experiment: cycleExperiment()}
	a, err := m.Predict(context.Background(), in)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	b, err := m.Predict(context.Background(), in)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	va, _ := a.Column(model.ColumnVoltage)
	vb, _ := b.Column(model.ColumnVoltage)
	for i := range va {
		if va[i] != vb[i] {
			t.Fatalf("prediction not deterministic at sample %d", i)
		}
	}
}

func TestPredictOverrides(t *testing.T) {
	m, err := New(testSet(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	in := model.Inputs{Experiment: cycleExperiment()}
	base, err := m.Predict(context.Background(), in)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	in.Overrides = map[string]float64{KeyR0: 0.01}
	bumped, err := m.Predict(context.Background(), in)
	if err != nil {
		t.Fatalf("predict with overrides: %v", err)
	}
	vb, _ := base.Column(model.ColumnVoltage)
	vo, _ := bumped.Column(model.ColumnVoltage)
	if vo[0] >= vb[0] {
		t.Fatalf("larger R0 should sag harder: base %v, override %v", vb[0], vo[0])
	}
}

func TestPredictValidation(t *testing.T) {
	m, err := New(testSet(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := m.Predict(context.Background(), model.Inputs{}); err == nil {
		t.Fatalf("expected empty experiment rejection")
	}
	in := model.Inputs{
		InitialState: map[string]float64{KeyInitialSoC: 1.5},
		Experiment:   cycleExperiment(),
	}
	if _, err := m.Predict(context.Background(), in); err == nil {
		t.Fatalf("expected SoC range rejection")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Predict(ctx, model.Inputs{Experiment: cycleExperiment()}); err == nil {
		t.Fatalf("expected context cancellation")
	}
}
