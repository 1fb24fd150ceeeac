package params

import (
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"battcore/pkg/fit"
	"battcore/pkg/symexpr"
)

func ecmValues() map[string]float64 {
	return map[string]float64{
		"Initial SoC":                 0.5,
		"Initial temperature [K]":     298.15,
		"Cell capacity [A.h]":         5,
		"Nominal cell capacity [A.h]": 5,
		"Ambient temperature [K]":     298.15,
		"Current function [A]":        5,
		"Upper voltage cut-off [V]":   4.2,
		"Lower voltage cut-off [V]":   3.0,
		"Cell thermal mass [J/K]":     1000,
		"Cell-jig heat transfer coefficient [W/K]": 10,
		"Jig thermal mass [J/K]":                   500,
		"Jig-air heat transfer coefficient [W/K]":  10,
		"R0 [Ohm]":                            0.001,
		"Element-1 initial overpotential [V]": 0,
		"Element-2 initial overpotential [V]": 0,
		"R1 [Ohm]":              0.0002,
		"R2 [Ohm]":              0.0003,
		"C1 [F]":                10000,
		"C2 [F]":                5000,
		"Entropic change [V/K]": 0.0004,
	}
}

func TestNamedSetLookup(t *testing.T) {
	if _, err := NewNamed("sChen2010s"); !errors.Is(err, ErrUnknownSet) {
		t.Fatalf("expected ErrUnknownSet, got %v", err)
	}

	set, err := NewNamed("Chen2020")
	if err != nil {
		t.Fatalf("new named: %v", err)
	}
	v, err := set.Get("Negative electrode active material volume fraction")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != 0.75 {
		t.Fatalf("got %v want 0.75", v)
	}

	// Lookup is idempotent.
	again, err := NewNamed("Chen2020")
	if err != nil {
		t.Fatalf("new named: %v", err)
	}
	if again.MustGet("Negative electrode active material volume fraction") != 0.75 {
		t.Fatalf("second lookup diverged")
	}

	// Mutating one construction never leaks into the registry or others.
	set.Set("Negative electrode active material volume fraction", 0.8)
	if set.MustGet("Negative electrode active material volume fraction") != 0.8 {
		t.Fatalf("set not visible to read")
	}
	if again.MustGet("Negative electrode active material volume fraction") != 0.75 {
		t.Fatalf("registry state aliased")
	}
}

func TestGetAbsentKey(t *testing.T) {
	set, err := NewFromValues(map[string]float64{"R0 [Ohm]": 0.001})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := set.Get("R9 [Ohm]"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestJSONConstructionFlows(t *testing.T) {
	path := filepath.Join("testdata", "initial_ecm_parameters.json")

	// Import with no path configured and none supplied.
	empty, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := empty.ImportParameters(""); !errors.Is(err, ErrNoPath) {
		t.Fatalf("expected ErrNoPath, got %v", err)
	}

	// Eager construction, then a second import is rejected.
	eager, err := New(WithJSONPath(path))
	if err != nil {
		t.Fatalf("eager: %v", err)
	}
	if err := eager.ImportParameters(""); !errors.Is(err, ErrAlreadyConstructed) {
		t.Fatalf("expected ErrAlreadyConstructed, got %v", err)
	}

	// Deferred construction behaves identically to eager.
	deferred, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := deferred.ImportParameters(path); err != nil {
		t.Fatalf("import: %v", err)
	}
	direct, err := NewFromValues(ecmValues())
	if err != nil {
		t.Fatalf("from values: %v", err)
	}
	if !reflect.DeepEqual(deferred.Values(), direct.Values()) {
		t.Fatalf("deferred import diverged from direct construction")
	}
	if !reflect.DeepEqual(eager.Values(), direct.Values()) {
		t.Fatalf("eager import diverged from direct construction")
	}

	// Both sources at once is a configuration error.
	if _, err := New(WithValues(ecmValues()), WithJSONPath(path)); !errors.Is(err, ErrBothSources) {
		t.Fatalf("expected ErrBothSources, got %v", err)
	}
}

func TestExportParameters(t *testing.T) {
	set, err := NewFromValues(ecmValues())
	if err != nil {
		t.Fatalf("from values: %v", err)
	}
	g0, err := fit.NewGaussian(0.0002, 0.0001)
	if err != nil {
		t.Fatalf("gaussian: %v", err)
	}
	g1, err := fit.NewGaussian(0.0001, 0.0001)
	if err != nil {
		t.Fatalf("gaussian: %v", err)
	}
	fitParams, err := fit.NewParameters(
		fit.Parameter{Name: "R0 [Ohm]", Prior: g0, Bounds: fit.Bounds{Lower: 1e-4, Upper: 1e-2}, InitialValue: 0.001},
		fit.Parameter{Name: "R1 [Ohm]", Prior: g1, Bounds: fit.Bounds{Lower: 1e-5, Upper: 1e-2}, InitialValue: 0.0002},
	)
	if err != nil {
		t.Fatalf("fit parameters: %v", err)
	}

	out := filepath.Join(t.TempDir(), "fit_ecm_parameters.json")
	if err := set.ExportParameters(out, fitParams); err != nil {
		t.Fatalf("export: %v", err)
	}

	// Round trip: the exported file re-imports to an equal mapping.
	back, err := New(WithJSONPath(out))
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if !reflect.DeepEqual(back.Values(), set.Values()) {
		t.Fatalf("round trip diverged")
	}

	// Nothing to export.
	blank, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := blank.ExportParameters(out, nil); !errors.Is(err, ErrEmptyExport) {
		t.Fatalf("expected ErrEmptyExport, got %v", err)
	}
}

func TestBPXImportFlows(t *testing.T) {
	path := filepath.Join("testdata", "example_bpx.json")

	eager, err := New(WithJSONPath(path), WithFormationConcentrations(true))
	if err != nil {
		t.Fatalf("eager bpx: %v", err)
	}

	deferred, err := New(WithFormationConcentrations(true))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := deferred.ImportParameters(path); err != nil {
		t.Fatalf("import bpx: %v", err)
	}

	if !reflect.DeepEqual(eager.Keys(), deferred.Keys()) {
		t.Fatalf("eager and deferred BPX imports disagree on keys")
	}
}

func TestFormationConcentrations(t *testing.T) {
	for name, build := range map[string]func() (*Set, error){
		"named": func() (*Set, error) {
			return NewNamed("Chen2020", WithFormationConcentrations(true))
		},
		"bpx": func() (*Set, error) {
			return New(WithJSONPath(filepath.Join("testdata", "example_bpx.json")), WithFormationConcentrations(true))
		},
	} {
		set, err := build()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := set.MustGet("Initial concentration in negative electrode [mol.m-3]"); got != 0 {
			t.Fatalf("%s: negative initial concentration = %v, want 0", name, got)
		}
		if got := set.MustGet("Initial concentration in positive electrode [mol.m-3]"); got <= 0 {
			t.Fatalf("%s: positive initial concentration = %v, want > 0", name, got)
		}
	}
}

func TestUpdateGuards(t *testing.T) {
	set, err := NewFromValues(ecmValues())
	if err != nil {
		t.Fatalf("from values: %v", err)
	}

	if err := set.Update(map[string]float64{"Nominal cell capacity [A.h]": 3}); err != nil {
		t.Fatalf("update existing: %v", err)
	}
	if set.MustGet("Nominal cell capacity [A.h]") != 3 {
		t.Fatalf("update not applied")
	}

	err = set.Update(map[string]float64{"Unused parameter name": 3})
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if _, err := set.Get("Unused parameter name"); err == nil {
		t.Fatalf("guarded update must not add the key")
	}

	if err := set.Update(map[string]float64{"Unused parameter name": 3}, AllowNew()); err != nil {
		t.Fatalf("update with AllowNew: %v", err)
	}
	if set.MustGet("Unused parameter name") != 3 {
		t.Fatalf("AllowNew update not readable")
	}

	named, err := NewNamed("Chen2020")
	if err != nil {
		t.Fatalf("named: %v", err)
	}
	if err := named.Update(map[string]float64{"Nominal cell capacity [A.h]": 3}); err != nil {
		t.Fatalf("update named: %v", err)
	}
	if named.MustGet("Nominal cell capacity [A.h]") != 3 {
		t.Fatalf("update on named set not applied")
	}
}

func TestUpdateIsAtomic(t *testing.T) {
	set, err := NewFromValues(map[string]float64{"R0 [Ohm]": 0.001})
	if err != nil {
		t.Fatalf("from values: %v", err)
	}
	// One valid key, one unknown: nothing may be applied.
	err = set.Update(map[string]float64{"R0 [Ohm]": 0.005, "R9 [Ohm]": 1})
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if set.MustGet("R0 [Ohm]") != 0.001 {
		t.Fatalf("partial update applied: %v", set.MustGet("R0 [Ohm]"))
	}
}

func TestEvaluateSymbol(t *testing.T) {
	set, err := NewNamed("Chen2020")
	if err != nil {
		t.Fatalf("named: %v", err)
	}
	porosity := set.MustGet("Positive electrode porosity")

	nodes := []symexpr.Node{
		symexpr.Scalar(1.0 + porosity),
		symexpr.Sum(symexpr.Scalar(1.0), symexpr.Scalar(porosity)),
		symexpr.Sum(symexpr.Scalar(1.0), symexpr.Ref("Positive electrode porosity")),
		symexpr.Sum(symexpr.Scalar(1.0), symexpr.FunctionRef{Name: "Positive electrode porosity"}),
	}
	for i, node := range nodes {
		got, err := EvaluateSymbol(node, set)
		if err != nil {
			t.Fatalf("node %d: %v", i, err)
		}
		if math.Abs(got-(1.0+porosity)) > 1e-12 {
			t.Fatalf("node %d: got %v want %v", i, got, 1.0+porosity)
		}
	}
}
