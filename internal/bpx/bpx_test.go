package bpx

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

const sampleDoc = `{
  "Header": {"BPX": 0.4, "Title": "Test cell", "Model": "DFN"},
  "Parameterisation": {
    "Cell": {
      "Ambient temperature [K]": 298.15,
      "Nominal cell capacity [A.h]": 5,
      "Lower voltage cut-off [V]": 2.7,
      "Upper voltage cut-off [V]": 4.2
    },
    "Electrolyte": {
      "Initial concentration [mol.m-3]": 1000,
      "Cation transference number": 0.2594
    },
    "Negative electrode": {
      "Thickness [m]": 8.52e-5,
      "Porosity": 0.25,
      "Active material volume fraction": 0.75,
      "Initial concentration [mol.m-3]": 29866,
      "Maximum concentration [mol.m-3]": 33133,
      "OCP [V]": "expression('x')"
    },
    "Positive electrode": {
      "Thickness [m]": 7.56e-5,
      "Porosity": 0.335,
      "Active material volume fraction": 0.665,
      "Initial concentration [mol.m-3]": 17038,
      "Maximum concentration [mol.m-3]": 63104
    }
  }
}`

func parseSample(t *testing.T) Document {
	t.Helper()
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestParseValidation(t *testing.T) {
	if _, err := Parse([]byte(`{`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected invalid document, got %v", err)
	}
	if _, err := Parse([]byte(`{"Header":{"Title":"x"},"Parameterisation":{}}`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected version check, got %v", err)
	}
	if _, err := Parse([]byte(`{"Header":{"BPX":0.4,"Title":"x"},"Parameterisation":{"Cell":{}}}`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected missing section error, got %v", err)
	}
}

func TestTranslateFlattens(t *testing.T) {
	values, err := Translate(parseSample(t), false)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	cases := []struct {
		name string
		want float64
	}{
		{"Nominal cell capacity [A.h]", 5},
		{"Negative electrode thickness [m]", 8.52e-5},
		{"Negative electrode porosity", 0.25},
		{"Initial concentration in negative electrode [mol.m-3]", 29866},
		{"Maximum concentration in positive electrode [mol.m-3]", 63104},
		{"Positive electrode active material volume fraction", 0.665},
		{"Initial concentration in electrolyte [mol.m-3]", 1000},
		{"Electrolyte cation transference number", 0.2594},
	}
	for _, tc := range cases {
		got, ok := values[tc.name]
		if !ok {
			t.Fatalf("missing %q", tc.name)
		}
		if got != tc.want {
			t.Fatalf("%q: got %v want %v", tc.name, got, tc.want)
		}
	}
	// Functional entries are excluded from the flat mapping.
	if _, ok := values["Negative electrode OCP [V]"]; ok {
		t.Fatalf("functional entry leaked into flat mapping")
	}
}

func TestTranslateFormation(t *testing.T) {
	values, err := Translate(parseSample(t), true)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if values[KeyInitialConcNeg] != 0 {
		t.Fatalf("negative initial concentration should collapse to 0, got %v", values[KeyInitialConcNeg])
	}
	pos := values[KeyInitialConcPos]
	if pos <= 0 {
		t.Fatalf("positive initial concentration should be strictly positive, got %v", pos)
	}
	// Lithium conserved: displaced amount matches volume ratio.
	want := 17038 + 29866*(0.75*8.52e-5)/(0.665*7.56e-5)
	if math.Abs(pos-want) > 1e-6 {
		t.Fatalf("got %v want %v", pos, want)
	}
}

func TestApplyFormationMissingKey(t *testing.T) {
	err := ApplyFormation(map[string]float64{KeyInitialConcNeg: 1})
	if !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("expected missing parameter error, got %v", err)
	}
}

func TestIsBPX(t *testing.T) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(sampleDoc), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !IsBPX(raw) {
		t.Fatalf("expected BPX detection")
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal([]byte(`{"R0 [Ohm]": 0.001}`), &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if IsBPX(flat) {
		t.Fatalf("flat file misdetected as BPX")
	}
}
