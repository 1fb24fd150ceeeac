// Package bpx translates hierarchical battery-pack exchange (BPX) documents
// into the flat parameter mapping used across the toolkit. Format-specific
// naming and the formation-concentration convention live here so the generic
// container never sees BPX structure.
package bpx

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidDocument indicates a structurally invalid BPX document.
var ErrInvalidDocument = errors.New("bpx: invalid document")

// ErrMissingParameter indicates a parameter required by a derived
// computation is absent from the translated mapping.
var ErrMissingParameter = errors.New("bpx: missing parameter")

// Header carries BPX document identification.
type Header struct {
	BPX         float64 `json:"BPX"`
	Title       string  `json:"Title"`
	Description string  `json:"Description,omitempty"`
	Model       string  `json:"Model,omitempty"`
}

// Document is a parsed BPX battery description. Section values are kept raw
// so non-numeric entries (functional parameters) can be skipped during
// flattening without failing the import.
type Document struct {
	Header           Header                                `json:"Header"`
	Parameterisation map[string]map[string]json.RawMessage `json:"Parameterisation"`
}

// IsBPX reports whether raw looks like a BPX document rather than a flat
// parameter file, keyed on the presence of the Header section.
func IsBPX(raw map[string]json.RawMessage) bool {
	_, ok := raw["Header"]
	return ok
}

// Parse decodes and structurally validates a BPX document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

var requiredSections = []string{"Cell", "Electrolyte", "Negative electrode", "Positive electrode"}

func (d Document) validate() error {
	if d.Header.BPX <= 0 {
		return fmt.Errorf("%w: header missing BPX version", ErrInvalidDocument)
	}
	if d.Header.Title == "" {
		return fmt.Errorf("%w: header missing title", ErrInvalidDocument)
	}
	if len(d.Parameterisation) == 0 {
		return fmt.Errorf("%w: no parameterisation sections", ErrInvalidDocument)
	}
	for _, section := range requiredSections {
		if _, ok := d.Parameterisation[section]; !ok {
			return fmt.Errorf("%w: missing section %q", ErrInvalidDocument, section)
		}
	}
	return nil
}

// Translate flattens a validated document into the flat parameter mapping,
// synthesising unit-bearing names from section and field names. When
// formation is set, initial electrode concentrations are rewritten to the
// formation-state convention. The mapping is built in full before being
// returned; a failure never yields a partial result.
func Translate(doc Document, formation bool) (map[string]float64, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for section, fields := range doc.Parameterisation {
		for field, raw := range fields {
			var v float64
			if err := json.Unmarshal(raw, &v); err != nil {
				// Functional entries (OCP expressions etc.) are not part of
				// the flat numeric mapping.
				continue
			}
			out[flatName(section, field)] = v
		}
	}
	if formation {
		if err := ApplyFormation(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// flatName maps a section/field pair onto the library's flat naming scheme.
func flatName(section, field string) string {
	switch section {
	case "Cell":
		return field
	case "Negative electrode":
		return electrodeName("negative", field)
	case "Positive electrode":
		return electrodeName("positive", field)
	case "Electrolyte":
		// Initial concentration follows the electrode naming convention so
		// both import paths agree on one key.
		if field == "Initial concentration [mol.m-3]" {
			return "Initial concentration in electrolyte [mol.m-3]"
		}
		return "Electrolyte " + lowerFirst(field)
	case "Separator":
		return "Separator " + lowerFirst(field)
	default:
		return section + " " + lowerFirst(field)
	}
}

func electrodeName(side, field string) string {
	switch field {
	case "Initial concentration [mol.m-3]":
		return "Initial concentration in " + side + " electrode [mol.m-3]"
	case "Maximum concentration [mol.m-3]":
		return "Maximum concentration in " + side + " electrode [mol.m-3]"
	default:
		prefix := "Negative electrode "
		if side == "positive" {
			prefix = "Positive electrode "
		}
		return prefix + lowerFirst(field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'A' && r[0] <= 'Z' {
		r[0] += 'a' - 'A'
	}
	return string(r)
}

// Parameter names consumed and produced by the formation computation.
const (
	KeyInitialConcNeg = "Initial concentration in negative electrode [mol.m-3]"
	KeyInitialConcPos = "Initial concentration in positive electrode [mol.m-3]"
	keyActiveFracNeg  = "Negative electrode active material volume fraction"
	keyActiveFracPos  = "Positive electrode active material volume fraction"
	keyThicknessNeg   = "Negative electrode thickness [m]"
	keyThicknessPos   = "Positive electrode thickness [m]"
)

// ApplyFormation rewrites initial electrode concentrations in place to the
// formation-state convention: all cyclable lithium sits in the positive
// electrode, so the negative initial concentration collapses to zero and the
// positive one absorbs the displaced lithium, scaled by the ratio of active
// electrode volumes (equal electrode area assumed).
func ApplyFormation(values map[string]float64) error {
	required := []string{
		KeyInitialConcNeg, KeyInitialConcPos,
		keyActiveFracNeg, keyActiveFracPos,
		keyThicknessNeg, keyThicknessPos,
	}
	for _, name := range required {
		if _, ok := values[name]; !ok {
			return fmt.Errorf("%w: %q required for formation concentrations", ErrMissingParameter, name)
		}
	}
	volNeg := values[keyActiveFracNeg] * values[keyThicknessNeg]
	volPos := values[keyActiveFracPos] * values[keyThicknessPos]
	if volPos <= 0 {
		return fmt.Errorf("%w: positive electrode active volume must be positive", ErrInvalidDocument)
	}
	displaced := values[KeyInitialConcNeg] * volNeg / volPos
	values[KeyInitialConcPos] += displaced
	values[KeyInitialConcNeg] = 0
	return nil
}
