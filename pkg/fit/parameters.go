// Package fit defines the fit-parameter metadata exchanged with optimisers:
// named parameters carrying a prior, bounds, initial and optional true
// values, and an optional search-space transformation.
package fit

import (
	"fmt"
	"math"
)

// Bounds is a closed [Lower, Upper] interval constraining a fit parameter.
type Bounds struct {
	Lower float64
	Upper float64
}

func (b Bounds) validate(name string) error {
	if !(b.Lower < b.Upper) {
		return fmt.Errorf("parameter %q: require lower < upper bound, got [%v, %v]", name, b.Lower, b.Upper)
	}
	return nil
}

// Contains reports whether x lies inside the bounds.
func (b Bounds) Contains(x float64) bool { return x >= b.Lower && x <= b.Upper }

// Parameter describes one parameter exposed to an optimiser.
type Parameter struct {
	Name           string
	Prior          Prior
	Bounds         Bounds
	InitialValue   float64
	TrueValue      float64
	HasTrueValue   bool
	Transformation Transformation
}

func (p Parameter) validate() error {
	if p.Name == "" {
		return fmt.Errorf("fit parameter requires a name")
	}
	if err := p.Bounds.validate(p.Name); err != nil {
		return err
	}
	initial := p.InitialValue
	if initial == 0 && p.Prior != nil {
		initial = p.Prior.Mean()
	}
	if !p.Bounds.Contains(initial) {
		return fmt.Errorf("parameter %q: initial value %v outside bounds [%v, %v]", p.Name, initial, p.Bounds.Lower, p.Bounds.Upper)
	}
	return nil
}

// Initial returns the effective initial value, falling back to the prior
// mean when no explicit initial value was provided.
func (p Parameter) Initial() float64 {
	if p.InitialValue == 0 && p.Prior != nil {
		return p.Prior.Mean()
	}
	return p.InitialValue
}

// Parameters is an ordered collection of uniquely named fit parameters.
type Parameters struct {
	items []Parameter
	index map[string]int
}

// NewParameters validates and collects the supplied parameters. Empty names
// and duplicate names are rejected.
func NewParameters(params ...Parameter) (*Parameters, error) {
	ps := &Parameters{index: make(map[string]int, len(params))}
	for _, p := range params {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, exists := ps.index[p.Name]; exists {
			return nil, fmt.Errorf("fit parameter %q already defined", p.Name)
		}
		if p.Transformation == nil {
			p.Transformation = IdentityTransformation{}
		}
		ps.index[p.Name] = len(ps.items)
		ps.items = append(ps.items, p)
	}
	return ps, nil
}

// Len returns the number of parameters.
func (ps *Parameters) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.items)
}

// Names returns the parameter names in definition order.
func (ps *Parameters) Names() []string {
	out := make([]string, 0, ps.Len())
	for _, p := range ps.items {
		out = append(out, p.Name)
	}
	return out
}

// Get returns the parameter with the given name.
func (ps *Parameters) Get(name string) (Parameter, bool) {
	if ps == nil {
		return Parameter{}, false
	}
	i, ok := ps.index[name]
	if !ok {
		return Parameter{}, false
	}
	return ps.items[i], true
}

// At returns the parameter at position i in definition order.
func (ps *Parameters) At(i int) Parameter { return ps.items[i] }

// InitialValues returns the effective initial values in definition order.
func (ps *Parameters) InitialValues() []float64 {
	out := make([]float64, 0, ps.Len())
	for _, p := range ps.items {
		out = append(out, p.Initial())
	}
	return out
}

// TrueValues returns the declared true values; parameters without one
// contribute NaN.
func (ps *Parameters) TrueValues() []float64 {
	out := make([]float64, 0, ps.Len())
	for _, p := range ps.items {
		if p.HasTrueValue {
			out = append(out, p.TrueValue)
		} else {
			out = append(out, math.NaN())
		}
	}
	return out
}

// SearchBounds returns lower and upper bound slices mapped into search space.
func (ps *Parameters) SearchBounds() (lower, upper []float64) {
	lower = make([]float64, 0, ps.Len())
	upper = make([]float64, 0, ps.Len())
	for _, p := range ps.items {
		lower = append(lower, p.Transformation.ToSearch(p.Bounds.Lower))
		upper = append(upper, p.Transformation.ToSearch(p.Bounds.Upper))
	}
	return lower, upper
}

// ToModel maps a search-space vector into model space in definition order.
func (ps *Parameters) ToModel(x []float64) ([]float64, error) {
	if len(x) != ps.Len() {
		return nil, fmt.Errorf("expected %d values, got %d", ps.Len(), len(x))
	}
	out := make([]float64, len(x))
	for i, p := range ps.items {
		out[i] = p.Transformation.ToModel(x[i])
	}
	return out, nil
}

// ToSearch maps a model-space vector into search space in definition order.
func (ps *Parameters) ToSearch(x []float64) ([]float64, error) {
	if len(x) != ps.Len() {
		return nil, fmt.Errorf("expected %d values, got %d", ps.Len(), len(x))
	}
	out := make([]float64, len(x))
	for i, p := range ps.items {
		out[i] = p.Transformation.ToSearch(x[i])
	}
	return out, nil
}

// LogPrior sums the prior log densities for a model-space vector.
// Parameters without a prior contribute zero.
func (ps *Parameters) LogPrior(x []float64) (float64, error) {
	if len(x) != ps.Len() {
		return 0, fmt.Errorf("expected %d values, got %d", ps.Len(), len(x))
	}
	var sum float64
	for i, p := range ps.items {
		if p.Prior == nil {
			continue
		}
		sum += p.Prior.LogPDF(x[i])
	}
	return sum, nil
}
