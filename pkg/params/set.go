// Package params provides the ParameterSet container: a flat mapping from
// physical/chemical parameter names (unit-suffixed by convention) to numeric
// values, with guarded merging, builtin literature sets, and import/export
// in both the flat native JSON format and the hierarchical battery-pack
// exchange (BPX) format.
package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"battcore/internal/bpx"
)

// Sentinel errors for the construction, import, update and export contracts.
var (
	// ErrUnknownSet reports a builtin set name missing from the registry.
	ErrUnknownSet = errors.New("params: unknown parameter set")
	// ErrBothSources reports construction from a mapping and a JSON path at once.
	ErrBothSources = errors.New("params: parameter set needs either values or a JSON path as an input, not both")
	// ErrAlreadyConstructed reports an import attempt on a populated set.
	ErrAlreadyConstructed = errors.New("params: parameter set already constructed")
	// ErrNoPath reports an import attempt with no path configured or supplied.
	ErrNoPath = errors.New("params: no path was provided")
	// ErrKeyNotFound reports a read of an absent parameter.
	ErrKeyNotFound = errors.New("params: parameter not found")
	// ErrUnknownKey reports a guarded update introducing an unknown parameter.
	ErrUnknownKey = errors.New("params: unknown parameter")
	// ErrEmptyExport reports an export with nothing to write.
	ErrEmptyExport = errors.New("params: no parameters to export")
)

type state int

const (
	stateUnbound state = iota
	statePopulated
)

// Set is a parameter set. The zero value is not usable; construct through
// New, NewNamed or NewFromValues. A Set is not safe for concurrent use.
type Set struct {
	values    map[string]float64
	state     state
	jsonPath  string
	formation bool
}

// Option configures construction.
type Option func(*config)

type config struct {
	values    map[string]float64
	hasValues bool
	jsonPath  string
	formation bool
}

// WithValues constructs the set directly from the supplied mapping. The
// mapping is copied; the set is immediately populated.
func WithValues(values map[string]float64) Option {
	return func(c *config) {
		c.values = values
		c.hasValues = true
	}
}

// WithJSONPath loads the set eagerly from the JSON file at path. The path is
// also retained for a later deferred ImportParameters call when construction
// is deferred.
func WithJSONPath(path string) Option {
	return func(c *config) { c.jsonPath = path }
}

// WithFormationConcentrations derives initial electrode concentrations from
// a formation-state assumption on import instead of taking them verbatim.
// It alters derived fields only; the container contract is unchanged.
func WithFormationConcentrations(enabled bool) Option {
	return func(c *config) { c.formation = enabled }
}

// New constructs a parameter set. With WithValues the set is populated
// immediately; with WithJSONPath it is loaded eagerly from the file; with
// neither it stays unbound until ImportParameters is called. Supplying both
// a mapping and a path fails with ErrBothSources.
func New(opts ...Option) (*Set, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	if c.hasValues && c.jsonPath != "" {
		return nil, ErrBothSources
	}
	s := &Set{jsonPath: c.jsonPath, formation: c.formation}
	if c.hasValues {
		s.values = copyValues(c.values)
		s.state = statePopulated
		return s, nil
	}
	if c.jsonPath != "" {
		if err := s.importFrom(c.jsonPath); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewFromValues wraps a caller-supplied mapping directly.
func NewFromValues(values map[string]float64, opts ...Option) (*Set, error) {
	return New(append([]Option{WithValues(values)}, opts...)...)
}

// NewNamed resolves a builtin literature parameter set by exact name.
// Unregistered names fail with ErrUnknownSet. Lookup is idempotent: the
// returned set never aliases registry state.
func NewNamed(name string, opts ...Option) (*Set, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	if c.hasValues || c.jsonPath != "" {
		return nil, ErrBothSources
	}
	values, err := Resolve(name)
	if err != nil {
		return nil, err
	}
	if c.formation {
		if err := bpx.ApplyFormation(values); err != nil {
			return nil, fmt.Errorf("apply formation concentrations to %q: %w", name, err)
		}
	}
	return &Set{values: values, state: statePopulated, formation: c.formation}, nil
}

// ImportParameters populates an unbound set from the JSON file at path. An
// empty path falls back to the path given at construction. Importing into a
// populated set fails with ErrAlreadyConstructed; importing with no path at
// all fails with ErrNoPath. On failure the set is left unchanged.
func (s *Set) ImportParameters(path string) error {
	if s.state == statePopulated {
		return ErrAlreadyConstructed
	}
	if path == "" {
		path = s.jsonPath
	}
	if path == "" {
		return ErrNoPath
	}
	return s.importFrom(path)
}

func (s *Set) importFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read parameter file: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode parameter file %s: %w", path, err)
	}
	var values map[string]float64
	if bpx.IsBPX(raw) {
		doc, err := bpx.Parse(data)
		if err != nil {
			return err
		}
		values, err = bpx.Translate(doc, s.formation)
		if err != nil {
			return err
		}
	} else {
		values = make(map[string]float64, len(raw))
		for name, msg := range raw {
			var v float64
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("decode parameter file %s: parameter %q is not numeric", path, name)
			}
			values[name] = v
		}
	}
	s.values = values
	s.state = statePopulated
	return nil
}

// Get returns the value of the named parameter.
func (s *Set) Get(name string) (float64, error) {
	v, ok := s.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrKeyNotFound, name)
	}
	return v, nil
}

// MustGet returns the value of the named parameter, panicking when absent.
// Intended for demos and tests where the key is known to exist.
func (s *Set) MustGet(name string) float64 {
	v, err := s.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Set writes the named parameter. Writes always succeed and are visible to
// subsequent reads.
func (s *Set) Set(name string, value float64) {
	if s.values == nil {
		s.values = make(map[string]float64)
	}
	s.values[name] = value
	s.state = statePopulated
}

// Keys returns the sorted parameter names.
func (s *Set) Keys() []string {
	out := make([]string, 0, len(s.values))
	for name := range s.values {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of parameters in the set.
func (s *Set) Len() int { return len(s.values) }

// Values returns a defensive copy of the underlying mapping.
func (s *Set) Values() map[string]float64 { return copyValues(s.values) }

// Resolve implements symexpr.Resolver.
func (s *Set) Resolve(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// UpdateOption configures an Update call.
type UpdateOption func(*updateConfig)

type updateConfig struct {
	allowNew bool
}

// AllowNew permits Update to add parameters not already in the set.
func AllowNew() UpdateOption {
	return func(c *updateConfig) { c.allowNew = true }
}

// Update merges values into the set. By default every incoming key must
// already exist, guarding against silent typos; unknown keys fail with
// ErrUnknownKey and name AllowNew as the explicit opt-out. Validation is
// all-or-nothing: on error the set is unchanged.
func (s *Set) Update(values map[string]float64, opts ...UpdateOption) error {
	var c updateConfig
	for _, opt := range opts {
		opt(&c)
	}
	if !c.allowNew {
		for name := range values {
			if _, ok := s.values[name]; !ok {
				return fmt.Errorf("%w: %q is not in the set; if you are sure you want to add this parameter, update with AllowNew()", ErrUnknownKey, name)
			}
		}
	}
	if s.values == nil {
		s.values = make(map[string]float64, len(values))
	}
	for name, v := range values {
		s.values[name] = v
	}
	if len(s.values) > 0 {
		s.state = statePopulated
	}
	return nil
}

// FitParameters is the narrow surface Export needs from a fit-parameter
// collection: names and initial values in definition order.
type FitParameters interface {
	Names() []string
	InitialValues() []float64
}

// ExportParameters serialises the current mapping as flat JSON at path.
// When fitParams is non-nil its initial values are merged over the base
// mapping. Exporting an empty set with no fit parameters fails with
// ErrEmptyExport.
func (s *Set) ExportParameters(path string, fitParams FitParameters) error {
	merged := copyValues(s.values)
	if fitParams != nil {
		names := fitParams.Names()
		initials := fitParams.InitialValues()
		if len(names) != len(initials) {
			return fmt.Errorf("fit parameters: %d names but %d initial values", len(names), len(initials))
		}
		for i, name := range names {
			merged[name] = initials[i]
		}
	}
	if len(merged) == 0 {
		return ErrEmptyExport
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write parameter file: %w", err)
	}
	return nil
}

func copyValues(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for name, v := range values {
		out[name] = v
	}
	return out
}
