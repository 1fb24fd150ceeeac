// Package dataset holds the named time-series columns exchanged between
// models, cost functions and fitting problems.
package dataset

import (
	"errors"
	"fmt"
	"sort"
)

// TimeColumn is the column every dataset must carry.
const TimeColumn = "Time [s]"

// ErrColumnNotFound reports a read of an absent column.
var ErrColumnNotFound = errors.New("dataset: column not found")

// Dataset is an immutable collection of equal-length named columns.
type Dataset struct {
	columns map[string][]float64
	length  int
}

// New validates and wraps the supplied columns. All columns must share one
// length, be non-empty, and include the time column.
func New(columns map[string][]float64) (Dataset, error) {
	if _, ok := columns[TimeColumn]; !ok {
		return Dataset{}, fmt.Errorf("dataset: missing required column %q", TimeColumn)
	}
	length := -1
	for name, col := range columns {
		if len(col) == 0 {
			return Dataset{}, fmt.Errorf("dataset: column %q is empty", name)
		}
		if length == -1 {
			length = len(col)
		}
		if len(col) != length {
			return Dataset{}, fmt.Errorf("dataset: column %q has length %d, want %d", name, len(col), length)
		}
	}
	cp := make(map[string][]float64, len(columns))
	for name, col := range columns {
		cp[name] = append([]float64(nil), col...)
	}
	return Dataset{columns: cp, length: length}, nil
}

// Len returns the number of samples per column.
func (d Dataset) Len() int { return d.length }

// Names returns the sorted column names.
func (d Dataset) Names() []string {
	out := make([]string, 0, len(d.columns))
	for name := range d.columns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Column returns a copy of the named column.
func (d Dataset) Column(name string) ([]float64, error) {
	col, ok := d.columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return append([]float64(nil), col...), nil
}

// Time returns a copy of the time column.
func (d Dataset) Time() []float64 {
	col, _ := d.Column(TimeColumn)
	return col
}
