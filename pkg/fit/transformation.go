package fit

import "math"

// Transformation maps between model space (the space the parameter lives in)
// and search space (the space the optimiser steps in). Optimisers step in
// search space; costs and exports always see model space.
type Transformation interface {
	// ToSearch maps a model-space value into search space.
	ToSearch(x float64) float64
	// ToModel maps a search-space value back into model space.
	ToModel(x float64) float64
}

// IdentityTransformation leaves values unchanged.
type IdentityTransformation struct{}

// ToSearch implements Transformation.
func (IdentityTransformation) ToSearch(x float64) float64 { return x }

// ToModel implements Transformation.
func (IdentityTransformation) ToModel(x float64) float64 { return x }

// LogTransformation searches in log space, keeping strictly positive
// parameters positive under unconstrained stepping.
type LogTransformation struct{}

// ToSearch implements Transformation.
func (LogTransformation) ToSearch(x float64) float64 { return math.Log(x) }

// ToModel implements Transformation.
func (LogTransformation) ToModel(x float64) float64 { return math.Exp(x) }
