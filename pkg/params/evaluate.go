package params

import "battcore/pkg/symexpr"

// EvaluateSymbol numerically evaluates a symbolic expression against the
// given parameter set, resolving named references through the mapping and
// reducing to a scalar. It is the single point where the container meets the
// model library's expression system.
func EvaluateSymbol(node symexpr.Node, set *Set) (float64, error) {
	return symexpr.Evaluate(node, set)
}
