// Package symexpr defines the minimal symbolic expression algebra exchanged
// with model libraries. Parameter containers interoperate with it through the
// Resolver seam only; they never see the node hierarchy.
package symexpr

import (
	"errors"
	"fmt"
)

// ErrUnresolved indicates a named reference could not be resolved to a value.
var ErrUnresolved = errors.New("symexpr: unresolved reference")

// ErrNilNode indicates evaluation was attempted on a nil expression node.
var ErrNilNode = errors.New("symexpr: nil node")

// Resolver supplies numeric values for named parameter references.
type Resolver interface {
	// Resolve returns the value bound to name and whether a binding exists.
	Resolve(name string) (float64, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (float64, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(name string) (float64, bool) { return f(name) }

// Node is a symbolic expression that reduces to a scalar under a Resolver.
type Node interface {
	eval(r Resolver) (float64, error)
}

// Scalar is a plain numeric literal.
type Scalar float64

func (s Scalar) eval(Resolver) (float64, error) { return float64(s), nil }

// Ref is a bare reference to a named parameter.
type Ref string

func (p Ref) eval(r Resolver) (float64, error) {
	v, ok := r.Resolve(string(p))
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnresolved, string(p))
	}
	return v, nil
}

// FunctionRef is a function parameter referenced by name. Without applied
// inputs it reduces to the value bound to its name, mirroring a function
// parameter evaluated at its reference point.
type FunctionRef struct {
	Name string
	// Inputs are retained for interoperability; evaluation at the reference
	// point ignores them.
	Inputs map[string]Node
}

func (p FunctionRef) eval(r Resolver) (float64, error) {
	v, ok := r.Resolve(p.Name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnresolved, p.Name)
	}
	return v, nil
}

type binary struct {
	left, right Node
}

// Add is the sum of two expressions.
type Add binary

func (n Add) eval(r Resolver) (float64, error) {
	l, err := Evaluate(n.left, r)
	if err != nil {
		return 0, err
	}
	rv, err := Evaluate(n.right, r)
	if err != nil {
		return 0, err
	}
	return l + rv, nil
}

// Mul is the product of two expressions.
type Mul binary

func (n Mul) eval(r Resolver) (float64, error) {
	l, err := Evaluate(n.left, r)
	if err != nil {
		return 0, err
	}
	rv, err := Evaluate(n.right, r)
	if err != nil {
		return 0, err
	}
	return l * rv, nil
}

// Neg is the negation of an expression.
type Neg struct {
	Operand Node
}

func (n Neg) eval(r Resolver) (float64, error) {
	v, err := Evaluate(n.Operand, r)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

// Sum constructs left + right.
func Sum(left, right Node) Node { return Add{left: left, right: right} }

// Product constructs left * right.
func Product(left, right Node) Node { return Mul{left: left, right: right} }

// Evaluate reduces node to a scalar, resolving named references through r.
// References resolve transitively: composite nodes may nest references at
// any depth and each resolves through the same mapping.
func Evaluate(node Node, r Resolver) (float64, error) {
	if node == nil {
		return 0, ErrNilNode
	}
	return node.eval(r)
}
