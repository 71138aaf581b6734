/*
Copyright © 2026 the RelDisp authors.
This file is part of RelDisp.

RelDisp is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RelDisp is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RelDisp.  If not, see <http://www.gnu.org/licenses/>.*/

// Package algebra provides the small amount of algebra needed to derive the
// moments of a separation density: typed symbols, expressions parsed from
// text, definite integrals, derivatives and the simplification of results.
//
// Expressions are evaluated numerically. Definite integrals over finite
// intervals use adaptive composite Gauss-Legendre quadrature, and infinite
// bounds are covered by panels that double in width away from a center point
// until their contributions vanish.
package algebra

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrDivergent is returned when the tail of an improper integral does
	// not decay.
	ErrDivergent = errors.New("algebra: integral does not converge")

	// ErrNonFinite is returned when an expression evaluates to NaN or ±Inf.
	ErrNonFinite = errors.New("algebra: non-finite value")

	// ErrNotConverged is returned along with a usable value when adaptive
	// refinement ran out before the requested tolerance was met.
	ErrNotConverged = errors.New("algebra: quadrature did not reach the requested tolerance")

	// ErrConstraint is returned when a value violates the constraint of the
	// symbol it is bound to.
	ErrConstraint = errors.New("algebra: value violates symbol constraint")
)

// Constraint is the domain of a real-valued symbol.
type Constraint int

const (
	// Real symbols can take any finite value.
	Real Constraint = iota
	// Positive symbols must be greater than zero.
	Positive
	// NonNegative symbols must be greater than or equal to zero.
	NonNegative
)

func (c Constraint) String() string {
	switch c {
	case Real:
		return "real"
	case Positive:
		return "positive"
	case NonNegative:
		return "nonnegative"
	default:
		return fmt.Sprintf("Constraint(%d)", int(c))
	}
}

// ParseConstraint returns the constraint with the given name.
// An empty name means Real.
func ParseConstraint(s string) (Constraint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "real":
		return Real, nil
	case "positive":
		return Positive, nil
	case "nonnegative", "non-negative":
		return NonNegative, nil
	default:
		return Real, fmt.Errorf("algebra: invalid constraint %q", s)
	}
}

// Allows returns whether v is in the domain of c.
func (c Constraint) Allows(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	switch c {
	case Positive:
		return v > 0
	case NonNegative:
		return v >= 0
	default:
		return true
	}
}

// Symbol is a named real scalar.
type Symbol struct {
	Name       string
	Constraint Constraint
}

// Check returns an error if v cannot be bound to s.
func (s Symbol) Check(v float64) error {
	if !s.Constraint.Allows(v) {
		return fmt.Errorf("%w: %s must be %s, got %g", ErrConstraint, s.Name, s.Constraint, v)
	}
	return nil
}

// Env binds symbol names to values.
type Env map[string]float64

// Get implements the govaluate.Parameters interface.
func (e Env) Get(name string) (interface{}, error) {
	if v, ok := e[name]; ok {
		return v, nil
	}
	if v, ok := constants[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("algebra: no value bound to %q", name)
}

// Clone returns a copy of e.
func (e Env) Clone() Env {
	o := make(Env, len(e)+4)
	for k, v := range e {
		o[k] = v
	}
	return o
}

// With returns a copy of e with name bound to v.
func (e Env) With(name string, v float64) Env {
	o := e.Clone()
	o[name] = v
	return o
}

// Names returns the bound names in sorted order.
func (e Env) Names() []string {
	names := make([]string, 0, len(e))
	for k := range e {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (e Env) String() string {
	s := make([]string, 0, len(e))
	for _, n := range e.Names() {
		s = append(s, fmt.Sprintf("%s=%g", n, e[n]))
	}
	return strings.Join(s, " ")
}

// Expr is an expression that can be evaluated to a real number.
//
// Eval may return a value together with an error wrapping ErrNotConverged,
// in which case the value is the best estimate available. Integration hands
// integrands a scratch Env which they may extend with their own bindings;
// Eval must not retain env after it returns.
type Expr interface {
	Eval(ctx context.Context, env Env) (float64, error)
	// Vars returns the free variables of the expression.
	Vars() []string
	String() string
}

// Interval is the domain of a definite integral. Either bound may be
// infinite. Center and Scale are optional hints for infinite intervals:
// the tails are covered starting from Center with panels of initial
// width Scale. They are evaluated in the environment of the integral,
// and default to the finite bound (or zero) and one.
type Interval struct {
	Lower, Upper  float64
	Center, Scale Expr
}

// Engine is the algebra capability used to build moment derivations.
type Engine interface {
	// Declare declares a symbol so that expressions may refer to it.
	Declare(name string, c Constraint) (Symbol, error)

	// Parse builds an expression from text. All variables in the
	// expression must have been declared.
	Parse(expression string) (Expr, error)

	// Integrate returns the definite integral of e with respect to v
	// over in.
	Integrate(e Expr, v string, in Interval) Expr

	// Differentiate returns the derivative of e with respect to v.
	Differentiate(e Expr, v string) Expr

	// Simplify returns the simplest representation of a result.
	Simplify(v float64) Value
}

// Func is an expression implemented by a Go function.
type Func struct {
	Name string
	Args []string
	F    func(ctx context.Context, env Env) (float64, error)
}

// NewFunc returns an expression named name that depends on vars and is
// evaluated by f.
func NewFunc(name string, vars []string, f func(ctx context.Context, env Env) (float64, error)) *Func {
	return &Func{Name: name, Args: vars, F: f}
}

// Eval implements Expr.
func (f *Func) Eval(ctx context.Context, env Env) (float64, error) { return f.F(ctx, env) }

// Vars implements Expr.
func (f *Func) Vars() []string { return f.Args }

func (f *Func) String() string { return f.Name }

// Constant returns an expression that always evaluates to v.
func Constant(v float64) Expr {
	return NewFunc(fmt.Sprint(v), nil, func(context.Context, Env) (float64, error) { return v, nil })
}

// finite returns ErrNonFinite if v is NaN or infinite.
func finite(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s = %g", ErrNonFinite, what, v)
	}
	return nil
}

// removeDuplicates returns the unique values of s in order of
// first appearance.
func removeDuplicates(s []string) []string {
	seen := make(map[string]struct{}, len(s))
	var o []string
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		o = append(o, v)
	}
	return o
}
