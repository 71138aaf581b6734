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

package algebra

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/Knetic/govaluate"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Numeric is an Engine that evaluates expressions numerically.
// The zero value is not usable; create one with New.
type Numeric struct {
	// Quadrature controls how integrals are evaluated.
	Quadrature Quadrature

	// Step is the finite difference step relative to the point
	// where a derivative is evaluated.
	Step float64

	// MaxDenominator and RatTol control Simplify: a value is replaced by
	// a rational with a denominator no larger than MaxDenominator when
	// the two agree within a relative tolerance of RatTol.
	MaxDenominator int64
	RatTol         float64

	mu        sync.RWMutex
	symbols   map[string]Symbol
	functions map[string]govaluate.ExpressionFunction
}

// New returns a numeric engine with default settings.
func New() *Numeric {
	return &Numeric{
		Quadrature:     DefaultQuadrature,
		Step:           1e-3,
		MaxDenominator: 1000,
		RatTol:         1e-11,
		symbols:        make(map[string]Symbol),
		functions:      Functions(),
	}
}

// Declare implements Engine. Declaring a symbol again with the same
// constraint is allowed.
func (n *Numeric) Declare(name string, c Constraint) (Symbol, error) {
	if !identifier.MatchString(name) {
		return Symbol{}, fmt.Errorf("algebra: invalid symbol name %q", name)
	}
	if _, ok := constants[name]; ok {
		return Symbol{}, fmt.Errorf("algebra: symbol name %q is reserved for a constant", name)
	}
	if _, ok := n.functions[name]; ok {
		return Symbol{}, fmt.Errorf("algebra: symbol name %q is reserved for a function", name)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if s, ok := n.symbols[name]; ok && s.Constraint != c {
		return Symbol{}, fmt.Errorf("algebra: symbol %q already declared as %s", name, s.Constraint)
	}
	s := Symbol{Name: name, Constraint: c}
	n.symbols[name] = s
	return s, nil
}

// Symbol returns the declared symbol with the given name.
func (n *Numeric) Symbol(name string) (Symbol, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	s, ok := n.symbols[name]
	return s, ok
}

// Parse implements Engine.
func (n *Numeric) Parse(expression string) (Expr, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expression, n.functions)
	if err != nil {
		return nil, fmt.Errorf("algebra: parsing %q: %v", expression, err)
	}
	p := &parsed{src: expression, e: e, symbols: make(map[string]Symbol)}
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, v := range removeDuplicates(e.Vars()) {
		if _, ok := constants[v]; ok {
			continue
		}
		s, ok := n.symbols[v]
		if !ok {
			return nil, fmt.Errorf("algebra: parsing %q: undeclared symbol %q", expression, v)
		}
		p.vars = append(p.vars, v)
		p.symbols[v] = s
	}
	return p, nil
}

// Integrate implements Engine.
func (n *Numeric) Integrate(e Expr, v string, in Interval) Expr {
	return &integral{q: n.Quadrature, e: e, v: v, in: in}
}

// Differentiate implements Engine.
func (n *Numeric) Differentiate(e Expr, v string) Expr {
	return &derivative{e: e, v: v, step: n.Step}
}

// Simplify implements Engine.
func (n *Numeric) Simplify(v float64) Value {
	return Value{Float: v, Rat: rationalize(v, n.MaxDenominator, n.RatTol)}
}

// parsed is an expression parsed from text.
type parsed struct {
	src     string
	e       *govaluate.EvaluableExpression
	vars    []string
	symbols map[string]Symbol
}

// checkedEnv checks bound values against the constraints of the
// expression's symbols as they are looked up.
type checkedEnv struct {
	env     Env
	symbols map[string]Symbol
}

func (c checkedEnv) Get(name string) (interface{}, error) {
	v, err := c.env.Get(name)
	if err != nil {
		return nil, err
	}
	if s, ok := c.symbols[name]; ok {
		if err := s.Check(v.(float64)); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (p *parsed) Eval(ctx context.Context, env Env) (float64, error) {
	r, err := p.e.Eval(checkedEnv{env: env, symbols: p.symbols})
	if err != nil {
		return 0, fmt.Errorf("algebra: evaluating %q: %w", p.src, err)
	}
	v, ok := r.(float64)
	if !ok {
		return 0, fmt.Errorf("algebra: %q evaluated to %T, not a number", p.src, r)
	}
	return v, nil
}

func (p *parsed) Vars() []string { return p.vars }

func (p *parsed) String() string { return p.src }
