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

package reldisp

import (
	"context"
	"fmt"
	"math"

	"github.com/spatialmodel/reldisp/algebra"
)

type definition struct {
	algebra.Symbol
	e algebra.Expr
}

// Procedure derives the moments of a compiled regime.
type Procedure struct {
	regime *Regime
	engine algebra.Engine
	params map[string]algebra.Symbol

	// globals depend only on the parameters; locals also depend on
	// the integration point.
	globals, locals []definition

	density          algebra.Expr
	radius, jacobian algebra.Expr
	momentN          algebra.Expr
	interval         algebra.Interval
}

// Compile declares the symbols of r with engine and parses its
// expressions.
func (r *Regime) Compile(engine algebra.Engine) (*Procedure, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	p := &Procedure{
		regime: r,
		engine: engine,
		params: make(map[string]algebra.Symbol, len(r.Parameters)),
		interval: algebra.Interval{
			Lower: r.Domain.Lower,
			Upper: r.Domain.Upper,
		},
	}
	declare := func(name string, c algebra.Constraint) error {
		if _, err := engine.Declare(name, c); err != nil {
			return fmt.Errorf("reldisp: regime %s: %w", r.Name, err)
		}
		return nil
	}
	parse := func(what, s string) (algebra.Expr, error) {
		e, err := engine.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("reldisp: regime %s: %s: %w", r.Name, what, err)
		}
		return e, nil
	}
	for _, param := range r.Parameters {
		if err := declare(param.Name, param.Constraint); err != nil {
			return nil, err
		}
		p.params[param.Name] = algebra.Symbol{Name: param.Name, Constraint: param.Constraint}
	}
	if err := declare(OrderSymbol, algebra.Real); err != nil {
		return nil, err
	}

	// r and the integration variable are only known at an integration
	// point, and so is every definition that uses them.
	pointVars := map[string]bool{RadiusSymbol: true, r.Domain.Variable: true}
	if err := declare(RadiusSymbol, algebra.NonNegative); err != nil {
		return nil, err
	}
	if r.Domain.Variable != RadiusSymbol {
		if err := declare(r.Domain.Variable, algebra.Real); err != nil {
			return nil, err
		}
	}

	// Definitions are declared one at a time so that each can only see
	// the ones before it. Those that do not depend on the integration
	// point can also be used in the hints and the closed-form moment.
	pointNames := []string{RadiusSymbol}
	for _, def := range r.Definitions {
		e, err := parse("definition "+def.Name, def.Expression)
		if err != nil {
			return nil, err
		}
		d := definition{Symbol: algebra.Symbol{Name: def.Name, Constraint: def.Constraint}, e: e}
		if dependsOn(e, pointVars) {
			pointVars[def.Name] = true
			pointNames = append(pointNames, def.Name)
			p.locals = append(p.locals, d)
		} else {
			p.globals = append(p.globals, d)
		}
		if err := declare(def.Name, def.Constraint); err != nil {
			return nil, err
		}
	}

	var err error
	if r.Domain.Variable != RadiusSymbol {
		if p.radius, err = parse("radius", r.Domain.Radius); err != nil {
			return nil, err
		}
		if p.jacobian, err = parse("jacobian", r.Domain.Jacobian); err != nil {
			return nil, err
		}
		for _, e := range []algebra.Expr{p.radius, p.jacobian} {
			if v := firstOf(e, pointNames); v != "" {
				return nil, fmt.Errorf("reldisp: regime %s: %s depends on %s, which is only known once r is", r.Name, e, v)
			}
		}
	}
	pointNames = append(pointNames, r.Domain.Variable)

	if p.density, err = parse("density", r.Density); err != nil {
		return nil, err
	}
	if r.MomentN != "" {
		if p.momentN, err = parse("closed-form moment", r.MomentN); err != nil {
			return nil, err
		}
		if v := firstOf(p.momentN, pointNames); v != "" {
			return nil, fmt.Errorf("reldisp: regime %s: closed-form moment depends on %s", r.Name, v)
		}
	}
	for _, hint := range []struct {
		what string
		s    string
		e    *algebra.Expr
	}{
		{"center", r.Domain.Center, &p.interval.Center},
		{"scale", r.Domain.Scale, &p.interval.Scale},
	} {
		if hint.s == "" {
			continue
		}
		e, err := parse(hint.what, hint.s)
		if err != nil {
			return nil, err
		}
		if v := firstOf(e, pointNames); v != "" {
			return nil, fmt.Errorf("reldisp: regime %s: %s hint depends on %s", r.Name, hint.what, v)
		}
		*hint.e = e
	}
	return p, nil
}

// dependsOn returns whether e uses any of vars.
func dependsOn(e algebra.Expr, vars map[string]bool) bool {
	for _, v := range e.Vars() {
		if vars[v] {
			return true
		}
	}
	return false
}

// firstOf returns the first variable of e that is in names, or "".
func firstOf(e algebra.Expr, names []string) string {
	for _, v := range e.Vars() {
		for _, n := range names {
			if v == n {
				return v
			}
		}
	}
	return ""
}

// Regime returns the regime that p was compiled from.
func (p *Procedure) Regime() *Regime { return p.regime }

// Bind returns the regime defaults overridden by params, after checking
// that every value is a finite value allowed for its parameter.
func (p *Procedure) Bind(params algebra.Env) (algebra.Env, error) {
	env := p.regime.Defaults()
	for name, v := range params {
		s, ok := p.params[name]
		if !ok {
			return nil, fmt.Errorf("reldisp: regime %s has no parameter %q; valid parameters are %v", p.regime.Name, name, p.regime.sortedParams())
		}
		if math.IsInf(v, 0) {
			return nil, fmt.Errorf("reldisp: regime %s: parameter %s must be finite", p.regime.Name, name)
		}
		if err := s.Check(v); err != nil {
			return nil, fmt.Errorf("reldisp: regime %s: %w", p.regime.Name, err)
		}
		env[name] = v
	}
	return env, nil
}

// bindGlobals returns a copy of env with the parameter-only definitions
// bound.
func (p *Procedure) bindGlobals(ctx context.Context, env algebra.Env) (algebra.Env, error) {
	env = env.Clone()
	for _, d := range p.globals {
		v, err := d.e.Eval(ctx, env)
		if err != nil {
			return nil, fmt.Errorf("reldisp: regime %s: definition %s: %w", p.regime.Name, d.Name, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("reldisp: regime %s: definition %s = %s is %g for %v", p.regime.Name, d.Name, d.e, v, env)
		}
		if err := d.Check(v); err != nil {
			return nil, fmt.Errorf("reldisp: regime %s: %w for %v", p.regime.Name, err, env)
		}
		env[d.Name] = v
	}
	return env, nil
}

// bindPoint binds r and the point-dependent definitions into env at the
// integration point already bound in env. It returns r and dr/dvar.
func (p *Procedure) bindPoint(ctx context.Context, env algebra.Env) (r, jac float64, err error) {
	r, jac = env[p.regime.Domain.Variable], 1
	if p.radius != nil {
		if r, err = p.radius.Eval(ctx, env); err != nil {
			return 0, 0, err
		}
		if jac, err = p.jacobian.Eval(ctx, env); err != nil {
			return 0, 0, err
		}
		env[RadiusSymbol] = r
	}
	if err := p.bindLocals(ctx, env); err != nil {
		return 0, 0, err
	}
	return r, jac, nil
}

func (p *Procedure) bindLocals(ctx context.Context, env algebra.Env) error {
	for _, d := range p.locals {
		v, err := d.e.Eval(ctx, env)
		if err != nil {
			return fmt.Errorf("definition %s: %w", d.Name, err)
		}
		if err := d.Check(v); err != nil {
			return err
		}
		env[d.Name] = v
	}
	return nil
}

// Density returns an expression for p(r). r must be bound in the
// environment it is evaluated in, along with the parameters.
func (p *Procedure) Density() algebra.Expr {
	return algebra.NewFunc("p", append([]string{RadiusSymbol}, p.regime.sortedParams()...),
		func(ctx context.Context, env algebra.Env) (float64, error) {
			genv, err := p.bindGlobals(ctx, env)
			if err != nil {
				return 0, err
			}
			if err := p.bindLocals(ctx, genv); err != nil {
				return 0, err
			}
			return p.density.Eval(ctx, genv)
		})
}

// DensityAt evaluates p(r) for the given parameters, which are
// combined with the regime defaults.
func (p *Procedure) DensityAt(ctx context.Context, params algebra.Env, r float64) (float64, error) {
	env, err := p.Bind(params)
	if err != nil {
		return 0, err
	}
	env[RadiusSymbol] = r
	return p.Density().Eval(ctx, env)
}

// Moment returns the expression for <r^k>, the integral of
// 2π p r^(k+1) dr over the regime domain.
func (p *Procedure) Moment(k float64) algebra.Expr {
	return p.moment(fmt.Sprintf("<r^%g>", k), func(algebra.Env) float64 { return k })
}

// GeneralMoment returns the integral expression for <r^n>, where the
// order n is bound in the environment.
func (p *Procedure) GeneralMoment() algebra.Expr {
	return p.moment("<r^n>", func(env algebra.Env) float64 { return env[OrderSymbol] })
}

func (p *Procedure) moment(name string, order func(algebra.Env) float64) algebra.Expr {
	v := p.regime.Domain.Variable
	integrand := algebra.NewFunc(name+" integrand", []string{v}, func(ctx context.Context, env algebra.Env) (float64, error) {
		r, jac, err := p.bindPoint(ctx, env)
		if err != nil {
			return 0, err
		}
		d, err := p.density.Eval(ctx, env)
		if err != nil {
			return 0, err
		}
		return momentWeight(d, r, order(env)+1, jac), nil
	})
	integral := p.engine.Integrate(integrand, v, p.interval)
	vars := p.regime.sortedParams()
	return algebra.NewFunc(name, vars, func(ctx context.Context, env algebra.Env) (float64, error) {
		genv, err := p.bindGlobals(ctx, env)
		if err != nil {
			return 0, err
		}
		return integral.Eval(ctx, genv)
	})
}

// momentWeight returns 2π d r^k jac. Where all factors are positive the
// product is formed in log space, so that a density that has underflowed
// is not multiplied by a power of r that has overflowed.
func momentWeight(d, r, k, jac float64) float64 {
	if d == 0 || jac == 0 {
		return 0
	}
	if d > 0 && r > 0 && jac > 0 {
		return 2 * math.Pi * math.Exp(math.Log(d)+k*math.Log(r)+math.Log(jac))
	}
	return 2 * math.Pi * d * math.Pow(r, k) * jac
}

// ClosedMoment returns the closed-form expression for <r^n>, or nil if
// the regime has none.
func (p *Procedure) ClosedMoment() algebra.Expr {
	if p.momentN == nil {
		return nil
	}
	return algebra.NewFunc(p.regime.MomentN, append([]string{OrderSymbol}, p.regime.sortedParams()...),
		func(ctx context.Context, env algebra.Env) (float64, error) {
			genv, err := p.bindGlobals(ctx, env)
			if err != nil {
				return 0, err
			}
			return p.momentN.Eval(ctx, genv)
		})
}
