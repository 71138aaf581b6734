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
	"errors"
	"fmt"
	"math"

	"github.com/spatialmodel/reldisp/algebra"
)

const (
	// NormalizationTolerance is the largest difference from one that
	// a normalization integral may have without being flagged.
	NormalizationTolerance = 1e-6

	// ClosedFormTolerance is the largest relative difference between a
	// closed-form moment and its integral that is not flagged.
	ClosedFormTolerance = 1e-6
)

var (
	// ErrNotNormalized is recorded on the normalization quantity when
	// the density does not integrate to one.
	ErrNotNormalized = errors.New("reldisp: density is not normalized")

	// ErrClosedFormMismatch is recorded on closed-form moments that
	// disagree with the integral of the density.
	ErrClosedFormMismatch = errors.New("reldisp: closed form disagrees with the integral")

	// ErrNoClosedForm is recorded on quantities whose evaluation was
	// stopped before it finished.
	ErrNoClosedForm = errors.New("reldisp: no closed form found")
)

// Status describes how a quantity was obtained.
type Status int

const (
	// Unevaluated quantities have no value; Err says why.
	Unevaluated Status = iota
	// Partial quantities have a value from an integral that did not
	// reach the requested tolerance.
	Partial
	// Numeric quantities were integrated or differentiated numerically.
	Numeric
	// Exact quantities were evaluated from a closed form.
	Exact
)

func (s Status) String() string {
	switch s {
	case Unevaluated:
		return "unevaluated"
	case Partial:
		return "partial"
	case Numeric:
		return "numeric"
	case Exact:
		return "exact"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Quantity is one derived result.
type Quantity struct {
	Name string

	// Value is the simplified value. It is only meaningful when Status
	// is not Unevaluated.
	Value  algebra.Value
	Status Status

	// Expression is the expression the value was evaluated from.
	Expression string

	// Err explains why the quantity is unevaluated or partial,
	// or flags a problem with its value.
	Err error
}

// Float returns the numerical value, or NaN if there is none.
func (q Quantity) Float() float64 {
	if q.Status == Unevaluated {
		return math.NaN()
	}
	return q.Value.Float
}

func (q Quantity) String() string {
	if q.Status == Unevaluated {
		return fmt.Sprintf("%s = ? (%v)", q.Name, q.Err)
	}
	return fmt.Sprintf("%s = %s (%s)", q.Name, q.Value, q.Status)
}

// Derivation holds the results of deriving a regime for one set of
// parameters.
type Derivation struct {
	Regime    string
	Kind      Kind
	Validated bool
	Params    algebra.Env

	Normalization Quantity
	SecondMoment  Quantity // <r^2>
	FourthMoment  Quantity // <r^4>
	Moments       []Quantity
	Kurtosis      Quantity // <r^4>/<r^2>^2
	Diffusivity   Quantity // K2 = 1/2 d<r^2>/dt

	// GrowthExponent is d ln<r^2>/d ln t = 2 t K2 / <r^2>.
	GrowthExponent Quantity
}

// Quantities returns all derived quantities in the order they are derived.
func (d *Derivation) Quantities() []Quantity {
	q := []Quantity{d.Normalization, d.SecondMoment, d.FourthMoment}
	q = append(q, d.Moments...)
	return append(q, d.Kurtosis, d.Diffusivity, d.GrowthExponent)
}

// Complete returns whether every quantity was evaluated to tolerance.
func (d *Derivation) Complete() bool {
	for _, q := range d.Quantities() {
		if q.Status == Unevaluated || q.Status == Partial {
			return false
		}
	}
	return true
}

// Derive derives the normalization, the second and fourth moments, the
// moments of the given orders, the kurtosis, the effective diffusivity and
// the growth exponent for the parameters in params, which are combined with
// the regime defaults.
//
// A quantity that cannot be evaluated is recorded as Unevaluated and the
// derivation continues. An error is only returned for invalid parameters.
func (p *Procedure) Derive(ctx context.Context, params algebra.Env, orders ...float64) (*Derivation, error) {
	env, err := p.Bind(params)
	if err != nil {
		return nil, err
	}
	if _, err := p.bindGlobals(ctx, env); err != nil {
		return nil, err
	}
	d := &Derivation{
		Regime:    p.regime.Name,
		Kind:      p.regime.Kind,
		Validated: p.regime.Validated,
		Params:    env,
	}

	d.Normalization = p.evaluate(ctx, "normalization", p.Moment(0), env, Numeric)
	if d.Normalization.Status != Unevaluated && d.Normalization.Err == nil {
		if v := d.Normalization.Value.Float; math.Abs(v-1) > NormalizationTolerance {
			d.Normalization.Err = fmt.Errorf("%w: integral of the density is %g", ErrNotNormalized, v)
		}
	}
	d.SecondMoment = p.checkedMoment(ctx, env, 2)
	d.FourthMoment = p.checkedMoment(ctx, env, 4)
	for _, n := range orders {
		d.Moments = append(d.Moments, p.MomentOf(ctx, env, n))
	}

	d.Kurtosis = p.combine("Ku", "<r^4>/<r^2>^2", func(v []float64) float64 {
		return v[0] / (v[1] * v[1])
	}, d.FourthMoment, d.SecondMoment)

	d.Diffusivity = p.diffusivity(ctx, env)
	d.GrowthExponent = p.combine("gamma", "2*t*K2/<r^2>", func(v []float64) float64 {
		return 2 * env[TimeSymbol] * v[0] / v[1]
	}, d.Diffusivity, d.SecondMoment)
	return d, nil
}

// MomentOf returns <r^n> for the parameters in env, from the closed form
// if the regime has one and from the integral otherwise. The parameters
// must already be bound with Bind.
func (p *Procedure) MomentOf(ctx context.Context, env algebra.Env, n float64) Quantity {
	name := fmt.Sprintf("<r^%g>", n)
	env = env.With(OrderSymbol, n)
	if e := p.ClosedMoment(); e != nil {
		return p.evaluate(ctx, name, e, env, Exact)
	}
	return p.evaluate(ctx, name, p.GeneralMoment(), env, Numeric)
}

// checkedMoment returns <r^n> from the closed form, checked against the
// integral, if the regime has one, and from the integral otherwise.
func (p *Procedure) checkedMoment(ctx context.Context, env algebra.Env, n float64) Quantity {
	name := fmt.Sprintf("<r^%g>", n)
	integral := p.evaluate(ctx, name, p.Moment(n), env, Numeric)
	if p.ClosedMoment() == nil {
		return integral
	}
	q := p.MomentOf(ctx, env, n)
	if q.Status != Exact {
		if integral.Status != Unevaluated {
			return integral
		}
		return q
	}
	q.Expression = fmt.Sprintf("%s with %s=%g", p.regime.MomentN, OrderSymbol, n)
	if integral.Status != Numeric {
		return q
	}
	closed, num := q.Value.Float, integral.Value.Float
	if math.Abs(closed-num) > ClosedFormTolerance*math.Max(math.Abs(closed), math.Abs(num)) {
		q.Err = fmt.Errorf("%w: %s is %g in closed form but %g by integration", ErrClosedFormMismatch, name, closed, num)
	}
	return q
}

// secondMoment returns the expression that K2 is derived from: the
// closed form with n = 2 if there is one, and the integral otherwise.
func (p *Procedure) secondMoment() algebra.Expr {
	closed := p.ClosedMoment()
	if closed == nil {
		return p.Moment(2)
	}
	return algebra.NewFunc("<r^2>", p.regime.sortedParams(), func(ctx context.Context, env algebra.Env) (float64, error) {
		return closed.Eval(ctx, env.With(OrderSymbol, 2))
	})
}

func (p *Procedure) diffusivity(ctx context.Context, env algebra.Env) Quantity {
	const name = "K2"
	if _, ok := p.params[TimeSymbol]; !ok {
		return Quantity{Name: name, Status: Unevaluated,
			Err: fmt.Errorf("reldisp: regime %s has no time parameter %q", p.regime.Name, TimeSymbol)}
	}
	deriv := p.engine.Differentiate(p.secondMoment(), TimeSymbol)
	q := p.evaluate(ctx, name, deriv, env, Numeric)
	if q.Status != Unevaluated {
		q.Value = p.engine.Simplify(q.Value.Float / 2)
	}
	q.Expression = "1/2*" + deriv.String()
	return q
}

// evaluate evaluates e and classifies the result.
func (p *Procedure) evaluate(ctx context.Context, name string, e algebra.Expr, env algebra.Env, status Status) Quantity {
	q := Quantity{Name: name, Expression: e.String(), Status: status}
	v, err := e.Eval(ctx, env)
	switch {
	case err == nil:
	case errors.Is(err, algebra.ErrNotConverged):
		q.Status = Partial
		q.Err = err
	case ctx.Err() != nil:
		q.Status = Unevaluated
		q.Err = fmt.Errorf("%w for %s: %v", ErrNoClosedForm, name, ctx.Err())
		return q
	default:
		q.Status = Unevaluated
		q.Err = err
		return q
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		q.Status = Unevaluated
		q.Err = fmt.Errorf("%w: %s = %g", algebra.ErrNonFinite, name, v)
		return q
	}
	q.Value = p.engine.Simplify(v)
	return q
}

// combine computes a quantity from others. The result is as good
// as the worst of its inputs.
func (p *Procedure) combine(name, expression string, f func([]float64) float64, in ...Quantity) Quantity {
	q := Quantity{Name: name, Expression: expression, Status: Exact}
	v := make([]float64, len(in))
	for i, x := range in {
		if x.Status == Unevaluated {
			return Quantity{Name: name, Expression: expression, Status: Unevaluated,
				Err: fmt.Errorf("reldisp: %s is unevaluated: %w", x.Name, x.Err)}
		}
		if x.Status < q.Status {
			q.Status = x.Status
			if x.Err != nil {
				q.Err = x.Err
			}
		}
		v[i] = x.Value.Float
	}
	r := f(v)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Quantity{Name: name, Expression: expression, Status: Unevaluated,
			Err: fmt.Errorf("%w: %s = %g", algebra.ErrNonFinite, name, r)}
	}
	q.Value = p.engine.Simplify(r)
	return q
}
