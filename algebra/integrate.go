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
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// Quadrature holds the settings for numerical integration.
type Quadrature struct {
	// Nodes is the number of Gauss-Legendre nodes per panel.
	Nodes int

	// RelTol is the relative tolerance at which a panel stops being
	// subdivided, and below which tail panels are considered negligible.
	RelTol float64

	// MinDepth and MaxDepth bound the number of times a panel
	// is bisected.
	MinDepth, MaxDepth int

	// MaxPanels is the largest number of doubling panels used to cover
	// an infinite tail before the integral is considered divergent.
	MaxPanels int

	// PartialTol is the relative error estimate above which a result
	// is reported as not converged.
	PartialTol float64
}

// DefaultQuadrature holds the default integration settings.
var DefaultQuadrature = Quadrature{
	Nodes:      16,
	RelTol:     1e-12,
	MinDepth:   2,
	MaxDepth:   40,
	MaxPanels:  200,
	PartialTol: 1e-8,
}

// minTailPanels is the number of tail panels that are always integrated,
// so that integrands that start out small are not cut off early.
const minTailPanels = 4

// panel returns the fixed-order estimate of the integral of f over [a, b].
func (q Quadrature) panel(f func(float64) float64, a, b float64) float64 {
	return quad.Fixed(f, a, b, q.Nodes, quad.Legendre{}, 0)
}

// bounded integrates f over the finite interval [a, b], returning the
// result and an estimate of its absolute error.
func (q Quadrature) bounded(ctx context.Context, f func(float64) float64, a, b, absTol float64) (float64, float64, error) {
	whole := q.panel(f, a, b)
	if err := finite("integral", whole); err != nil {
		return whole, 0, err
	}
	if t := q.RelTol * math.Abs(whole); t > absTol {
		absTol = t
	}
	return q.refine(ctx, f, a, b, whole, absTol, 0)
}

func (q Quadrature) refine(ctx context.Context, f func(float64) float64, a, b, whole, absTol float64, depth int) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	m := a + (b-a)/2
	left, right := q.panel(f, a, m), q.panel(f, m, b)
	sum := left + right
	if err := finite("integral", sum); err != nil {
		return sum, 0, err
	}
	diff := math.Abs(sum - whole)
	if depth >= q.MinDepth && (diff <= math.Max(q.RelTol*math.Abs(sum), absTol) || depth >= q.MaxDepth) {
		return sum, diff, nil
	}
	l, le, err := q.refine(ctx, f, a, m, left, absTol/2, depth+1)
	if err != nil {
		return l, 0, err
	}
	r, re, err := q.refine(ctx, f, m, b, right, absTol/2, depth+1)
	if err != nil {
		return r, 0, err
	}
	return l + r, le + re, nil
}

// tail integrates f(origin + dir*u) for u in [0, ∞) over panels
// [0, w], [w, 2w], [2w, 4w], ... until two consecutive panels are
// negligible.
func (q Quadrature) tail(ctx context.Context, f func(float64) float64, origin, dir, w float64) (float64, float64, error) {
	g := func(u float64) float64 { return f(origin + dir*u) }
	var total, errEst float64
	quiet := 0
	a, b := 0.0, w
	for k := 0; k < q.MaxPanels; k++ {
		v, e, err := q.bounded(ctx, g, a, b, q.RelTol*math.Abs(total))
		if errors.Is(err, ErrNonFinite) && math.IsNaN(v) && quiet > 0 {
			// The integrand is indeterminate (0·∞) beyond a panel that
			// was already negligible.
			return total, errEst, nil
		}
		if errors.Is(err, ErrNonFinite) && k >= minTailPanels && !math.IsNaN(total) {
			return total, errEst, fmt.Errorf("%w: tail beyond %g is not finite", ErrDivergent, origin+dir*a)
		}
		if err != nil {
			return total, errEst, err
		}
		total += v
		errEst += e
		if k >= minTailPanels-1 && math.Abs(v) <= q.RelTol*math.Abs(total) {
			quiet++
			if quiet == 2 {
				return total, errEst, nil
			}
		} else {
			quiet = 0
		}
		a, b = b, 2*b
	}
	return total, errEst, fmt.Errorf("%w: tail contributions still significant at %g", ErrDivergent, origin+dir*a)
}

// integral is a definite integral evaluated by quadrature.
type integral struct {
	q  Quadrature
	e  Expr
	v  string
	in Interval
}

func (i *integral) Vars() []string {
	var vars []string
	for _, v := range i.e.Vars() {
		if v != i.v {
			vars = append(vars, v)
		}
	}
	if i.in.Center != nil {
		vars = append(vars, i.in.Center.Vars()...)
	}
	if i.in.Scale != nil {
		vars = append(vars, i.in.Scale.Vars()...)
	}
	return removeDuplicates(vars)
}

func (i *integral) String() string {
	return fmt.Sprintf("integral(%s, %s, %g, %g)", i.e, i.v, i.in.Lower, i.in.Upper)
}

// hints returns the center and initial panel width for infinite tails.
func (i *integral) hints(ctx context.Context, env Env) (center, scale float64, err error) {
	switch {
	case i.in.Center != nil:
		if center, err = i.in.Center.Eval(ctx, env); err != nil {
			return 0, 0, fmt.Errorf("algebra: integration center: %w", err)
		}
	case !math.IsInf(i.in.Lower, 0):
		center = i.in.Lower
	case !math.IsInf(i.in.Upper, 0):
		center = i.in.Upper
	}
	scale = 1
	if i.in.Scale != nil {
		if scale, err = i.in.Scale.Eval(ctx, env); err != nil {
			return 0, 0, fmt.Errorf("algebra: integration scale: %w", err)
		}
	}
	if err := finite("integration center", center); err != nil {
		return 0, 0, err
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return 0, 0, fmt.Errorf("algebra: integration scale must be positive and finite, got %g", scale)
	}
	return center, scale, nil
}

// Eval integrates the expression numerically. If refinement did not reach
// the requested tolerance the estimate is returned with an error wrapping
// ErrNotConverged.
func (i *integral) Eval(ctx context.Context, env Env) (float64, error) {
	local := env.Clone()
	var evalErr error
	partial := false
	f := func(x float64) float64 {
		if evalErr != nil {
			return 0
		}
		local[i.v] = x
		y, err := i.e.Eval(ctx, local)
		if err != nil {
			if !errors.Is(err, ErrNotConverged) {
				evalErr = err
				return 0
			}
			partial = true
		}
		return y
	}

	lo, hi := i.in.Lower, i.in.Upper
	sign := 1.0
	if hi < lo {
		lo, hi, sign = hi, lo, -1
	}
	var total, errEst float64
	var err error
	switch {
	case math.IsNaN(lo) || math.IsNaN(hi):
		return 0, fmt.Errorf("algebra: invalid integration bounds [%g, %g]", lo, hi)
	case lo == hi:
		return 0, nil
	case !math.IsInf(lo, 0) && !math.IsInf(hi, 0):
		total, errEst, err = i.q.bounded(ctx, f, lo, hi, 0)
	default:
		center, scale, herr := i.hints(ctx, env)
		if herr != nil {
			return 0, herr
		}
		switch {
		case !math.IsInf(lo, 0):
			total, errEst, err = i.q.tail(ctx, f, lo, 1, scale)
		case !math.IsInf(hi, 0):
			total, errEst, err = i.q.tail(ctx, f, hi, -1, scale)
		default:
			var up, upErr float64
			up, upErr, err = i.q.tail(ctx, f, center, 1, scale)
			if err == nil {
				total, errEst, err = i.q.tail(ctx, f, center, -1, scale)
				total += up
				errEst += upErr
			}
		}
	}
	if evalErr != nil {
		return 0, evalErr
	}
	if err != nil {
		return sign * total, err
	}
	if err := finite(i.String(), total); err != nil {
		return 0, err
	}
	if errEst > i.q.PartialTol*math.Abs(total) && errEst > 0 {
		return sign * total, fmt.Errorf("%w: estimated error %g in %g", ErrNotConverged, errEst, total)
	}
	if partial {
		return sign * total, fmt.Errorf("%w: integrand was not fully converged", ErrNotConverged)
	}
	return sign * total, nil
}
