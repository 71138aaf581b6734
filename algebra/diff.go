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

	"gonum.org/v1/gonum/diff/fd"
)

// fivePoint is the fourth-order central difference for the first
// derivative. It is exact for polynomials up to degree four.
var fivePoint = fd.Formula{
	Stencil: []fd.Point{
		{Loc: -2, Coeff: 1.0 / 12},
		{Loc: -1, Coeff: -8.0 / 12},
		{Loc: 1, Coeff: 8.0 / 12},
		{Loc: 2, Coeff: -1.0 / 12},
	},
	Derivative: 1,
	Step:       1e-3,
}

// derivative is the first derivative of an expression, evaluated by
// finite differences.
type derivative struct {
	e    Expr
	v    string
	step float64
}

func (d *derivative) Vars() []string {
	return removeDuplicates(append([]string{d.v}, d.e.Vars()...))
}

func (d *derivative) String() string { return fmt.Sprintf("d(%s)/d%s", d.e, d.v) }

// Eval evaluates the derivative at the value bound to the variable.
// The step is relative to that value, so for a positive variable the
// stencil stays inside its domain.
func (d *derivative) Eval(ctx context.Context, env Env) (float64, error) {
	x0, ok := env[d.v]
	if !ok {
		return 0, fmt.Errorf("algebra: evaluating %s: no value bound to %q", d, d.v)
	}
	h := d.step * math.Abs(x0)
	if h == 0 {
		h = d.step
	}
	local := env.Clone()
	var evalErr error
	partial := false
	f := func(x float64) float64 {
		if evalErr != nil {
			return 0
		}
		local[d.v] = x
		y, err := d.e.Eval(ctx, local)
		if err != nil {
			if !errors.Is(err, ErrNotConverged) {
				evalErr = err
				return 0
			}
			partial = true
		}
		return y
	}
	v := fd.Derivative(f, x0, &fd.Settings{Formula: fivePoint, Step: h})
	if evalErr != nil {
		return 0, evalErr
	}
	if err := finite(d.String(), v); err != nil {
		return 0, err
	}
	if partial {
		return v, fmt.Errorf("%w: derivative of a partial result", ErrNotConverged)
	}
	return v, nil
}
