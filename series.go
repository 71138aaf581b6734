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

	"github.com/spatialmodel/reldisp/algebra"
)

// Series derives the regime at each of the given times, holding the
// other parameters fixed.
func (p *Procedure) Series(ctx context.Context, params algebra.Env, times []float64) ([]*Derivation, error) {
	if _, ok := p.params[TimeSymbol]; !ok {
		return nil, fmt.Errorf("reldisp: regime %s has no time parameter %q", p.regime.Name, TimeSymbol)
	}
	out := make([]*Derivation, len(times))
	for i, t := range times {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := p.Derive(ctx, params.With(TimeSymbol, t))
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
