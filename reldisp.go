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

// Package reldisp derives the statistics of closed-form relative-dispersion
// models: given the probability density p(r, t) of the separation r of a
// pair of particles in two dimensions, it derives the normalization, the
// moments <r^n>, the kurtosis Ku = <r^4>/<r^2>^2 and the effective relative
// diffusivity K2 = 1/2 d<r^2>/dt.
//
// Built-in regimes cover constant diffusivity, the Garrett-Munk and
// Richardson power laws and their generalization K = kappa r^a, each in an
// asymptotic form and a full form that retains the initial separation r0,
// and the exponential (Lundgren) regime K = lambda r^2. Further regimes can
// be defined in TOML files.
package reldisp

import (
	"github.com/spatialmodel/reldisp/algebra"
)

// Version gives the version number.
const Version = "1.0.0"

// CompileAll compiles each regime with its own numeric engine, so that
// regimes may declare the same symbol with different constraints.
func CompileAll(rs Regimes) ([]*Procedure, error) {
	out := make([]*Procedure, len(rs))
	for i, r := range rs {
		p, err := r.Compile(algebra.New())
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
