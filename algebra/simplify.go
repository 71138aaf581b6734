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
	"math"
	"math/big"
	"strconv"
)

// Value is a simplified result.
type Value struct {
	// Float is the numerical value.
	Float float64

	// Rat is the small-denominator rational that Float rounds to,
	// or nil if there is none.
	Rat *big.Rat
}

// IsRational returns whether the value was recognized as a rational number.
func (v Value) IsRational() bool { return v.Rat != nil }

func (v Value) String() string {
	if v.Rat != nil {
		return v.Rat.RatString()
	}
	return strconv.FormatFloat(v.Float, 'g', 12, 64)
}

const (
	// maxNumerator is the largest numerator a recognized rational may have.
	maxNumerator = 1e9

	// fitMargin bounds the residual of a recognized rational h/k to
	// fitMargin/k². Almost every real number has convergents that fit
	// it only to about 1/k², so a much closer fit means the value is
	// the rational rounded.
	fitMargin = 1e-6
)

// rationalize returns the first continued-fraction convergent h/k of v with
// k at most maxDen and |h| at most maxNumerator that agrees with v within a
// relative tolerance of tol and within fitMargin/k², or nil.
func rationalize(v float64, maxDen int64, tol float64) *big.Rat {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxNumerator || maxDen < 1 {
		return nil
	}
	if v == 0 {
		return new(big.Rat)
	}
	x := math.Abs(v)
	var h0, h1 float64 = 0, 1 // numerators
	var k0, k1 float64 = 1, 0 // denominators
	r := x
	for i := 0; i < 64; i++ {
		a := math.Floor(r)
		h0, h1 = h1, a*h1+h0
		k0, k1 = k1, a*k1+k0
		if k1 > float64(maxDen) || h1 > maxNumerator {
			return nil
		}
		if res := math.Abs(h1/k1 - x); res <= tol*x && res <= fitMargin/(k1*k1) {
			num := int64(h1)
			if v < 0 {
				num = -num
			}
			return big.NewRat(num, int64(k1))
		}
		frac := r - a
		if frac == 0 {
			return nil
		}
		r = 1 / frac
	}
	return nil
}
