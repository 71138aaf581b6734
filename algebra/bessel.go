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
	"fmt"
	"math"
)

const (
	besselEps      = 1e-17
	besselMaxTerms = 100000
	besselRescale  = 1e250
)

// BesselIe returns the exponentially scaled modified Bessel function of the
// first kind, exp(-x)*I_nu(x), for real order nu >= 0 and x >= 0.
func BesselIe(nu, x float64) (float64, error) {
	switch {
	case math.IsNaN(nu) || math.IsNaN(x):
		return math.NaN(), nil
	case nu < 0:
		return 0, fmt.Errorf("algebra: besselie: order %g must be non-negative", nu)
	case x < 0:
		return 0, fmt.Errorf("algebra: besselie: argument %g must be non-negative", x)
	case x == 0:
		if nu == 0 {
			return 1, nil
		}
		return 0, nil
	case math.IsInf(x, 1):
		return 0, nil
	case x <= 30 || x <= nu*nu:
		return besselIeSeries(nu, x), nil
	default:
		return besselIeAsymptotic(nu, x), nil
	}
}

// BesselI returns the modified Bessel function of the first kind I_nu(x)
// for real order nu >= 0 and x >= 0.
func BesselI(nu, x float64) (float64, error) {
	v, err := BesselIe(nu, x)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, nil
	}
	return v * math.Exp(x), nil
}

// besselIeSeries sums the ascending series
//
//	I_nu(x) = sum_k (x/2)^(2k+nu) / (k! Gamma(k+nu+1))
//
// relative to its first term, whose logarithm carries the exp(-x) factor,
// so that neither the first term nor the largest one leaves the range of
// float64. All terms are positive, so there is no cancellation.
func besselIeSeries(nu, x float64) float64 {
	lg, _ := math.Lgamma(nu + 1)
	logScale := nu*math.Log(x/2) - lg - x
	q := x * x / 4
	term := 1.0
	var sum float64
	for k := 0; k < besselMaxTerms; k++ {
		sum += term
		d := float64(k+1) * (float64(k+1) + nu)
		term *= q / d
		if sum > besselRescale {
			sum /= besselRescale
			term /= besselRescale
			logScale += math.Log(besselRescale)
		}
		if d > q && term <= besselEps*sum {
			break
		}
	}
	return math.Exp(math.Log(sum) + logScale)
}

// besselIeAsymptotic evaluates the large-argument expansion
//
//	exp(-x) I_nu(x) ~ 1/sqrt(2 pi x) sum_k (-1)^k a_k(nu) / x^k,
//
// truncated before the terms start to grow.
func besselIeAsymptotic(nu, x float64) float64 {
	mu := 4 * nu * nu
	term := 1.0
	sum := term
	for k := 1; k < 100; k++ {
		next := term * -(mu - float64((2*k-1)*(2*k-1))) / (8 * float64(k) * x)
		if math.Abs(next) >= math.Abs(term) {
			break
		}
		sum += next
		term = next
		if math.Abs(term) <= besselEps*math.Abs(sum) {
			break
		}
	}
	return sum / math.Sqrt(2*math.Pi*x)
}
