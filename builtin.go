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
	"math"

	"github.com/spatialmodel/reldisp/algebra"
)

var (
	timeParameter = Parameter{Name: TimeSymbol, Default: 1, Constraint: algebra.Positive,
		Description: "time since release"}
	r0Parameter = Parameter{Name: "r0", Default: 1, Constraint: algebra.Positive,
		Description: "initial separation"}
)

// powerLaw returns a regime for the relative diffusivity K = κ r^m in two
// dimensions. With α = 2 - m and s^α = α² κ t, the asymptotic form is
//
//	p = α/(2π s² Γ(2/α)) exp(-(r/s)^α)
//
// and the full form, for initial separation r0, is
//
//	p = (r r0)^(-m/2) exp(-(r^(α/2) - r0^(α/2))²/(α²κt)) e^(-y) I_ν(y) / (2π α κ t)
//
// with y = 2 (r r0)^(α/2)/(α²κt) and ν = 2/α - 1.
func powerLaw(name, description string, kind Kind, kappa Parameter, m string, extra ...Parameter) *Regime {
	k := kappa.Name
	r := &Regime{
		Name:        name,
		Description: description,
		Kind:        kind,
		Parameters:  append(append([]Parameter{kappa}, extra...), timeParameter),
		Definitions: []Definition{
			{Name: "m", Expression: m},
			{Name: "alpha", Expression: "2-m", Constraint: algebra.Positive},
		},
		Validated: true,
	}
	switch kind {
	case Asymptotic:
		r.Definitions = append(r.Definitions,
			Definition{Name: "s", Expression: "((alpha**2)*" + k + "*t)**(1/alpha)"},
		)
		r.Density = "(alpha*exp(-((r/s)**alpha)))/(2*pi*(s**2)*gamma(2/alpha))"
		r.MomentN = "((s**n)*gamma((n+2)/alpha))/gamma(2/alpha)"
		r.Domain = Radial("s")
	case Full:
		r.Parameters = append(r.Parameters, r0Parameter)
		r.Definitions = append(r.Definitions,
			Definition{Name: "nu", Expression: "(2/alpha)-1"},
			Definition{Name: "D", Expression: "(alpha**2)*" + k + "*t"},
			Definition{Name: "s", Expression: "D**(1/alpha)"},
			Definition{Name: "y", Expression: "(2*((r*r0)**(alpha/2)))/D"},
		)
		r.Density = "(((r*r0)**(-m/2))*exp(-(((r**(alpha/2))-(r0**(alpha/2)))**2)/D)*besselie(nu, y))/(2*pi*alpha*" + k + "*t)"
		r.Domain = Radial("r0+s")
	}
	return r
}

// Builtin returns the built-in regimes. Each call returns new copies
// that the caller may modify.
func Builtin() Regimes {
	k2 := Parameter{Name: "k2", Default: 1, Constraint: algebra.Positive,
		Description: "relative diffusivity"}
	lambda := Parameter{Name: "lambda", Default: 1, Constraint: algebra.Positive,
		Description: "Garrett-Munk diffusivity coefficient, K = lambda r^(3/2)"}
	beta := Parameter{Name: "beta", Default: 1, Constraint: algebra.Positive,
		Description: "Richardson diffusivity coefficient, K = beta r^(4/3)"}
	kappa := Parameter{Name: "kappa", Default: 1, Constraint: algebra.Positive,
		Description: "diffusivity coefficient, K = kappa r^a"}
	a := Parameter{Name: "a", Default: 1, Constraint: algebra.NonNegative,
		Description: "diffusivity exponent, 0 <= a < 2"}
	strain := Parameter{Name: "lambda", Default: 1, Constraint: algebra.Positive,
		Description: "strain rate, K = lambda r^2"}

	gmFull := powerLaw("gm-full", "Garrett-Munk internal-wave regime from an initial separation r0", Full, lambda, "1.5")
	gmFull.Validated = false
	genFull := powerLaw("generalized-full", "power-law diffusivity K = kappa r^a from an initial separation r0", Full, kappa, "a", a)
	genFull.Validated = false
	richFull := powerLaw("richardson-full", "Richardson regime from an initial separation r0", Full, beta, "4/3")
	richFull.Validated = false

	return Regimes{
		powerLaw("diffusive-asymptotic", "constant relative diffusivity K = k2", Asymptotic, k2, "0"),
		powerLaw("diffusive-full", "constant relative diffusivity K = k2 from an initial separation r0", Full, k2, "0"),
		powerLaw("gm-asymptotic", "Garrett-Munk internal-wave regime, K = lambda r^(3/2)", Asymptotic, lambda, "1.5"),
		gmFull,
		powerLaw("generalized-asymptotic", "power-law diffusivity K = kappa r^a", Asymptotic, kappa, "a", a),
		genFull,
		powerLaw("richardson-asymptotic", "Richardson regime, K = beta r^(4/3)", Asymptotic, beta, "4/3"),
		richFull,
		{
			Name:        "lundgren-full",
			Description: "Lundgren exponential-separation regime, K = lambda r^2, from an initial separation r0",
			Kind:        Full,
			Parameters:  []Parameter{strain, timeParameter, r0Parameter},
			Density:     "exp(-((log(r/r0)-2*lambda*t)**2)/(4*lambda*t))/(2*pi*(r**2)*sqrt(4*pi*lambda*t))",
			Domain: Domain{
				Variable: "x",
				Lower:    math.Inf(-1),
				Upper:    math.Inf(1),
				Radius:   "r0*exp(x)",
				Jacobian: "r0*exp(x)",
				Center:   "2*lambda*t",
				Scale:    "sqrt(4*lambda*t)",
			},
			MomentN:   "(r0**n)*exp(n*(n+2)*lambda*t)",
			Validated: true,
		},
	}
}
