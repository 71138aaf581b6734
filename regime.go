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
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spatialmodel/reldisp/algebra"
)

const (
	// RadiusSymbol is the separation distance in density expressions.
	RadiusSymbol = "r"

	// OrderSymbol is the moment order in closed-form moment expressions.
	OrderSymbol = "n"

	// TimeSymbol is the parameter that the effective diffusivity is
	// differentiated with respect to.
	TimeSymbol = "t"
)

// Kind tells whether a regime still depends on the initial separation.
type Kind int

const (
	// Asymptotic forms hold once the initial separation has been forgotten.
	Asymptotic Kind = iota
	// Full forms depend on the initial separation r0.
	Full
)

func (k Kind) String() string {
	switch k {
	case Asymptotic:
		return "asymptotic"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asymptotic":
		return Asymptotic, nil
	case "full":
		return Full, nil
	default:
		return Asymptotic, fmt.Errorf("reldisp: invalid regime kind %q", s)
	}
}

// Parameter is a physical parameter of a regime.
type Parameter struct {
	Name        string
	Default     float64
	Constraint  algebra.Constraint
	Description string
}

// Definition is an intermediate quantity that can be used in the
// expressions of a regime. Definitions are evaluated in order, so
// each one may refer to the ones before it.
type Definition struct {
	Name       string
	Expression string

	// Constraint is checked whenever the definition is evaluated.
	Constraint algebra.Constraint
}

// Domain is the integration domain of the moment integrals.
type Domain struct {
	// Variable is the integration variable. If it is not r, Radius must
	// give r as a function of Variable, and Jacobian must give dr/dVariable.
	Variable     string
	Lower, Upper float64
	Radius       string
	Jacobian     string

	// Center and Scale are optional expressions giving a typical location
	// and width of the density along Variable. They are used to cover
	// infinite bounds.
	Center, Scale string
}

// Radial returns the domain r ∈ [0, ∞) with the given width hint.
func Radial(scale string) Domain {
	return Domain{
		Variable: RadiusSymbol,
		Lower:    0,
		Upper:    math.Inf(1),
		Scale:    scale,
	}
}

// Regime is a named closed-form model of the separation density p(r)
// of particle pairs in two dimensions, normalized so that
//
//	∫ 2π r p(r) dr = 1.
//
// A Regime should not be modified once it has been compiled.
type Regime struct {
	Name        string
	Description string
	Kind        Kind

	Parameters  []Parameter
	Definitions []Definition

	// Density is the expression for p in terms of r, the parameters
	// and the definitions.
	Density string
	Domain  Domain

	// MomentN is the closed-form expression for <r^n> in terms of n,
	// or empty if there is none.
	MomentN string

	// Validated is false for forms whose normalization has not been
	// established analytically.
	Validated bool
}

// Defaults returns the default parameter values.
func (r *Regime) Defaults() algebra.Env {
	env := make(algebra.Env, len(r.Parameters))
	for _, p := range r.Parameters {
		env[p.Name] = p.Default
	}
	return env
}

// Parameter returns the parameter with the given name.
func (r *Regime) Parameter(name string) (Parameter, bool) {
	for _, p := range r.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// ParamsFrom returns the values in env of the parameters that r has.
func (r *Regime) ParamsFrom(env algebra.Env) algebra.Env {
	out := make(algebra.Env)
	for _, p := range r.Parameters {
		if v, ok := env[p.Name]; ok {
			out[p.Name] = v
		}
	}
	return out
}

// Validate checks that the regime is complete and that its names
// do not collide. It does not parse the expressions.
func (r *Regime) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("reldisp: regime has no name")
	}
	if strings.TrimSpace(r.Density) == "" {
		return fmt.Errorf("reldisp: regime %s has no density expression", r.Name)
	}
	d := r.Domain
	if d.Variable == "" {
		return fmt.Errorf("reldisp: regime %s has no integration variable", r.Name)
	}
	if math.IsNaN(d.Lower) || math.IsNaN(d.Upper) || d.Lower >= d.Upper {
		return fmt.Errorf("reldisp: regime %s has invalid integration bounds [%g, %g]", r.Name, d.Lower, d.Upper)
	}
	if d.Variable != RadiusSymbol && (d.Radius == "" || d.Jacobian == "") {
		return fmt.Errorf("reldisp: regime %s integrates over %s, so it needs both a radius and a jacobian expression", r.Name, d.Variable)
	}
	names := map[string]string{
		RadiusSymbol: "the separation",
		OrderSymbol:  "the moment order",
	}
	if d.Variable != RadiusSymbol {
		names[d.Variable] = "the integration variable"
	}
	for _, p := range r.Parameters {
		if what, ok := names[p.Name]; ok {
			return fmt.Errorf("reldisp: regime %s: parameter %q collides with %s", r.Name, p.Name, what)
		}
		if !p.Constraint.Allows(p.Default) {
			return fmt.Errorf("reldisp: regime %s: default %g of parameter %s is not %s", r.Name, p.Default, p.Name, p.Constraint)
		}
		names[p.Name] = "a parameter"
	}
	for _, def := range r.Definitions {
		if what, ok := names[def.Name]; ok {
			return fmt.Errorf("reldisp: regime %s: definition %q collides with %s", r.Name, def.Name, what)
		}
		if strings.TrimSpace(def.Expression) == "" {
			return fmt.Errorf("reldisp: regime %s: definition %q is empty", r.Name, def.Name)
		}
		names[def.Name] = "a definition"
	}
	return nil
}

// Regimes is a collection of regimes.
type Regimes []*Regime

// Get returns the regime with the given name.
func (rs Regimes) Get(name string) (*Regime, error) {
	for _, r := range rs {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("reldisp: unknown regime %q; valid regimes are %s", name, strings.Join(rs.Names(), ", "))
}

// Names returns the regime names in order.
func (rs Regimes) Names() []string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.Name
	}
	return names
}

// Merge returns rs with the regimes in o added. Regimes in o replace
// regimes in rs with the same name.
func (rs Regimes) Merge(o Regimes) Regimes {
	out := append(Regimes{}, rs...)
	for _, r := range o {
		replaced := false
		for i, existing := range out {
			if existing.Name == r.Name {
				out[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, r)
		}
	}
	return out
}

// Select returns the regimes with the given names, in the given order.
// No names selects all regimes.
func (rs Regimes) Select(names ...string) (Regimes, error) {
	if len(names) == 0 {
		return rs, nil
	}
	out := make(Regimes, len(names))
	for i, n := range names {
		r, err := rs.Get(n)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// sortedParams returns the parameter names of r in sorted order.
func (r *Regime) sortedParams() []string {
	names := make([]string, len(r.Parameters))
	for i, p := range r.Parameters {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}
