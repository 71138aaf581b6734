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
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/reldisp/algebra"
)

// regimeFile is the layout of a regime definition file, for example:
//
//	[[Regime]]
//	Name = "exponential"
//	Kind = "asymptotic"
//	Density = "exp(-r/L)/(2*pi*L**2)"
//	MomentN = "(L**n)*gamma(n+2)"
//	Validated = true
//	  [Regime.Domain]
//	  Scale = "L"
//	  [[Regime.Parameter]]
//	  Name = "L"
//	  Default = 1.0
//	  Constraint = "positive"
//
// Kind defaults to asymptotic, Domain.Variable to r, Domain.Lower to 0 and Domain.Upper
// to inf. Parameter defaults must be written as floating point numbers.
type regimeFile struct {
	Regime []regimeConfig
}

type regimeConfig struct {
	Name        string
	Description string
	Kind        string
	Density     string
	MomentN     string
	Validated   bool
	Domain      struct {
		Variable, Lower, Upper, Radius, Jacobian, Center, Scale string
	}
	Parameter []struct {
		Name        string
		Default     float64
		Constraint  string
		Description string
	}
	Definition []struct {
		Name, Expression, Constraint string
	}
}

// ReadRegimes reads regime definitions in TOML format from r.
func ReadRegimes(r io.Reader) (Regimes, error) {
	var f regimeFile
	md, err := toml.DecodeReader(r, &f)
	if err != nil {
		return nil, fmt.Errorf("reldisp: reading regimes: %v", err)
	}
	if u := md.Undecoded(); len(u) > 0 {
		keys := make([]string, len(u))
		for i, k := range u {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("reldisp: reading regimes: unknown keys %s", strings.Join(keys, ", "))
	}
	out := make(Regimes, len(f.Regime))
	for i, c := range f.Regime {
		r, err := c.regime()
		if err != nil {
			return nil, err
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// LoadRegimes reads regime definitions from a TOML file.
func LoadRegimes(path string) (Regimes, error) {
	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("reldisp: opening regime file: %v", err)
	}
	defer f.Close()
	return ReadRegimes(f)
}

func (c regimeConfig) regime() (*Regime, error) {
	r := &Regime{
		Name:        c.Name,
		Description: c.Description,
		Density:     c.Density,
		MomentN:     c.MomentN,
		Validated:   c.Validated,
		Domain: Domain{
			Variable: c.Domain.Variable,
			Radius:   c.Domain.Radius,
			Jacobian: c.Domain.Jacobian,
			Center:   c.Domain.Center,
			Scale:    c.Domain.Scale,
		},
	}
	var err error
	if c.Kind != "" {
		if r.Kind, err = ParseKind(c.Kind); err != nil {
			return nil, fmt.Errorf("reldisp: regime %s: %v", c.Name, err)
		}
	}
	if r.Domain.Variable == "" {
		r.Domain.Variable = RadiusSymbol
	}
	if r.Domain.Lower, err = parseBound(c.Domain.Lower, 0); err != nil {
		return nil, fmt.Errorf("reldisp: regime %s: lower bound: %v", c.Name, err)
	}
	if r.Domain.Upper, err = parseBound(c.Domain.Upper, math.Inf(1)); err != nil {
		return nil, fmt.Errorf("reldisp: regime %s: upper bound: %v", c.Name, err)
	}
	for _, p := range c.Parameter {
		con, err := algebra.ParseConstraint(p.Constraint)
		if err != nil {
			return nil, fmt.Errorf("reldisp: regime %s: parameter %s: %v", c.Name, p.Name, err)
		}
		r.Parameters = append(r.Parameters, Parameter{
			Name:        p.Name,
			Default:     p.Default,
			Constraint:  con,
			Description: p.Description,
		})
	}
	for _, d := range c.Definition {
		con, err := algebra.ParseConstraint(d.Constraint)
		if err != nil {
			return nil, fmt.Errorf("reldisp: regime %s: definition %s: %v", c.Name, d.Name, err)
		}
		r.Definitions = append(r.Definitions, Definition{Name: d.Name, Expression: d.Expression, Constraint: con})
	}
	return r, nil
}

// parseBound parses an integration bound such as "0", "-inf" or "inf".
func parseBound(s string, def float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}
