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
	"math"
	"strings"
	"testing"

	"github.com/spatialmodel/reldisp/algebra"
)

const exponentialRegime = `
[[Regime]]
Name = "exponential"
Description = "exponential separation density"
Density = "exp(-r/L)/(2*pi*(L**2))"
MomentN = "(L**n)*gamma(n+2)"
Validated = true
  [Regime.Domain]
  Scale = "L"
  [[Regime.Parameter]]
  Name = "L"
  Default = 1.0
  Constraint = "positive"
  Description = "length scale"
`

func TestReadRegimes(t *testing.T) {
	rs, err := ReadRegimes(strings.NewReader(exponentialRegime))
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 {
		t.Fatalf("have %d regimes, want 1", len(rs))
	}
	r := rs[0]
	if r.Kind != Asymptotic || r.Domain.Variable != RadiusSymbol || r.Domain.Lower != 0 || !math.IsInf(r.Domain.Upper, 1) {
		t.Errorf("defaults not applied: %+v", r)
	}
	p, err := r.Compile(algebra.New())
	if err != nil {
		t.Fatal(err)
	}
	const L = 1.5
	d, err := p.Derive(context.Background(), map[string]float64{"L": L}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if d.Normalization.Value.String() != "1" || d.Normalization.Err != nil {
		t.Errorf("normalization = %v", d.Normalization)
	}
	if different(d.SecondMoment.Float(), 6*L*L, 1e-8) {
		t.Errorf("<r^2> = %g, want %g", d.SecondMoment.Float(), 6*L*L)
	}
	if d.Kurtosis.Value.String() != "10/3" {
		t.Errorf("Ku = %s, want 10/3", d.Kurtosis.Value)
	}
	m := d.Moments[0]
	if m.Status != Exact || different(m.Float(), 24*L*L*L, 1e-12) {
		t.Errorf("<r^3> = %v, want exact %g", m, 24*L*L*L)
	}
	if d.Diffusivity.Status != Unevaluated {
		t.Errorf("regime without time has diffusivity %v", d.Diffusivity)
	}

	merged := Builtin().Merge(rs)
	if _, err := merged.Get("exponential"); err != nil {
		t.Error(err)
	}
	if len(merged) != len(Builtin())+1 {
		t.Errorf("merged %d regimes", len(merged))
	}
}

func TestReadRegimes_errors(t *testing.T) {
	tests := []struct {
		name, file string
	}{
		{"unknown key", strings.Replace(exponentialRegime, "Density", "Densty", 1)},
		{"bad kind", strings.Replace(exponentialRegime, "Validated", "Kind = \"eventual\"\nValidated", 1)},
		{"bad constraint", strings.Replace(exponentialRegime, "\"positive\"", "\"huge\"", 1)},
		{"bad bound", strings.Replace(exponentialRegime, "Scale = \"L\"", "Scale = \"L\"\n  Upper = \"far\"", 1)},
		{"invalid regime", strings.Replace(exponentialRegime, "Name = \"L\"", "Name = \"r\"", 1)},
		{"not toml", "[[Regime"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ReadRegimes(strings.NewReader(test.file)); err == nil {
				t.Errorf("no error for\n%s", test.file)
			}
		})
	}
}
