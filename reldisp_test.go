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
	"errors"
	"math"
	"testing"

	"github.com/spatialmodel/reldisp/algebra"
)

func different(a, b, tolerance float64) bool {
	if math.Abs(a-b) > math.Abs(tolerance*b) {
		return true
	}
	return false
}

func compile(t *testing.T, name string) *Procedure {
	r, err := Builtin().Get(name)
	if err != nil {
		t.Fatal(err)
	}
	p, err := r.Compile(algebra.New())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func derive(t *testing.T, name string, params algebra.Env, orders ...float64) *Derivation {
	d, err := compile(t, name).Derive(context.Background(), params, orders...)
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range d.Quantities() {
		if q.Status == Unevaluated || q.Status == Partial {
			t.Errorf("%s: %s is %s: %v", name, q.Name, q.Status, q.Err)
		}
	}
	return d
}

func TestBuiltin_normalization(t *testing.T) {
	const tolerance = 1e-9
	params := []algebra.Env{
		nil,
		{"t": 0.3},
		{"t": 2.5, "r0": 0.2},
	}
	for _, r := range Builtin() {
		t.Run(r.Name, func(t *testing.T) {
			p, err := r.Compile(algebra.New())
			if err != nil {
				t.Fatal(err)
			}
			for _, param := range params {
				if _, ok := param["r0"]; ok && r.Kind != Full {
					continue
				}
				env, err := p.Bind(param)
				if err != nil {
					t.Fatal(err)
				}
				v, err := p.Moment(0).Eval(context.Background(), env)
				if err != nil {
					t.Fatalf("%v: %v", env, err)
				}
				if math.Abs(v-1) > tolerance {
					t.Errorf("%v: normalization = %.15g", env, v)
				}
			}
		})
	}
}

func TestDerive(t *testing.T) {
	const (
		momentTolerance = 1e-8
		diffTolerance   = 1e-6
	)
	tests := []struct {
		regime     string
		params     algebra.Env
		m2, m4, k2 float64
		ku         string
		gamma      float64
	}{
		{
			regime: "diffusive-asymptotic",
			params: algebra.Env{"k2": 0.7, "t": 1.3},
			m2:     4 * 0.7 * 1.3,
			m4:     32 * 0.7 * 0.7 * 1.3 * 1.3,
			k2:     2 * 0.7,
			ku:     "2",
			gamma:  1,
		},
		{
			regime: "diffusive-full",
			params: algebra.Env{"k2": 0.5, "t": 2, "r0": 1.5},
			m2:     4*0.5*2 + 1.5*1.5,
			m4:     math.Pow(1.5, 4) + 16*0.5*2*1.5*1.5 + 32*0.5*0.5*2*2,
			k2:     2 * 0.5,
			gamma:  2 * 2 * 2 * 0.5 / (4*0.5*2 + 1.5*1.5),
		},
		{
			regime: "gm-asymptotic",
			params: algebra.Env{"lambda": 1.2, "t": 0.8},
			m2:     3.28125 * math.Pow(1.2, 4) * math.Pow(0.8, 4),
			m4:     66.0 / 7 * math.Pow(3.28125*math.Pow(1.2, 4)*math.Pow(0.8, 4), 2),
			k2:     6.5625 * math.Pow(1.2, 4) * math.Pow(0.8, 3),
			ku:     "66/7",
			gamma:  4,
		},
		{
			regime: "richardson-asymptotic",
			params: algebra.Env{"beta": 0.9, "t": 1.1},
			m2:     5.26748971193416 * math.Pow(0.9*1.1, 3),
			m4:     5.6 * math.Pow(5.26748971193416*math.Pow(0.9*1.1, 3), 2),
			k2:     1.5 * 5.26748971193416 * math.Pow(0.9, 3) * math.Pow(1.1, 2),
			ku:     "28/5",
			gamma:  3,
		},
		{
			regime: "lundgren-full",
			params: algebra.Env{"lambda": 0.3, "t": 0.5, "r0": 2},
			m2:     4 * math.Exp(8*0.3*0.5),
			m4:     16 * math.Exp(24*0.3*0.5),
			k2:     4 * 0.3 * 4 * math.Exp(8*0.3*0.5),
			gamma:  8 * 0.3 * 0.5,
		},
	}
	for _, test := range tests {
		t.Run(test.regime, func(t *testing.T) {
			d := derive(t, test.regime, test.params)
			if different(d.SecondMoment.Float(), test.m2, momentTolerance) {
				t.Errorf("<r^2>: have %.15g, want %.15g", d.SecondMoment.Float(), test.m2)
			}
			if different(d.FourthMoment.Float(), test.m4, momentTolerance) {
				t.Errorf("<r^4>: have %.15g, want %.15g", d.FourthMoment.Float(), test.m4)
			}
			if different(d.Diffusivity.Float(), test.k2, diffTolerance) {
				t.Errorf("K2: have %.15g, want %.15g", d.Diffusivity.Float(), test.k2)
			}
			if different(d.GrowthExponent.Float(), test.gamma, diffTolerance) {
				t.Errorf("gamma: have %.15g, want %.15g", d.GrowthExponent.Float(), test.gamma)
			}
			if test.ku != "" && d.Kurtosis.Value.String() != test.ku {
				t.Errorf("Ku: have %s, want %s", d.Kurtosis.Value, test.ku)
			}
			if d.Normalization.Value.String() != "1" {
				t.Errorf("normalization: have %s", d.Normalization.Value)
			}
		})
	}
}

func TestDerive_lundgrenKurtosis(t *testing.T) {
	d := derive(t, "lundgren-full", algebra.Env{"lambda": 0.25, "t": 1.5, "r0": 0.5})
	if want := math.Exp(8 * 0.25 * 1.5); different(d.Kurtosis.Float(), want, 1e-8) {
		t.Errorf("Ku: have %.15g, want %.15g", d.Kurtosis.Float(), want)
	}
}

// The generalized regime reproduces the named power laws.
func TestGeneralized(t *testing.T) {
	tests := []struct {
		regime string
		params algebra.Env
		a      float64
		kappa  string
	}{
		{"diffusive-asymptotic", algebra.Env{"k2": 0.8, "t": 1.7}, 0, "k2"},
		{"gm-asymptotic", algebra.Env{"lambda": 1.1, "t": 0.6}, 1.5, "lambda"},
		{"richardson-asymptotic", algebra.Env{"beta": 0.4, "t": 2}, 4.0 / 3, "beta"},
		{"diffusive-full", algebra.Env{"k2": 0.8, "t": 1.7, "r0": 0.5}, 0, "k2"},
		{"gm-full", algebra.Env{"lambda": 1.1, "t": 0.6, "r0": 0.5}, 1.5, "lambda"},
	}
	for _, test := range tests {
		t.Run(test.regime, func(t *testing.T) {
			named := compile(t, test.regime)
			genName := "generalized-asymptotic"
			params := algebra.Env{"a": test.a, "kappa": test.params[test.kappa], "t": test.params["t"]}
			if r0, ok := test.params["r0"]; ok {
				genName = "generalized-full"
				params["r0"] = r0
			}
			gen := compile(t, genName)
			for _, r := range []float64{0.05, 0.5, 1, 3} {
				want, err := named.DensityAt(context.Background(), test.params, r)
				if err != nil {
					t.Fatal(err)
				}
				have, err := gen.DensityAt(context.Background(), params, r)
				if err != nil {
					t.Fatal(err)
				}
				if different(have, want, 1e-12) {
					t.Errorf("p(%g): have %g, want %g", r, have, want)
				}
			}
		})
	}
}

// As r0 → 0 the full forms tend to their asymptotic forms.
func TestFullLimit(t *testing.T) {
	tests := []struct {
		full, asymptotic string
		params           algebra.Env
	}{
		{"diffusive-full", "diffusive-asymptotic", algebra.Env{"k2": 0.6, "t": 1.2}},
		{"gm-full", "gm-asymptotic", algebra.Env{"lambda": 2, "t": 1}},
		{"richardson-full", "richardson-asymptotic", algebra.Env{"beta": 1, "t": 1.5}},
		{"generalized-full", "generalized-asymptotic", algebra.Env{"kappa": 1, "a": 0.7, "t": 1}},
	}
	for _, test := range tests {
		t.Run(test.full, func(t *testing.T) {
			full, asym := compile(t, test.full), compile(t, test.asymptotic)
			fullEnv, err := full.Bind(test.params.With("r0", 1e-12))
			if err != nil {
				t.Fatal(err)
			}
			asymEnv, err := asym.Bind(test.params)
			if err != nil {
				t.Fatal(err)
			}
			have, err := full.Moment(2).Eval(context.Background(), fullEnv)
			if err != nil {
				t.Fatal(err)
			}
			want, err := asym.Moment(2).Eval(context.Background(), asymEnv)
			if err != nil {
				t.Fatal(err)
			}
			if different(have, want, 1e-4) {
				t.Errorf("<r^2>: full %g, asymptotic %g", have, want)
			}
		})
	}
}

// Closed-form moments agree with the integrals.
func TestClosedMoment(t *testing.T) {
	for _, r := range Builtin() {
		if r.MomentN == "" {
			continue
		}
		t.Run(r.Name, func(t *testing.T) {
			p, err := r.Compile(algebra.New())
			if err != nil {
				t.Fatal(err)
			}
			env, err := p.Bind(algebra.Env{"t": 0.7})
			if err != nil {
				t.Fatal(err)
			}
			for _, n := range []float64{1, 3, 6} {
				q := p.MomentOf(context.Background(), env, n)
				if q.Status != Exact {
					t.Fatalf("n=%g: status %s: %v", n, q.Status, q.Err)
				}
				v, err := p.GeneralMoment().Eval(context.Background(), env.With(OrderSymbol, n))
				if err != nil {
					t.Fatal(err)
				}
				if different(v, q.Float(), 1e-8) {
					t.Errorf("n=%g: integral %.15g, closed form %.15g", n, v, q.Float())
				}
			}
		})
	}
}

func TestDerive_orders(t *testing.T) {
	d := derive(t, "diffusive-asymptotic", algebra.Env{"k2": 0.25, "t": 1}, 1, 6)
	if len(d.Moments) != 2 {
		t.Fatalf("have %d moments, want 2", len(d.Moments))
	}
	want := []float64{math.Gamma(1.5), 6}
	for i, q := range d.Moments {
		if different(q.Float(), want[i], 1e-12) {
			t.Errorf("%s: have %g, want %g", q.Name, q.Float(), want[i])
		}
	}
	if d.Moments[1].Value.String() != "6" {
		t.Errorf("<r^6> should simplify to 6, have %s", d.Moments[1].Value)
	}
	if q := d.Quantities(); len(q) != 8 || q[3].Name != "<r^1>" || q[5].Name != "Ku" {
		t.Errorf("quantities out of order: %v", q)
	}
}

func customRegime(density string) *Regime {
	return &Regime{
		Name:       "custom",
		Parameters: []Parameter{{Name: "L", Default: 1, Constraint: algebra.Positive}},
		Density:    density,
		Domain:     Radial("L"),
	}
}

func TestDerive_notNormalized(t *testing.T) {
	p, err := customRegime("exp(-r/L)").Compile(algebra.New())
	if err != nil {
		t.Fatal(err)
	}
	d, err := p.Derive(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(d.Normalization.Err, ErrNotNormalized) {
		t.Errorf("have %v, want %v", d.Normalization.Err, ErrNotNormalized)
	}
	if different(d.Normalization.Float(), 2*math.Pi, 1e-10) {
		t.Errorf("normalization: have %g, want 2π", d.Normalization.Float())
	}
	if d.SecondMoment.Status != Numeric {
		t.Errorf("the derivation should continue past the normalization")
	}
}

func TestDerive_divergent(t *testing.T) {
	p, err := customRegime("1/(pi*((1+r/L)**3)*L**2)").Compile(algebra.New())
	if err != nil {
		t.Fatal(err)
	}
	d, err := p.Derive(context.Background(), algebra.Env{"L": 2})
	if err != nil {
		t.Fatal(err)
	}
	if d.Normalization.Status != Numeric || different(d.Normalization.Float(), 1, 1e-9) {
		t.Errorf("normalization: %v", d.Normalization)
	}
	if d.SecondMoment.Status != Unevaluated || !errors.Is(d.SecondMoment.Err, algebra.ErrDivergent) {
		t.Errorf("<r^2>: %v", d.SecondMoment)
	}
	if d.Kurtosis.Status != Unevaluated {
		t.Errorf("Ku: %v", d.Kurtosis)
	}
	if d.Diffusivity.Status != Unevaluated {
		t.Errorf("K2 needs a time parameter: %v", d.Diffusivity)
	}
	if d.Complete() {
		t.Error("derivation should be incomplete")
	}
}

func TestDerive_invalid(t *testing.T) {
	p := compile(t, "gm-asymptotic")
	for _, params := range []algebra.Env{
		{"t": -1},
		{"lambda": 0},
		{"t": math.NaN()},
		{"t": math.Inf(1)},
		{"q": 1},
	} {
		if _, err := p.Derive(context.Background(), params); err == nil {
			t.Errorf("%v: expected an error", params)
		}
	}
	g := compile(t, "generalized-asymptotic")
	if _, err := g.Derive(context.Background(), algebra.Env{"a": 2}); err == nil {
		t.Error("a = 2 should fail")
	}
}

func TestCompile_errors(t *testing.T) {
	tests := []struct {
		name string
		r    *Regime
	}{
		{"undeclared", customRegime("exp(-q)")},
		{"no density", customRegime("")},
		{"parameter named r", &Regime{Name: "x", Density: "1", Domain: Radial(""), Parameters: []Parameter{{Name: "r"}}}},
		{"forward definition", &Regime{Name: "x", Density: "a", Domain: Radial(""),
			Definitions: []Definition{{Name: "a", Expression: "2*b"}, {Name: "b", Expression: "1"}}}},
		{"closed form uses r", &Regime{Name: "x", Density: "1", Domain: Radial(""), MomentN: "r**n"}},
		{"scale uses r", &Regime{Name: "x", Density: "1", Domain: Radial("r")}},
		{"substitution without jacobian", &Regime{Name: "x", Density: "1",
			Domain: Domain{Variable: "x", Lower: 0, Upper: 1, Radius: "x"}}},
		{"bad bounds", &Regime{Name: "x", Density: "1", Domain: Domain{Variable: "r", Lower: 1, Upper: 0}}},
		{"bad default", &Regime{Name: "x", Density: "1", Domain: Radial(""),
			Parameters: []Parameter{{Name: "t", Default: -1, Constraint: algebra.Positive}}}},
	}
	for _, test := range tests {
		if _, err := test.r.Compile(algebra.New()); err == nil {
			t.Errorf("%s: expected an error", test.name)
		}
	}
}

func TestSeries(t *testing.T) {
	p := compile(t, "diffusive-asymptotic")
	times := []float64{0.5, 1, 4}
	s, err := p.Series(context.Background(), algebra.Env{"k2": 2}, times)
	if err != nil {
		t.Fatal(err)
	}
	for i, d := range s {
		if want := 8 * times[i]; different(d.SecondMoment.Float(), want, 1e-9) {
			t.Errorf("t=%g: <r^2> = %g, want %g", times[i], d.SecondMoment.Float(), want)
		}
		if different(d.GrowthExponent.Float(), 1, 1e-6) {
			t.Errorf("t=%g: gamma = %g, want 1", times[i], d.GrowthExponent.Float())
		}
	}
	c, err := customRegime("1").Compile(algebra.New())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Series(context.Background(), nil, times); err == nil {
		t.Error("series without a time parameter should fail")
	}
}

// The integrand of high moments at long times underflows in the density
// while r^n overflows; the integral must still converge.
func TestDerive_lundgrenLongTime(t *testing.T) {
	const lt = 2.0
	p := compile(t, "lundgren-full")
	d, err := p.Derive(context.Background(), algebra.Env{"lambda": 1, "t": lt, "r0": 1})
	if err != nil {
		t.Fatal(err)
	}
	if d.FourthMoment.Status != Exact || d.FourthMoment.Err != nil {
		t.Errorf("<r^4>: %v: %v", d.FourthMoment, d.FourthMoment.Err)
	}
	if different(d.Kurtosis.Float(), math.Exp(8*lt), 1e-9) {
		t.Errorf("Ku: have %g, want %g", d.Kurtosis.Float(), math.Exp(8*lt))
	}
	env, err := p.Bind(algebra.Env{"lambda": 1, "t": lt, "r0": 1})
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Moment(4).Eval(context.Background(), env)
	if err != nil {
		t.Fatal(err)
	}
	if different(v, math.Exp(24*lt), 1e-7) {
		t.Errorf("integral of <r^4>: have %g, want %g", v, math.Exp(24*lt))
	}
}

func TestDerive_closedForm(t *testing.T) {
	d := derive(t, "diffusive-asymptotic", algebra.Env{"k2": 0.25, "t": 1})
	if d.SecondMoment.Status != Exact || d.SecondMoment.Value.String() != "1" {
		t.Errorf("<r^2>: %v", d.SecondMoment)
	}
	if d.SecondMoment.Expression != "((s**n)*gamma((n+2)/alpha))/gamma(2/alpha) with n=2" {
		t.Errorf("<r^2> expression is %q", d.SecondMoment.Expression)
	}
	if different(d.Diffusivity.Float(), 0.5, 1e-9) {
		t.Errorf("K2: %v from %s", d.Diffusivity, d.Diffusivity.Expression)
	}
}

func TestDerive_closedFormMismatch(t *testing.T) {
	r := &Regime{
		Name:       "wrong-closed-form",
		Parameters: []Parameter{{Name: "L", Default: 1, Constraint: algebra.Positive}},
		Density:    "exp(-r/L)/(2*pi*(L**2))",
		MomentN:    "(L**n)*gamma(n+1)",
		Domain:     Radial("L"),
	}
	p, err := r.Compile(algebra.New())
	if err != nil {
		t.Fatal(err)
	}
	d, err := p.Derive(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(d.SecondMoment.Err, ErrClosedFormMismatch) {
		t.Errorf("<r^2>: have error %v, want %v", d.SecondMoment.Err, ErrClosedFormMismatch)
	}
	if d.SecondMoment.Float() != 2 {
		t.Errorf("<r^2> should keep the closed-form value 2, have %g", d.SecondMoment.Float())
	}
}
