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

	"github.com/Knetic/govaluate"
)

// constants are available in every expression without being declared.
var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// floatArgs checks the number and types of function arguments.
func floatArgs(name string, want int, args []interface{}) ([]float64, error) {
	if len(args) != want {
		return nil, fmt.Errorf("algebra: got %d arguments for function '%s', but needs %d", len(args), name, want)
	}
	o := make([]float64, len(args))
	for i, a := range args {
		v, ok := a.(float64)
		if !ok {
			return nil, fmt.Errorf("algebra: argument %d of function '%s' is %T, not a number", i+1, name, a)
		}
		o[i] = v
	}
	return o, nil
}

func unary(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		x, err := floatArgs(name, 1, args)
		if err != nil {
			return nil, err
		}
		return f(x[0]), nil
	}
}

func binary(name string, f func(a, b float64) (float64, error)) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		x, err := floatArgs(name, 2, args)
		if err != nil {
			return nil, err
		}
		return f(x[0], x[1])
	}
}

// Functions returns the functions that can be used in expressions:
//
// 'exp(x)', 'log(x)' (natural logarithm), 'sqrt(x)', 'abs(x)' and 'pow(x, y)'.
//
// 'gamma(x)' and 'lgamma(x)', the gamma function and the natural logarithm
// of its absolute value.
//
// 'besseli(nu, x)', the modified Bessel function of the first kind of real
// order nu >= 0, and 'besselie(nu, x)' = exp(-x)*besseli(nu, x), which
// stays finite for large x.
func Functions() map[string]govaluate.ExpressionFunction {
	return map[string]govaluate.ExpressionFunction{
		"exp":  unary("exp", math.Exp),
		"log":  unary("log", math.Log),
		"sqrt": unary("sqrt", math.Sqrt),
		"abs":  unary("abs", math.Abs),
		"pow": binary("pow", func(x, y float64) (float64, error) {
			return math.Pow(x, y), nil
		}),
		"gamma": unary("gamma", math.Gamma),
		"lgamma": unary("lgamma", func(x float64) float64 {
			v, _ := math.Lgamma(x)
			return v
		}),
		"besseli": binary("besseli", BesselI),
		"besselie": binary("besselie", BesselIe),
	}
}
