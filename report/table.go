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

// Package report formats derivations as text tables, Excel workbooks
// and plots.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spatialmodel/reldisp"
)

// A Table holds a text representation of report data. The first row
// is the header.
type Table [][]string

// Tabbed writes t as aligned columns.
func (t Table) Tabbed(w io.Writer) (n int, err error) {
	ww := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	var nn int
	for _, l := range t {
		nn, err = fmt.Fprintln(ww, strings.Join(l, "\t"))
		n += nn
		if err != nil {
			return
		}
	}
	err = ww.Flush()
	return
}

// value formats the value of q, or "?" if it has none.
func value(q reldisp.Quantity) string {
	if q.Status == reldisp.Unevaluated {
		return "?"
	}
	return q.Value.String()
}

func note(q reldisp.Quantity) string {
	if q.Err == nil {
		return ""
	}
	return q.Err.Error()
}

// params formats the parameters in name order.
func params(env map[string]float64) string {
	names := make([]string, 0, len(env))
	for n := range env {
		names = append(names, n)
	}
	sort.Strings(names)
	s := make([]string, len(names))
	for i, n := range names {
		s[i] = n + "=" + strconv.FormatFloat(env[n], 'g', -1, 64)
	}
	return strings.Join(s, " ")
}

// Derivations returns a table with one row for each quantity of each
// derivation.
func Derivations(ders []*reldisp.Derivation) Table {
	t := Table{{"regime", "kind", "validated", "parameters", "quantity", "value", "status", "note"}}
	for _, d := range ders {
		for _, q := range d.Quantities() {
			t = append(t, []string{d.Regime, d.Kind.String(), strconv.FormatBool(d.Validated),
				params(d.Params), q.Name, value(q), q.Status.String(), note(q)})
		}
	}
	return t
}

// Series returns a table with one row for each time of a series.
func Series(ders []*reldisp.Derivation) Table {
	t := Table{{"regime", "t", "<r^2>", "<r^4>", "Ku", "K2", "gamma"}}
	for _, d := range ders {
		tt := math.NaN()
		if v, ok := d.Params[reldisp.TimeSymbol]; ok {
			tt = v
		}
		t = append(t, []string{d.Regime, strconv.FormatFloat(tt, 'g', -1, 64),
			value(d.SecondMoment), value(d.FourthMoment), value(d.Kurtosis),
			value(d.Diffusivity), value(d.GrowthExponent)})
	}
	return t
}

// Regimes returns a table describing the given regimes.
func Regimes(rs reldisp.Regimes) Table {
	t := Table{{"name", "kind", "validated", "parameters", "description"}}
	for _, r := range rs {
		t = append(t, []string{r.Name, r.Kind.String(), strconv.FormatBool(r.Validated),
			params(r.Defaults()), r.Description})
	}
	return t
}
