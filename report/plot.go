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

package report

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/spatialmodel/reldisp"
	"github.com/spatialmodel/reldisp/algebra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot dimensions.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Densities plots the density p(r) of each regime at n separations up to
// rMax. Each regime uses the parameters in params that it has and its own
// defaults for the others. Points where a density is not finite are left
// out.
func Densities(ctx context.Context, procs []*reldisp.Procedure, params algebra.Env, rMax float64, n int) (*plot.Plot, error) {
	if !(rMax > 0) || n < 2 {
		return nil, fmt.Errorf("report: invalid density plot range (%g, %d points)", rMax, n)
	}
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.Title.Text = "Separation density"
	p.X.Label.Text = "r"
	p.Y.Label.Text = "p(r)"
	var lines []interface{}
	for _, proc := range procs {
		env := proc.Regime().ParamsFrom(params)
		xy := make(plotter.XYs, 0, n)
		for i := 1; i <= n; i++ {
			r := rMax * float64(i) / float64(n)
			v, err := proc.DensityAt(ctx, env, r)
			if err != nil {
				return nil, fmt.Errorf("report: plotting %s: %v", proc.Regime().Name, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			xy = append(xy, struct{ X, Y float64 }{r, v})
		}
		if len(xy) > 0 {
			lines = append(lines, proc.Regime().Name, xy)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("report: nothing to plot")
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, err
	}
	p.Y.Min = 0
	return p, nil
}

// SecondMoments plots log10 <r^2> against log10 t for each regime in a
// series. Times at which <r^2> is unevaluated are left out.
func SecondMoments(ders []*reldisp.Derivation) (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.Title.Text = "Mean square separation"
	p.X.Label.Text = "log10 t"
	p.Y.Label.Text = "log10 <r^2>"

	var order []string
	points := make(map[string]plotter.XYs)
	for _, d := range ders {
		t, ok := d.Params[reldisp.TimeSymbol]
		m2 := d.SecondMoment.Float()
		if !ok || !(t > 0) || !(m2 > 0) || math.IsInf(m2, 0) {
			continue
		}
		if _, ok := points[d.Regime]; !ok {
			order = append(order, d.Regime)
		}
		points[d.Regime] = append(points[d.Regime], struct{ X, Y float64 }{math.Log10(t), math.Log10(m2)})
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("report: nothing to plot")
	}
	var lines []interface{}
	for _, name := range order {
		lines = append(lines, name, points[name])
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return nil, err
	}
	return p, nil
}

// Save saves p to path in the format given by its extension, for
// example .png, .svg or .pdf.
func Save(p *plot.Plot, path string) error {
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("report: saving plot: %v", err)
	}
	return nil
}

// Write writes p to w in the given format.
func Write(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return fmt.Errorf("report: %v", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
