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

package reldisputil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/reldisp"
	"github.com/spatialmodel/reldisp/algebra"
	"github.com/spatialmodel/reldisp/ragged"
	"github.com/spatialmodel/reldisp/report"
)

// Derive derives the given regimes in parallel and writes a table of the
// results to output, or to w if output is empty. Each regime uses the values
// in params of the parameters it has; params must not contain parameters
// that none of the regimes have.
func Derive(ctx context.Context, w io.Writer, rs reldisp.Regimes, params algebra.Env, orders []float64, timeout time.Duration, output string, log logrus.FieldLogger) error {
	if len(rs) == 0 {
		return fmt.Errorf("reldisp: no regimes to derive")
	}
	if err := checkParams(rs, params); err != nil {
		return err
	}
	reqs := make([]reldisp.Request, len(rs))
	for i, r := range rs {
		reqs[i] = reldisp.Request{Regime: r, Params: r.ParamsFrom(params), Orders: orders}
	}
	d := &reldisp.Deriver{Timeout: timeout, Log: log}
	ders, err := d.DeriveAll(ctx, reqs)
	if err != nil {
		return err
	}
	return writeTable(w, report.Derivations(ders), "derivations", output)
}

// checkParams returns an error if any name in params is not a parameter
// of at least one regime.
func checkParams(rs reldisp.Regimes, params algebra.Env) error {
	var unknown []string
	for name := range params {
		found := false
		for _, r := range rs {
			if _, ok := r.Parameter(name); ok {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("reldisp: no selected regime has parameter(s) %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Series derives r at each of the given times, writes a table of the results
// to output, or to w if output is empty, and plots the mean square
// separation to plotFile if it is not empty.
func Series(ctx context.Context, w io.Writer, r *reldisp.Regime, params algebra.Env, times []float64, output, plotFile string) error {
	if len(times) == 0 {
		return fmt.Errorf("reldisp: no times to derive regime %s at", r.Name)
	}
	p, err := r.Compile(algebra.New())
	if err != nil {
		return err
	}
	ders, err := p.Series(ctx, params, times)
	if err != nil {
		return err
	}
	if err := writeTable(w, report.Series(ders), "series", output); err != nil {
		return err
	}
	if plotFile == "" {
		return nil
	}
	plt, err := report.SecondMoments(ders)
	if err != nil {
		return err
	}
	return report.Save(plt, plotFile)
}

// Plot plots the separation densities of the given regimes to plotFile.
func Plot(ctx context.Context, rs reldisp.Regimes, params algebra.Env, rMax float64, n int, plotFile string) error {
	if plotFile == "" {
		return fmt.Errorf("reldisp: PlotFile must be specified")
	}
	if err := checkParams(rs, params); err != nil {
		return err
	}
	procs, err := reldisp.CompileAll(rs)
	if err != nil {
		return err
	}
	plt, err := report.Densities(ctx, procs, params, rMax, n)
	if err != nil {
		return err
	}
	return report.Save(plt, plotFile)
}

// Downcast converts the variables of the NetCDF file input as given by enc
// and writes the result to output.
func Downcast(input, output string, enc map[string]ragged.Encoding, title string, log logrus.FieldLogger) error {
	if input == "" || output == "" {
		return fmt.Errorf("reldisp: both input and output must be specified")
	}
	if len(enc) == 0 {
		return fmt.Errorf("reldisp: no variables to downcast")
	}
	return ragged.DowncastFile(os.ExpandEnv(input), os.ExpandEnv(output), enc, title, log)
}

// Unpack writes the number of observations in each trajectory of the ragged
// archive input to w, along with the values of variable if it is not empty.
func Unpack(w io.Writer, input, variable string, log logrus.FieldLogger) error {
	if input == "" {
		return fmt.Errorf("reldisp: input must be specified")
	}
	ra, err := ragged.ReadRaggedFile(os.ExpandEnv(input), log)
	if err != nil {
		return err
	}
	t := report.Table{{"trajectory", ragged.RowSizeName}}
	if variable == "" {
		for i, n := range ra.RowSize {
			t = append(t, []string{strconv.Itoa(i), strconv.Itoa(n)})
		}
		_, err = t.Tabbed(w)
		return err
	}
	v, ok := ra.Variable(variable)
	if !ok {
		return fmt.Errorf("%w: %s", ragged.ErrMissingVariable, variable)
	}
	if len(v.Dims) != 1 || v.Dims[0] != ragged.ObsDim {
		// Coordinates and metadata have one value per trajectory.
		t[0] = append(t[0], variable)
		vals := rowValues(v)
		if len(vals) != len(ra.RowSize) {
			return fmt.Errorf("reldisp: variable %s has %d values for %d trajectories", variable, len(vals), len(ra.RowSize))
		}
		for i, n := range ra.RowSize {
			t = append(t, []string{strconv.Itoa(i), strconv.Itoa(n), vals[i]})
		}
		_, err = t.Tabbed(w)
		return err
	}
	rows, err := ragged.UnpackVariable(v, ra.RowSize)
	if err != nil {
		return err
	}
	t[0] = append(t[0], variable)
	for i, row := range rows {
		t = append(t, []string{strconv.Itoa(i), strconv.Itoa(ra.RowSize[i]), strings.Trim(fmt.Sprint(row), "[]")})
	}
	_, err = t.Tabbed(w)
	return err
}

// rowValues formats each value of v.
func rowValues(v *ragged.Variable) []string {
	n, err := ragged.Len(v.Data)
	if err != nil {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		s, _ := ragged.Slice(v.Data, i, i+1)
		out[i] = strings.Trim(fmt.Sprint(s), "[]")
	}
	return out
}

// writeTable writes t to output as tab-separated text or, if output ends in
// .xlsx, as a workbook with a single sheet. Empty output writes to w.
func writeTable(w io.Writer, t report.Table, sheet, output string) error {
	if output == "" {
		_, err := t.Tabbed(w)
		return err
	}
	output = os.ExpandEnv(output)
	switch ext := strings.ToLower(filepath.Ext(output)); ext {
	case ".xlsx":
		return report.WriteWorkbook(output, report.Sheet{Name: sheet, Table: t})
	case ".txt":
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("reldisp: creating output file: %v", err)
		}
		if _, err := t.Tabbed(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("reldisp: invalid output file extension %q; valid extensions are .txt and .xlsx", ext)
	}
}
