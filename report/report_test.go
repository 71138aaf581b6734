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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spatialmodel/reldisp"
	"github.com/spatialmodel/reldisp/algebra"
	"github.com/tealeg/xlsx"
)

func compile(t *testing.T, names ...string) []*reldisp.Procedure {
	rs, err := reldisp.Builtin().Select(names...)
	if err != nil {
		t.Fatal(err)
	}
	procs, err := reldisp.CompileAll(rs)
	if err != nil {
		t.Fatal(err)
	}
	return procs
}

func series(t *testing.T) []*reldisp.Derivation {
	var out []*reldisp.Derivation
	for _, p := range compile(t, "diffusive-asymptotic", "gm-asymptotic") {
		ders, err := p.Series(context.Background(), nil, []float64{0.5, 1, 2})
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, ders...)
	}
	return out
}

func TestTabbed(t *testing.T) {
	tbl := Table{{"a", "bb", "c"}, {"ddd", "e", "f"}}
	var buf bytes.Buffer
	if _, err := tbl.Tabbed(&buf); err != nil {
		t.Fatal(err)
	}
	want := "a    bb  c\nddd  e   f\n"
	if buf.String() != want {
		t.Errorf("have\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestDerivations(t *testing.T) {
	p := compile(t, "diffusive-asymptotic")[0]
	d, err := p.Derive(context.Background(), algebra.Env{"k2": 0.25, "t": 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	tbl := Derivations([]*reldisp.Derivation{d})
	if len(tbl) != 1+len(d.Quantities()) {
		t.Fatalf("table has %d rows", len(tbl))
	}
	for _, row := range tbl {
		if len(row) != len(tbl[0]) {
			t.Errorf("row %v has %d columns, want %d", row, len(row), len(tbl[0]))
		}
	}
	ku := tbl[1+4]
	if ku[4] != "Ku" || ku[5] != "2" || ku[6] != "exact" || ku[3] != "k2=0.25 t=1" {
		t.Errorf("kurtosis row is %v", ku)
	}
	var buf bytes.Buffer
	if _, err := tbl.Tabbed(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "diffusive-asymptotic") {
		t.Errorf("output is missing the regime:\n%s", buf.String())
	}
}

func TestSeries(t *testing.T) {
	tbl := Series(series(t))
	if len(tbl) != 7 {
		t.Fatalf("table has %d rows, want 7", len(tbl))
	}
	row := tbl[2]
	if row[0] != "diffusive-asymptotic" || row[1] != "1" || row[2] != "4" {
		t.Errorf("row is %v", row)
	}
}

func TestRegimes(t *testing.T) {
	tbl := Regimes(reldisp.Builtin())
	if len(tbl) != 1+len(reldisp.Builtin()) {
		t.Fatalf("table has %d rows", len(tbl))
	}
	if row := tbl[4]; row[0] != "gm-full" || row[2] != "false" {
		t.Errorf("row is %v", row)
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.xlsx")
	tbl := Series(series(t))
	if err := WriteWorkbook(path, Sheet{Name: "series", Table: tbl}, Sheet{Name: "regimes", Table: Regimes(reldisp.Builtin())}); err != nil {
		t.Fatal(err)
	}
	f, err := xlsx.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := f.Sheet["series"]
	if !ok {
		t.Fatal("no series sheet")
	}
	if len(s.Rows) != len(tbl) {
		t.Fatalf("sheet has %d rows, want %d", len(s.Rows), len(tbl))
	}
	if h := s.Rows[0].Cells[2].Value; h != "<r^2>" {
		t.Errorf("header is %q", h)
	}
	v, err := strconv.ParseFloat(s.Rows[3].Cells[2].Value, 64)
	if err != nil {
		t.Fatal(err)
	}
	if v != 8 {
		t.Errorf("<r^2>(2) = %g, want 8", v)
	}
	if _, ok := f.Sheet["regimes"]; !ok {
		t.Error("no regimes sheet")
	}
}

func TestDensities(t *testing.T) {
	procs := compile(t, "diffusive-full", "gm-full", "lundgren-full")
	p, err := Densities(context.Background(), procs, algebra.Env{"t": 0.5, "k2": 0.3}, 4, 50)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "density.png")
	if err := Save(p, path); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("no plot written: %v", err)
	}

	if _, err := Densities(context.Background(), procs, nil, 0, 10); err == nil {
		t.Error("no error for empty range")
	}
}

func TestSecondMoments(t *testing.T) {
	p, err := SecondMoments(series(t))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, p, "svg"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Errorf("output is not svg")
	}
	if _, err := SecondMoments(nil); err == nil {
		t.Error("no error for empty series")
	}
}
