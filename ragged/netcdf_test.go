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

package ragged

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
)

type logRecorder struct {
	sync.Mutex
	entries []*logrus.Entry
}

func (r *logRecorder) Levels() []logrus.Level {
	return []logrus.Level{logrus.WarnLevel}
}

func (r *logRecorder) Fire(e *logrus.Entry) error {
	r.Lock()
	r.entries = append(r.entries, e)
	r.Unlock()
	return nil
}

func testLogger() (*logrus.Logger, *logRecorder) {
	log := logrus.New()
	log.Out = io.Discard
	rec := new(logRecorder)
	log.Hooks.Add(rec)
	return log, rec
}

func testDataset() *Dataset {
	return &Dataset{
		Dims:   []Dim{{Name: "time", Length: 3}, {Name: "site", Length: 2}},
		Coords: []string{"time", "lat"},
		Variables: []*Variable{
			{Name: "time", Dims: []string{"time"}, Data: []float64{0, 0.5, 1},
				Attributes: Attributes{{Name: "units", Value: "days"}}},
			{Name: "lat", Dims: []string{"site"}, Data: []float64{-12.25, 40.125},
				Attributes: Attributes{{Name: "units", Value: "degrees_north"}}},
			{Name: "temp", Dims: []string{"time", "site"}, Data: []float64{1.1, 2.2, 3.3, 4.4, 5.5, math.Pi},
				Attributes: Attributes{{Name: "units", Value: "K"}, {Name: "valid_range", Value: []float64{0, 400}}}},
			{Name: "count", Dims: []string{"site"}, Data: []int32{7, 1 << 12},
				Attributes: Attributes{{Name: "long_name", Value: "number of samples"}}},
			{Name: "level", Dims: []string{"time"}, Data: []int16{-3, 0, 3},
				Attributes: Attributes{{Name: "scale", Value: []float32{0.5}}}},
			{Name: "flag", Dims: []string{"time"}, Data: []uint8{0, 1, 255},
				Attributes: Attributes{{Name: "flag_values", Value: []int16{0, 1}}}},
		},
		Attributes: Attributes{
			{Name: "title", Value: "Drifter Test"},
			{Name: "version", Value: []int32{2}},
		},
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.nc")
	want := testDataset()
	if err := want.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	have, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(want, have); len(diff) != 0 {
		t.Fatal(diff)
	}
	files, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("temporary files left behind: %v", files)
	}
}

// Coordinates that share no dimensions with another variable are
// listed globally.
func TestWriteRead_unlistedCoordinate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coords.nc")
	want := &Dataset{
		Dims:   []Dim{{Name: "x", Length: 2}, {Name: "y", Length: 1}},
		Coords: []string{"lon"},
		Variables: []*Variable{
			{Name: "lon", Dims: []string{"y"}, Data: []float32{-120}},
			{Name: "u", Dims: []string{"x"}, Data: []float32{1, 2}},
		},
	}
	if err := want.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	have, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(want, have); len(diff) != 0 {
		t.Fatal(diff)
	}
}

func TestWrite_errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Dataset)
		is     error
	}{
		{"int64", func(ds *Dataset) { ds.Variables[3].Data = []int64{1, 2} }, ErrUnsupported},
		{"int64 attribute", func(ds *Dataset) { ds.Attributes[1].Value = []int64{2} }, ErrUnsupported},
		{"wrong length", func(ds *Dataset) { ds.Variables[2].Data = []float64{1} }, nil},
		{"unknown dimension", func(ds *Dataset) { ds.Variables[1].Dims = []string{"station"} }, nil},
		{"unknown coordinate", func(ds *Dataset) { ds.Coords = append(ds.Coords, "lon") }, nil},
		{"duplicate variable", func(ds *Dataset) { ds.Variables[1].Name = "time" }, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			ds := testDataset()
			test.modify(ds)
			err := ds.WriteFile(filepath.Join(dir, "bad.nc"))
			if err == nil {
				t.Fatal("no error")
			}
			if test.is != nil && !errors.Is(err, test.is) {
				t.Errorf("error %v should be %v", err, test.is)
			}
			if files, _ := os.ReadDir(dir); len(files) != 0 {
				t.Errorf("failed write left files behind: %v", files)
			}
		})
	}
}

func TestParseDType(t *testing.T) {
	for s, want := range map[string]DType{
		"float32": Float32, " Float64": Float64, "double": Float64,
		"int": Int32, "int16": Int16, "int64": Int64, "byte": Byte,
	} {
		have, err := ParseDType(s)
		if err != nil {
			t.Error(err)
		}
		if have != want {
			t.Errorf("%q: have %s, want %s", s, have, want)
		}
	}
	if _, err := ParseDType("complex128"); err == nil {
		t.Error("no error for complex128")
	}
}

func TestAttributes(t *testing.T) {
	a := Attributes{{Name: "title", Value: "a"}, {Name: "units", Value: "m"}}
	b := a.Set("title", "b")
	if v, _ := a.Get("title"); v != "a" {
		t.Errorf("Set modified the original: %v", a)
	}
	if want := (Attributes{{Name: "title", Value: "b"}, {Name: "units", Value: "m"}}); len(pretty.Diff(b, want)) != 0 {
		t.Errorf("have %v, want %v", b, want)
	}
	c := b.Delete("title").Set("comment", "c")
	if want := (Attributes{{Name: "units", Value: "m"}, {Name: "comment", Value: "c"}}); len(pretty.Diff(c, want)) != 0 {
		t.Errorf("have %v, want %v", c, want)
	}
}
