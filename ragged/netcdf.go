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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/cdf"
)

// coordinatesAttr lists the auxiliary coordinates of a variable, or, as a
// global attribute, the coordinates that no variable lists.
const coordinatesAttr = "coordinates"

// ErrUnsupported is returned for data that classic NetCDF files cannot hold.
var ErrUnsupported = errors.New("ragged: unsupported by NetCDF classic format")

// Read reads a dataset from a NetCDF classic file. Variables named after a
// dimension, and variables listed in a "coordinates" attribute, are
// coordinates.
func Read(rw cdf.ReaderWriterAt) (*Dataset, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("ragged: opening NetCDF file: %v", err)
	}
	h := f.Header
	ds := new(Dataset)
	dimNames := h.Dimensions("")
	dimLengths := h.Lengths("")
	isDim := make(map[string]bool)
	for i, name := range dimNames {
		ds.Dims = append(ds.Dims, Dim{Name: name, Length: dimLengths[i]})
		isDim[name] = true
	}

	coords := make(map[string]bool)
	ds.Attributes, err = readAttributes(h, "", coords)
	if err != nil {
		return nil, err
	}
	for _, name := range h.Variables() {
		if h.IsRecordVariable(name) {
			return nil, fmt.Errorf("%w: variable %s is a record variable", ErrUnsupported, name)
		}
		if _, ok := h.ZeroValue(name, 0).(string); ok {
			return nil, fmt.Errorf("%w: variable %s holds characters", ErrUnsupported, name)
		}
		v := &Variable{Name: name, Dims: h.Dimensions(name)}
		n := 1
		for _, l := range h.Lengths(name) {
			n *= l
		}
		r := f.Reader(name, nil, nil)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("ragged: reading variable %s: %v", name, err)
		}
		if _, err := DTypeOf(buf); err != nil {
			return nil, fmt.Errorf("ragged: variable %s: %v", name, err)
		}
		v.Data = buf
		if v.Attributes, err = readAttributes(h, name, coords); err != nil {
			return nil, err
		}
		if isDim[name] {
			coords[name] = true
		}
		ds.Variables = append(ds.Variables, v)
	}
	for _, v := range ds.Variables {
		if coords[v.Name] {
			ds.Coords = append(ds.Coords, v.Name)
		}
	}
	return ds, nil
}

// readAttributes returns the attributes of variable v, or the global
// attributes if v is empty. Names in a coordinates attribute are added
// to coords and the attribute itself is dropped.
func readAttributes(h *cdf.Header, v string, coords map[string]bool) (Attributes, error) {
	var out Attributes
	for _, a := range h.Attributes(v) {
		val := h.GetAttribute(v, a)
		if a == coordinatesAttr {
			if s, ok := val.(string); ok {
				for _, c := range strings.Fields(s) {
					coords[c] = true
				}
				continue
			}
		}
		if _, ok := val.(string); !ok {
			var err error
			if val, err = Clone(val); err != nil {
				return nil, fmt.Errorf("ragged: attribute %s of %q: %v", a, v, err)
			}
		}
		out = append(out, Attribute{Name: a, Value: val})
	}
	return out, nil
}

// ReadFile reads a dataset from the NetCDF classic file at path.
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("ragged: %v", err)
	}
	defer f.Close()
	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return ds, nil
}

// Write writes ds to w in NetCDF classic format.
func Write(w cdf.ReaderWriterAt, ds *Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	names := make([]string, len(ds.Dims))
	lengths := make([]int, len(ds.Dims))
	isDim := make(map[string]bool)
	for i, d := range ds.Dims {
		names[i], lengths[i] = d.Name, d.Length
		isDim[d.Name] = true
	}
	h := cdf.NewHeader(names, lengths)

	// Auxiliary coordinates are listed on the variables that share their
	// dimensions, and globally if no variable does.
	var aux []*Variable
	for _, c := range ds.Coords {
		if !isDim[c] {
			v, _ := ds.Variable(c)
			aux = append(aux, v)
		}
	}
	listed := make(map[string]bool)
	global := ds.Attributes.Delete(coordinatesAttr)

	for _, v := range ds.Variables {
		dt, err := v.DType()
		if err != nil {
			return fmt.Errorf("ragged: variable %s: %v", v.Name, err)
		}
		if dt == Int64 {
			return fmt.Errorf("%w: variable %s is int64; downcast it first", ErrUnsupported, v.Name)
		}
		zero, _ := Zeros(dt, 1)
		h.AddVariable(v.Name, v.Dims, zero)
		attrs := v.Attributes.Delete(coordinatesAttr)
		if !ds.IsCoord(v.Name) {
			var cs []string
			for _, c := range aux {
				if subset(c.Dims, v.Dims) {
					cs = append(cs, c.Name)
					listed[c.Name] = true
				}
			}
			if len(cs) > 0 {
				attrs = attrs.Set(coordinatesAttr, strings.Join(cs, " "))
			}
		}
		if err := addAttributes(h, v.Name, attrs); err != nil {
			return err
		}
	}
	var unlisted []string
	for _, c := range aux {
		if !listed[c.Name] {
			unlisted = append(unlisted, c.Name)
		}
	}
	if len(unlisted) > 0 {
		global = global.Set(coordinatesAttr, strings.Join(unlisted, " "))
	}
	if err := addAttributes(h, "", global); err != nil {
		return err
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("ragged: creating NetCDF file: %v", err)
	}
	for _, v := range ds.Variables {
		end := f.Header.Lengths(v.Name)
		start := make([]int, len(end))
		if _, err := f.Writer(v.Name, start, end).Write(v.Data); err != nil {
			return fmt.Errorf("ragged: writing variable %s to NetCDF file: %v", v.Name, err)
		}
	}
	return nil
}

func addAttributes(h *cdf.Header, v string, attrs Attributes) error {
	for _, a := range attrs {
		switch val := a.Value.(type) {
		case string, []float64, []float32, []int32, []int16, []uint8:
			h.AddAttribute(v, a.Name, val)
		default:
			return fmt.Errorf("%w: attribute %s of %q has type %T", ErrUnsupported, a.Name, v, a.Value)
		}
	}
	return nil
}

// subset returns whether every element of a is in b.
func subset(a, b []string) bool {
	for _, x := range a {
		found := false
		for _, y := range b {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// WriteFile writes ds to a NetCDF classic file at path. The file is
// written under a temporary name in the same directory and renamed once
// it is complete, so a failed write leaves no file behind.
func (ds *Dataset) WriteFile(path string) error {
	path = os.ExpandEnv(path)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("ragged: %v", err)
	}
	if err = Write(tmp, ds); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("ragged: %v", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("ragged: %v", err)
	}
	return nil
}
