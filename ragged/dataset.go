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

// Package ragged reads and writes NetCDF trajectory datasets, narrows the
// precision of their variables, and assembles ragged-array archives in which
// the observations of many trajectories of different lengths are stored end to
// end along one dimension.
package ragged

import (
	"fmt"
	"strings"
)

// DType is the element type of a variable.
type DType string

// Supported element types.
const (
	Float64 DType = "float64"
	Float32 DType = "float32"
	Int64   DType = "int64"
	Int32   DType = "int32"
	Int16   DType = "int16"
	Byte    DType = "uint8"
)

// ParseDType returns the element type with the given name.
func ParseDType(s string) (DType, error) {
	switch d := DType(strings.ToLower(strings.TrimSpace(s))); d {
	case Float64, Float32, Int64, Int32, Int16, Byte:
		return d, nil
	case "double":
		return Float64, nil
	case "float":
		return Float32, nil
	case "int":
		return Int32, nil
	case "short":
		return Int16, nil
	case "byte":
		return Byte, nil
	default:
		return "", fmt.Errorf("ragged: invalid data type %q", s)
	}
}

// DTypeOf returns the element type of data.
func DTypeOf(data interface{}) (DType, error) {
	switch data.(type) {
	case []float64:
		return Float64, nil
	case []float32:
		return Float32, nil
	case []int64:
		return Int64, nil
	case []int32:
		return Int32, nil
	case []int16:
		return Int16, nil
	case []uint8:
		return Byte, nil
	default:
		return "", fmt.Errorf("ragged: unsupported data type %T", data)
	}
}

// Zeros returns a zeroed slice of type d with length n.
func Zeros(d DType, n int) (interface{}, error) {
	switch d {
	case Float64:
		return make([]float64, n), nil
	case Float32:
		return make([]float32, n), nil
	case Int64:
		return make([]int64, n), nil
	case Int32:
		return make([]int32, n), nil
	case Int16:
		return make([]int16, n), nil
	case Byte:
		return make([]uint8, n), nil
	default:
		return nil, fmt.Errorf("ragged: invalid data type %q", d)
	}
}

// Len returns the number of elements in data.
func Len(data interface{}) (int, error) {
	switch d := data.(type) {
	case []float64:
		return len(d), nil
	case []float32:
		return len(d), nil
	case []int64:
		return len(d), nil
	case []int32:
		return len(d), nil
	case []int16:
		return len(d), nil
	case []uint8:
		return len(d), nil
	default:
		return 0, fmt.Errorf("ragged: unsupported data type %T", data)
	}
}

// Slice returns data[from:to].
func Slice(data interface{}, from, to int) (interface{}, error) {
	switch d := data.(type) {
	case []float64:
		return d[from:to], nil
	case []float32:
		return d[from:to], nil
	case []int64:
		return d[from:to], nil
	case []int32:
		return d[from:to], nil
	case []int16:
		return d[from:to], nil
	case []uint8:
		return d[from:to], nil
	default:
		return nil, fmt.Errorf("ragged: unsupported data type %T", data)
	}
}

// copyInto copies src into dst starting at offset. dst and src must be
// the same type.
func copyInto(dst, src interface{}, offset int) (int, error) {
	switch d := dst.(type) {
	case []float64:
		if s, ok := src.([]float64); ok {
			return copy(d[offset:], s), nil
		}
	case []float32:
		if s, ok := src.([]float32); ok {
			return copy(d[offset:], s), nil
		}
	case []int64:
		if s, ok := src.([]int64); ok {
			return copy(d[offset:], s), nil
		}
	case []int32:
		if s, ok := src.([]int32); ok {
			return copy(d[offset:], s), nil
		}
	case []int16:
		if s, ok := src.([]int16); ok {
			return copy(d[offset:], s), nil
		}
	case []uint8:
		if s, ok := src.([]uint8); ok {
			return copy(d[offset:], s), nil
		}
	default:
		return 0, fmt.Errorf("ragged: unsupported data type %T", dst)
	}
	return 0, fmt.Errorf("ragged: cannot copy %T into %T", src, dst)
}

// Clone returns a copy of data.
func Clone(data interface{}) (interface{}, error) {
	d, err := DTypeOf(data)
	if err != nil {
		return nil, err
	}
	n, _ := Len(data)
	out, _ := Zeros(d, n)
	if _, err := copyInto(out, data, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// Dim is a named dimension.
type Dim struct {
	Name   string
	Length int
}

// Attribute is a named attribute. Values are strings or slices of a
// supported type.
type Attribute struct {
	Name  string
	Value interface{}
}

// Attributes is an ordered list of attributes.
type Attributes []Attribute

// Get returns the value of the named attribute.
func (a Attributes) Get(name string) (interface{}, bool) {
	for _, at := range a {
		if at.Name == name {
			return at.Value, true
		}
	}
	return nil, false
}

// Set returns a with the named attribute set to value, replacing any
// attribute with the same name in place.
func (a Attributes) Set(name string, value interface{}) Attributes {
	for i, at := range a {
		if at.Name == name {
			out := append(Attributes{}, a...)
			out[i].Value = value
			return out
		}
	}
	return append(append(Attributes{}, a...), Attribute{Name: name, Value: value})
}

// Delete returns a without the named attribute.
func (a Attributes) Delete(name string) Attributes {
	out := make(Attributes, 0, len(a))
	for _, at := range a {
		if at.Name != name {
			out = append(out, at)
		}
	}
	return out
}

// Variable is an array of values laid out along one or more dimensions,
// with the last dimension varying fastest.
type Variable struct {
	Name       string
	Dims       []string
	Data       interface{}
	Attributes Attributes
}

// DType returns the element type of v.
func (v *Variable) DType() (DType, error) { return DTypeOf(v.Data) }

// Dataset is a collection of dimensions, variables and attributes.
type Dataset struct {
	Dims []Dim

	// Coords lists the names of the coordinate variables.
	Coords []string

	Variables  []*Variable
	Attributes Attributes
}

// Variable returns the variable with the given name.
func (ds *Dataset) Variable(name string) (*Variable, bool) {
	for _, v := range ds.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Dim returns the length of the named dimension.
func (ds *Dataset) Dim(name string) (int, bool) {
	for _, d := range ds.Dims {
		if d.Name == name {
			return d.Length, true
		}
	}
	return 0, false
}

// IsCoord returns whether the named variable is a coordinate.
func (ds *Dataset) IsCoord(name string) bool {
	for _, c := range ds.Coords {
		if c == name {
			return true
		}
	}
	return false
}

// Title returns the "title" global attribute, or "" if there is none.
func (ds *Dataset) Title() string {
	t, _ := ds.Attributes.Get("title")
	s, _ := t.(string)
	return s
}

// Validate checks that every variable uses known dimensions and has as
// many values as its dimensions call for.
func (ds *Dataset) Validate() error {
	seen := make(map[string]bool)
	for _, d := range ds.Dims {
		if d.Length <= 0 {
			return fmt.Errorf("ragged: dimension %s has length %d", d.Name, d.Length)
		}
		if seen[d.Name] {
			return fmt.Errorf("ragged: duplicate dimension %s", d.Name)
		}
		seen[d.Name] = true
	}
	names := make(map[string]bool)
	for _, v := range ds.Variables {
		if names[v.Name] {
			return fmt.Errorf("ragged: duplicate variable %s", v.Name)
		}
		names[v.Name] = true
		want := 1
		for _, d := range v.Dims {
			n, ok := ds.Dim(d)
			if !ok {
				return fmt.Errorf("ragged: variable %s has unknown dimension %s", v.Name, d)
			}
			want *= n
		}
		n, err := Len(v.Data)
		if err != nil {
			return fmt.Errorf("ragged: variable %s: %v", v.Name, err)
		}
		if n != want {
			return fmt.Errorf("ragged: variable %s has %d values but its dimensions %v call for %d", v.Name, n, v.Dims, want)
		}
	}
	for _, c := range ds.Coords {
		if !names[c] {
			return fmt.Errorf("ragged: coordinate %s is not a variable", c)
		}
	}
	return nil
}
