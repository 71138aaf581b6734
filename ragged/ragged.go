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
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Dimension and variable names of a ragged archive.
const (
	TrajDim     = "traj"
	ObsDim      = "obs"
	RowSizeName = "rowsize"
)

// RaggedArray is an archive of trajectories of different lengths. The
// observations of all trajectories are stored end to end along the obs
// dimension, and RowSize gives the number of observations in each one.
type RaggedArray struct {
	// Coords and Data have one value per observation.
	Coords []*Variable
	Data   []*Variable

	// Metadata has one value per trajectory.
	Metadata []*Variable

	RowSize    []int
	Attributes Attributes
}

// Names lists the variables to include in an archive.
type Names struct {
	Coords, Metadata, Data []string
}

// PreprocessFunc returns the dataset of the trajectory with the given
// identification number.
type PreprocessFunc func(index int) (*Dataset, error)

// RowSizeFunc returns the number of observations of the trajectory with
// the given identification number.
type RowSizeFunc func(index int) (int, error)

// NumberOfObservations returns the number of observations of each
// trajectory.
func NumberOfObservations(rowsize RowSizeFunc, indices []int, log logrus.FieldLogger) ([]int, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	out := make([]int, len(indices))
	for i, index := range indices {
		n, err := rowsize(index)
		if err != nil {
			return nil, fmt.Errorf("ragged: number of observations of trajectory %d: %w", index, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("ragged: trajectory %d has %d observations", index, n)
		}
		out[i] = n
		log.WithFields(logrus.Fields{"trajectory": i + 1, "of": len(indices)}).Debug("retrieving the number of observations")
	}
	return out, nil
}

// obsRowSize counts the observations of a trajectory by preprocessing it.
func obsRowSize(preprocess PreprocessFunc) RowSizeFunc {
	return func(index int) (int, error) {
		ds, err := preprocess(index)
		if err != nil {
			return 0, err
		}
		n, ok := ds.Dim(ObsDim)
		if !ok {
			return 0, fmt.Errorf("dataset has no %s dimension", ObsDim)
		}
		return n, nil
	}
}

// FromFiles assembles an archive from the trajectories with the given
// identification numbers. The variable types and attributes are taken from
// the first trajectory. Coordinates and metadata must be present in every
// trajectory; a requested data variable that is missing is skipped with a
// warning. If rowsize is nil, the trajectories are preprocessed an extra
// time to count their observations.
func FromFiles(indices []int, preprocess PreprocessFunc, names Names, rowsize RowSizeFunc, log logrus.FieldLogger) (*RaggedArray, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("ragged: no trajectories")
	}
	if rowsize == nil {
		rowsize = obsRowSize(preprocess)
	}
	sizes, err := NumberOfObservations(rowsize, indices, log)
	if err != nil {
		return nil, err
	}
	nObs := 0
	for _, n := range sizes {
		nObs += n
	}

	first, err := preprocess(indices[0])
	if err != nil {
		return nil, fmt.Errorf("ragged: preprocessing trajectory %d: %w", indices[0], err)
	}
	ra := &RaggedArray{
		RowSize:    sizes,
		Attributes: append(Attributes{}, first.Attributes...),
	}
	allocate := func(name, dim string, n int, required bool) (*Variable, error) {
		v, ok := first.Variable(name)
		if !ok {
			if required {
				return nil, fmt.Errorf("%w: %s in trajectory %d", ErrMissingVariable, name, indices[0])
			}
			log.WithField("variable", name).Warn("variable requested but not found; skipping")
			return nil, nil
		}
		dt, err := v.DType()
		if err != nil {
			return nil, fmt.Errorf("ragged: variable %s: %v", name, err)
		}
		data, _ := Zeros(dt, n)
		return &Variable{
			Name:       name,
			Dims:       []string{dim},
			Data:       data,
			Attributes: append(Attributes{}, v.Attributes...),
		}, nil
	}
	for _, group := range []struct {
		names    []string
		dim      string
		n        int
		required bool
		out      *[]*Variable
	}{
		{names.Coords, ObsDim, nObs, true, &ra.Coords},
		{names.Metadata, TrajDim, len(indices), true, &ra.Metadata},
		{names.Data, ObsDim, nObs, false, &ra.Data},
	} {
		for _, name := range group.names {
			v, err := allocate(name, group.dim, group.n, group.required)
			if err != nil {
				return nil, err
			}
			if v != nil {
				*group.out = append(*group.out, v)
			}
		}
	}

	offset := 0
	for i, index := range indices {
		ds, err := preprocess(index)
		if err != nil {
			return nil, fmt.Errorf("ragged: preprocessing trajectory %d: %w", index, err)
		}
		for _, v := range ra.Coords {
			if err := fillObs(v, ds, index, offset, sizes[i]); err != nil {
				return nil, err
			}
		}
		for _, v := range ra.Data {
			if _, ok := ds.Variable(v.Name); !ok {
				log.WithFields(logrus.Fields{"variable": v.Name, "trajectory": index}).Warn("variable requested but not found; skipping")
				continue
			}
			if err := fillObs(v, ds, index, offset, sizes[i]); err != nil {
				return nil, err
			}
		}
		for _, v := range ra.Metadata {
			src, ok := ds.Variable(v.Name)
			if !ok {
				return nil, fmt.Errorf("%w: %s in trajectory %d", ErrMissingVariable, v.Name, index)
			}
			if n, _ := Len(src.Data); n == 0 {
				return nil, fmt.Errorf("ragged: variable %s of trajectory %d is empty", v.Name, index)
			}
			s, err := Slice(src.Data, 0, 1)
			if err != nil {
				return nil, err
			}
			if _, err := copyInto(v.Data, s, i); err != nil {
				return nil, fmt.Errorf("ragged: variable %s of trajectory %d: %v", v.Name, index, err)
			}
		}
		offset += sizes[i]
		log.WithFields(logrus.Fields{"trajectory": i + 1, "of": len(indices)}).Debug("filling the ragged array")
	}
	log.WithFields(logrus.Fields{
		"trajectories": len(indices),
		"observations": nObs,
	}).Info("assembled ragged array")
	return ra, nil
}

// fillObs copies the observations of trajectory index from ds into v.
func fillObs(v *Variable, ds *Dataset, index, offset, size int) error {
	src, ok := ds.Variable(v.Name)
	if !ok {
		return fmt.Errorf("%w: %s in trajectory %d", ErrMissingVariable, v.Name, index)
	}
	n, err := Len(src.Data)
	if err != nil {
		return fmt.Errorf("ragged: variable %s of trajectory %d: %v", v.Name, index, err)
	}
	if n != size {
		return fmt.Errorf("ragged: variable %s of trajectory %d has %d observations, want %d", v.Name, index, n, size)
	}
	if _, err := copyInto(v.Data, src.Data, offset); err != nil {
		return fmt.Errorf("ragged: variable %s of trajectory %d: %v", v.Name, index, err)
	}
	return nil
}

// FromDataset interprets ds as a ragged archive. Coordinates go to Coords,
// the rowsize variable to RowSize, and other variables along the traj and
// obs dimensions to Metadata and Data. Variables along any other dimension
// are skipped with a warning.
func FromDataset(ds *Dataset, log logrus.FieldLogger) (*RaggedArray, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, d := range []string{TrajDim, ObsDim} {
		if _, ok := ds.Dim(d); !ok {
			return nil, fmt.Errorf("ragged: dataset has no %s dimension", d)
		}
	}
	ra := &RaggedArray{Attributes: append(Attributes{}, ds.Attributes...)}
	for _, v := range ds.Variables {
		dim := ""
		if len(v.Dims) == 1 {
			dim = v.Dims[0]
		}
		switch {
		case ds.IsCoord(v.Name) && dim == ObsDim:
			ra.Coords = append(ra.Coords, v)
		case v.Name == RowSizeName && dim == TrajDim:
			rs, err := ints(v.Data)
			if err != nil {
				return nil, fmt.Errorf("ragged: %s: %v", RowSizeName, err)
			}
			ra.RowSize = rs
		case dim == TrajDim:
			ra.Metadata = append(ra.Metadata, v)
		case dim == ObsDim:
			ra.Data = append(ra.Data, v)
		default:
			log.WithFields(logrus.Fields{"variable": v.Name, "dims": v.Dims}).Warnf(
				"variable is not along the %s or %s dimension; skipping", TrajDim, ObsDim)
		}
	}
	if ra.RowSize == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, RowSizeName)
	}
	if err := ra.Validate(); err != nil {
		return nil, err
	}
	return ra, nil
}

func ints(data interface{}) ([]int, error) {
	switch d := data.(type) {
	case []int64:
		return toInts(d), nil
	case []int32:
		return toInts(d), nil
	case []int16:
		return toInts(d), nil
	default:
		return nil, fmt.Errorf("invalid type %T", data)
	}
}

func toInts[T int64 | int32 | int16](d []T) []int {
	out := make([]int, len(d))
	for i, v := range d {
		out[i] = int(v)
	}
	return out
}

// Validate checks that the variables have as many values as the row
// sizes call for.
func (ra *RaggedArray) Validate() error {
	nObs := 0
	for i, n := range ra.RowSize {
		if n < 0 {
			return fmt.Errorf("ragged: trajectory %d has %d observations", i, n)
		}
		nObs += n
	}
	check := func(vs []*Variable, want int, dim string) error {
		for _, v := range vs {
			n, err := Len(v.Data)
			if err != nil {
				return fmt.Errorf("ragged: variable %s: %v", v.Name, err)
			}
			if n != want {
				return fmt.Errorf("ragged: variable %s has %d values, want one for each of the %d values along %s", v.Name, n, want, dim)
			}
		}
		return nil
	}
	if err := check(ra.Coords, nObs, ObsDim); err != nil {
		return err
	}
	if err := check(ra.Data, nObs, ObsDim); err != nil {
		return err
	}
	return check(ra.Metadata, len(ra.RowSize), TrajDim)
}

// Variable returns the coordinate, metadata or data variable with the
// given name.
func (ra *RaggedArray) Variable(name string) (*Variable, bool) {
	for _, vs := range [][]*Variable{ra.Coords, ra.Metadata, ra.Data} {
		for _, v := range vs {
			if v.Name == name {
				return v, true
			}
		}
	}
	return nil, false
}

// ToDataset returns the archive as a dataset with traj and obs dimensions.
func (ra *RaggedArray) ToDataset() (*Dataset, error) {
	if err := ra.Validate(); err != nil {
		return nil, err
	}
	nObs := 0
	rowsize := make([]int32, len(ra.RowSize))
	for i, n := range ra.RowSize {
		if n > math.MaxInt32 {
			return nil, fmt.Errorf("ragged: trajectory %d has too many observations (%d)", i, n)
		}
		rowsize[i] = int32(n)
		nObs += n
	}
	if nObs == 0 || len(rowsize) == 0 {
		return nil, fmt.Errorf("ragged: archive is empty")
	}
	ds := &Dataset{
		Dims:       []Dim{{Name: TrajDim, Length: len(rowsize)}, {Name: ObsDim, Length: nObs}},
		Attributes: append(Attributes{}, ra.Attributes...),
	}
	add := func(v *Variable, dim string) {
		ds.Variables = append(ds.Variables, &Variable{
			Name:       v.Name,
			Dims:       []string{dim},
			Data:       v.Data,
			Attributes: v.Attributes,
		})
	}
	for _, v := range ra.Coords {
		add(v, ObsDim)
		ds.Coords = append(ds.Coords, v.Name)
	}
	for _, v := range ra.Metadata {
		add(v, TrajDim)
	}
	add(&Variable{
		Name: RowSizeName,
		Data: rowsize,
		Attributes: Attributes{
			{Name: "long_name", Value: "number of observations per trajectory"},
			{Name: "sample_dimension", Value: ObsDim},
		},
	}, TrajDim)
	for _, v := range ra.Data {
		add(v, ObsDim)
	}
	return ds, nil
}

// WriteFile writes the archive to a NetCDF classic file.
func (ra *RaggedArray) WriteFile(path string) error {
	ds, err := ra.ToDataset()
	if err != nil {
		return err
	}
	return ds.WriteFile(path)
}

// ReadRaggedFile reads an archive from a NetCDF file.
func ReadRaggedFile(path string, log logrus.FieldLogger) (*RaggedArray, error) {
	ds, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromDataset(ds, log)
}

// Unpack splits a ragged slice into one slice per row. The rows share
// memory with values.
func Unpack[T any](values []T, rowsize []int) ([][]T, error) {
	total := 0
	for _, n := range rowsize {
		if n < 0 {
			return nil, fmt.Errorf("ragged: negative row size %d", n)
		}
		total += n
	}
	if total != len(values) {
		return nil, fmt.Errorf("ragged: row sizes add up to %d but there are %d values", total, len(values))
	}
	out := make([][]T, len(rowsize))
	i := 0
	for r, n := range rowsize {
		out[r] = values[i : i+n : i+n]
		i += n
	}
	return out, nil
}

// UnpackVariable splits the values of v into one slice per row.
func UnpackVariable(v *Variable, rowsize []int) ([]interface{}, error) {
	var rows []interface{}
	add := func(n int, err error, row func(int) interface{}) error {
		if err != nil {
			return fmt.Errorf("ragged: variable %s: %w", v.Name, err)
		}
		for i := 0; i < n; i++ {
			rows = append(rows, row(i))
		}
		return nil
	}
	var err error
	switch d := v.Data.(type) {
	case []float64:
		r, e := Unpack(d, rowsize)
		err = add(len(r), e, func(i int) interface{} { return r[i] })
	case []float32:
		r, e := Unpack(d, rowsize)
		err = add(len(r), e, func(i int) interface{} { return r[i] })
	case []int64:
		r, e := Unpack(d, rowsize)
		err = add(len(r), e, func(i int) interface{} { return r[i] })
	case []int32:
		r, e := Unpack(d, rowsize)
		err = add(len(r), e, func(i int) interface{} { return r[i] })
	case []int16:
		r, e := Unpack(d, rowsize)
		err = add(len(r), e, func(i int) interface{} { return r[i] })
	case []uint8:
		r, e := Unpack(d, rowsize)
		err = add(len(r), e, func(i int) interface{} { return r[i] })
	default:
		err = fmt.Errorf("ragged: variable %s: unsupported data type %T", v.Name, v.Data)
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}
