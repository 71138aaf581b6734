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
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrMissingVariable is returned when a requested variable is not in
// a dataset.
var ErrMissingVariable = errors.New("ragged: variable not found")

// Encoding is the storage requested for a variable when it is written.
type Encoding struct {
	DType DType

	// Compress requests compression. NetCDF classic files cannot be
	// compressed, so the request is logged and ignored.
	Compress bool
}

// Downcast returns a copy of ds in which each variable named in enc has
// been converted to the requested type. Only conversions that narrow the
// precision are allowed: float64 to float32, int64 to int32 or int16, and
// int32 to int16. Integer values that do not fit in the narrower type, and
// finite floating point values beyond the float32 range, are an error.
// If any named variable is not in ds, the error wraps ErrMissingVariable.
func Downcast(ds *Dataset, enc map[string]Encoding, log logrus.FieldLogger) (*Dataset, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	names := make([]string, 0, len(enc))
	var missing []string
	for name := range enc {
		names = append(names, name)
		if _, ok := ds.Variable(name); !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(names)
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, strings.Join(missing, ", "))
	}

	out := &Dataset{
		Dims:       append([]Dim{}, ds.Dims...),
		Coords:     append([]string{}, ds.Coords...),
		Attributes: append(Attributes{}, ds.Attributes...),
	}
	for _, v := range ds.Variables {
		data, err := Clone(v.Data)
		if err != nil {
			return nil, fmt.Errorf("ragged: variable %s: %v", v.Name, err)
		}
		out.Variables = append(out.Variables, &Variable{
			Name:       v.Name,
			Dims:       append([]string{}, v.Dims...),
			Data:       data,
			Attributes: append(Attributes{}, v.Attributes...),
		})
	}
	for _, name := range names {
		e := enc[name]
		v, _ := out.Variable(name)
		from, _ := v.DType()
		data, err := cast(v.Data, e.DType)
		if err != nil {
			return nil, fmt.Errorf("ragged: variable %s: %v", name, err)
		}
		v.Data = data
		fields := logrus.Fields{"variable": name, "from": from, "to": e.DType}
		if e.Compress {
			log.WithFields(fields).Warn("NetCDF classic files cannot be compressed; writing uncompressed")
		}
		log.WithFields(fields).Debug("downcast variable")
	}
	return out, nil
}

// cast converts data to type to.
func cast(data interface{}, to DType) (interface{}, error) {
	from, err := DTypeOf(data)
	if err != nil {
		return nil, err
	}
	if from == to {
		return data, nil
	}
	switch d := data.(type) {
	case []float64:
		if to == Float32 {
			return toFloat32(d)
		}
	case []int64:
		switch to {
		case Int32:
			return narrow[int64, int32](d, math.MinInt32, math.MaxInt32)
		case Int16:
			return narrow[int64, int16](d, math.MinInt16, math.MaxInt16)
		}
	case []int32:
		if to == Int16 {
			return narrow[int32, int16](d, math.MinInt16, math.MaxInt16)
		}
	}
	return nil, fmt.Errorf("cannot downcast %s to %s", from, to)
}

func toFloat32(d []float64) ([]float32, error) {
	out := make([]float32, len(d))
	for i, x := range d {
		if !math.IsInf(x, 0) && math.Abs(x) > math.MaxFloat32 {
			return nil, fmt.Errorf("value %g at index %d is out of range for float32", x, i)
		}
		out[i] = float32(x)
	}
	return out, nil
}

func narrow[From int64 | int32, To int32 | int16](d []From, min, max From) ([]To, error) {
	out := make([]To, len(d))
	for i, x := range d {
		if x < min || x > max {
			return nil, fmt.Errorf("value %d at index %d is out of range [%d, %d]", x, i, min, max)
		}
		out[i] = To(x)
	}
	return out, nil
}

// DowncastFile reads the NetCDF file in, downcasts the variables in enc,
// and writes the result to out. The title global attribute is kept unless
// title is not empty, in which case it replaces it. Nothing is written if
// any step fails.
func DowncastFile(in, out string, enc map[string]Encoding, title string, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ds, err := ReadFile(in)
	if err != nil {
		return err
	}
	ds, err = Downcast(ds, enc, log)
	if err != nil {
		return fmt.Errorf("%w (file %s)", err, in)
	}
	if title != "" {
		ds.Attributes = ds.Attributes.Set("title", title)
	}
	if err := ds.WriteFile(out); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"input":     in,
		"output":    out,
		"variables": len(enc),
		"title":     ds.Title(),
	}).Info("downcast dataset")
	return nil
}
