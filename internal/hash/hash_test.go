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

package hash

import (
	"math"
	"testing"
)

type request struct {
	Name   string
	Params map[string]float64
	Orders []float64
	Next   *request
}

type named string

func (n named) String() string { return "name:" + string(n) }

func TestHash(t *testing.T) {
	a := request{Name: "gm", Params: map[string]float64{"lambda": 1, "t": 2, "r0": 0.5}, Orders: []float64{6}}
	b := request{Name: "gm", Params: map[string]float64{"r0": 0.5, "t": 2, "lambda": 1}, Orders: []float64{6}}
	for i := 0; i < 20; i++ {
		if Hash(a) != Hash(b) {
			t.Fatal("equal objects have different keys")
		}
	}
	c := b
	c.Params = map[string]float64{"r0": 0.5, "t": 3, "lambda": 1}
	if Hash(a) == Hash(c) {
		t.Error("different objects have the same key")
	}
	a.Next = &request{Name: "inner"}
	b.Next = &request{Name: "inner"}
	if Hash(a) != Hash(b) {
		t.Error("pointer addresses should not change the key")
	}
	b.Next.Name = "other"
	if Hash(a) == Hash(b) {
		t.Error("pointed-to values should change the key")
	}
}

func TestHash_nan(t *testing.T) {
	a := request{Params: map[string]float64{"t": math.NaN()}}
	if Hash(a) != Hash(a) {
		t.Error("NaN values should hash consistently")
	}
}

func TestHash_stringer(t *testing.T) {
	if h := Hash(named("x")); h != "name:x" {
		t.Errorf("have %s, want name:x", h)
	}
}
