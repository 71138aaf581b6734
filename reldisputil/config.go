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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/reldisp"
	"github.com/spatialmodel/reldisp/algebra"
	"github.com/spatialmodel/reldisp/ragged"
	"github.com/spf13/cast"
)

// loadRegimes returns the built-in regimes merged with those in the
// RegimeFile, if there is one.
func loadRegimes(cfg *viper.Viper) (reldisp.Regimes, error) {
	rs := reldisp.Builtin()
	if f := cfg.GetString("RegimeFile"); f != "" {
		custom, err := reldisp.LoadRegimes(f)
		if err != nil {
			return nil, err
		}
		rs = rs.Merge(custom)
	}
	return rs, nil
}

// selectRegimes returns the regimes named in the regimes option, or all
// of them if none are named.
func selectRegimes(cfg *viper.Viper) (reldisp.Regimes, error) {
	rs, err := loadRegimes(cfg)
	if err != nil {
		return nil, err
	}
	return rs.Select(expandStringSlice(cfg.GetStringSlice("regimes"))...)
}

// expandStringSlice expands the environment variables in a slice of
// strings and drops empty strings.
func expandStringSlice(s []string) []string {
	var o []string
	for _, v := range s {
		if v = strings.TrimSpace(os.ExpandEnv(v)); v != "" {
			o = append(o, v)
		}
	}
	return o
}

func decodeJSON(s string, v interface{}) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return json.NewDecoder(strings.NewReader(s)).Decode(v)
}

// getParams returns parameter values from a JSON object or a
// configuration file table.
func getParams(varName string, cfg *viper.Viper) (algebra.Env, error) {
	o := make(algebra.Env)
	switch v := cfg.Get(varName).(type) {
	case nil:
	case string:
		m := make(map[string]interface{})
		if err := decodeJSON(v, &m); err != nil {
			return nil, fmt.Errorf("reldisp: configuration variable %s: %v", varName, err)
		}
		return toEnv(varName, m)
	case map[string]interface{}:
		return toEnv(varName, v)
	case map[string]float64:
		for k, f := range v {
			o[k] = f
		}
	default:
		return nil, fmt.Errorf("reldisp: invalid type for configuration variable %s: %#v", varName, v)
	}
	return o, nil
}

func toEnv(varName string, m map[string]interface{}) (algebra.Env, error) {
	o := make(algebra.Env, len(m))
	for k, v := range m {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("reldisp: configuration variable %s: parameter %s: %v", varName, k, err)
		}
		o[k] = f
	}
	return o, nil
}

// getFloats returns a list of numbers.
func getFloats(varName string, cfg *viper.Viper) ([]float64, error) {
	var o []float64
	for _, s := range expandStringSlice(cfg.GetStringSlice(varName)) {
		f, err := cast.ToFloat64E(s)
		if err != nil {
			return nil, fmt.Errorf("reldisp: configuration variable %s: %v", varName, err)
		}
		o = append(o, f)
	}
	return o, nil
}

// getEncoding returns the variable encodings from a JSON object or a
// configuration file table.
func getEncoding(varName string, cfg *viper.Viper) (map[string]ragged.Encoding, error) {
	raw := make(map[string]struct {
		DType    string
		Compress bool
	})
	switch v := cfg.Get(varName).(type) {
	case nil:
	case string:
		if err := decodeJSON(v, &raw); err != nil {
			return nil, fmt.Errorf("reldisp: configuration variable %s: %v", varName, err)
		}
	case map[string]interface{}:
		for name, e := range v {
			m, err := cast.ToStringMapE(e)
			if err != nil {
				return nil, fmt.Errorf("reldisp: configuration variable %s: variable %s: %v", varName, name, err)
			}
			r := raw[name]
			for k, val := range m {
				switch strings.ToLower(k) {
				case "dtype":
					r.DType = cast.ToString(val)
				case "compress":
					if r.Compress, err = cast.ToBoolE(val); err != nil {
						return nil, fmt.Errorf("reldisp: configuration variable %s: variable %s: %v", varName, name, err)
					}
				default:
					return nil, fmt.Errorf("reldisp: configuration variable %s: variable %s: unknown setting %s", varName, name, k)
				}
			}
			raw[name] = r
		}
	default:
		return nil, fmt.Errorf("reldisp: invalid type for configuration variable %s: %#v", varName, v)
	}
	o := make(map[string]ragged.Encoding, len(raw))
	for name, r := range raw {
		dt, err := ragged.ParseDType(r.DType)
		if err != nil {
			return nil, fmt.Errorf("reldisp: configuration variable %s: variable %s: %v", varName, name, err)
		}
		o[name] = ragged.Encoding{DType: dt, Compress: r.Compress}
	}
	return o, nil
}
