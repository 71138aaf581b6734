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

// Package reldisputil contains the command-line interface to RelDisp.
package reldisputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/reldisp"
	"github.com/spatialmodel/reldisp/report"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log receives progress messages from the commands.
var Log = logrus.New()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "RegimeFile",
			usage: `
              RegimeFile is the path to a TOML file with additional regime
              definitions. Regimes in the file replace built-in regimes with
              the same name.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of the log messages to print:
              debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "regimes",
			usage: `
              regimes lists the regimes to use. No regimes means all of them.`,
			shorthand:  "r",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "regime",
			usage: `
              regime is the regime to derive over time.`,
			defaultVal: "diffusive-asymptotic",
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags()},
		},
		{
			name: "params",
			usage: `
              params holds parameter values as a JSON object, for example
              {"t": 2, "k2": 0.5}. Each regime uses the values of the
              parameters it has, and its defaults for the rest.`,
			shorthand:  "p",
			defaultVal: map[string]float64{},
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), seriesCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "orders",
			usage: `
              orders lists additional moment orders n to derive <r^n> for.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags()},
		},
		{
			name: "timeout",
			usage: `
              timeout limits the time spent deriving each regime, for example
              30s. Quantities that are not finished in time are reported as
              unevaluated. Zero means no limit.`,
			defaultVal: "0s",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags()},
		},
		{
			name: "times",
			usage: `
              times lists the times to derive the regime at.`,
			defaultVal: []string{"0.1", "0.3", "1", "3", "10"},
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the path of the output file. For derive and series it
              can end in .txt or .xlsx, and empty means standard output. For
              downcast it is the NetCDF file to write.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags(), seriesCmd.Flags(), downcastCmd.Flags()},
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile is the path of a plot to create. The format is given
              by the extension: .png, .svg or .pdf.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{seriesCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "rmax",
			usage: `
              rmax is the largest separation to plot.`,
			defaultVal: 5.0,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "points",
			usage: `
              points is the number of separations to plot.`,
			defaultVal: 200,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "input",
			usage: `
              input is the path of the NetCDF file to read.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{downcastCmd.Flags(), unpackCmd.Flags()},
		},
		{
			name: "encoding",
			usage: `
              encoding gives the type each variable is converted to as a JSON
              object, for example {"lat": {"DType": "float32", "Compress": true}}.
              Valid types are float32, int32 and int16.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{downcastCmd.Flags()},
		},
		{
			name: "title",
			usage: `
              title replaces the title attribute of the output file. Empty
              keeps the title of the input file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{downcastCmd.Flags()},
		},
		{
			name: "variable",
			usage: `
              variable is the variable to print the trajectories of.
              Empty prints only the number of observations of each trajectory.`,
			shorthand:  "v",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{unpackCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("RELDISP")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string, map[string]float64:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(v)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	Log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	}

	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(regimesCmd)
	Root.AddCommand(deriveCmd)
	Root.AddCommand(seriesCmd)
	Root.AddCommand(plotCmd)
	Root.AddCommand(downcastCmd)
	Root.AddCommand(raggedCmd)
	raggedCmd.AddCommand(unpackCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("reldisp: problem reading configuration file: %v", err)
		}
	}
	lvl, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("reldisp: %v", err)
	}
	Log.Level = lvl
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "reldisp",
	Short: "Moments of closed-form relative-dispersion models.",
	Long: `RelDisp derives the normalization, moments, kurtosis and effective
diffusivity of closed-form probability densities for the separation of
particle pairs in two dimensions, for the diffusive, Garrett-Munk,
generalized power-law, Richardson and Lundgren regimes. It also converts
NetCDF trajectory datasets and ragged-array archives.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'RELDISP_var' where 'var' is
the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of RelDisp.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("RelDisp v%s\n", reldisp.Version)
	},
	DisableAutoGenTag: true,
}

var regimesCmd = &cobra.Command{
	Use:   "regimes",
	Short: "List the available regimes",
	Long: `regimes lists the built-in regimes and those in the RegimeFile, with
their kind and default parameter values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := loadRegimes(Cfg)
		if err != nil {
			return err
		}
		_, err = report.Regimes(rs).Tabbed(cmd.OutOrStdout())
		return err
	},
	DisableAutoGenTag: true,
}

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive the moments of one or more regimes",
	Long: `derive derives the normalization, the second and fourth moments, the
requested additional moments, the kurtosis, the effective diffusivity and the
growth exponent of each selected regime. The regimes are derived in parallel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := selectRegimes(Cfg)
		if err != nil {
			return err
		}
		params, err := getParams("params", Cfg)
		if err != nil {
			return err
		}
		orders, err := getFloats("orders", Cfg)
		if err != nil {
			return err
		}
		return Derive(context.Background(), cmd.OutOrStdout(), rs, params, orders,
			Cfg.GetDuration("timeout"), Cfg.GetString("output"), Log)
	},
	DisableAutoGenTag: true,
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Derive a regime over time",
	Long: `series derives a regime at each of the given times, and optionally plots
the mean square separation against time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := loadRegimes(Cfg)
		if err != nil {
			return err
		}
		r, err := rs.Get(Cfg.GetString("regime"))
		if err != nil {
			return err
		}
		params, err := getParams("params", Cfg)
		if err != nil {
			return err
		}
		times, err := getFloats("times", Cfg)
		if err != nil {
			return err
		}
		return Series(context.Background(), cmd.OutOrStdout(), r, params, times,
			Cfg.GetString("output"), Cfg.GetString("PlotFile"))
	},
	DisableAutoGenTag: true,
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot separation densities",
	Long:  `plot plots the separation density p(r) of each selected regime.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := selectRegimes(Cfg)
		if err != nil {
			return err
		}
		params, err := getParams("params", Cfg)
		if err != nil {
			return err
		}
		return Plot(context.Background(), rs, params, Cfg.GetFloat64("rmax"),
			Cfg.GetInt("points"), Cfg.GetString("PlotFile"))
	},
	DisableAutoGenTag: true,
}

var downcastCmd = &cobra.Command{
	Use:   "downcast",
	Short: "Reduce the precision of NetCDF variables",
	Long: `downcast reads a NetCDF file, converts the variables named in the
encoding to narrower types, and writes the result to a new file. Nothing is
written if any named variable is missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc, err := getEncoding("encoding", Cfg)
		if err != nil {
			return err
		}
		return Downcast(Cfg.GetString("input"), Cfg.GetString("output"), enc,
			Cfg.GetString("title"), Log)
	},
	DisableAutoGenTag: true,
}

var raggedCmd = &cobra.Command{
	Use:   "ragged",
	Short: "Work with ragged-array trajectory archives",
	Long: `ragged contains commands for NetCDF archives that store trajectories
of different lengths end to end along an observation dimension.`,
	DisableAutoGenTag: true,
}

var unpackCmd = &cobra.Command{
	Use:   "unpack",
	Short: "Print the trajectories of a ragged archive",
	Long: `unpack prints the number of observations of each trajectory in a
ragged archive and, if a variable is given, its values along each trajectory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Unpack(cmd.OutOrStdout(), Cfg.GetString("input"), Cfg.GetString("variable"), Log)
	},
	DisableAutoGenTag: true,
}
