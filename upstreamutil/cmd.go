/*
Copyright © 2026 the Upstream authors.
This file is part of Upstream.

Upstream is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Upstream is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Upstream.  If not, see <http://www.gnu.org/licenses/>.
*/


// Package upstreamutil contains the command-line interface to Upstream.
package upstreamutil

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/upstream"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log is the logger used by the commands.
var Log = logrus.New()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to Upstream.
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
			name: "log-level",
			usage: `
              log-level sets the logging level: debug, info, warn or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "dem",
			usage: `
              dem is the path to the digital elevation model: a flat
              row-major float32 raster in native byte order. It may be a
              local path, an http(s) URL, or a blob URL starting with
              file://, gs:// or s3://.`,
			shorthand:  "e",
			defaultVal: "dem.flt",
			flagsets:   []*pflag.FlagSet{drainageCmd.Flags(), averageCmd.Flags(), conditionCmd.Flags()},
		},
		{
			name: "input",
			usage: `
              input is the path to the raster whose upstream
              area-weighted average is calculated.`,
			shorthand:  "i",
			defaultVal: "input.flt",
			flagsets:   []*pflag.FlagSet{averageCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the path where the result raster is written. A
              TOML header describing the grid is written next to it, with
              the extension replaced by ".toml".`,
			shorthand:  "o",
			defaultVal: "output.flt",
			flagsets:   []*pflag.FlagSet{drainageCmd.Flags(), averageCmd.Flags(), conditionCmd.Flags()},
		},
		{
			name: "directions",
			usage: `
              directions, if set, is the path where the D8 flow direction
              code of every cell of the conditioned DEM is written
              (NW=1, N=2, NE=4, E=8, SE=16, S=32, SW=64, W=128 and 0 for
              boundary, NoData and undrained cells).`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{conditionCmd.Flags()},
		},
		{
			name: "nx",
			usage: `
              nx is the number of columns in the grid. If nx, ny and dx
              are all zero the grid is read from the DEM's header.`,
			shorthand:  "x",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{drainageCmd.Flags(), averageCmd.Flags(), conditionCmd.Flags()},
		},
		{
			name: "ny",
			usage: `
              ny is the number of rows in the grid.`,
			shorthand:  "y",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{drainageCmd.Flags(), averageCmd.Flags(), conditionCmd.Flags()},
		},
		{
			name: "dx",
			usage: `
              dx is the grid cell edge length. Drainage areas are in
              units of dx squared.`,
			shorthand:  "d",
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{drainageCmd.Flags(), averageCmd.Flags(), conditionCmd.Flags()},
		},
		{
			name: "nodata",
			usage: `
              nodata is the value marking missing DEM cells, or "nan".
              Leave empty to treat every cell as valid. When set it
              overrides the value in the DEM's header.`,
			shorthand:  "v",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{drainageCmd.Flags(), averageCmd.Flags(), conditionCmd.Flags()},
		},
		{
			name: "sum",
			usage: `
              sum outputs the upstream area-weighted sum instead of the
              average.`,
			shorthand:  "s",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{averageCmd.Flags()},
		},
		{
			name: "min-area",
			usage: `
              min-area is the drainage area a cell must exceed for its
              upstream sum to be converted into an average. Cells that do
              not keep the sum.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{averageCmd.Flags()},
		},
		{
			name: "positive-elevation",
			usage: `
              positive-elevation restricts averaging to cells with an
              elevation above zero. Other cells keep the upstream sum.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{averageCmd.Flags()},
		},
		{
			name: "stepwise-fill",
			usage: `
              stepwise-fill raises pits and flats in repeated small steps
              above their own elevation rather than directly above the
              lowest neighbor. It is slower but matches older tools.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{drainageCmd.Flags(), averageCmd.Flags(), conditionCmd.Flags()},
		},
		{
			name: "max-pending",
			usage: `
              max-pending limits the number of cells waiting to be
              re-examined while filling pits. Zero means no limit.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{drainageCmd.Flags(), averageCmd.Flags(), conditionCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("UPSTREAM")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(drainageCmd)
	Root.AddCommand(averageCmd)
	Root.AddCommand(conditionCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and configures logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("upstream: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("upstream: %v", err)
	}
	Log.SetLevel(level)
	Log.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "upstream",
	Short: "D8 drainage area and upstream averaging over a DEM.",
	Long: `Upstream routes flow over a digital elevation model (DEM) using the D8
steepest-descent model. It removes pits and flats from the DEM, then calculates
the drainage area of every cell or the area-weighted average of another raster
over the cells upstream of every cell.

Rasters are flat row-major float32 arrays in native byte order. Each output is
accompanied by a TOML header holding the grid dimensions, cell size and NoData
value, and that header is read when the grid is not given on the command line.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'UPSTREAM_var' where 'var' is the
name of the variable to be set. Paths may contain environment variables.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of Upstream.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("Upstream v%s\n", upstream.Version)
	},
	DisableAutoGenTag: true,
}

var drainageCmd = &cobra.Command{
	Use:   "drainage",
	Short: "Calculate drainage area.",
	Long: `drainage conditions the DEM and calculates the drainage area of every
cell: the area of the cell plus that of every cell whose flow passes through it.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := checkConfig(Cfg, "drainage")
		if err != nil {
			return err
		}
		return Drainage(context.Background(), cfg)
	},
}

var averageCmd = &cobra.Command{
	Use:   "average",
	Short: "Calculate upstream area-weighted averages.",
	Long: `average conditions the DEM and calculates, for every cell, the
area-weighted average of the input raster over the cell and all cells upstream
of it. With --sum the area-weighted sum is written instead.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := checkConfig(Cfg, "average")
		if err != nil {
			return err
		}
		return Average(context.Background(), cfg)
	},
}

var conditionCmd = &cobra.Command{
	Use:   "condition",
	Short: "Remove pits and flats from a DEM.",
	Long: `condition raises every pit and flat in the DEM until each interior cell
drains to a lower neighbor, and writes the conditioned DEM. It can also write
the D8 flow direction of every cell.`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := checkConfig(Cfg, "condition")
		if err != nil {
			return err
		}
		return Condition(context.Background(), cfg)
	},
}
