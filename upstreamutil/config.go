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


package upstreamutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/upstream"
	"github.com/spatialmodel/upstream/cloud"
	"github.com/spatialmodel/upstream/raster"
	"github.com/spf13/cast"
)

// Config holds the settings for one run of a command.
type Config struct {
	DEM        string
	Input      string // only used by average
	Output     string
	Directions string // only used by condition

	// Nx, Ny and Dx describe the grid. If all are zero, the grid is read
	// from the DEM's header.
	Nx, Ny int
	Dx     float64

	// NoData, if not empty, is the NoData value ("nan" or a number),
	// overriding the header.
	NoData string

	Sum       bool
	Fill      upstream.FillOptions
	Normalize upstream.NormalizeOptions
}

// checkConfig reads and validates the configuration in cfg for the named
// command.
func checkConfig(cfg *viper.Viper, command string) (*Config, error) {
	c := new(Config)
	var err error
	if c.DEM, err = checkInputFile("dem", cfg.GetString("dem")); err != nil {
		return nil, err
	}
	if c.Output, err = checkOutputFile("output", cfg.GetString("output")); err != nil {
		return nil, err
	}
	if d := cfg.GetString("directions"); command == "condition" && d != "" {
		if c.Directions, err = checkOutputFile("directions", d); err != nil {
			return nil, err
		}
	}
	if c.Nx, c.Ny, c.Dx, err = checkGrid(cfg.Get("nx"), cfg.Get("ny"), cfg.Get("dx")); err != nil {
		return nil, err
	}
	c.NoData = cast.ToString(cfg.Get("nodata"))
	if _, _, err := raster.ParseNoData(c.NoData); err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrConfig, err)
	}

	c.Fill.Stepwise = cfg.GetBool("stepwise-fill")
	if c.Fill.MaxPending, err = cast.ToIntE(cfg.Get("max-pending")); err != nil || c.Fill.MaxPending < 0 {
		return nil, fmt.Errorf("%w: max-pending must be a non-negative integer, have %v", upstream.ErrConfig, cfg.Get("max-pending"))
	}

	if command != "average" {
		return c, nil
	}
	if c.Input, err = checkInputFile("input", cfg.GetString("input")); err != nil {
		return nil, err
	}
	c.Sum = cfg.GetBool("sum")
	minArea, err := cast.ToFloat64E(cfg.Get("min-area"))
	if err != nil || minArea < 0 {
		return nil, fmt.Errorf("%w: min-area must be a non-negative number, have %v", upstream.ErrConfig, cfg.Get("min-area"))
	}
	c.Normalize = upstream.NormalizeOptions{
		MinArea:           float32(minArea),
		PositiveElevation: cfg.GetBool("positive-elevation"),
	}
	return c, nil
}

// checkGrid makes sure the grid is either fully specified or not at all.
func checkGrid(nxv, nyv, dxv interface{}) (nx, ny int, dx float64, err error) {
	if nx, err = cast.ToIntE(nxv); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: nx: %v", upstream.ErrConfig, err)
	}
	if ny, err = cast.ToIntE(nyv); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: ny: %v", upstream.ErrConfig, err)
	}
	if dx, err = cast.ToFloat64E(dxv); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: dx: %v", upstream.ErrConfig, err)
	}
	if nx == 0 && ny == 0 && dx == 0 {
		return 0, 0, 0, nil
	}
	if nx <= 0 || ny <= 0 || !(dx > 0) {
		return 0, 0, 0, fmt.Errorf("%w: nx, ny and dx must all be positive or all be omitted; have nx=%d, ny=%d, dx=%g",
			upstream.ErrConfig, nx, ny, dx)
	}
	return nx, ny, dx, nil
}

// checkInputFile makes sure that an input file is specified and expands
// any environment variables.
func checkInputFile(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("%w: you need to specify the %s file", upstream.ErrConfig, name)
	}
	return os.ExpandEnv(f), nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("%w: you need to specify the %s file", upstream.ErrConfig, name)
	}
	f = os.ExpandEnv(f)
	if cloud.IsHTTP(f) {
		return f, fmt.Errorf("%w: cannot write %s to %s", upstream.ErrConfig, name, f)
	}
	if cloud.IsBlob(f) {
		loc, err := cloud.ParseLocation(f)
		if err != nil {
			return f, err
		}
		bucket, err := loc.OpenBucket(context.TODO())
		if err != nil {
			return f, fmt.Errorf("upstream: error when checking %s location: %v", name, err)
		}
		bucket.Close()
		return f, nil
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("upstream: the %s directory doesn't exist: %v", name, err)
	}
	return f, nil
}

// loadGrid returns the grid given in c or, if none is given, the grid in
// the DEM's header.
func loadGrid(ctx context.Context, c *Config) (*upstream.Grid, error) {
	var g *upstream.Grid
	var err error
	if c.Nx == 0 {
		h, err := raster.ReadHeader(ctx, c.DEM)
		if err != nil {
			return nil, fmt.Errorf("upstream: the grid was not specified and could not be read from the DEM header: %v", err)
		}
		if g, err = h.Grid(); err != nil {
			return nil, err
		}
	} else if g, err = upstream.NewGrid(c.Nx, c.Ny, float32(c.Dx)); err != nil {
		return nil, err
	}
	v, ok, err := raster.ParseNoData(c.NoData)
	if err != nil {
		return nil, err
	}
	if ok {
		g.SetNoData(v)
	}
	return g, nil
}
