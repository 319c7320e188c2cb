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
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/upstream"
	"github.com/spatialmodel/upstream/raster"
)

// Drainage calculates the drainage area of every cell of the DEM in c and
// writes it to c.Output.
func Drainage(ctx context.Context, c *Config) error {
	d, err := newDomain(ctx, c, "drainage")
	if err != nil {
		return err
	}
	d.RunFuncs = []upstream.DomainManipulator{
		upstream.Fill(c.Fill),
		upstream.RankElevation(),
		upstream.InitAccumulators(),
		upstream.Route(),
		upstream.LogSummary(),
	}
	d.CleanupFuncs = []upstream.DomainManipulator{
		writeOutputs(ctx, output{c.Output, area}),
	}
	return run(d)
}

// Average calculates the upstream area-weighted average (or, if c.Sum is
// true, sum) of the input raster in c and writes it to c.Output.
func Average(ctx context.Context, c *Config) error {
	d, err := newDomain(ctx, c, "average")
	if err != nil {
		return err
	}
	aux, err := raster.Read(ctx, c.Input, d.Grid.Len())
	if err != nil {
		return err
	}
	d.InitFuncs = append(d.InitFuncs, upstream.LoadAuxiliary(aux))
	d.RunFuncs = []upstream.DomainManipulator{
		upstream.Fill(c.Fill),
		upstream.RankElevation(),
		upstream.InitAccumulators(),
		upstream.Route(),
		upstream.LogSummary(),
	}
	if !c.Sum {
		d.RunFuncs = append(d.RunFuncs, upstream.NormalizeAverage(c.Normalize))
	}
	d.CleanupFuncs = []upstream.DomainManipulator{
		writeOutputs(ctx, output{c.Output, weighted}),
	}
	return run(d)
}

// Condition removes pits and flats from the DEM in c and writes the
// result to c.Output, and the flow directions to c.Directions if it is
// set.
func Condition(ctx context.Context, c *Config) error {
	d, err := newDomain(ctx, c, "condition")
	if err != nil {
		return err
	}
	d.RunFuncs = []upstream.DomainManipulator{
		upstream.Fill(c.Fill),
	}
	outputs := []output{{c.Output, elevation}}
	if c.Directions != "" {
		outputs = append(outputs, output{c.Directions, directionCodes})
	}
	d.CleanupFuncs = []upstream.DomainManipulator{
		writeOutputs(ctx, outputs...),
	}
	return run(d)
}

// newDomain reads the grid and DEM specified in c.
func newDomain(ctx context.Context, c *Config, command string) (*upstream.Domain, error) {
	g, err := loadGrid(ctx, c)
	if err != nil {
		return nil, err
	}
	log := Log.WithFields(logrus.Fields{
		"command": command,
		"dem":     c.DEM,
	})
	log.WithFields(logrus.Fields{
		"nx":     g.Nx,
		"ny":     g.Ny,
		"dx":     g.Dx,
		"nodata": c.NoData,
	}).Debug("loading DEM")
	start := time.Now()
	elev, err := raster.Read(ctx, c.DEM, g.Len())
	if err != nil {
		return nil, err
	}
	log.WithField("duration", time.Since(start)).Debug("loaded DEM")
	return &upstream.Domain{
		Grid: g,
		Log:  log,
		InitFuncs: []upstream.DomainManipulator{
			upstream.LoadElevation(elev),
		},
	}, nil
}

// run runs d. The cleanup functions, which write the output, only run
// if the calculation succeeds.
func run(d *upstream.Domain) error {
	if err := d.Init(); err != nil {
		return err
	}
	if err := d.Run(); err != nil {
		return err
	}
	return d.Cleanup()
}

// output is a file to write and the field of the domain that goes in it.
type output struct {
	name  string
	field func(*upstream.Domain) []float32
}

func area(d *upstream.Domain) []float32 { return d.Area }
func weighted(d *upstream.Domain) []float32 { return d.Weighted }
func elevation(d *upstream.Domain) []float32 { return d.Elevation }

// writeOutputs returns a function that writes the outputs, each with a
// header describing the domain's grid. Nothing is committed unless every
// output was encoded.
func writeOutputs(ctx context.Context, outputs ...output) upstream.DomainManipulator {
	return func(d *upstream.Domain) error {
		h := raster.NewHeader(d.Grid)
		files := make([]raster.Output, len(outputs))
		for k, o := range outputs {
			files[k] = raster.Output{Name: o.name, Data: o.field(d), Header: h}
		}
		if err := raster.WriteAll(ctx, files...); err != nil {
			return fmt.Errorf("upstream: writing output: %v", err)
		}
		for _, o := range outputs {
			d.Log.WithField("file", o.name).Info("wrote output")
		}
		return nil
	}
}

// directionCodes returns the D8 direction code of every cell.
func directionCodes(d *upstream.Domain) []float32 {
	dirs := upstream.FlowDirections(d.Grid, d.Elevation)
	o := make([]float32, len(dirs))
	for i, dir := range dirs {
		o[i] = float32(dir)
	}
	return o
}
