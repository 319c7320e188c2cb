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

// Package upstream routes flow over a digital elevation model (DEM)
// using the D8 steepest-descent model. It conditions the terrain to remove
// pits and flats, orders cells by elevation, and accumulates drainage
// area and an area-weighted upstream sum or average of an auxiliary
// raster.
package upstream

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/sirupsen/logrus"
)

// Version gives the version number.
const Version = "1.0.0"

// Domain holds the state of a single flow-routing run. It exclusively
// owns its fields; manipulators operate on them in place.
type Domain struct {
	Grid *Grid

	Elevation []float32 // mutated by conditioning
	Auxiliary []float32 // optional raster to be averaged
	Area      []float32 // drainage area
	Weighted  []float32 // upstream weighted sum, then average
	Order     []int     // cell indices by non-decreasing elevation

	FillStats    FillStats
	Unnormalized int // cells that failed the normalization guard

	// Log receives progress messages. If nil, messages are discarded.
	Log logrus.FieldLogger

	// InitFuncs are run by Init, RunFuncs by Run and
	// CleanupFuncs by Cleanup.
	InitFuncs    []DomainManipulator
	RunFuncs     []DomainManipulator
	CleanupFuncs []DomainManipulator
}

// DomainManipulator is a function that operates on a Domain.
type DomainManipulator func(d *Domain) error

// Init runs the initialization functions.
func (d *Domain) Init() error {
	if d.Log == nil {
		l := logrus.New()
		l.Out = ioutil.Discard
		d.Log = l
	}
	return d.apply(d.InitFuncs)
}

// Run runs the routing functions.
func (d *Domain) Run() error { return d.apply(d.RunFuncs) }

// Cleanup runs the cleanup functions.
func (d *Domain) Cleanup() error { return d.apply(d.CleanupFuncs) }

func (d *Domain) apply(funcs []DomainManipulator) error {
	for _, f := range funcs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// LoadElevation sets the elevation field. NaN elevations are only
// allowed when the grid's NoData sentinel is NaN.
func LoadElevation(elev []float32) DomainManipulator {
	return func(d *Domain) error {
		if d.Grid == nil {
			return fmt.Errorf("%w: domain has no grid", ErrConfig)
		}
		if err := d.Grid.check("elevation", elev); err != nil {
			return err
		}
		for i, v := range elev {
			if isNaN32(v) && !d.Grid.IsNoData(v) {
				r, c := d.Grid.RowCol(i)
				return fmt.Errorf("%w: NaN elevation at row %d, col %d without a NaN NoData value", ErrConfig, r, c)
			}
		}
		d.Elevation = elev
		return nil
	}
}

// LoadAuxiliary sets the raster whose upstream average will be computed.
func LoadAuxiliary(aux []float32) DomainManipulator {
	return func(d *Domain) error {
		if err := d.Grid.check("auxiliary input", aux); err != nil {
			return err
		}
		d.Auxiliary = aux
		return nil
	}
}

// Fill conditions the elevation field.
func Fill(opts FillOptions) DomainManipulator {
	return func(d *Domain) error {
		start := time.Now()
		stats, err := Condition(d.Grid, d.Elevation, opts)
		d.FillStats = stats
		if err != nil {
			return err
		}
		d.Log.WithFields(logrus.Fields{
			"raised":      stats.Raised,
			"raises":      stats.Raises,
			"max_raise":   stats.MaxRaise,
			"max_pending": stats.MaxPending,
			"duration":    time.Since(start),
		}).Info("conditioned elevation")
		return nil
	}
}

// RankElevation computes the elevation order. It must run after Fill.
func RankElevation() DomainManipulator {
	return func(d *Domain) error {
		order, err := Rank(d.Grid, d.Elevation)
		if err != nil {
			return err
		}
		d.Order = order
		return nil
	}
}

// InitAccumulators sets each cell's own contribution: area, and the
// weighted value when an auxiliary raster was loaded.
func InitAccumulators() DomainManipulator {
	return func(d *Domain) error {
		d.Area = InitArea(d.Grid, d.Elevation)
		if d.Auxiliary == nil {
			return nil
		}
		w, err := InitWeighted(d.Grid, d.Elevation, d.Auxiliary)
		if err != nil {
			return err
		}
		d.Weighted = w
		return nil
	}
}

// Route accumulates the area and, if present, the weighted sum downslope.
func Route() DomainManipulator {
	return func(d *Domain) error {
		if d.Order == nil || d.Area == nil {
			return fmt.Errorf("%w: routing requires ranked elevation and initialized accumulators", ErrConfig)
		}
		start := time.Now()
		fields := [][]float32{d.Area}
		if d.Weighted != nil {
			fields = append(fields, d.Weighted)
		}
		if err := Accumulate(d.Grid, d.Elevation, d.Order, fields...); err != nil {
			return err
		}
		d.Log.WithField("duration", time.Since(start)).Info("routed flow")
		return nil
	}
}

// NormalizeAverage converts the upstream weighted sum into an upstream
// average.
func NormalizeAverage(opts NormalizeOptions) DomainManipulator {
	return func(d *Domain) error {
		if d.Weighted == nil {
			return fmt.Errorf("%w: no auxiliary raster to average", ErrConfig)
		}
		n, err := Normalize(d.Grid, d.Elevation, d.Weighted, d.Area, opts)
		if err != nil {
			return err
		}
		d.Unnormalized = n
		if n > 0 {
			d.Log.WithFields(logrus.Fields{
				"cells":    n,
				"min_area": opts.MinArea,
			}).Warn("cells below the area guard were left as upstream sums")
		}
		return nil
	}
}

// LogSummary logs the drainage area summary.
func LogSummary() DomainManipulator {
	return func(d *Domain) error {
		s := d.Summary()
		d.Log.WithFields(logrus.Fields{
			"cells":       s.Cells,
			"max_area":    s.MaxArea,
			"outlet_area": s.OutletArea,
			"total_area":  s.TotalArea,
		}).Info("drainage summary")
		return nil
	}
}
