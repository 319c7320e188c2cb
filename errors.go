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

package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned for invalid grid dimensions, spacing or
	// mismatched field sizes.
	ErrConfig = errors.New("upstream: invalid configuration")

	// ErrPit is returned when a cell reaches flow routing without a
	// downslope neighbor, which means the input was not conditioned.
	ErrPit = errors.New("upstream: topographic pit detected; input DEM must be hydrologically conditioned")

	// ErrOrder is returned when a cell drains into a cell that has
	// already been routed, meaning the elevation order is not a valid
	// topological order.
	ErrOrder = errors.New("upstream: elevation order is not topological")

	// ErrFillOverflow is returned when the conditioner work stack grows
	// beyond FillOptions.MaxPending.
	ErrFillOverflow = errors.New("upstream: fill work stack limit exceeded")

	// ErrFillPrecision is returned when the fill increment is too small
	// to raise a cell at float32 precision.
	ErrFillPrecision = errors.New("upstream: fill increment lost to float32 precision")
)

// PitError reports the cell at which flow routing found no
// downslope neighbor.
type PitError struct {
	Row, Col  int
	Elevation float32
}

func (e *PitError) Error() string {
	return fmt.Sprintf("%v (row %d, col %d, elevation %g)", ErrPit, e.Row, e.Col, e.Elevation)
}

// Unwrap allows errors.Is(err, ErrPit).
func (e *PitError) Unwrap() error { return ErrPit }
