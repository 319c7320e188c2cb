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

// NormalizeOptions guard the division of the upstream sum by the
// drainage area.
type NormalizeOptions struct {
	// MinArea is the drainage area a cell must exceed to be normalized.
	MinArea float32

	// PositiveElevation additionally requires a positive elevation.
	PositiveElevation bool
}

// LegacyNormalizeOptions skips cells at or below sea level as well as
// cells with negligible drainage area.
var LegacyNormalizeOptions = NormalizeOptions{MinArea: 0.1, PositiveElevation: true}

// Normalize divides the accumulated weighted sum by the drainage area in
// every cell that is not NoData and passes the guard in opts, turning the
// sum into an area-weighted upstream average. Cells failing the guard keep
// their raw sum. It returns the number of cells left unnormalized.
func Normalize(g *Grid, elev, weighted, area []float32, opts NormalizeOptions) (int, error) {
	if err := g.check("elevation", elev); err != nil {
		return 0, err
	}
	if err := g.check("weighted sum", weighted); err != nil {
		return 0, err
	}
	if err := g.check("area", area); err != nil {
		return 0, err
	}
	var skipped int
	for i := range weighted {
		if g.IsNoData(elev[i]) {
			continue
		}
		if !(area[i] > opts.MinArea) || (opts.PositiveElevation && !(elev[i] > 0)) {
			skipped++
			continue
		}
		weighted[i] /= area[i]
	}
	return skipped, nil
}
