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

import "gonum.org/v1/gonum/floats"

// Summary holds whole-grid drainage statistics.
type Summary struct {
	Cells int // number of non-NoData cells

	// TotalArea is the area of all non-NoData cells.
	TotalArea float64

	// OutletArea is the drainage area delivered to the boundary cells.
	// Without NoData cells it equals TotalArea.
	OutletArea float64

	MaxArea float64 // largest drainage area of any cell
}

// Summary computes drainage statistics from the routed area field.
func (d *Domain) Summary() Summary {
	var s Summary
	if d.Area == nil {
		return s
	}
	own := d.Grid.Dx * d.Grid.Dx
	area := make([]float64, 0, len(d.Area))
	var outlets []float64
	for i, a := range d.Area {
		if d.Grid.IsNoData(d.Elevation[i]) {
			continue
		}
		area = append(area, float64(a))
		if d.Grid.IsBoundary(i) {
			outlets = append(outlets, float64(a))
		}
	}
	s.Cells = len(area)
	if s.Cells == 0 {
		return s
	}
	s.TotalArea = float64(s.Cells) * float64(own)
	s.OutletArea = floats.Sum(outlets)
	s.MaxArea = floats.Max(area)
	return s
}
