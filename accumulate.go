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

import "fmt"

// InitArea returns the initial drainage area of every cell: the cell
// area dx², or the NoData sentinel where elev is NoData.
func InitArea(g *Grid, elev []float32) []float32 {
	a := make([]float32, g.Len())
	cell := g.Dx * g.Dx
	for i := range a {
		if g.IsNoData(elev[i]) {
			a[i] = g.NoData
			continue
		}
		a[i] = cell
	}
	return a
}

// InitWeighted returns the initial weighted value of every cell:
// dx² times the auxiliary value, or the NoData sentinel where elev is
// NoData. Auxiliary values are used as given; only the elevation decides
// whether a cell is excluded.
func InitWeighted(g *Grid, elev, aux []float32) ([]float32, error) {
	if err := g.check("auxiliary input", aux); err != nil {
		return nil, err
	}
	w := make([]float32, g.Len())
	for i := range w {
		if g.IsNoData(elev[i]) {
			w[i] = g.NoData
			continue
		}
		w[i] = g.Dx * g.Dx * aux[i]
	}
	return w, nil
}

// Accumulate routes the values in fields downslope. Cells are visited
// from the last entry of order (highest elevation) to the first; each
// interior, non-NoData cell adds its current value of every field to its
// D8 downslope neighbor. Once all cells are routed, each field holds, in
// every cell, the sum of the initial values of all cells draining
// through it, itself included.
//
// Flow into a NoData cell is absorbed and leaves the sentinel unchanged.
// A cell without a downslope neighbor results in a *PitError.
func Accumulate(g *Grid, elev []float32, order []int, fields ...[]float32) error {
	if err := g.check("elevation", elev); err != nil {
		return err
	}
	if len(order) != g.Len() {
		return fmt.Errorf("%w: order has %d entries but the grid has %d cells", ErrConfig, len(order), g.Len())
	}
	for k, f := range fields {
		if err := g.check(fmt.Sprintf("field %d", k), f); err != nil {
			return err
		}
	}
	routed := make([]bool, g.Len())
	for t := len(order) - 1; t >= 0; t-- {
		i := order[t]
		if !g.active(elev, i) {
			continue
		}
		dir := FlowDirection(g, elev, i)
		if dir == NoDirection {
			r, c := g.RowCol(i)
			return &PitError{Row: r, Col: c, Elevation: elev[i]}
		}
		target := Downslope(g, i, dir)
		if routed[target] {
			r, c := g.RowCol(i)
			tr, tc := g.RowCol(target)
			return fmt.Errorf("%w: cell (%d, %d) drains %v into (%d, %d), which was routed first",
				ErrOrder, r, c, dir, tr, tc)
		}
		routed[i] = true
		if g.IsNoData(elev[target]) {
			continue
		}
		for _, f := range fields {
			f[target] += f[i]
		}
	}
	return nil
}
