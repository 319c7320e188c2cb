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
	"fmt"
	"math"
)

// Grid describes a regular raster of Ny rows by Nx columns with square
// cells of edge length Dx. Cells are addressed either by (row, col) or by
// their flat row-major index; both are 0-based.
//
// The first and last rows and columns are boundary cells. Boundary cells
// are never conditioned and never route flow; they act as outlets.
type Grid struct {
	Nx, Ny int     // number of columns and rows
	Dx     float32 // cell edge length

	// NoData is the sentinel marking cells excluded from processing.
	// It is only used when HasNoData is true.
	NoData    float32
	HasNoData bool

	// Neighbor index tables with clamped ("open") boundaries:
	// rowUp[r] = r+1 except on the last row, which maps to itself, etc.
	rowUp, rowDown []int
	colUp, colDown []int
}

// NewGrid returns a grid with nx columns, ny rows and cell size dx.
func NewGrid(nx, ny int, dx float32) (*Grid, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: grid dimensions must be positive (nx=%d, ny=%d)", ErrConfig, nx, ny)
	}
	if !(dx > 0) || math.IsInf(float64(dx), 0) {
		return nil, fmt.Errorf("%w: cell size must be positive and finite (dx=%g)", ErrConfig, dx)
	}
	g := &Grid{Nx: nx, Ny: ny, Dx: dx}
	g.rowUp, g.rowDown = neighborTable(ny)
	g.colUp, g.colDown = neighborTable(nx)
	return g, nil
}

// neighborTable returns the "up" (index+1) and "down" (index-1)
// neighbors of every index in [0, n), clamped so that the outward
// neighbor of an edge index is the index itself.
func neighborTable(n int) (up, down []int) {
	up = make([]int, n)
	down = make([]int, n)
	for i := 0; i < n; i++ {
		up[i] = i + 1
		down[i] = i - 1
	}
	up[n-1] = n - 1
	down[0] = 0
	return up, down
}

// SetNoData enables v as the NoData sentinel.
func (g *Grid) SetNoData(v float32) {
	g.NoData = v
	g.HasNoData = true
}

// Len returns the number of cells in the grid.
func (g *Grid) Len() int { return g.Nx * g.Ny }

// Index returns the flat row-major index of (row, col).
func (g *Grid) Index(row, col int) int { return row*g.Nx + col }

// RowCol returns the row and column of flat index i.
func (g *Grid) RowCol(i int) (row, col int) { return i / g.Nx, i % g.Nx }

// IsBoundary returns whether flat index i lies on the first or last
// row or column.
func (g *Grid) IsBoundary(i int) bool {
	r, c := g.RowCol(i)
	return r == 0 || c == 0 || r == g.Ny-1 || c == g.Nx-1
}

// IsNoData returns whether v equals the NoData sentinel. The comparison
// is exact; a NaN sentinel matches any NaN.
func (g *Grid) IsNoData(v float32) bool {
	if !g.HasNoData {
		return false
	}
	if v == g.NoData {
		return true
	}
	return isNaN32(g.NoData) && isNaN32(v)
}

// active returns whether cell i takes part in conditioning and routing.
func (g *Grid) active(elev []float32, i int) bool {
	return !g.IsBoundary(i) && !g.IsNoData(elev[i])
}

// noDataNeighbor returns the scan position in nb of the NoData neighbor
// that a cell drains into, or -1 if no neighbor is NoData. Cardinal
// neighbors take precedence over diagonal ones; otherwise the first in
// scan order wins.
func (g *Grid) noDataNeighbor(elev []float32, nb [8]int) int {
	if !g.HasNoData {
		return -1
	}
	k := -1
	for j, n := range nb {
		if !g.IsNoData(elev[n]) {
			continue
		}
		if !diagonal(j) {
			return j
		}
		if k < 0 {
			k = j
		}
	}
	return k
}

// Neighbors returns the flat indices of the eight neighbors of cell i in
// D8 scan order: NW, N, NE, E, SE, S, SW, W. Neighbors of boundary cells
// are clamped and may repeat i.
func (g *Grid) Neighbors(i int) [8]int {
	r, c := g.RowCol(i)
	up, down := g.rowUp[r], g.rowDown[r]
	right, left := g.colUp[c], g.colDown[c]
	return [8]int{
		g.Index(up, left),
		g.Index(up, c),
		g.Index(up, right),
		g.Index(r, right),
		g.Index(down, right),
		g.Index(down, c),
		g.Index(down, left),
		g.Index(r, left),
	}
}

// check returns an error if a field does not match the grid size.
func (g *Grid) check(name string, field []float32) error {
	if len(field) != g.Len() {
		return fmt.Errorf("%w: %s has %d cells but the grid has %d (%d×%d)",
			ErrConfig, name, len(field), g.Len(), g.Ny, g.Nx)
	}
	return nil
}

func isNaN32(v float32) bool { return v != v }
