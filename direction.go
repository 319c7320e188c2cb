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

// Direction is a D8 flow direction. The compass names assume that the
// row index increases to the north and the column index to the east.
type Direction uint8

// D8 direction codes, in scan order.
const (
	NoDirection Direction = 0
	NW          Direction = 1
	N           Direction = 2
	NE          Direction = 4
	E           Direction = 8
	SE          Direction = 16
	S           Direction = 32
	SW          Direction = 64
	W           Direction = 128
)

// scanOrder gives the directions matching the positions of the
// Neighbors array.
var scanOrder = [8]Direction{NW, N, NE, E, SE, S, SW, W}

// invSqrt2 scales the elevation drop to a diagonal neighbor, which is
// √2 cell widths away.
const invSqrt2 float32 = 0.707106781186

func (d Direction) String() string {
	switch d {
	case NW:
		return "NW"
	case N:
		return "N"
	case NE:
		return "NE"
	case E:
		return "E"
	case SE:
		return "SE"
	case S:
		return "S"
	case SW:
		return "SW"
	case W:
		return "W"
	case NoDirection:
		return "none"
	}
	return "invalid"
}

// position returns the index of d in scanOrder, or -1.
func (d Direction) position() int {
	for k, s := range scanOrder {
		if s == d {
			return k
		}
	}
	return -1
}

// diagonal reports whether the k-th scan position is a diagonal.
func diagonal(k int) bool { return k%2 == 0 }

// FlowDirection returns the direction of the steepest downhill neighbor
// of cell i, or NoDirection if no neighbor is strictly lower. Ties
// between equally steep neighbors go to the first in scan order
// (NW, N, NE, E, SE, S, SW, W).
//
// A cell bordering NoData drains into it whatever the sentinel value:
// the first cardinal NoData neighbor in scan order is chosen, or else
// the first diagonal one.
func FlowDirection(g *Grid, elev []float32, i int) Direction {
	nb := g.Neighbors(i)
	if k := g.noDataNeighbor(elev, nb); k >= 0 {
		return scanOrder[k]
	}
	z := elev[i]
	var down float32
	dir := NoDirection
	for k, n := range nb {
		slope := elev[n] - z
		if diagonal(k) {
			slope = invSqrt2 * slope
		}
		if slope < down {
			down = slope
			dir = scanOrder[k]
		}
	}
	return dir
}

// Downslope returns the flat index of the neighbor of cell i in
// direction d, or -1 for NoDirection.
func Downslope(g *Grid, i int, d Direction) int {
	k := d.position()
	if k < 0 {
		return -1
	}
	return g.Neighbors(i)[k]
}

// FlowDirections returns the D8 direction of every cell. Boundary and
// NoData cells get NoDirection.
func FlowDirections(g *Grid, elev []float32) []Direction {
	dirs := make([]Direction, g.Len())
	for i := range dirs {
		if g.active(elev, i) {
			dirs[i] = FlowDirection(g, elev, i)
		}
	}
	return dirs
}
