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

// FillIncrement is the amount a pit or flat cell is raised above its
// lowest neighbor.
const FillIncrement float32 = 0.01

// fillOrder lists the positions in the Neighbors array in the order
// the neighbors of a raised cell are re-examined: N, S, E, W, NE, SE,
// SW, NW.
var fillOrder = [8]int{1, 5, 3, 7, 2, 4, 6, 0}

// FillOptions control the hydrological conditioner.
type FillOptions struct {
	// MaxPending limits the number of cells waiting to be re-examined.
	// Zero means no limit other than the number of cells in the grid.
	MaxPending int

	// Stepwise raises a pit by FillIncrement above its own elevation,
	// repeatedly, instead of directly to FillIncrement above its lowest
	// neighbor.
	Stepwise bool
}

// FillStats summarizes the work done by Condition.
type FillStats struct {
	Raised     int     // number of distinct cells raised
	Raises     int     // total number of raise operations
	MaxRaise   float32 // largest total raise of a single cell
	MaxPending int     // high-water mark of the work stack
}

// Condition removes pits and flats from elev in place so that every
// interior cell that is not NoData has at least one neighbor with a
// strictly lower elevation or a NoData neighbor to drain into. Cells are
// visited in row-major order. When a cell is raised, the cell and its
// eight neighbors are examined again; the pending cells are held on an
// explicit stack in the same order a depth-first recursion would visit
// them.
//
// A cell is never pending twice: pushing a pending cell moves it to the
// top of the stack, where the recursion would examine it next. The stale
// visit further down could only find the cell already conditioned.
func Condition(g *Grid, elev []float32, opts FillOptions) (FillStats, error) {
	var stats FillStats
	if err := g.check("elevation", elev); err != nil {
		return stats, err
	}
	before := make(map[int]float32)
	stack := newPending(g.Len())
	for i := 0; i < g.Len(); i++ {
		if !g.active(elev, i) {
			continue
		}
		stack.push(i)
		for stack.len() > 0 {
			c := stack.pop()
			if !g.active(elev, c) {
				continue
			}
			nb := g.Neighbors(c)
			if g.noDataNeighbor(elev, nb) >= 0 {
				continue
			}
			min := elev[c]
			for _, n := range nb {
				if elev[n] < min {
					min = elev[n]
				}
			}
			if !(elev[c] <= min) {
				continue
			}

			// The cell is a pit or flat.
			if opts.Stepwise {
				min = elev[c]
			} else {
				min = lowestNeighbor(elev, nb, min)
			}
			v := min + FillIncrement
			if !(v > elev[c]) {
				r, col := g.RowCol(c)
				return stats, fmt.Errorf("%w at row %d, col %d (elevation %g)", ErrFillPrecision, r, col, elev[c])
			}
			if _, ok := before[c]; !ok {
				before[c] = elev[c]
			}
			elev[c] = v
			stats.Raises++

			for k := len(fillOrder) - 1; k >= 0; k-- {
				if n := nb[fillOrder[k]]; g.active(elev, n) {
					stack.push(n)
				}
			}
			stack.push(c)
			if stack.len() > stats.MaxPending {
				stats.MaxPending = stack.len()
			}
			if opts.MaxPending > 0 && stack.len() > opts.MaxPending {
				return stats, fmt.Errorf("%w (%d cells)", ErrFillOverflow, opts.MaxPending)
			}
		}
	}
	stats.Raised = len(before)
	for c, z := range before {
		if d := elev[c] - z; d > stats.MaxRaise {
			stats.MaxRaise = d
		}
	}
	return stats, nil
}

// lowestNeighbor returns the minimum elevation among the neighbors in
// nb. def is returned if every neighbor is NaN.
func lowestNeighbor(elev []float32, nb [8]int, def float32) float32 {
	min := float32(0)
	found := false
	for _, n := range nb {
		if v := elev[n]; !isNaN32(v) && (!found || v < min) {
			min = v
			found = true
		}
	}
	if !found {
		return def
	}
	return min
}

// pending is a LIFO stack of flat cell indices that holds each cell at
// most once. It is a doubly linked list threaded through per-cell
// arrays, so its size is bounded by the grid.
type pending struct {
	below, above []int // neighbors in the stack, -1 at the ends
	in           []bool
	top, n       int
}

func newPending(cells int) *pending {
	return &pending{
		below: make([]int, cells),
		above: make([]int, cells),
		in:    make([]bool, cells),
		top:   -1,
	}
}

func (p *pending) len() int { return p.n }

// push puts c on top of the stack, moving it there if it is already
// pending.
func (p *pending) push(c int) {
	if p.in[c] {
		p.remove(c)
	}
	p.below[c] = p.top
	p.above[c] = -1
	if p.top >= 0 {
		p.above[p.top] = c
	}
	p.top = c
	p.in[c] = true
	p.n++
}

// pop removes and returns the top of the stack, which must not be empty.
func (p *pending) pop() int {
	c := p.top
	p.remove(c)
	return c
}

func (p *pending) remove(c int) {
	b, a := p.below[c], p.above[c]
	if b >= 0 {
		p.above[b] = a
	}
	if a >= 0 {
		p.below[a] = b
	} else {
		p.top = b
	}
	p.in[c] = false
	p.n--
}
