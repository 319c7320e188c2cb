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
	"math"

	"gonum.org/v1/gonum/floats"
)

// Rank returns the flat indices of all grid cells ordered by
// non-decreasing elevation. The order of cells with equal elevation is
// unspecified. NaN elevations are ranked below everything else.
func Rank(g *Grid, elev []float32) ([]int, error) {
	if err := g.check("elevation", elev); err != nil {
		return nil, err
	}
	z := make([]float64, len(elev))
	for i, v := range elev {
		if isNaN32(v) {
			z[i] = math.Inf(-1)
			continue
		}
		z[i] = float64(v)
	}
	order := make([]int, len(z))
	floats.Argsort(z, order)
	return order, nil
}
