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


// Command upstream calculates D8 drainage areas and upstream
// area-weighted averages over a digital elevation model.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/upstream/upstreamutil"
)

func main() {
	if err := upstreamutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
