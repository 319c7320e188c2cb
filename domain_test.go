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
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
)

func TestDomainDrainage(t *testing.T) {
	g := mustGrid(t, 6, 4, 2)
	elev := rampDEM(g)
	elev[g.Index(1, 2)] = 1 // pit

	var buf bytes.Buffer
	log := logrus.New()
	log.Out = &buf

	d := &Domain{
		Grid: g,
		Log:  log,
		InitFuncs: []DomainManipulator{
			LoadElevation(elev),
		},
		RunFuncs: []DomainManipulator{
			Fill(FillOptions{}),
			RankElevation(),
			InitAccumulators(),
			Route(),
			LogSummary(),
		},
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}
	if d.FillStats.Raised != 1 {
		t.Errorf("want 1 raised cell but have %d", d.FillStats.Raised)
	}
	if d.Weighted != nil {
		t.Error("no auxiliary raster was loaded but a weighted field exists")
	}
	want := Summary{Cells: 24, TotalArea: 96, OutletArea: 96, MaxArea: 20}
	if diff := pretty.Diff(d.Summary(), want); len(diff) > 0 {
		t.Errorf("summary: %v", diff)
	}
	for _, msg := range []string{"conditioned elevation", "routed flow", "drainage summary"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("log is missing %q:\n%s", msg, buf.String())
		}
	}
}

func TestDomainAverage(t *testing.T) {
	g := mustGrid(t, 6, 4, 1)
	elev := rampDEM(g)
	aux := make([]float32, g.Len())
	for i := range aux {
		_, c := g.RowCol(i)
		aux[i] = float32(c)
	}
	d := &Domain{
		Grid: g,
		InitFuncs: []DomainManipulator{
			LoadElevation(elev),
			LoadAuxiliary(aux),
		},
		RunFuncs: []DomainManipulator{
			Fill(FillOptions{}),
			RankElevation(),
			InitAccumulators(),
			Route(),
			NormalizeAverage(NormalizeOptions{}),
		},
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}
	// Interior cell (1, 3) drains columns 1 to 3, with mean column 2.
	if have := d.Weighted[g.Index(1, 3)]; have != 2 {
		t.Errorf("want upstream average 2 but have %v", have)
	}
	// The east boundary receives columns 1 to 4 plus itself.
	if have := d.Weighted[g.Index(2, 5)]; have != 3 {
		t.Errorf("want upstream average 3 but have %v", have)
	}
	if d.Unnormalized != 0 {
		t.Errorf("want no unnormalized cells but have %d", d.Unnormalized)
	}
}

func TestDomainErrors(t *testing.T) {
	g := mustGrid(t, 3, 3, 1)
	t.Run("size", func(t *testing.T) {
		d := &Domain{Grid: g, InitFuncs: []DomainManipulator{LoadElevation(make([]float32, 4))}}
		if err := d.Init(); !errors.Is(err, ErrConfig) {
			t.Errorf("want ErrConfig but have %v", err)
		}
	})
	t.Run("nan", func(t *testing.T) {
		elev := flat3x3(1)
		elev[4] = float32(math.NaN())
		d := &Domain{Grid: g, InitFuncs: []DomainManipulator{LoadElevation(elev)}}
		if err := d.Init(); !errors.Is(err, ErrConfig) {
			t.Errorf("want ErrConfig but have %v", err)
		}
	})
	t.Run("pit", func(t *testing.T) {
		elev := flat3x3(5)
		elev[4] = 1
		d := &Domain{
			Grid:      g,
			InitFuncs: []DomainManipulator{LoadElevation(elev)},
			RunFuncs:  []DomainManipulator{RankElevation(), InitAccumulators(), Route()},
		}
		if err := d.Init(); err != nil {
			t.Fatal(err)
		}
		if err := d.Run(); !errors.Is(err, ErrPit) {
			t.Errorf("want ErrPit but have %v", err)
		}
	})
	t.Run("no auxiliary", func(t *testing.T) {
		d := &Domain{
			Grid:      g,
			InitFuncs: []DomainManipulator{LoadElevation(flat3x3(1))},
			RunFuncs:  []DomainManipulator{NormalizeAverage(LegacyNormalizeOptions)},
		}
		if err := d.Init(); err != nil {
			t.Fatal(err)
		}
		if err := d.Run(); !errors.Is(err, ErrConfig) {
			t.Errorf("want ErrConfig but have %v", err)
		}
	})
	t.Run("route first", func(t *testing.T) {
		d := &Domain{Grid: g, RunFuncs: []DomainManipulator{Route()}}
		if err := d.Init(); err != nil {
			t.Fatal(err)
		}
		if err := d.Run(); !errors.Is(err, ErrConfig) {
			t.Errorf("want ErrConfig but have %v", err)
		}
	})
}
