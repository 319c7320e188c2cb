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


package raster

import (
	"context"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/upstream"
	"github.com/spatialmodel/upstream/cloud"
	"github.com/spf13/cast"
)

// Header describes the grid of a raster.
type Header struct {
	Nx int     `toml:"nx"`
	Ny int     `toml:"ny"`
	Dx float64 `toml:"dx"`

	// NoData is the missing value sentinel: empty for none, a number,
	// or "nan".
	NoData string `toml:"nodata,omitempty"`
}

// HeaderPath returns the location of the header for the raster at
// name: the same name with its extension replaced by ".toml".
func HeaderPath(name string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ".toml"
}

// ParseNoData converts a NoData setting to a sentinel. ok is false if s
// is empty.
func ParseNoData(s string) (v float32, ok bool, err error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return 0, false, nil
	case "nan":
		return float32(math.NaN()), true, nil
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, false, fmt.Errorf("raster: invalid NoData value %q", s)
	}
	return float32(f), true, nil
}

// Grid returns the grid described by h.
func (h Header) Grid() (*upstream.Grid, error) {
	g, err := upstream.NewGrid(h.Nx, h.Ny, float32(h.Dx))
	if err != nil {
		return nil, err
	}
	v, ok, err := ParseNoData(h.NoData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", upstream.ErrConfig, err)
	}
	if ok {
		g.SetNoData(v)
	}
	return g, nil
}

// NewHeader returns the header describing g.
func NewHeader(g *upstream.Grid) Header {
	// Shortest representation that round trips through float32.
	dx, _ := strconv.ParseFloat(strconv.FormatFloat(float64(g.Dx), 'g', -1, 32), 64)
	h := Header{Nx: g.Nx, Ny: g.Ny, Dx: dx}
	if g.HasNoData {
		if g.NoData != g.NoData {
			h.NoData = "nan"
		} else {
			h.NoData = strconv.FormatFloat(float64(g.NoData), 'g', -1, 32)
		}
	}
	return h
}

// ReadHeader reads the header for the raster at name.
func ReadHeader(ctx context.Context, name string) (Header, error) {
	var h Header
	hp := HeaderPath(name)
	r, err := cloud.Open(ctx, hp)
	if err != nil {
		return h, err
	}
	defer r.Close()
	if _, err := toml.DecodeReader(r, &h); err != nil {
		return h, fmt.Errorf("raster: reading header %s: %v", hp, err)
	}
	return h, nil
}

// WriteHeader writes h as the header for the raster at name.
func WriteHeader(ctx context.Context, name string, h Header) error {
	hp := HeaderPath(name)
	w, err := cloud.Create(ctx, hp)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(w).Encode(h); err != nil {
		w.Abort()
		return fmt.Errorf("raster: writing header %s: %v", hp, err)
	}
	return w.Close()
}

// Output is a raster to be written by WriteAll.
type Output struct {
	Name   string
	Data   []float32
	Header Header
}

// WriteAll writes every output and its header. All files are encoded
// before any is committed, so a failure while creating or encoding one
// of them leaves none behind.
func WriteAll(ctx context.Context, outputs ...Output) error {
	var writers []*cloud.Writer
	abort := func() {
		for _, w := range writers {
			w.Abort()
		}
	}
	for _, o := range outputs {
		w, err := cloud.Create(ctx, o.Name)
		if err != nil {
			abort()
			return err
		}
		writers = append(writers, w)
		if err := Encode(w, o.Data); err != nil {
			abort()
			return fmt.Errorf("%v: %w", o.Name, err)
		}

		hp := HeaderPath(o.Name)
		hw, err := cloud.Create(ctx, hp)
		if err != nil {
			abort()
			return err
		}
		writers = append(writers, hw)
		if err := toml.NewEncoder(hw).Encode(o.Header); err != nil {
			abort()
			return fmt.Errorf("raster: writing header %s: %v", hp, err)
		}
	}
	for k, w := range writers {
		if err := w.Close(); err != nil {
			for _, w := range writers[k+1:] {
				w.Abort()
			}
			return err
		}
	}
	return nil
}
