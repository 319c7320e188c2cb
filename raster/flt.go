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


// Package raster reads and writes flat binary rasters: row-major arrays
// of float32 values in the machine's native byte order with no header,
// as in the ".flt" format. Grid dimensions, spacing and the NoData value
// travel in a TOML header stored next to the raster.
package raster

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/spatialmodel/upstream/cloud"
)

// ErrShortRaster is returned when a raster holds fewer values than its
// grid requires.
var ErrShortRaster = errors.New("raster: file is shorter than the grid")

// Decode reads n values from r.
func Decode(r io.Reader, n int) ([]float32, error) {
	data := make([]float32, n)
	if err := binary.Read(bufio.NewReader(r), binary.NativeEndian, data); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: want %d values", ErrShortRaster, n)
		}
		return nil, fmt.Errorf("raster: %v", err)
	}
	return data, nil
}

// Encode writes data to w.
func Encode(w io.Writer, data []float32) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.NativeEndian, data); err != nil {
		return fmt.Errorf("raster: %v", err)
	}
	return bw.Flush()
}

// Read reads a raster of n values from name, which may be a local path,
// an http(s) URL or a blob URL.
func Read(ctx context.Context, name string, n int) ([]float32, error) {
	r, err := cloud.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := Decode(r, n)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	return data, nil
}

// Write writes data to name. The file only appears once it has been
// written completely.
func Write(ctx context.Context, name string, data []float32) error {
	w, err := cloud.Create(ctx, name)
	if err != nil {
		return err
	}
	if err := Encode(w, data); err != nil {
		w.Abort()
		return fmt.Errorf("%v: %w", name, err)
	}
	return w.Close()
}
