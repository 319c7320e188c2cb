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


package upstreamutil

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/upstream"
	"github.com/spatialmodel/upstream/raster"
)

// ramp returns a 6×4 DEM falling by one unit per column to the east,
// with a pit at row 1, column 2, and an auxiliary raster holding each
// cell's column number.
func ramp() (elev, aux []float32) {
	const nx, ny = 6, 4
	elev = make([]float32, nx*ny)
	aux = make([]float32, nx*ny)
	for i := range elev {
		c := i % nx
		elev[i] = float32(10 - c)
		aux[i] = float32(c)
	}
	elev[1*nx+2] = 1
	return elev, aux
}

type testFiles struct {
	dir, dem, aux string
}

func setup(t *testing.T, header bool) testFiles {
	t.Helper()
	dir, err := ioutil.TempDir("", "upstreamutil")
	if err != nil {
		t.Fatal(err)
	}
	f := testFiles{
		dir: dir,
		dem: filepath.Join(dir, "dem.flt"),
		aux: filepath.Join(dir, "aux.flt"),
	}
	elev, aux := ramp()
	ctx := context.Background()
	if err := raster.Write(ctx, f.dem, elev); err != nil {
		t.Fatal(err)
	}
	if err := raster.Write(ctx, f.aux, aux); err != nil {
		t.Fatal(err)
	}
	if header {
		if err := raster.WriteHeader(ctx, f.dem, raster.Header{Nx: 6, Ny: 4, Dx: 1}); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

// execute runs the command line args. Flags keep their values between
// runs, so every test sets all the flags it relies on.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	Root.SetArgs(args)
	var buf bytes.Buffer
	Log.Out = &buf
	err := Root.Execute()
	t.Log(buf.String())
	return err
}

func readOutput(t *testing.T, name string) ([]float32, raster.Header) {
	t.Helper()
	ctx := context.Background()
	h, err := raster.ReadHeader(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	data, err := raster.Read(ctx, name, h.Nx*h.Ny)
	if err != nil {
		t.Fatal(err)
	}
	return data, h
}

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if want := "Upstream v" + upstream.Version; !strings.Contains(buf.String(), want) {
		t.Errorf("want %q but have %q", want, buf.String())
	}
}

func TestDrainage(t *testing.T) {
	f := setup(t, false)
	defer os.RemoveAll(f.dir)
	out := filepath.Join(f.dir, "area.flt")
	if err := execute(t, "drainage", "--dem", f.dem, "--output", out,
		"-x", "6", "-y", "4", "-d", "2", "--nodata", "",
		"--stepwise-fill=false", "--max-pending", "0"); err != nil {
		t.Fatal(err)
	}
	area, h := readOutput(t, out)
	if h.Nx != 6 || h.Ny != 4 || h.Dx != 2 {
		t.Errorf("want a 6×4 header with dx 2 but have %+v", h)
	}
	// The east boundary cell of an interior row drains the whole row but
	// the west boundary cell.
	if have := area[1*6+5]; have != 20 {
		t.Errorf("want 20 but have %v", have)
	}
	if have := area[2*6+3]; have != 12 {
		t.Errorf("want 12 but have %v", have)
	}
}

func TestDrainageFromHeader(t *testing.T) {
	f := setup(t, true)
	defer os.RemoveAll(f.dir)
	out := filepath.Join(f.dir, "area.flt")
	if err := execute(t, "drainage", "--dem", f.dem, "--output", out,
		"-x", "0", "-y", "0", "-d", "0", "--nodata=-9999",
		"--stepwise-fill=false", "--max-pending", "0"); err != nil {
		t.Fatal(err)
	}
	area, h := readOutput(t, out)
	if want := (raster.Header{Nx: 6, Ny: 4, Dx: 1, NoData: "-9999"}); h != want {
		t.Errorf("want header %+v but have %+v", want, h)
	}
	if have := area[1*6+5]; have != 5 {
		t.Errorf("want 5 but have %v", have)
	}
}

func TestAverage(t *testing.T) {
	f := setup(t, false)
	defer os.RemoveAll(f.dir)
	out := filepath.Join(f.dir, "avg.flt")
	for _, test := range []struct {
		sum  string
		want float32
	}{
		// Cell (1, 3) drains columns 1, 2 and 3.
		{sum: "false", want: 2},
		{sum: "true", want: 6},
	} {
		t.Run("sum="+test.sum, func(t *testing.T) {
			if err := execute(t, "average", "--dem", f.dem, "--input", f.aux, "--output", out,
				"-x", "6", "-y", "4", "-d", "1", "--nodata", "",
				"--sum="+test.sum, "--min-area", "0", "--positive-elevation=false",
				"--stepwise-fill=false", "--max-pending", "0"); err != nil {
				t.Fatal(err)
			}
			avg, _ := readOutput(t, out)
			if have := avg[1*6+3]; have != test.want {
				t.Errorf("want %v but have %v", test.want, have)
			}
		})
	}
}

func TestCondition(t *testing.T) {
	f := setup(t, false)
	defer os.RemoveAll(f.dir)
	out := filepath.Join(f.dir, "filled.flt")
	dirs := filepath.Join(f.dir, "dirs.flt")
	if err := execute(t, "condition", "--dem", f.dem, "--output", out, "--directions", dirs,
		"-x", "6", "-y", "4", "-d", "1", "--nodata", "",
		"--stepwise-fill=false", "--max-pending", "0"); err != nil {
		t.Fatal(err)
	}
	elev, _ := readOutput(t, out)
	if want := float32(7) + upstream.FillIncrement; elev[1*6+2] != want {
		t.Errorf("want %v but have %v", want, elev[1*6+2])
	}
	codes, _ := readOutput(t, dirs)
	for i, code := range codes {
		r, c := i/6, i%6
		want := float32(upstream.E)
		if r == 0 || r == 3 || c == 0 || c == 5 {
			want = 0
		}
		if code != want {
			t.Errorf("cell (%d, %d): want %v but have %v", r, c, want, code)
		}
	}
}

func TestNoPartialOutput(t *testing.T) {
	f := setup(t, false)
	defer os.RemoveAll(f.dir)
	ctx := context.Background()
	flat := make([]float32, 6*4)
	for i := range flat {
		flat[i] = 1e6
	}
	if err := raster.Write(ctx, f.dem, flat); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(f.dir, "area.flt")
	err := execute(t, "drainage", "--dem", f.dem, "--output", out,
		"-x", "6", "-y", "4", "-d", "1", "--nodata", "",
		"--stepwise-fill=false", "--max-pending", "0")
	if !errors.Is(err, upstream.ErrFillPrecision) {
		t.Errorf("want ErrFillPrecision but have %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output should not exist: %v", err)
	}

	// A DEM shorter than the grid.
	err = execute(t, "drainage", "--dem", f.dem, "--output", out,
		"-x", "6", "-y", "5", "-d", "1", "--nodata", "",
		"--stepwise-fill=false", "--max-pending", "0")
	if !errors.Is(err, raster.ErrShortRaster) {
		t.Errorf("want ErrShortRaster but have %v", err)
	}
}

func TestConditionAllOrNothing(t *testing.T) {
	f := setup(t, false)
	defer os.RemoveAll(f.dir)
	out := filepath.Join(f.dir, "filled.flt")
	cfg := &Config{
		DEM:        f.dem,
		Output:     out,
		Directions: filepath.Join(f.dir, "missing", "dirs.flt"),
		Nx:         6,
		Ny:         4,
		Dx:         1,
	}
	Log.Out = ioutil.Discard
	if err := Condition(context.Background(), cfg); err == nil {
		t.Fatal("want an error writing the directions")
	}
	for _, name := range []string{out, raster.HeaderPath(out)} {
		if _, err := os.Stat(name); !os.IsNotExist(err) {
			t.Errorf("%s should not exist: %v", name, err)
		}
	}
	// Nor are temporary files left behind.
	files, err := ioutil.ReadDir(f.dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, fi := range files {
		if fi.Name() != "dem.flt" && fi.Name() != "aux.flt" {
			t.Errorf("unexpected file %s", fi.Name())
		}
	}
}

func TestCheckConfig(t *testing.T) {
	dir, err := ioutil.TempDir("", "upstreamutil")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	base := map[string]interface{}{
		"dem":         "dem.flt",
		"input":       "aux.flt",
		"output":      filepath.Join(dir, "out.flt"),
		"nx":          10,
		"ny":          "20", // as read from a configuration file
		"dx":          0.5,
		"nodata":      -9999,
		"max-pending": 0,
		"min-area":    "0.1",
	}
	newCfg := func(changes map[string]interface{}) *viper.Viper {
		cfg := viper.New()
		for k, v := range base {
			cfg.Set(k, v)
		}
		for k, v := range changes {
			cfg.Set(k, v)
		}
		return cfg
	}

	c, err := checkConfig(newCfg(nil), "average")
	if err != nil {
		t.Fatal(err)
	}
	if c.Nx != 10 || c.Ny != 20 || c.Dx != 0.5 || c.NoData != "-9999" || c.Normalize.MinArea != 0.1 {
		t.Errorf("unexpected configuration %+v", c)
	}

	for _, test := range []struct {
		name    string
		changes map[string]interface{}
	}{
		{name: "partial grid", changes: map[string]interface{}{"ny": 0}},
		{name: "negative dx", changes: map[string]interface{}{"dx": -1}},
		{name: "bad nx", changes: map[string]interface{}{"nx": "ten"}},
		{name: "bad nodata", changes: map[string]interface{}{"nodata": "missing"}},
		{name: "no dem", changes: map[string]interface{}{"dem": ""}},
		{name: "negative max-pending", changes: map[string]interface{}{"max-pending": -1}},
		{name: "negative min-area", changes: map[string]interface{}{"min-area": -1}},
	} {
		t.Run(test.name, func(t *testing.T) {
			if _, err := checkConfig(newCfg(test.changes), "average"); !errors.Is(err, upstream.ErrConfig) {
				t.Errorf("want ErrConfig but have %v", err)
			}
		})
	}

	t.Run("missing output directory", func(t *testing.T) {
		cfg := newCfg(map[string]interface{}{"output": filepath.Join(dir, "nope", "out.flt")})
		if _, err := checkConfig(cfg, "drainage"); err == nil {
			t.Error("want an error")
		}
	})
	t.Run("grid omitted", func(t *testing.T) {
		cfg := newCfg(map[string]interface{}{"nx": 0, "ny": 0, "dx": 0})
		c, err := checkConfig(cfg, "drainage")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := loadGrid(context.Background(), c); err == nil {
			t.Error("want an error for a DEM without a header")
		}
	})
}
