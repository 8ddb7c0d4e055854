// Package gridplot renders regridded fields as diagnostic images.
package gridplot

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/gridmap/internal/field"
)

// grid adapts a 2-d masked array of shape (len(ys), len(xs)) to
// plotter.GridXYZ. Masked cells read as NaN.
type grid struct {
	arr    *field.MaskedArray
	xs, ys []float64
}

func (g grid) Dims() (c, r int) { return len(g.xs), len(g.ys) }
func (g grid) X(c int) float64  { return g.xs[c] }
func (g grid) Y(r int) float64  { return g.ys[r] }
func (g grid) Z(c, r int) float64 {
	if g.arr.IsMasked(r, c) {
		return math.NaN()
	}
	return g.arr.Get(r, c)
}

func checkGrid(arr *field.MaskedArray, xs, ys []float64) error {
	if arr == nil {
		return fmt.Errorf("no data")
	}
	shape := arr.Shape()
	if len(shape) != 2 || shape[0] != len(ys) || shape[1] != len(xs) {
		return fmt.Errorf("data of shape %v does not match %d y and %d x values", shape, len(ys), len(xs))
	}
	return nil
}

// Heatmap writes a heat map of the 2-d array arr, whose dimensions are
// (y, x), to path. The image format follows the file extension. Masked
// cells are drawn transparent.
func Heatmap(arr *field.MaskedArray, xs, ys []float64, title, path string) error {
	if err := checkGrid(arr, xs, ys); err != nil {
		return err
	}
	if len(xs) < 2 || len(ys) < 2 {
		return fmt.Errorf("heat map needs at least 2x2 cells, got %dx%d", len(ys), len(xs))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	hm := plotter.NewHeatMap(grid{arr: arr, xs: xs, ys: ys}, palette.Heat(16, 1))
	hm.NaN = color.Transparent
	p.Add(hm)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save heat map: %w", err)
	}
	return nil
}

// Profiles writes one line per row of the 2-d array arr against xs, each
// labelled by its y value. Masked cells break the lines.
func Profiles(arr *field.MaskedArray, xs, ys []float64, title, path string) error {
	if err := checkGrid(arr, xs, ys); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Value"

	colors := generateColors(len(ys))
	for r, y := range ys {
		pts := make(plotter.XYs, 0, len(xs))
		for c, x := range xs {
			if arr.IsMasked(r, c) {
				continue
			}
			pts = append(pts, plotter.XY{X: x, Y: arr.Get(r, c)})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[r]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%g", y), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save profile plot: %w", err)
	}
	return nil
}

// generateColors creates a palette of distinct colors for profile lines
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// FormatTimestamp generates a timestamp string for file naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// OutputPath returns baseDir/<source basename>_<timestamp><ext>.
func OutputPath(baseDir, source string, t time.Time, ext string) string {
	base := filepath.Base(source)
	name := base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(baseDir, name+"_"+FormatTimestamp(t)+ext)
}
