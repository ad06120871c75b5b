package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/banshee-data/stellarpop/internal/fsutil"
	"github.com/banshee-data/stellarpop/internal/table"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoPositions is returned when a table has neither X/Y nor RA/DEC columns.
var ErrNoPositions = errors.New("report: no position columns")

// Plot size used by PlotPositions.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 8 * vg.Inch
)

// positionColumns picks the pixel columns when present, else the sky ones.
func positionColumns(t *table.Table) (string, string, error) {
	for _, pair := range [][2]string{{"X", "Y"}, {"RA", "DEC"}} {
		if t.HasColumn(pair[0]) && t.HasColumn(pair[1]) {
			return pair[0], pair[1], nil
		}
	}
	return "", "", ErrNoPositions
}

// groupByBin splits the rows of t by the integer value of its bin column.
// Tables without a bin column come back as a single group keyed -1.
func groupByBin(t *table.Table, xs, ys []float64) (map[int]plotter.XYs, []int) {
	groups := make(map[int]plotter.XYs)
	bins, hasBins := t.Column("bin")
	for i := range xs {
		key := -1
		if hasBins {
			key = int(math.Round(bins.Float(i)))
		}
		groups[key] = append(groups[key], plotter.XY{X: xs[i], Y: ys[i]})
	}
	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return groups, keys
}

// PlotPositions draws the positions of an AST list as a PNG, one coloured
// scatter series per density bin.
func PlotPositions(w io.Writer, t *table.Table, title string) error {
	if t == nil || t.Len() == 0 {
		return fmt.Errorf("report: empty table")
	}
	xName, yName, err := positionColumns(t)
	if err != nil {
		return err
	}
	xs, err := t.Floats(xName)
	if err != nil {
		return err
	}
	ys, err := t.Floats(yName)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xName
	p.Y.Label.Text = yName
	if xName == "RA" {
		// RA grows to the east, drawn leftwards.
		p.X.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	}

	groups, keys := groupByBin(t, xs, ys)
	for i, key := range keys {
		s, err := plotter.NewScatter(groups[key])
		if err != nil {
			return fmt.Errorf("bin %d: %w", key, err)
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Radius = vg.Points(1)
		p.Add(s)
		if key >= 0 {
			p.Legend.Add(fmt.Sprintf("bin %d", key), s)
		}
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// PlotPositionsFile renders PlotPositions into path through fsys.
func PlotPositionsFile(fsys fsutil.FileSystem, path string, t *table.Table, title string) error {
	var buf bytes.Buffer
	if err := PlotPositions(&buf, t, title); err != nil {
		return err
	}
	if err := fsys.WriteFile(path, buf.Bytes(), os.FileMode(0o644)); err != nil {
		return fmt.Errorf("failed to write plot %s: %w", path, err)
	}
	return nil
}
