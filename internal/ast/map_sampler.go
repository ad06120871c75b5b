package ast

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/banshee-data/stellarpop/internal/densitymap"
	"github.com/banshee-data/stellarpop/internal/fsutil"
	"github.com/banshee-data/stellarpop/internal/monitoring"
	"github.com/banshee-data/stellarpop/internal/table"
	"github.com/banshee-data/stellarpop/internal/wcs"
)

// DefaultMaxAttempts bounds the tile and position redraws for one model
// when the drawn position falls off the reference image.
const DefaultMaxAttempts = 1000

// DensitySource is anything that can partition its tiles into density bins.
// *densitymap.Map satisfies it.
type DensitySource interface {
	Binned(nBins int) (*densitymap.BinnedMap, error)
}

// MapOptions configures PickPositionsFromMap.
type MapOptions struct {
	// NBins is the number of linear density bins between the minimum and
	// maximum tile value. Must be at least 1.
	NBins int

	// NPerModel is the number of repeats of each model per bin that the
	// caller asked for upstream. It is only reported in the log.
	NPerModel int

	// NRealize is how many positions each model gets in every bin.
	// Zero means 1.
	NRealize int

	// Transform converts RA/Dec to reference image pixels. When nil the
	// output carries RA and DEC columns instead of X and Y. Pass an untyped
	// nil: a nil *wcs.TAN stored in the interface counts as set and every
	// draw fails with wcs.ErrNoWCS.
	Transform wcs.Transform

	// Rand drives every random draw. Nil uses a time-seeded generator.
	Rand *rand.Rand

	// MaxAttempts caps redraws per model; zero means DefaultMaxAttempts.
	MaxAttempts int

	Metrics *monitoring.Metrics
}

// PickPositionsFromMap spreads models across regions of similar density.
//
// The tiles of the map are split into opts.NBins linear density bins and
// empty bins are dropped. Every model is repeated NRealize times and that
// repeated set is placed once in every remaining bin: each entry draws a
// tile of the bin at random, then a position uniformly inside that tile.
// With a transform, draws that land at negative pixel coordinates are
// repeated with a fresh tile, at most MaxAttempts times.
//
// The result has the marker columns, the position columns (RA, DEC or X, Y),
// the model columns and a bin column holding the index of the bin, counted
// over non-empty bins in increasing density order.
func PickPositionsFromMap(models *table.Table, m DensitySource, opts MapOptions) (*table.Table, error) {
	if models == nil || models.Len() == 0 {
		return nil, fmt.Errorf("%w: model set is empty", ErrInvalidInput)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: no density map", ErrInvalidInput)
	}
	if opts.NBins < 1 {
		return nil, fmt.Errorf("%w: number of bins must be at least 1, got %d", ErrInvalidInput, opts.NBins)
	}
	nRealize := opts.NRealize
	if nRealize == 0 {
		nRealize = 1
	}
	if nRealize < 0 {
		return nil, fmt.Errorf("%w: Nrealize must be positive, got %d", ErrInvalidInput, opts.NRealize)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	bm, err := m.Binned(opts.NBins)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	monitoring.Logf("%d repeats of each model in each map bin", opts.NPerModel)

	var tileSets [][]int
	for _, set := range bm.TilesForEachBin() {
		if len(set) > 0 {
			tileSets = append(tileSets, set)
		}
	}
	if len(tileSets) == 0 {
		return nil, fmt.Errorf("%w: density map has no non-empty bins", ErrInvalidInput)
	}
	lo, hi := bm.ValueRange()
	monitoring.Logf("%d non-empty map bins found between %g and %g", len(tileSets), lo, hi)
	opts.Metrics.SetNonEmptyBins(len(tileSets))

	repeated := models.Repeat(nRealize)
	perRegion := repeated.Len()
	out := repeated.Tile(len(tileSets))

	n := out.Len()
	xs := make([]float64, n)
	ys := make([]float64, n)
	bins := make([]int64, n)

	d := &tileDrawer{
		rng:         rngOrDefault(opts.Rand),
		transform:   opts.Transform,
		maxAttempts: maxAttempts,
	}
	d.minRA, d.minDec = bm.MinRADec()
	d.deltaRA, d.deltaDec = bm.DeltaRADec()

	pbar := monitoring.NewProgress(fmt.Sprintf("%d models per map bin", perRegion), len(tileSets))
	for binIndex, set := range tileSets {
		start := binIndex * perRegion
		for i := 0; i < perRegion; i++ {
			x, y, err := d.draw(set)
			if err != nil {
				opts.Metrics.AddRetries(d.retries)
				return nil, fmt.Errorf("bin %d, entry %d: %w", binIndex, i, err)
			}
			j := start + i
			xs[j], ys[j] = x, y
			bins[j] = int64(binIndex)
		}
		pbar.Add(1)
	}
	opts.Metrics.AddRetries(d.retries)
	opts.Metrics.AddPositions("map", n)
	if d.retries > 0 {
		monitoring.Logf("%d position draws fell outside the reference image and were redrawn", d.retries)
	}

	xName, yName := ColRA, ColDec
	if opts.Transform != nil {
		xName, yName = ColX, ColY
	}
	if err := prependMarkers(out, xName, xs, yName, ys, ""); err != nil {
		return nil, err
	}
	if err := out.AddIntColumn(ColBin, bins); err != nil {
		return nil, err
	}
	return out, nil
}

// tileDrawer draws positions inside the tiles of one bin.
type tileDrawer struct {
	rng               *rand.Rand
	transform         wcs.Transform
	maxAttempts       int
	minRA, minDec     []float64
	deltaRA, deltaDec []float64
	retries           int
}

func (d *tileDrawer) draw(tiles []int) (float64, float64, error) {
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		tile := tiles[d.rng.IntN(len(tiles))]
		ra := d.minRA[tile] + d.rng.Float64()*d.deltaRA[tile]
		dec := d.minDec[tile] + d.rng.Float64()*d.deltaDec[tile]

		if d.transform == nil {
			return ra, dec, nil
		}
		px, py, err := d.transform.WorldToPixel([]float64{ra}, []float64{dec})
		if err != nil {
			return 0, 0, fmt.Errorf("convert position to pixels: %w", err)
		}
		if validPixel(px[0]) && validPixel(py[0]) {
			return px[0], py[0], nil
		}
		d.retries++
	}
	return 0, 0, fmt.Errorf("%w: %d draws all fell at negative pixel coordinates", ErrGeometry, d.maxAttempts)
}

func validPixel(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// WritePositions writes a PickPositionsFromMap result to path with five
// decimals for every column after the two markers.
func WritePositions(fsys fsutil.FileSystem, path string, t *table.Table) error {
	out := t.Clone()
	for i, c := range out.Columns() {
		if i >= 2 {
			c.Format = "%.5f"
		}
	}
	return out.WriteFile(fsys, path)
}
