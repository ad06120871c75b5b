package ast

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/banshee-data/stellarpop/internal/fsutil"
	"github.com/banshee-data/stellarpop/internal/monitoring"
	"github.com/banshee-data/stellarpop/internal/table"
	"github.com/banshee-data/stellarpop/internal/wcs"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// NeighborOptions configures PickPositions.
type NeighborOptions struct {
	// Separation is the inner radius of the annulus, in pixels.
	Separation float64

	// NoiseWidth is the annulus width in pixels. Zero places every fake
	// star exactly Separation from its anchor; config.SamplerConfig
	// supplies the usual 3 pixel default.
	NoiseWidth float64

	// Transform is required when the catalog only has RA/DEC columns.
	// Leave it as an untyped nil when there is none: a nil *wcs.TAN stored
	// in the interface counts as set and fails with wcs.ErrNoWCS.
	Transform wcs.Transform

	// Rand drives every random draw. Nil uses a time-seeded generator.
	Rand *rand.Rand

	Metrics *monitoring.Metrics
}

// catalogPixels returns the pixel positions of the catalog sources. Pixel
// columns win over celestial ones; upper-case names win over lower-case.
func catalogPixels(catalog *table.Table, transform wcs.Transform) ([]float64, []float64, error) {
	for _, pair := range [][2]string{{"X", "Y"}, {"x", "y"}} {
		if catalog.HasColumn(pair[0]) && catalog.HasColumn(pair[1]) {
			xs, _ := catalog.Floats(pair[0])
			ys, _ := catalog.Floats(pair[1])
			return xs, ys, nil
		}
	}

	for _, pair := range [][2]string{{"RA", "DEC"}, {"ra", "dec"}} {
		if !catalog.HasColumn(pair[0]) || !catalog.HasColumn(pair[1]) {
			continue
		}
		if transform == nil {
			return nil, nil, fmt.Errorf("%w: a reference image is required to convert catalog %s/%s to pixels", ErrInvalidInput, pair[0], pair[1])
		}
		ra, _ := catalog.Floats(pair[0])
		dec, _ := catalog.Floats(pair[1])
		xs, ys, err := transform.WorldToPixel(ra, dec)
		if err != nil {
			return nil, nil, fmt.Errorf("convert catalog positions to pixels: %w", err)
		}
		return xs, ys, nil
	}
	return nil, nil, fmt.Errorf("%w: catalog does not supply X, Y or RA, DEC columns", ErrInvalidInput)
}

// edgeFilter keeps the sources lying strictly inside the catalog's own
// coordinate range shrunk by margin on every side.
func edgeFilter(xs, ys []float64, margin float64) (keptX, keptY []float64) {
	xMin, xMax := floats.Min(xs), floats.Max(xs)
	yMin, yMax := floats.Min(ys), floats.Max(ys)
	for i := range xs {
		x, y := xs[i], ys[i]
		if x > xMin+margin && x < xMax-margin && y > yMin+margin && y < yMax-margin {
			keptX = append(keptX, x)
			keptY = append(keptY, y)
		}
	}
	return keptX, keptY
}

// PickPositions places every model row a random distance between
// Separation and Separation+NoiseWidth pixels, at a random angle, from a
// randomly chosen catalog source. Sources closer than that to the edge of
// the catalog's footprint are never used as anchors.
//
// The returned table is a copy of models with zeros, ones, X and Y columns
// (two decimals) in front. The anchor of row i is recorded by index into
// the filtered source list in the returned anchors slice.
func PickPositions(catalog, models *table.Table, opts NeighborOptions) (*table.Table, []Anchor, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: catalog is empty", ErrInvalidInput)
	}
	if models == nil {
		return nil, nil, fmt.Errorf("%w: no model magnitudes", ErrInvalidInput)
	}
	if opts.Separation < 0 || math.IsNaN(opts.Separation) {
		return nil, nil, fmt.Errorf("%w: separation must be non-negative, got %g", ErrInvalidInput, opts.Separation)
	}
	noise := opts.NoiseWidth
	if noise < 0 || math.IsNaN(noise) {
		return nil, nil, fmt.Errorf("%w: noise width must be non-negative, got %g", ErrInvalidInput, opts.NoiseWidth)
	}

	xs, ys, err := catalogPixels(catalog, opts.Transform)
	if err != nil {
		return nil, nil, err
	}

	keptX, keptY := edgeFilter(xs, ys, opts.Separation+noise)
	opts.Metrics.SetAnchors(len(keptX), len(xs)-len(keptX))
	nAST := models.Len()
	if len(keptX) == 0 && nAST > 0 {
		return nil, nil, fmt.Errorf("%w: no catalog source lies more than %g pixels inside the catalog footprint", ErrInvalidInput, opts.Separation+noise)
	}

	rng := rngOrDefault(opts.Rand)
	radius := distuv.Uniform{Min: opts.Separation, Max: opts.Separation + noise, Src: rng}
	angle := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: rng}

	newX := make([]float64, nAST)
	newY := make([]float64, nAST)
	anchors := make([]Anchor, nAST)
	for i := 0; i < nAST; i++ {
		idx := rng.IntN(len(keptX))
		r := radius.Rand()
		theta := angle.Rand()
		newX[i] = keptX[idx] + r*math.Cos(theta)
		newY[i] = keptY[idx] + r*math.Sin(theta)
		anchors[i] = Anchor{Index: idx, X: keptX[idx], Y: keptY[idx]}
	}

	out := models.Clone()
	if err := prependMarkers(out, ColX, newX, ColY, newY, "%.2f"); err != nil {
		return nil, nil, err
	}
	opts.Metrics.AddPositions("neighbor", nAST)
	return out, anchors, nil
}

// Anchor is the real source a fake star was offset from.
type Anchor struct {
	Index int
	X, Y  float64
}

// PickPositionsFile reads the model magnitude list at filename, assigns
// positions with PickPositions and writes the result back over filename.
func PickPositionsFile(fsys fsutil.FileSystem, catalog *table.Table, filename string, opts NeighborOptions) (*table.Table, error) {
	models, err := table.ReadFile(fsys, filename)
	if err != nil {
		return nil, err
	}
	out, _, err := PickPositions(catalog, models, opts)
	if err != nil {
		return nil, err
	}
	if err := out.WriteFile(fsys, filename); err != nil {
		return nil, err
	}
	monitoring.Logf("wrote %d AST positions to %s", out.Len(), filename)
	return out, nil
}
