package densitymap

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrEmptyMap is returned when a map has no tiles.
var ErrEmptyMap = errors.New("density map has no tiles")

// Tile is one cell of a density map. The box spans
// [MinRA, MinRA+DeltaRA] x [MinDec, MinDec+DeltaDec] in degrees.
type Tile struct {
	ID       int64
	Value    float64
	MinRA    float64
	MinDec   float64
	DeltaRA  float64
	DeltaDec float64
}

// Contains reports whether (ra, dec) lies inside the tile box, edges included.
func (t Tile) Contains(ra, dec float64) bool {
	return ra >= t.MinRA && ra <= t.MinRA+t.DeltaRA &&
		dec >= t.MinDec && dec <= t.MinDec+t.DeltaDec
}

// Map is a read-only collection of tiles.
type Map struct {
	Name  string
	Tiles []Tile
}

// New validates tiles and returns a map over them.
func New(name string, tiles []Tile) (*Map, error) {
	if len(tiles) == 0 {
		return nil, ErrEmptyMap
	}
	for i, t := range tiles {
		if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) {
			return nil, fmt.Errorf("tile %d: density value %v is not finite", i, t.Value)
		}
		if t.DeltaRA < 0 || t.DeltaDec < 0 {
			return nil, fmt.Errorf("tile %d: negative extent (%g, %g)", i, t.DeltaRA, t.DeltaDec)
		}
	}
	return &Map{Name: name, Tiles: tiles}, nil
}

// Len is the number of tiles.
func (m *Map) Len() int {
	return len(m.Tiles)
}

// TileValues returns the density value of every tile in tile order.
func (m *Map) TileValues() []float64 {
	vals := make([]float64, len(m.Tiles))
	for i, t := range m.Tiles {
		vals[i] = t.Value
	}
	return vals
}

// MinRADec returns the lower corner of every tile.
func (m *Map) MinRADec() (ra, dec []float64) {
	ra = make([]float64, len(m.Tiles))
	dec = make([]float64, len(m.Tiles))
	for i, t := range m.Tiles {
		ra[i], dec[i] = t.MinRA, t.MinDec
	}
	return ra, dec
}

// DeltaRADec returns the extent of every tile.
func (m *Map) DeltaRADec() (dra, ddec []float64) {
	dra = make([]float64, len(m.Tiles))
	ddec = make([]float64, len(m.Tiles))
	for i, t := range m.Tiles {
		dra[i], ddec[i] = t.DeltaRA, t.DeltaDec
	}
	return dra, ddec
}

// ValueRange returns the minimum and maximum tile values.
func (m *Map) ValueRange() (lo, hi float64) {
	vals := m.TileValues()
	return floats.Min(vals), floats.Max(vals)
}

// Binned partitions the tiles into nBins equal-width density ranges over
// [min, max] of the tile values.
func (m *Map) Binned(nBins int) (*BinnedMap, error) {
	if nBins < 1 {
		return nil, fmt.Errorf("number of bins must be at least 1, got %d", nBins)
	}
	if len(m.Tiles) == 0 {
		return nil, ErrEmptyMap
	}
	lo, hi := m.ValueRange()
	edges := floats.Span(make([]float64, nBins+1), lo, hi)

	bins := make([]int, len(m.Tiles))
	for i, t := range m.Tiles {
		bins[i] = binIndex(t.Value, lo, hi, nBins)
	}
	return &BinnedMap{Map: m, nBins: nBins, edges: edges, tileBins: bins}, nil
}

// binIndex maps v to the floor-indexed interval containing it. The maximum
// lands in the last bin; a map with a single value puts every tile in bin 0.
func binIndex(v, lo, hi float64, n int) int {
	if hi <= lo {
		return 0
	}
	idx := int(math.Floor((v - lo) / (hi - lo) * float64(n)))
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// BinnedMap is a Map whose tiles have been grouped into density bins.
type BinnedMap struct {
	*Map
	nBins    int
	edges    []float64
	tileBins []int
}

// NBins is the number of bins, empty ones included.
func (b *BinnedMap) NBins() int {
	return b.nBins
}

// BinEdges returns the nBins+1 bin boundaries.
func (b *BinnedMap) BinEdges() []float64 {
	return append([]float64(nil), b.edges...)
}

// TileBin returns the bin index of tile i.
func (b *BinnedMap) TileBin(i int) int {
	return b.tileBins[i]
}

// TilesForEachBin returns, for every bin in increasing density order, the
// indices of the tiles that fall into it. Bins may be empty.
func (b *BinnedMap) TilesForEachBin() [][]int {
	out := make([][]int, b.nBins)
	for i, bin := range b.tileBins {
		out[bin] = append(out[bin], i)
	}
	return out
}

// BinCounts returns how many tiles fall into each bin.
func (b *BinnedMap) BinCounts() []int {
	counts := make([]int, b.nBins)
	for _, bin := range b.tileBins {
		counts[bin]++
	}
	return counts
}
