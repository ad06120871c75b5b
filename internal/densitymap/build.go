package densitymap

import (
	"fmt"
	"math"

	"github.com/banshee-data/stellarpop/internal/table"
	"gonum.org/v1/gonum/floats"
)

// Column names used when a map is stored as a text table.
const (
	ColTileID   = "tile_id"
	ColValue    = "value"
	ColMinRA    = "min_ra"
	ColMinDec   = "min_dec"
	ColDeltaRA  = "delta_ra"
	ColDeltaDec = "delta_dec"
)

// FromTable builds a map from a table with tile_id, value, min_ra, min_dec,
// delta_ra and delta_dec columns. tile_id is optional; row order is used
// when it is missing.
func FromTable(name string, t *table.Table) (*Map, error) {
	cols := make(map[string][]float64, 5)
	for _, c := range []string{ColValue, ColMinRA, ColMinDec, ColDeltaRA, ColDeltaDec} {
		v, err := t.Floats(c)
		if err != nil {
			return nil, fmt.Errorf("density map table: %w", err)
		}
		cols[c] = v
	}

	tiles := make([]Tile, t.Len())
	var ids []float64
	if t.HasColumn(ColTileID) {
		ids, _ = t.Floats(ColTileID)
	}
	for i := range tiles {
		id := int64(i)
		if ids != nil {
			id = int64(ids[i])
		}
		tiles[i] = Tile{
			ID:       id,
			Value:    cols[ColValue][i],
			MinRA:    cols[ColMinRA][i],
			MinDec:   cols[ColMinDec][i],
			DeltaRA:  cols[ColDeltaRA][i],
			DeltaDec: cols[ColDeltaDec][i],
		}
	}
	return New(name, tiles)
}

// Table renders the map as a table that FromTable can read back.
func (m *Map) Table() *table.Table {
	n := len(m.Tiles)
	ids := make([]int64, n)
	for i, tile := range m.Tiles {
		ids[i] = tile.ID
	}
	ra, dec := m.MinRADec()
	dra, ddec := m.DeltaRADec()

	out := table.New()
	_ = out.AddIntColumn(ColTileID, ids)
	_ = out.AddFloatColumn(ColValue, m.TileValues())
	_ = out.AddFloatColumn(ColMinRA, ra)
	_ = out.AddFloatColumn(ColMinDec, dec)
	_ = out.AddFloatColumn(ColDeltaRA, dra)
	_ = out.AddFloatColumn(ColDeltaDec, ddec)
	return out
}

// NewStellarDensityMap lays an nRA x nDec grid of tiles over the bounding
// box of the given source positions and sets each tile value to the
// number of sources per square arcminute inside it.
func NewStellarDensityMap(name string, ra, dec []float64, nRA, nDec int) (*Map, error) {
	if len(ra) == 0 || len(ra) != len(dec) {
		return nil, fmt.Errorf("need matching non-empty ra/dec arrays, got %d and %d", len(ra), len(dec))
	}
	if nRA < 1 || nDec < 1 {
		return nil, fmt.Errorf("tile grid must be at least 1x1, got %dx%d", nRA, nDec)
	}
	raMin, raMax := floats.Min(ra), floats.Max(ra)
	decMin, decMax := floats.Min(dec), floats.Max(dec)
	dRA := (raMax - raMin) / float64(nRA)
	dDec := (decMax - decMin) / float64(nDec)
	if dRA == 0 || dDec == 0 {
		return nil, fmt.Errorf("sources span zero area (%g x %g deg)", raMax-raMin, decMax-decMin)
	}

	counts := make([]int, nRA*nDec)
	for i := range ra {
		ix := cellIndex(ra[i], raMin, dRA, nRA)
		iy := cellIndex(dec[i], decMin, dDec, nDec)
		counts[iy*nRA+ix]++
	}

	tiles := make([]Tile, 0, nRA*nDec)
	for iy := 0; iy < nDec; iy++ {
		for ix := 0; ix < nRA; ix++ {
			minDec := decMin + float64(iy)*dDec
			centre := (minDec + dDec/2) * math.Pi / 180
			areaArcmin2 := dRA * math.Cos(centre) * dDec * 3600
			id := iy*nRA + ix
			tiles = append(tiles, Tile{
				ID:       int64(id),
				Value:    float64(counts[id]) / areaArcmin2,
				MinRA:    raMin + float64(ix)*dRA,
				MinDec:   minDec,
				DeltaRA:  dRA,
				DeltaDec: dDec,
			})
		}
	}
	return New(name, tiles)
}

func cellIndex(v, lo, step float64, n int) int {
	i := int((v - lo) / step)
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
