package densitymap

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTileMap(t *testing.T) *Map {
	t.Helper()
	m, err := New("test", []Tile{
		{ID: 0, Value: 1.0, MinRA: 10, MinDec: -5, DeltaRA: 0.1, DeltaDec: 0.1},
		{ID: 1, Value: 3.0, MinRA: 10.1, MinDec: -5, DeltaRA: 0.1, DeltaDec: 0.1},
	})
	require.NoError(t, err)
	return m
}

func TestNew_Validation(t *testing.T) {
	_, err := New("empty", nil)
	assert.True(t, errors.Is(err, ErrEmptyMap))

	_, err = New("nan", []Tile{{Value: math.NaN()}})
	assert.Error(t, err)

	_, err = New("neg", []Tile{{Value: 1, DeltaRA: -1}})
	assert.Error(t, err)
}

func TestBinned_TwoTilesTwoBins(t *testing.T) {
	bm, err := twoTileMap(t).Binned(2)
	require.NoError(t, err)

	assert.Equal(t, 2, bm.NBins())
	if diff := cmp.Diff([][]int{{0}, {1}}, bm.TilesForEachBin()); diff != "" {
		t.Errorf("bins mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 2, 3}, bm.BinEdges()); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestBinned_EveryTileInExactlyOneBin(t *testing.T) {
	values := []float64{0, 0.5, 1.2, 2.5, 2.5, 3.9, 4.5, 10}
	tiles := make([]Tile, len(values))
	for i, v := range values {
		tiles[i] = Tile{ID: int64(i), Value: v, DeltaRA: 1, DeltaDec: 1}
	}
	m, err := New("spread", tiles)
	require.NoError(t, err)

	bm, err := m.Binned(5)
	require.NoError(t, err)

	seen := make(map[int]int)
	for bin, set := range bm.TilesForEachBin() {
		for _, tile := range set {
			seen[tile]++
			assert.Equal(t, bin, bm.TileBin(tile))
		}
	}
	assert.Len(t, seen, len(values))
	for tile, n := range seen {
		assert.Equal(t, 1, n, "tile %d", tile)
	}

	// max value lands in the last bin, the gap below it stays empty
	assert.Equal(t, 4, bm.TileBin(7))
	assert.Equal(t, []int{3, 3, 1, 0, 1}, bm.BinCounts())
}

func TestBinned_SingleValue(t *testing.T) {
	m, err := New("flat", []Tile{{Value: 2}, {Value: 2}, {Value: 2}})
	require.NoError(t, err)

	bm, err := m.Binned(3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0, 0}, bm.BinCounts())
}

func TestBinned_InvalidBins(t *testing.T) {
	_, err := twoTileMap(t).Binned(0)
	assert.Error(t, err)
}

func TestAccessors(t *testing.T) {
	m := twoTileMap(t)
	ra, dec := m.MinRADec()
	dra, ddec := m.DeltaRADec()
	assert.Equal(t, []float64{10, 10.1}, ra)
	assert.Equal(t, []float64{-5, -5}, dec)
	assert.Equal(t, []float64{0.1, 0.1}, dra)
	assert.Equal(t, []float64{0.1, 0.1}, ddec)
	lo, hi := m.ValueRange()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 3.0, hi)
	assert.Equal(t, 2, m.Len())
}

func TestTileContains(t *testing.T) {
	tile := Tile{MinRA: 1, MinDec: 2, DeltaRA: 0.5, DeltaDec: 0.25}
	assert.True(t, tile.Contains(1, 2))
	assert.True(t, tile.Contains(1.5, 2.25))
	assert.False(t, tile.Contains(1.51, 2.1))
	assert.False(t, tile.Contains(1.2, 1.99))
}
