package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/banshee-data/stellarpop/internal/densitymap"
	"github.com/banshee-data/stellarpop/internal/fsutil"
	"github.com/banshee-data/stellarpop/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func astTable(t *testing.T, xName, yName string, withBins bool) *table.Table {
	t.Helper()
	tb := table.New()
	require.NoError(t, tb.AddFloatColumn(xName, []float64{1, 2, 3, 4}))
	require.NoError(t, tb.AddFloatColumn(yName, []float64{4, 3, 2, 1}))
	if withBins {
		require.NoError(t, tb.AddFloatColumn("bin", []float64{0, 0, 1, 1}))
	}
	return tb
}

func TestPositionColumns(t *testing.T) {
	x, y, err := positionColumns(astTable(t, "RA", "DEC", false))
	require.NoError(t, err)
	assert.Equal(t, "RA", x)
	assert.Equal(t, "DEC", y)

	_, _, err = positionColumns(astTable(t, "a", "b", false))
	assert.True(t, errors.Is(err, ErrNoPositions))
}

func TestGroupByBin(t *testing.T) {
	tb := astTable(t, "X", "Y", true)
	xs, _ := tb.Floats("X")
	ys, _ := tb.Floats("Y")
	groups, keys := groupByBin(tb, xs, ys)
	assert.Equal(t, []int{0, 1}, keys)
	assert.Len(t, groups[0], 2)
	assert.Equal(t, 3.0, groups[1][0].X)

	tb = astTable(t, "X", "Y", false)
	groups, keys = groupByBin(tb, xs, ys)
	assert.Equal(t, []int{-1}, keys)
	assert.Len(t, groups[-1], 4)
}

func TestPlotPositions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PlotPositions(&buf, astTable(t, "X", "Y", true), "positions"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	buf.Reset()
	require.NoError(t, PlotPositions(&buf, astTable(t, "RA", "DEC", false), ""))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	assert.Error(t, PlotPositions(&buf, table.New(), ""))
}

func TestPlotPositionsFile(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, PlotPositionsFile(fs, "out.png", astTable(t, "X", "Y", true), "t"))
	data, err := fs.ReadFile("out.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestBinHistogramHTML(t *testing.T) {
	m, err := densitymap.New("field", []densitymap.Tile{
		{ID: 0, Value: 1, MinRA: 10, MinDec: -5, DeltaRA: 0.1, DeltaDec: 0.1},
		{ID: 1, Value: 2, MinRA: 10.1, MinDec: -5, DeltaRA: 0.1, DeltaDec: 0.1},
		{ID: 2, Value: 3, MinRA: 10.2, MinDec: -5, DeltaRA: 0.1, DeltaDec: 0.1},
	})
	require.NoError(t, err)
	bm, err := m.Binned(2)
	require.NoError(t, err)

	assert.Equal(t, []string{"1-2", "2-3"}, BinLabels(bm))

	var buf bytes.Buffer
	require.NoError(t, BinHistogramHTML(&buf, bm))
	html := buf.String()
	assert.True(t, strings.Contains(html, "Tiles per density bin"))
	assert.True(t, strings.Contains(html, "bin 1"))

	assert.Error(t, BinHistogramHTML(&buf, nil))
}
