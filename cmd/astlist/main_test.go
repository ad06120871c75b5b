package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/banshee-data/stellarpop/internal/monitoring"
	"github.com/banshee-data/stellarpop/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// isolate keeps config from the developer's environment out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STELLARPOP_CONFIG", "")
	t.Setenv("STELLARPOP_DB", filepath.Join(dir, "test.db"))
	return dir
}

const modelsText = `F475W F814W
20.0 19.0
21.0 19.5
22.0 20.0
`

const mapText = `tile_id value min_ra min_dec delta_ra delta_dec
0 1.0 10.00 -30.00 0.01 0.01
1 3.0 10.01 -30.00 0.01 0.01
`

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"bogus"}, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Usage: astlist")

	assert.Error(t, run(nil, &out))
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "astlist dev"))
}

func TestMap_FromFile(t *testing.T) {
	dir := isolate(t)
	models := testutil.WriteFile(t, dir, "models.txt", modelsText)
	density := testutil.WriteFile(t, dir, "density.txt", mapText)
	dest := filepath.Join(dir, "out.txt")
	metrics := filepath.Join(dir, "astlist.prom")

	var out bytes.Buffer
	err := run([]string{"map", "-q", "-models", models, "-map", density, "-nbins", "2",
		"-seed", "7", "-out", dest, "-metrics-file", metrics}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "wrote 6 positions")

	lines := testutil.ReadLines(t, dest)
	require.Len(t, lines, 7)
	assert.Equal(t, []string{"zeros", "ones", "RA", "DEC", "F475W", "F814W", "bin"}, strings.Fields(lines[0]))

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `stellarpop_ast_positions_total{sampler="map"} 6`)
	assert.Contains(t, string(prom), "stellarpop_ast_bins_nonempty 2")
}

func TestMap_SeedIsReproducible(t *testing.T) {
	dir := isolate(t)
	models := testutil.WriteFile(t, dir, "models.txt", modelsText)
	density := testutil.WriteFile(t, dir, "density.txt", mapText)

	outputs := make([][]byte, 2)
	for i := range outputs {
		dest := filepath.Join(dir, fmt.Sprintf("out%d.txt", i))
		require.NoError(t, run([]string{"map", "-q", "-models", models, "-map", density,
			"-nbins", "2", "-seed", "11", "-out", dest}, &bytes.Buffer{}))
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		outputs[i] = data
	}
	assert.Equal(t, outputs[0], outputs[1])
}

func TestMap_RequiresOneMapSource(t *testing.T) {
	dir := isolate(t)
	models := testutil.WriteFile(t, dir, "models.txt", modelsText)
	err := run([]string{"map", "-models", models}, &bytes.Buffer{})
	assert.Error(t, err)

	err = run([]string{"map", "-map", "x.txt"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestMap_ConfigFile(t *testing.T) {
	dir := isolate(t)
	models := testutil.WriteFile(t, dir, "models.txt", modelsText)
	density := testutil.WriteFile(t, dir, "density.txt", mapText)
	cfg := testutil.WriteFile(t, dir, "sampler.yaml", "n_bins: 1\nn_realize: 2\nseed: 3\n")
	dest := filepath.Join(dir, "out.txt")

	var out bytes.Buffer
	require.NoError(t, run([]string{"map", "-q", "-config", cfg, "-models", models, "-map", density, "-out", dest}, &out))
	// one bin, every model twice
	assert.Len(t, testutil.ReadLines(t, dest), 7)
}

func TestImportMapThenMapFromDB(t *testing.T) {
	dir := isolate(t)
	density := testutil.WriteFile(t, dir, "field1.txt", mapText)
	models := testutil.WriteFile(t, dir, "models.txt", modelsText)

	var out bytes.Buffer
	require.NoError(t, run([]string{"import-map", "-q", "-map", density}, &out))
	id := strings.TrimSpace(out.String())
	assert.Len(t, id, 36)

	out.Reset()
	require.NoError(t, run([]string{"maps", "-q"}, &out))
	assert.Contains(t, out.String(), "field1")
	assert.Contains(t, out.String(), id)

	dest := filepath.Join(dir, "out.txt")
	plot := filepath.Join(dir, "out.png")
	html := filepath.Join(dir, "bins.html")
	out.Reset()
	require.NoError(t, run([]string{"map", "-q", "-models", models, "-map-id", "field1", "-nbins", "2",
		"-seed", "1", "-out", dest, "-plot", plot, "-html", html}, &out))
	assert.Len(t, testutil.ReadLines(t, dest), 7)

	png, err := os.ReadFile(plot)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	page, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Tiles per density bin")
}

func TestExportMap_RoundTrip(t *testing.T) {
	dir := isolate(t)
	density := testutil.WriteFile(t, dir, "field1.txt", mapText)
	require.NoError(t, run([]string{"import-map", "-q", "-map", density}, &bytes.Buffer{}))

	dest := filepath.Join(dir, "export", "field1.csv")
	var out bytes.Buffer
	require.NoError(t, run([]string{"export-map", "-q", "-map", "field1", "-out", dest}, &out))
	assert.Contains(t, out.String(), "wrote 2 tiles")

	lines := testutil.ReadLines(t, dest)
	require.Len(t, lines, 3)
	assert.Equal(t, "tile_id,value,min_ra,min_dec,delta_ra,delta_dec", lines[0])
	assert.Equal(t, "1,3,10.01,-30,0.01,0.01", lines[2])

	require.NoError(t, run([]string{"import-map", "-q", "-map", dest, "-name", "copy"}, &bytes.Buffer{}))
	out.Reset()
	require.NoError(t, run([]string{"maps", "-q"}, &out))
	assert.Contains(t, out.String(), "copy")

	assert.Error(t, run([]string{"export-map", "-q"}, &bytes.Buffer{}))
	assert.Error(t, run([]string{"export-map", "-q", "-map", "nosuchmap"}, &bytes.Buffer{}))
}

func TestImportMap_FromCatalog(t *testing.T) {
	dir := isolate(t)
	var b strings.Builder
	b.WriteString("RA DEC\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "%.4f %.4f\n", 10+0.001*float64(i), -30+0.0005*float64(i%7))
	}
	catalog := testutil.WriteFile(t, dir, "sources.txt", b.String())

	var out bytes.Buffer
	require.NoError(t, run([]string{"import-map", "-q", "-catalog", catalog, "-nra", "4", "-ndec", "3", "-name", "counts"}, &out))

	out.Reset()
	require.NoError(t, run([]string{"maps", "-q"}, &out))
	assert.Contains(t, out.String(), "counts")
	assert.Contains(t, out.String(), "12 tiles")
}

func TestNeighbors(t *testing.T) {
	dir := isolate(t)
	var b strings.Builder
	b.WriteString("X Y\n")
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			fmt.Fprintf(&b, "%d %d\n", i*100, j*100)
		}
	}
	catalog := testutil.WriteFile(t, dir, "sources.txt", b.String())
	models := testutil.WriteFile(t, dir, "models.txt", modelsText)

	var out bytes.Buffer
	require.NoError(t, run([]string{"neighbors", "-q", "-catalog", catalog, "-models", models, "-sep", "12", "-seed", "5"}, &out))
	assert.Contains(t, out.String(), "wrote 3 positions")

	lines := testutil.ReadLines(t, models)
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"zeros", "ones", "X", "Y", "F475W", "F814W"}, strings.Fields(lines[0]))
}

func TestNeighbors_CatalogWithTextColumns(t *testing.T) {
	dir := isolate(t)
	var b strings.Builder
	b.WriteString("name X Y flag\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "src%d %d %d good\n", i, i*100, i*100)
	}
	catalog := testutil.WriteFile(t, dir, "sources.txt", b.String())
	models := testutil.WriteFile(t, dir, "models.txt", modelsText)

	var out bytes.Buffer
	require.NoError(t, run([]string{"neighbors", "-q", "-catalog", catalog, "-models", models, "-sep", "5", "-seed", "2"}, &out))
	assert.Contains(t, out.String(), "wrote 3 positions")
}

func TestNeighbors_ZeroNoise(t *testing.T) {
	dir := isolate(t)
	var b strings.Builder
	b.WriteString("X Y\n")
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			fmt.Fprintf(&b, "%d %d\n", i*100, j*100)
		}
	}
	catalog := testutil.WriteFile(t, dir, "sources.txt", b.String())
	models := testutil.WriteFile(t, dir, "models.txt", modelsText)

	require.NoError(t, run([]string{"neighbors", "-q", "-catalog", catalog, "-models", models, "-sep", "12", "-noise", "0", "-seed", "5"}, &bytes.Buffer{}))

	lines := testutil.ReadLines(t, models)
	require.Len(t, lines, 4)
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		x, err := strconv.ParseFloat(fields[2], 64)
		require.NoError(t, err)
		y, err := strconv.ParseFloat(fields[3], 64)
		require.NoError(t, err)
		// sources sit on a 100 px grid, so the anchor is the nearest node
		ax, ay := math.Round(x/100)*100, math.Round(y/100)*100
		assert.InDelta(t, 12.0, math.Hypot(x-ax, y-ay), 0.01, "row %q", line)
	}
}

func TestNeighbors_CelestialCatalogNeedsReferenceImage(t *testing.T) {
	dir := isolate(t)
	catalog := testutil.WriteFile(t, dir, "sources.txt", "RA DEC\n10.0 -30.0\n10.01 -30.01\n")
	models := testutil.WriteFile(t, dir, "models.txt", modelsText)
	err := run([]string{"neighbors", "-q", "-catalog", catalog, "-models", models}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestMap_ReferenceImage(t *testing.T) {
	dir := isolate(t)
	ref := testutil.WriteFITS(t, dir, testutil.TANCards(10, -30, 1001, 1001, -0.0001, 0.0001))
	models := testutil.WriteFile(t, dir, "models.txt", modelsText)
	density := testutil.WriteFile(t, dir, "density.txt", mapText)
	dest := filepath.Join(dir, "out.txt")

	require.NoError(t, run([]string{"map", "-q", "-models", models, "-map", density, "-nbins", "2",
		"-seed", "3", "-ref-image", ref, "-out", dest}, &bytes.Buffer{}))
	lines := testutil.ReadLines(t, dest)
	assert.Equal(t, []string{"zeros", "ones", "X", "Y", "F475W", "F814W", "bin"}, strings.Fields(lines[0]))
}

func TestMigrateStatus(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	require.NoError(t, run([]string{"migrate", "up"}, &out))
	assert.Contains(t, out.String(), "Current version: 1 (latest 1)")
	assert.Contains(t, out.String(), "Dirty: false")
}
