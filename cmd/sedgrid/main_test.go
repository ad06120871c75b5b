package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/stellarpop/internal/db"
	"github.com/banshee-data/stellarpop/internal/grid"
	"github.com/banshee-data/stellarpop/internal/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

const gridText = `logT logg 4000 5000 6000 7000
3.6 4.5 1 1 1 1
3.8 4.0 2 2 2 2
4.0 3.5 4 4 4 4
`

func setup(t *testing.T) (dir, dbPath string) {
	t.Helper()
	dir = t.TempDir()
	dbPath = filepath.Join(dir, "grids.db")
	t.Setenv("STELLARPOP_CONFIG", "")
	t.Setenv("STELLARPOP_DB", dbPath)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kurucz.txt"), []byte(gridText), 0o644))
	return dir, dbPath
}

func importGrid(t *testing.T, dir string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run([]string{"import", "-q", "-table", filepath.Join(dir, "kurucz.txt"),
		"-header", "source=test", "-alias", "Teff=logT"}, &out))
	return strings.TrimSpace(out.String())
}

func loadGrid(t *testing.T, dbPath, id string) *grid.Data {
	t.Helper()
	d, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer d.Close()
	data, err := d.LoadGrid(id)
	require.NoError(t, err)
	return data
}

func TestReadGridTable(t *testing.T) {
	dir, _ := setup(t)
	data, err := readGridTable(filepath.Join(dir, "kurucz.txt"))
	require.NoError(t, err)
	assert.Equal(t, []float64{4000, 5000, 6000, 7000}, data.Lamb)
	assert.Equal(t, []string{"logT", "logg"}, data.Grid.ColNames())
	r, c := data.SEDs.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, 4.0, data.SEDs.At(2, 3))
}

func TestReadGridTable_NoWavelengths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.txt")
	require.NoError(t, os.WriteFile(path, []byte("a b\n1 2\n"), 0o644))
	_, err := readGridTable(path)
	assert.Error(t, err)
}

func TestPairsFlag(t *testing.T) {
	p := pairs{}
	require.NoError(t, p.Set("b = 2"))
	require.NoError(t, p.Set("a=1"))
	assert.Equal(t, "a=1,b=2", p.String())
	assert.Error(t, p.Set("novalue"))
}

func TestImportListInfo(t *testing.T) {
	dir, _ := setup(t)
	id := importGrid(t, dir)
	assert.Len(t, id, 36)

	var out bytes.Buffer
	require.NoError(t, run([]string{"list", "-q"}, &out))
	assert.Contains(t, out.String(), "kurucz")
	assert.Contains(t, out.String(), "3 models")

	out.Reset()
	require.NoError(t, run([]string{"info", "-q", "-grid", "kurucz"}, &out))
	text := out.String()
	assert.Contains(t, text, "kind=spectral")
	assert.Contains(t, text, "ModelGrid (")
	assert.Contains(t, text, "models: 3  wavelengths: 4 (4000 - 7000)")
	assert.Contains(t, text, "parameters: logT logg")
	assert.Contains(t, text, "alias: Teff -> logT")
	assert.Contains(t, text, "header: source = test")
}

func TestInfo_Backends(t *testing.T) {
	dir, _ := setup(t)
	id := importGrid(t, dir)
	for _, backend := range []string{"memory", "cache", "sqlite"} {
		var out bytes.Buffer
		require.NoError(t, run([]string{"info", "-q", "-backend", backend, "-grid", id}, &out), backend)
		assert.Contains(t, out.String(), "models: 3", backend)
	}
	assert.Error(t, run([]string{"info", "-q", "-backend", "hdf5", "-grid", id}, &bytes.Buffer{}))
}

func TestExtinct_NewGrid(t *testing.T) {
	dir, dbPath := setup(t)
	id := importGrid(t, dir)

	var out bytes.Buffer
	require.NoError(t, run([]string{"extinct", "-q", "-grid", "kurucz", "-av", "0.5"}, &out))
	newID := strings.TrimSpace(out.String())
	require.NotEqual(t, id, newID)

	orig := loadGrid(t, dbPath, id)
	red := loadGrid(t, dbPath, newID)
	assert.Equal(t, "CCM89", red.Header[grid.HeaderExtLaw])
	assert.Equal(t, "0.5", red.Header["Av"])
	assert.Equal(t, "test", red.Header["source"])
	assert.NotContains(t, orig.Header, grid.HeaderExtLaw)
	for j := range red.Lamb {
		assert.Less(t, red.SEDs.At(0, j), orig.SEDs.At(0, j))
	}
	// Bluer light is extinguished more.
	assert.Less(t, red.SEDs.At(0, 0), red.SEDs.At(0, 3))

	out.Reset()
	require.NoError(t, run([]string{"list", "-q"}, &out))
	assert.Contains(t, out.String(), "kurucz_av0.5")
}

func TestExtinct_Inplace(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			dir, dbPath := setup(t)
			id := importGrid(t, dir)

			var out bytes.Buffer
			require.NoError(t, run([]string{"extinct", "-q", "-backend", backend, "-grid", id, "-inplace", "-av", "1"}, &out))
			assert.Contains(t, out.String(), "in place")

			data := loadGrid(t, dbPath, id)
			assert.Equal(t, "CCM89", data.Header[grid.HeaderExtLaw])
			assert.Less(t, data.SEDs.At(1, 2), 2.0)
		})
	}
}

func TestExtinct_Errors(t *testing.T) {
	dir, _ := setup(t)
	importGrid(t, dir)
	assert.Error(t, run([]string{"extinct", "-q"}, &bytes.Buffer{}))
	assert.Error(t, run([]string{"extinct", "-q", "-grid", "missing"}, &bytes.Buffer{}))
	assert.Error(t, run([]string{"extinct", "-q", "-grid", "kurucz", "-law", "fitzpatrick"}, &bytes.Buffer{}))
	assert.Error(t, run([]string{"extinct", "-q", "-grid", "kurucz", "-rv", "0"}, &bytes.Buffer{}))
}

func TestSEDs(t *testing.T) {
	dir, dbPath := setup(t)
	importGrid(t, dir)
	blue := filepath.Join(dir, "B.txt")
	red := filepath.Join(dir, "V.txt")
	require.NoError(t, os.WriteFile(blue, []byte("lamb trans\n4000 1\n5000 1\n"), 0o644))
	require.NoError(t, os.WriteFile(red, []byte("lamb trans\n5000 1\n7000 1\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run([]string{"seds", "-q", "-grid", "kurucz", "-filters", blue + "," + red}, &out))
	id := strings.TrimSpace(out.String())

	data := loadGrid(t, dbPath, id)
	assert.Equal(t, "B,V", data.Header[headerFilters])
	assert.InDelta(t, 4500.0, data.Lamb[0], 1e-9)
	assert.InDelta(t, 2.0, data.SEDs.At(1, 0), 1e-9)
	assert.InDelta(t, 4.0, data.SEDs.At(2, 1), 1e-9)

	out.Reset()
	require.NoError(t, run([]string{"info", "-q", "-grid", id}, &out))
	assert.Contains(t, out.String(), "SEDGrid [B V]")

	assert.Error(t, run([]string{"extinct", "-q", "-grid", id}, &bytes.Buffer{}))

	out.Reset()
	require.NoError(t, run([]string{"seds", "-q", "-grid", "kurucz", "-filters", blue + "," + red, "-pivot", "-name", "kurucz_pivot"}, &out))
	pivoted := loadGrid(t, dbPath, strings.TrimSpace(out.String()))
	assert.InDelta(t, 4472.14, pivoted.Lamb[0], 0.01)
}

func TestDelete(t *testing.T) {
	dir, _ := setup(t)
	importGrid(t, dir)
	var out bytes.Buffer
	require.NoError(t, run([]string{"delete", "-q", "-grid", "kurucz"}, &out))
	assert.Contains(t, out.String(), "deleted")

	out.Reset()
	require.NoError(t, run([]string{"list", "-q"}, &out))
	assert.Empty(t, out.String())
	assert.Error(t, run([]string{"delete", "-q", "-grid", "kurucz"}, &bytes.Buffer{}))
}

func TestRun_Commands(t *testing.T) {
	setup(t)
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "sedgrid dev"))

	out.Reset()
	require.NoError(t, run([]string{"migrate", "status"}, &out))
	assert.Contains(t, out.String(), "Current version:")

	assert.Error(t, run([]string{"nope"}, &bytes.Buffer{}))
}
