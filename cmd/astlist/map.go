package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/stellarpop/internal/ast"
	"github.com/banshee-data/stellarpop/internal/densitymap"
	"github.com/banshee-data/stellarpop/internal/fsutil"
	"github.com/banshee-data/stellarpop/internal/monitoring"
	"github.com/banshee-data/stellarpop/internal/report"
	"github.com/banshee-data/stellarpop/internal/table"
)

var osFS fsutil.FileSystem = fsutil.OSFileSystem{}

// mapName is the density map name derived from a file path.
func mapName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// runMap handles 'astlist map': density-stratified positions.
func runMap(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("map", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	modelsPath := fs.String("models", "", "model magnitude list (required)")
	mapPath := fs.String("map", "", "density map table file")
	mapRef := fs.String("map-id", "", "density map stored in the db, by id or name")
	outPath := fs.String("out", "", "output file (default <models>_positions.txt)")
	htmlPath := fs.String("html", "", "write an HTML histogram of the density bins")
	nBins := fs.Int("nbins", 0, "number of density bins")
	nRealize := fs.Int("nrealize", 0, "positions per model in every bin")
	nPerModel := fs.Int("npermodel", 0, "repeats of each model per bin upstream (logged only)")
	maxAttempts := fs.Int("max-attempts", 0, "redraws per model before giving up")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *modelsPath == "" {
		return errors.New("-models is required")
	}
	if (*mapPath == "") == (*mapRef == "") {
		return errors.New("exactly one of -map or -map-id is required")
	}

	rt, err := common.setup(fs)
	if err != nil {
		return err
	}
	set := flagsSet(fs)
	opts := ast.MapOptions{
		NBins:       rt.cfg.GetNBins(),
		NRealize:    rt.cfg.GetNRealize(),
		NPerModel:   rt.cfg.GetNPerModel(),
		MaxAttempts: rt.cfg.GetMaxAttempts(),
		Transform:   rt.transform,
		Rand:        rt.rng,
		Metrics:     rt.metrics,
	}
	if set["nbins"] {
		opts.NBins = *nBins
	}
	if set["nrealize"] {
		opts.NRealize = *nRealize
	}
	if set["npermodel"] {
		opts.NPerModel = *nPerModel
	}
	if set["max-attempts"] {
		opts.MaxAttempts = *maxAttempts
	}

	models, err := table.ReadFile(osFS, *modelsPath)
	if err != nil {
		return err
	}

	var m *densitymap.Map
	if *mapPath != "" {
		t, err := table.ReadFile(osFS, *mapPath)
		if err != nil {
			return err
		}
		if m, err = densitymap.FromTable(mapName(*mapPath), t); err != nil {
			return err
		}
	} else {
		d, err := rt.openDB()
		if err != nil {
			return err
		}
		defer d.Close()
		if m, err = d.LoadDensityMap(*mapRef); err != nil {
			return err
		}
	}

	positions, err := ast.PickPositionsFromMap(models, m, opts)
	if err != nil {
		return err
	}

	dest := *outPath
	if dest == "" {
		dest = strings.TrimSuffix(*modelsPath, filepath.Ext(*modelsPath)) + "_positions.txt"
	}
	if err := ast.WritePositions(osFS, dest, positions); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d positions to %s\n", positions.Len(), dest)

	if common.plotPath != "" {
		if err := report.PlotPositionsFile(osFS, common.plotPath, positions, m.Name); err != nil {
			return err
		}
	}
	if *htmlPath != "" {
		bm, err := m.Binned(opts.NBins)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := report.BinHistogramHTML(&buf, bm); err != nil {
			return err
		}
		if err := osFS.WriteFile(*htmlPath, buf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	return rt.flushMetrics()
}

// runImportMap handles 'astlist import-map': store a density map in the db,
// either read from a tile table or counted from a source catalog.
func runImportMap(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import-map", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	mapPath := fs.String("map", "", "density map table file")
	catalogPath := fs.String("catalog", "", "source catalog with RA/DEC columns to count into tiles; text columns are ignored")
	name := fs.String("name", "", "map name (default from the file name)")
	nRA := fs.Int("nra", 10, "tiles along RA when counting a catalog")
	nDec := fs.Int("ndec", 10, "tiles along DEC when counting a catalog")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*mapPath == "") == (*catalogPath == "") {
		return errors.New("exactly one of -map or -catalog is required")
	}

	rt, err := common.setup(fs)
	if err != nil {
		return err
	}

	var m *densitymap.Map
	if *mapPath != "" {
		if *name == "" {
			*name = mapName(*mapPath)
		}
		t, err := table.ReadFile(osFS, *mapPath)
		if err != nil {
			return err
		}
		if m, err = densitymap.FromTable(*name, t); err != nil {
			return err
		}
	} else {
		if *name == "" {
			*name = mapName(*catalogPath)
		}
		t, err := readCatalog(*catalogPath)
		if err != nil {
			return err
		}
		ra, err := t.Floats("RA")
		if err != nil {
			return err
		}
		dec, err := t.Floats("DEC")
		if err != nil {
			return err
		}
		if m, err = densitymap.NewStellarDensityMap(*name, ra, dec, *nRA, *nDec); err != nil {
			return err
		}
	}

	d, err := rt.openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	id, err := d.SaveDensityMap(m)
	if err != nil {
		return err
	}
	monitoring.Logf("stored density map %q with %d tiles", m.Name, m.Len())
	fmt.Fprintln(out, id)
	return nil
}

// runMaps handles 'astlist maps': list the stored density maps.
func runMaps(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("maps", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rt, err := common.setup(fs)
	if err != nil {
		return err
	}
	d, err := rt.openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	infos, err := d.ListDensityMaps()
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Fprintf(out, "%s  %-20s %6d tiles  %s\n", info.ID, info.Name, info.NTiles, info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// runExportMap handles 'astlist export-map': write a stored map back out as
// a tile table that import-map and map -map accept.
func runExportMap(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export-map", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	ref := fs.String("map", "", "stored map id or name (required)")
	dest := fs.String("out", "", "output tile table, .csv for comma-separated (default <name>.txt)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ref == "" {
		return errors.New("-map is required")
	}

	rt, err := common.setup(fs)
	if err != nil {
		return err
	}
	d, err := rt.openDB()
	if err != nil {
		return err
	}
	defer d.Close()

	m, err := d.LoadDensityMap(*ref)
	if err != nil {
		return err
	}
	if *dest == "" {
		*dest = m.Name + ".txt"
	}
	if err := m.Table().WriteFile(osFS, *dest); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d tiles to %s\n", m.Len(), *dest)
	return nil
}
