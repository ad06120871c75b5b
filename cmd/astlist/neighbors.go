package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/stellarpop/internal/ast"
	"github.com/banshee-data/stellarpop/internal/monitoring"
	"github.com/banshee-data/stellarpop/internal/report"
	"github.com/banshee-data/stellarpop/internal/table"
)

// runNeighbors handles 'astlist neighbors': offset each model from a real
// source and rewrite the model list with the positions prepended.
func runNeighbors(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("neighbors", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	catalogPath := fs.String("catalog", "", "source catalog with X/Y or RA/DEC columns; text columns are ignored (required)")
	modelsPath := fs.String("models", "", "model magnitude list, rewritten in place (required)")
	sep := fs.Float64("sep", 0, "offset from the real source in pixels")
	noise := fs.Float64("noise", 0, "width of the offset annulus in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *catalogPath == "" || *modelsPath == "" {
		return errors.New("-catalog and -models are required")
	}

	rt, err := common.setup(fs)
	if err != nil {
		return err
	}
	set := flagsSet(fs)
	opts := ast.NeighborOptions{
		Separation: rt.cfg.GetSeparation(),
		NoiseWidth: rt.cfg.GetNoiseWidth(),
		Transform:  rt.transform,
		Rand:       rt.rng,
		Metrics:    rt.metrics,
	}
	if set["sep"] {
		opts.Separation = *sep
	}
	if set["noise"] {
		opts.NoiseWidth = *noise
	}

	catalog, err := readCatalog(*catalogPath)
	if err != nil {
		return err
	}
	positions, err := ast.PickPositionsFile(osFS, catalog, *modelsPath, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d positions to %s\n", positions.Len(), *modelsPath)

	if common.plotPath != "" {
		if err := report.PlotPositionsFile(osFS, common.plotPath, positions, mapName(*catalogPath)); err != nil {
			return err
		}
	}
	return rt.flushMetrics()
}

// readCatalog loads a source catalog, dropping text columns such as
// source names that the samplers never look at.
func readCatalog(path string) (*table.Table, error) {
	t, skipped, err := table.ReadNumericFile(osFS, path)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		monitoring.Logf("%s: ignoring non-numeric columns %v", path, skipped)
	}
	return t, nil
}
