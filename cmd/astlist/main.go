package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/stellarpop/internal/config"
	"github.com/banshee-data/stellarpop/internal/db"
	"github.com/banshee-data/stellarpop/internal/version"
)

func main() {
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	if err := run(flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("astlist: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage(out)
		return errors.New("no command given")
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "map":
		return runMap(args, out)
	case "neighbors":
		return runNeighbors(args, out)
	case "import-map":
		return runImportMap(args, out)
	case "maps":
		return runMaps(args, out)
	case "export-map":
		return runExportMap(args, out)
	case "migrate":
		return runMigrate(args, out)
	case "version":
		fmt.Fprintln(out, version.String("astlist"))
		return nil
	case "help":
		printUsage(out)
		return nil
	default:
		printUsage(out)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runMigrate passes the remaining arguments to the shared migrate command.
// The db path comes from STELLARPOP_DB or the config file.
func runMigrate(args []string, out io.Writer) error {
	cfg, err := config.FromEnv(envFile)
	if err != nil {
		return err
	}
	return db.RunMigrateCommand(args, cfg.GetDBPath(), out)
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `astlist - artificial star test position lists

Usage: astlist <command> [options]

Commands:
  map          Spread models over density bins of a tiled map
  neighbors    Place each model a few pixels from a real source
  import-map   Store a density map (tile table or catalog counts) in the db
  maps         List stored density maps
  export-map   Write a stored density map back out as a tile table
  migrate      Manage the db schema (up, down, status, force)
  version      Show astlist version
  help         Show this help message

Common Flags:
  -config <file>        Sampler config (.json, .yaml, .yml)
  -db <path>            SQLite database (default stellarpop.db)
  -ref-image <fits>     Reference image; positions become X/Y pixels
  -seed <n>             Random seed for reproducible lists
  -metrics-file <path>  Write Prometheus metrics when done
  -plot <png>           Plot the positions
  -q                    Suppress progress logging

Environment:
  STELLARPOP_CONFIG and STELLARPOP_DB, also read from ./.env

Examples:
  astlist map -models models.txt -map density.txt -nbins 8 -seed 42
  astlist import-map -catalog sources.txt -nra 20 -ndec 20 -name field1
  astlist map -models models.txt -map-id field1 -ref-image ref.fits -html bins.html
  astlist export-map -map field1 -out field1.csv
  astlist neighbors -catalog sources.txt -models models.txt -sep 12`)
}
