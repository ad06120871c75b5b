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

const envFile = ".env"

func main() {
	flag.Usage = func() { printUsage(os.Stderr) }
	flag.Parse()

	if err := run(flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("sedgrid: %v", err)
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
	case "import":
		return runImport(args, out)
	case "list":
		return runList(args, out)
	case "info":
		return runInfo(args, out)
	case "extinct":
		return runExtinct(args, out)
	case "seds":
		return runSEDs(args, out)
	case "delete":
		return runDelete(args, out)
	case "migrate":
		cfg, err := config.FromEnv(envFile)
		if err != nil {
			return err
		}
		return db.RunMigrateCommand(args, cfg.GetDBPath(), out)
	case "version":
		fmt.Fprintln(out, version.String("sedgrid"))
		return nil
	case "help":
		printUsage(out)
		return nil
	default:
		printUsage(out)
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `sedgrid - stored spectral and SED model grids

Usage: sedgrid <command> [options]

Commands:
  import     Store a grid read from a text table
  list       List stored grids
  info       Show size, parameters and header of a grid
  extinct    Apply an extinction law to a spectral grid
  seds       Integrate a spectral grid through filters into an SED grid
  delete     Remove a stored grid
  migrate    Manage the db schema (up, down, status, force)
  version    Show sedgrid version
  help       Show this help message

Common Flags:
  -config <file>     Sampler config (.json, .yaml, .yml)
  -db <path>         SQLite database (default stellarpop.db)
  -backend <name>    Grid backend: memory, cache or sqlite (default memory)

Grid tables have one row per model. Columns named by a number are flux
samples at that wavelength in Angstrom; the others are model parameters.

Examples:
  sedgrid import -table spectra.txt -name kurucz
  sedgrid extinct -grid kurucz -av 0.5 -rv 3.1
  sedgrid extinct -grid kurucz -av 0.5 -inplace -backend sqlite
  sedgrid seds -grid kurucz -filters F475W.txt,F814W.txt -av 0.2`)
}
