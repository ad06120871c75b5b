package main

import (
	"flag"
	"fmt"
	"math/rand/v2"

	"github.com/banshee-data/stellarpop/internal/ast"
	"github.com/banshee-data/stellarpop/internal/config"
	"github.com/banshee-data/stellarpop/internal/db"
	"github.com/banshee-data/stellarpop/internal/monitoring"
	"github.com/banshee-data/stellarpop/internal/wcs"
	"github.com/prometheus/client_golang/prometheus"
)

// envFile is loaded, when present, before any command runs.
const envFile = ".env"

// commonFlags are shared by the sampling commands. Zero values mean
// "not given" so that config file values can fill them in.
type commonFlags struct {
	configPath  string
	dbPath      string
	refImage    string
	metricsFile string
	seed        uint64
	plotPath    string
	quiet       bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "sampler config file (.json, .yaml or .yml)")
	fs.StringVar(&c.dbPath, "db", "", "path to sqlite db (default from config, then stellarpop.db)")
	fs.StringVar(&c.refImage, "ref-image", "", "reference FITS image whose WCS converts RA/DEC to pixels")
	fs.StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile when done")
	fs.Uint64Var(&c.seed, "seed", 0, "random seed (default from config, else the clock)")
	fs.StringVar(&c.plotPath, "plot", "", "write a PNG plot of the positions")
	fs.BoolVar(&c.quiet, "q", false, "suppress progress logging")
}

// loadConfig returns the environment config, replaced by -config when given.
func (c *commonFlags) loadConfig() (*config.SamplerConfig, error) {
	cfg, err := config.FromEnv(envFile)
	if err != nil {
		return nil, err
	}
	if c.configPath != "" {
		cfg, err = config.LoadSamplerConfig(c.configPath)
		if err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// flagsSet reports which flags were given on the command line.
func flagsSet(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// runtime holds what the sampling commands build from flags and config.
type runtime struct {
	cfg       *config.SamplerConfig
	rng       *rand.Rand
	transform wcs.Transform
	registry  *prometheus.Registry
	metrics   *monitoring.Metrics
	metricsTo string
	dbPath    string
}

func (c *commonFlags) setup(fs *flag.FlagSet) (*runtime, error) {
	if c.quiet {
		monitoring.SetLogger(nil)
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	set := flagsSet(fs)
	rt := &runtime{cfg: cfg, dbPath: cfg.GetDBPath(), metricsTo: cfg.GetMetricsFile()}
	if set["db"] {
		rt.dbPath = c.dbPath
	}
	if set["metrics-file"] {
		rt.metricsTo = c.metricsFile
	}

	switch seed, ok := cfg.GetSeed(); {
	case set["seed"]:
		rt.rng = ast.NewRand(c.seed)
	case ok:
		rt.rng = ast.NewRand(seed)
	}

	refImage := cfg.GetReferenceImage()
	if set["ref-image"] {
		refImage = c.refImage
	}
	if refImage != "" {
		tan, err := wcs.FromFITS(refImage)
		if err != nil {
			return nil, err
		}
		rt.transform = tan
	}

	rt.registry = prometheus.NewRegistry()
	rt.metrics, err = monitoring.NewMetrics(rt.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return rt, nil
}

// flushMetrics writes the registry to the configured textfile, if any.
func (rt *runtime) flushMetrics() error {
	if rt.metricsTo == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(rt.metricsTo, rt.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func (rt *runtime) openDB() (*db.DB, error) {
	d, err := db.NewDB(rt.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return d, nil
}
