package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/stellarpop/internal/config"
	"github.com/banshee-data/stellarpop/internal/db"
	"github.com/banshee-data/stellarpop/internal/extinction"
	"github.com/banshee-data/stellarpop/internal/fsutil"
	"github.com/banshee-data/stellarpop/internal/grid"
	"github.com/banshee-data/stellarpop/internal/monitoring"
	"github.com/banshee-data/stellarpop/internal/phot"
	"github.com/banshee-data/stellarpop/internal/table"
	"gonum.org/v1/gonum/mat"
)

// headerFilters lists the bands of an SED grid.
const headerFilters = "Filters"

var osFS fsutil.FileSystem = fsutil.OSFileSystem{}

// pairs collects repeated key=value flags.
type pairs map[string]string

func (p pairs) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k+"="+p[k])
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (p pairs) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	p[strings.TrimSpace(k)] = strings.TrimSpace(val)
	return nil
}

// storeFlags are the db and backend settings shared by every command.
type storeFlags struct {
	configPath string
	dbPath     string
	backend    string
	quiet      bool
}

func (s *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.configPath, "config", "", "sampler config file (.json, .yaml or .yml)")
	fs.StringVar(&s.dbPath, "db", "", "path to sqlite db (default from config, then stellarpop.db)")
	fs.StringVar(&s.backend, "backend", "", "grid backend: memory, cache or sqlite")
	fs.BoolVar(&s.quiet, "q", false, "suppress progress logging")
}

// open resolves config, then opens and migrates the db.
func (s *storeFlags) open() (*db.DB, string, error) {
	if s.quiet {
		monitoring.SetLogger(nil)
	}
	cfg, err := config.FromEnv(envFile)
	if err != nil {
		return nil, "", err
	}
	if s.configPath != "" {
		if cfg, err = config.LoadSamplerConfig(s.configPath); err != nil {
			return nil, "", err
		}
	}
	dbPath := cfg.GetDBPath()
	if s.dbPath != "" {
		dbPath = s.dbPath
	}
	backend := cfg.GetGridBackend()
	if s.backend != "" {
		backend = s.backend
	}
	d, err := db.NewDB(dbPath)
	if err != nil {
		return nil, "", fmt.Errorf("open db: %w", err)
	}
	return d, backend, nil
}

// resolveGrid finds a grid by id, or by name with the newest one winning.
func resolveGrid(d *db.DB, ref string) (*db.GridInfo, error) {
	if info, err := d.GetGridInfo(ref); err == nil {
		return info, nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	infos, err := d.ListGrids()
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Name == ref {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("grid %q: %w", ref, db.ErrNotFound)
}

// openGrid builds the named backend over a stored grid.
func openGrid(d *db.DB, backend, id string) (*grid.SpectralGrid, error) {
	opts := grid.Options{Store: d, ID: id}
	if name := strings.ToLower(strings.TrimSpace(backend)); name == "" || name == grid.BackendMemory {
		data, err := d.LoadGrid(id)
		if err != nil {
			return nil, err
		}
		opts.Data = data
	}
	b, err := grid.NewBackend(backend, opts)
	if err != nil {
		return nil, err
	}
	return grid.NewSpectral(b), nil
}

// readGridTable splits a table into wavelength columns, named by a number,
// and parameter columns.
func readGridTable(path string) (*grid.Data, error) {
	t, err := table.ReadFile(osFS, path)
	if err != nil {
		return nil, err
	}
	type sample struct {
		lamb float64
		flux []float64
	}
	var samples []sample
	params := table.New()
	for _, c := range t.Columns() {
		if l, err := strconv.ParseFloat(c.Name, 64); err == nil {
			samples = append(samples, sample{lamb: l, flux: c.AsFloats()})
			continue
		}
		if err := params.AddColumn(c); err != nil {
			return nil, err
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("grid table %s has no wavelength columns", path)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].lamb < samples[j].lamb })

	d := &grid.Data{
		Lamb:    make([]float64, len(samples)),
		Grid:    params,
		Header:  map[string]string{},
		Aliases: map[string]string{},
	}
	if t.Len() > 0 {
		d.SEDs = mat.NewDense(t.Len(), len(samples), nil)
	}
	for j, s := range samples {
		d.Lamb[j] = s.lamb
		if d.SEDs != nil {
			d.SEDs.SetCol(j, s.flux)
		}
	}
	return d, d.Validate()
}

func runImport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	var store storeFlags
	store.register(fs)
	tablePath := fs.String("table", "", "grid table (required)")
	name := fs.String("name", "", "grid name (default from the file name)")
	kind := fs.String("kind", db.KindSpectral, "grid kind: spectral or sed")
	header := pairs{}
	aliases := pairs{}
	fs.Var(header, "header", "header entry key=value (repeatable)")
	fs.Var(aliases, "alias", "parameter alias alias=column (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tablePath == "" {
		return errors.New("-table is required")
	}
	if *kind != db.KindSpectral && *kind != db.KindSED {
		return fmt.Errorf("unknown grid kind %q", *kind)
	}
	if *name == "" {
		*name = strings.TrimSuffix(filepath.Base(*tablePath), filepath.Ext(*tablePath))
	}

	data, err := readGridTable(*tablePath)
	if err != nil {
		return err
	}
	data.Header = header
	data.Aliases = aliases

	d, _, err := store.open()
	if err != nil {
		return err
	}
	defer d.Close()

	id, err := d.CreateGrid(*name, *kind, data)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, id)
	return nil
}

func runList(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	var store storeFlags
	store.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, _, err := store.open()
	if err != nil {
		return err
	}
	defer d.Close()

	infos, err := d.ListGrids()
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Fprintf(out, "%s  %-20s %-8s %6d models %6d lamb  %s\n",
			info.ID, info.Name, info.Kind, info.NModels, info.NLamb, info.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runInfo(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	var store storeFlags
	store.register(fs)
	ref := fs.String("grid", "", "grid id or name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ref == "" {
		return errors.New("-grid is required")
	}
	d, backend, err := store.open()
	if err != nil {
		return err
	}
	defer d.Close()

	info, err := resolveGrid(d, *ref)
	if err != nil {
		return err
	}
	g, err := openGrid(d, backend, info.ID)
	if err != nil {
		return err
	}
	defer g.Close()

	header, err := g.Header()
	if err != nil {
		return err
	}
	var desc fmt.Stringer = g.ModelGrid
	if info.Kind == db.KindSED {
		desc = &grid.SEDGrid{ModelGrid: g.ModelGrid, Filters: strings.Split(header[headerFilters], ",")}
	}

	fmt.Fprintf(out, "%s  %s  kind=%s\n", info.ID, info.Name, info.Kind)
	fmt.Fprintln(out, desc.String())

	n, err := g.Len()
	if err != nil {
		return err
	}
	lamb, err := g.Lamb()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "models: %d  wavelengths: %d", n, len(lamb))
	if len(lamb) > 0 {
		fmt.Fprintf(out, " (%g - %g)", lamb[0], lamb[len(lamb)-1])
	}
	fmt.Fprintln(out)

	keys, err := g.Keys()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "parameters: %s\n", strings.Join(keys, " "))

	aliases, err := g.Aliases()
	if err != nil {
		return err
	}
	for _, k := range sortedKeys(aliases) {
		fmt.Fprintf(out, "alias: %s -> %s\n", k, aliases[k])
	}
	for _, k := range sortedKeys(header) {
		fmt.Fprintf(out, "header: %s = %s\n", k, header[k])
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// extinctionFlags select a law and its parameters.
type extinctionFlags struct {
	law string
	av  float64
	rv  float64
}

func (e *extinctionFlags) register(fs *flag.FlagSet, defaultAv float64) {
	fs.StringVar(&e.law, "law", "ccm89", "extinction law ("+strings.Join(extinction.Names(), ", ")+")")
	fs.Float64Var(&e.av, "av", defaultAv, "V band extinction in magnitudes")
	fs.Float64Var(&e.rv, "rv", 3.1, "total to selective extinction ratio")
}

func (e *extinctionFlags) resolve() (extinction.Law, map[string]float64, error) {
	law, err := extinction.Lookup(e.law)
	if err != nil {
		return nil, nil, err
	}
	return law, map[string]float64{"Av": e.av, "Rv": e.rv}, nil
}

func runExtinct(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("extinct", flag.ContinueOnError)
	var store storeFlags
	store.register(fs)
	var ext extinctionFlags
	ext.register(fs, 1)
	ref := fs.String("grid", "", "spectral grid id or name (required)")
	name := fs.String("name", "", "name of the reddened grid (default <name>_av<Av>)")
	inplace := fs.Bool("inplace", false, "redden the stored grid instead of creating a new one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ref == "" {
		return errors.New("-grid is required")
	}
	law, params, err := ext.resolve()
	if err != nil {
		return err
	}

	d, backend, err := store.open()
	if err != nil {
		return err
	}
	defer d.Close()

	info, err := resolveGrid(d, *ref)
	if err != nil {
		return err
	}
	if info.Kind != db.KindSpectral {
		return fmt.Errorf("grid %s is a %s grid; extinction needs spectra", info.Name, info.Kind)
	}
	g, err := openGrid(d, backend, info.ID)
	if err != nil {
		return err
	}

	reddened, err := g.ApplyExtinctionLaw(law, params, *inplace)
	if err != nil {
		g.Close()
		return err
	}

	if *inplace {
		if _, persisted := g.Backend().(*grid.PersistedBackend); !persisted {
			data, err := g.Data()
			if err != nil {
				g.Close()
				return err
			}
			if err := d.SaveGrid(info.ID, data); err != nil {
				g.Close()
				return err
			}
		}
		// Closing a persisted backend flushes the change.
		if err := g.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "reddened %s in place with %s Av=%g Rv=%g\n", info.ID, law.Name(), ext.av, ext.rv)
		return nil
	}
	defer g.Close()

	data, err := reddened.Data()
	if err != nil {
		return err
	}
	if *name == "" {
		*name = fmt.Sprintf("%s_av%g", info.Name, ext.av)
	}
	id, err := d.CreateGrid(*name, db.KindSpectral, data)
	if err != nil {
		return err
	}
	monitoring.Logf("stored reddened grid %s %s", *name, reddened.ModelGrid)
	fmt.Fprintln(out, id)
	return nil
}

func runSEDs(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seds", flag.ContinueOnError)
	var store storeFlags
	store.register(fs)
	var ext extinctionFlags
	ext.register(fs, 0)
	ref := fs.String("grid", "", "spectral grid id or name (required)")
	filterList := fs.String("filters", "", "comma separated filter curve files (required)")
	name := fs.String("name", "", "name of the SED grid (default <name>_seds)")
	pivot := fs.Bool("pivot", false, "label SEDs with pivot instead of central wavelengths")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ref == "" || *filterList == "" {
		return errors.New("-grid and -filters are required")
	}

	var filters []phot.Filter
	for _, path := range strings.Split(*filterList, ",") {
		path = strings.TrimSpace(path)
		f, err := phot.ReadFilter(osFS, path, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if err != nil {
			return err
		}
		filters = append(filters, f)
	}

	d, backend, err := store.open()
	if err != nil {
		return err
	}
	defer d.Close()

	info, err := resolveGrid(d, *ref)
	if err != nil {
		return err
	}
	if info.Kind != db.KindSpectral {
		return fmt.Errorf("grid %s is a %s grid; integration needs spectra", info.Name, info.Kind)
	}
	g, err := openGrid(d, backend, info.ID)
	if err != nil {
		return err
	}
	defer g.Close()

	opts := grid.SEDOptions{Pivot: *pivot}
	if ext.av != 0 {
		if opts.ExtLaw, opts.ExtParams, err = ext.resolve(); err != nil {
			return err
		}
	}
	seds, err := g.GetSEDs(filters, opts)
	if err != nil {
		return err
	}

	data, err := seds.Data()
	if err != nil {
		return err
	}
	data.Header[headerFilters] = strings.Join(seds.Filters, ",")
	if *name == "" {
		*name = info.Name + "_seds"
	}
	id, err := d.CreateGrid(*name, db.KindSED, data)
	if err != nil {
		return err
	}
	monitoring.Logf("stored %s", seds)
	fmt.Fprintln(out, id)
	return nil
}

func runDelete(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	var store storeFlags
	store.register(fs)
	ref := fs.String("grid", "", "grid id or name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ref == "" {
		return errors.New("-grid is required")
	}
	d, _, err := store.open()
	if err != nil {
		return err
	}
	defer d.Close()

	info, err := resolveGrid(d, *ref)
	if err != nil {
		return err
	}
	if err := d.DeleteGrid(info.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %s (%s)\n", info.ID, info.Name)
	return nil
}
