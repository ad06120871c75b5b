package grid

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/banshee-data/stellarpop/internal/extinction"
	"github.com/banshee-data/stellarpop/internal/monitoring"
	"github.com/banshee-data/stellarpop/internal/phot"
	"gonum.org/v1/gonum/mat"
)

// HeaderExtLaw is the header key naming the extinction law applied to a grid.
const HeaderExtLaw = "ExtLaw"

// SpectralGrid is a grid of spectra sampled on a common wavelength axis.
type SpectralGrid struct {
	*ModelGrid
}

// NewSpectral returns a spectral grid over b.
func NewSpectral(b Backend) *SpectralGrid {
	return &SpectralGrid{ModelGrid: New(b)}
}

// Copy returns an in-memory deep copy.
func (g *SpectralGrid) Copy() (*SpectralGrid, error) {
	c, err := g.ModelGrid.Copy()
	if err != nil {
		return nil, err
	}
	return &SpectralGrid{ModelGrid: c}, nil
}

// ApplyExtinctionLaw multiplies every spectrum by exp(-law(λ)) and records
// the law name and params in the header. With inplace the receiver is
// changed and returned; otherwise a reddened copy is returned and the
// receiver is left alone.
func (g *SpectralGrid) ApplyExtinctionLaw(law extinction.Law, params map[string]float64, inplace bool) (*SpectralGrid, error) {
	if law == nil {
		return nil, errors.New("no extinction law given")
	}
	target := g
	if !inplace {
		c, err := g.Copy()
		if err != nil {
			return nil, err
		}
		target = c
	}

	lamb, err := target.Lamb()
	if err != nil {
		return nil, err
	}
	seds, err := target.SEDs()
	if err != nil {
		return nil, err
	}
	if seds == nil {
		return nil, fmt.Errorf("%w: grid has no spectra", ErrShape)
	}
	if _, c := seds.Dims(); c != len(lamb) {
		return nil, fmt.Errorf("%w: spectra have %d columns for %d wavelengths", ErrShape, c, len(lamb))
	}

	f, err := law.Function(lamb, params)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", law.Name(), err)
	}
	curve := make([]float64, len(f))
	for i, v := range f {
		curve[i] = math.Exp(-v)
	}

	var reddened mat.Dense
	reddened.Apply(func(_, j int, v float64) float64 { return v * curve[j] }, seds)
	if err := target.SetSEDs(&reddened); err != nil {
		return nil, err
	}

	header, err := target.Header()
	if err != nil {
		return nil, err
	}
	header = cloneStrings(header)
	header[HeaderExtLaw] = law.Name()
	for _, k := range sortedKeys(params) {
		header[k] = strconv.FormatFloat(params[k], 'g', -1, 64)
	}
	if err := target.SetHeader(header); err != nil {
		return nil, err
	}
	return target, nil
}

// SEDOptions controls GetSEDs.
type SEDOptions struct {
	// ExtLaw, when set, is applied before integrating.
	ExtLaw    extinction.Law
	ExtParams map[string]float64

	// Inplace applies the extinction to the receiver instead of a copy.
	Inplace bool

	// Pivot labels the SED columns with the filters' pivot wavelengths
	// instead of their transmission-weighted central wavelengths.
	Pivot bool
}

// GetSEDs integrates every spectrum through every filter and returns an
// in-memory SED grid. Its wavelengths are the filters' central wavelengths,
// or their pivot wavelengths when opts.Pivot is set.
func (g *SpectralGrid) GetSEDs(filters []phot.Filter, opts SEDOptions) (*SEDGrid, error) {
	if len(filters) == 0 {
		return nil, errors.New("no filters given")
	}
	source := g
	if opts.ExtLaw != nil {
		r, err := g.ApplyExtinctionLaw(opts.ExtLaw, opts.ExtParams, opts.Inplace)
		if err != nil {
			return nil, err
		}
		source = r
	}

	lamb, err := source.Lamb()
	if err != nil {
		return nil, err
	}
	spectra, err := source.SEDs()
	if err != nil {
		return nil, err
	}
	if spectra == nil {
		return nil, fmt.Errorf("%w: grid has no spectra", ErrShape)
	}
	nModels, nLamb := spectra.Dims()
	if nLamb != len(lamb) {
		return nil, fmt.Errorf("%w: spectra have %d columns for %d wavelengths", ErrShape, nLamb, len(lamb))
	}

	integrators := make([]*phot.Integrator, len(filters))
	centers := make([]float64, len(filters))
	for i, f := range filters {
		in, err := f.On(lamb)
		if err != nil {
			return nil, err
		}
		integrators[i] = in
		if opts.Pivot {
			centers[i] = f.Pivot()
		} else {
			centers[i] = f.Central()
		}
	}

	seds := mat.NewDense(max(nModels, 1), len(filters), nil)
	row := make([]float64, nLamb)
	pbar := monitoring.NewProgress("integrating spectra through filters", nModels)
	for i := 0; i < nModels; i++ {
		mat.Row(row, i, spectra)
		for j, in := range integrators {
			v, err := in.Flux(row)
			if err != nil {
				return nil, err
			}
			seds.Set(i, j, v)
		}
		pbar.Add(1)
	}
	if nModels == 0 {
		seds = nil
	}

	grid, err := source.Grid()
	if err != nil {
		return nil, err
	}
	header, err := source.Header()
	if err != nil {
		return nil, err
	}
	aliases, err := source.Aliases()
	if err != nil {
		return nil, err
	}
	d := &Data{Lamb: centers, SEDs: seds, Header: cloneStrings(header), Aliases: cloneStrings(aliases)}
	if grid != nil {
		d.Grid = grid.Clone()
	}
	return &SEDGrid{ModelGrid: New(NewMemoryBackend(d)), Filters: phot.Names(filters)}, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
