package grid

import (
	"github.com/banshee-data/stellarpop/internal/phot"
	"github.com/banshee-data/stellarpop/internal/table"
	"gonum.org/v1/gonum/mat"
)

// Stellib is a stellar spectral library: one spectrum per row of Grid, all
// sampled on Wavelength.
type Stellib struct {
	Name       string
	Wavelength []float64
	Spectra    *mat.Dense
	Grid       *table.Table
}

// Copy returns a deep copy of the library.
func (s *Stellib) Copy() *Stellib {
	d := (&Data{Lamb: s.Wavelength, SEDs: s.Spectra, Grid: s.Grid}).Clone()
	return &Stellib{Name: s.Name, Wavelength: d.Lamb, Spectra: d.SEDs, Grid: d.Grid}
}

// StellibGrid holds the SEDs of a spectral library integrated through a
// filter set, keeping a reference to the library.
type StellibGrid struct {
	*SpectralGrid
	Library *Stellib
	Filters []string
}

// NewStellibGrid integrates lib through filters.
func NewStellibGrid(lib *Stellib, filters []phot.Filter, header, aliases map[string]string) (*StellibGrid, error) {
	src := &Data{Lamb: lib.Wavelength, SEDs: lib.Spectra, Grid: lib.Grid}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	sedGrid, err := NewSpectral(NewMemoryBackend(src)).GetSEDs(filters, SEDOptions{})
	if err != nil {
		return nil, err
	}
	lamb, _ := sedGrid.Lamb()
	seds, _ := sedGrid.SEDs()

	d := &Data{
		Lamb:    lamb,
		SEDs:    seds,
		Grid:    lib.Grid,
		Header:  cloneStrings(header),
		Aliases: cloneStrings(aliases),
	}
	return &StellibGrid{
		SpectralGrid: NewSpectral(NewMemoryBackend(d)),
		Library:      lib,
		Filters:      sedGrid.Filters,
	}, nil
}

// Copy duplicates the grid and the library.
func (g *StellibGrid) Copy() (*StellibGrid, error) {
	c, err := g.SpectralGrid.Copy()
	if err != nil {
		return nil, err
	}
	return &StellibGrid{
		SpectralGrid: c,
		Library:      g.Library.Copy(),
		Filters:      append([]string(nil), g.Filters...),
	}, nil
}
