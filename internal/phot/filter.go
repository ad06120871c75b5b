// Package phot integrates spectra through photometric filter curves.
package phot

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/stellarpop/internal/fsutil"
	"github.com/banshee-data/stellarpop/internal/table"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
)

var (
	// ErrBadCurve reports a wavelength grid that is too short, unsorted or
	// mismatched with its values.
	ErrBadCurve = errors.New("invalid wavelength curve")

	// ErrNoOverlap reports a filter whose passband misses the spectrum grid.
	ErrNoOverlap = errors.New("filter does not overlap the wavelength grid")
)

// Filter is a transmission curve sampled on an increasing wavelength grid
// in Angstrom.
type Filter struct {
	Name         string
	Wavelength   []float64
	Transmission []float64
}

// NewFilter validates the curve and returns a filter over copies of it.
func NewFilter(name string, wavelength, transmission []float64) (Filter, error) {
	if err := checkCurve(wavelength, transmission); err != nil {
		return Filter{}, fmt.Errorf("filter %s: %w", name, err)
	}
	for i, t := range transmission {
		if t < 0 || math.IsNaN(t) {
			return Filter{}, fmt.Errorf("filter %s: %w: transmission %g at index %d", name, ErrBadCurve, t, i)
		}
	}
	return Filter{
		Name:         name,
		Wavelength:   append([]float64(nil), wavelength...),
		Transmission: append([]float64(nil), transmission...),
	}, nil
}

func checkCurve(x, y []float64) error {
	if len(x) < 2 {
		return fmt.Errorf("%w: need at least 2 points, got %d", ErrBadCurve, len(x))
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d wavelengths but %d values", ErrBadCurve, len(x), len(y))
	}
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) {
			return fmt.Errorf("%w: wavelengths not strictly increasing at index %d", ErrBadCurve, i)
		}
	}
	return nil
}

// Central returns the transmission-weighted mean wavelength.
func (f Filter) Central() float64 {
	weighted := make([]float64, len(f.Wavelength))
	for i, l := range f.Wavelength {
		weighted[i] = l * f.Transmission[i]
	}
	norm := integrate.Trapezoidal(f.Wavelength, f.Transmission)
	if norm == 0 {
		return math.NaN()
	}
	return integrate.Trapezoidal(f.Wavelength, weighted) / norm
}

// Pivot returns the pivot wavelength sqrt(∫λT dλ / ∫T/λ dλ).
func (f Filter) Pivot() float64 {
	num := make([]float64, len(f.Wavelength))
	den := make([]float64, len(f.Wavelength))
	for i, l := range f.Wavelength {
		num[i] = l * f.Transmission[i]
		den[i] = f.Transmission[i] / l
	}
	d := integrate.Trapezoidal(f.Wavelength, den)
	if d == 0 {
		return math.NaN()
	}
	return math.Sqrt(integrate.Trapezoidal(f.Wavelength, num) / d)
}

// Integrate returns the photon-weighted mean flux density of spectrum, sampled
// on lamb, through the filter.
func (f Filter) Integrate(lamb, spectrum []float64) (float64, error) {
	in, err := f.On(lamb)
	if err != nil {
		return 0, err
	}
	return in.Flux(spectrum)
}

// Integrator holds a filter resampled onto a fixed wavelength grid so many
// spectra sharing that grid can be integrated cheaply.
type Integrator struct {
	Filter Filter
	lamb   []float64
	weight []float64
	norm   float64
	buf    []float64
}

// On resamples the filter onto lamb. Transmission outside the filter's own
// wavelength range is zero.
func (f Filter) On(lamb []float64) (*Integrator, error) {
	if err := checkCurve(lamb, lamb); err != nil {
		return nil, err
	}
	if err := checkCurve(f.Wavelength, f.Transmission); err != nil {
		return nil, fmt.Errorf("filter %s: %w", f.Name, err)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(f.Wavelength, f.Transmission); err != nil {
		return nil, err
	}
	lo, hi := f.Wavelength[0], f.Wavelength[len(f.Wavelength)-1]
	weight := make([]float64, len(lamb))
	for i, l := range lamb {
		if l < lo || l > hi {
			continue
		}
		weight[i] = pl.Predict(l) * l
	}
	norm := integrate.Trapezoidal(lamb, weight)
	if norm <= 0 {
		return nil, fmt.Errorf("filter %s: %w", f.Name, ErrNoOverlap)
	}
	return &Integrator{
		Filter: f,
		lamb:   lamb,
		weight: weight,
		norm:   norm,
		buf:    make([]float64, len(lamb)),
	}, nil
}

// Flux integrates one spectrum. It is not safe for concurrent use.
func (in *Integrator) Flux(spectrum []float64) (float64, error) {
	if len(spectrum) != len(in.lamb) {
		return 0, fmt.Errorf("%w: spectrum has %d samples, grid has %d", ErrBadCurve, len(spectrum), len(in.lamb))
	}
	for i, w := range in.weight {
		in.buf[i] = w * spectrum[i]
	}
	return integrate.Trapezoidal(in.lamb, in.buf) / in.norm, nil
}

// ReadFilter loads a filter from a text table whose first two columns are
// wavelength and transmission.
func ReadFilter(fsys fsutil.FileSystem, path, name string) (Filter, error) {
	t, err := table.ReadFile(fsys, path)
	if err != nil {
		return Filter{}, err
	}
	if t.NumCols() < 2 {
		return Filter{}, fmt.Errorf("filter table %s: need wavelength and transmission columns, got %d", path, t.NumCols())
	}
	cols := t.Columns()
	return NewFilter(name, cols[0].AsFloats(), cols[1].AsFloats())
}

// Names returns the filter names in order.
func Names(filters []Filter) []string {
	names := make([]string, len(filters))
	for i, f := range filters {
		names[i] = f.Name
	}
	return names
}
