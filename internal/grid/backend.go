// Package grid holds model grids: a wavelength axis, one SED or spectrum per
// model and a table of model parameters, kept in a pluggable backend.
package grid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/stellarpop/internal/table"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownBackend is returned by NewBackend for unrecognised names.
	ErrUnknownBackend = errors.New("unknown grid backend")

	// ErrNoStore is returned when a store-backed variant has nothing to load from.
	ErrNoStore = errors.New("grid backend needs a store and a grid id")

	// ErrShape reports SEDs whose column count does not match the wavelengths.
	ErrShape = errors.New("grid shape mismatch")
)

// Backend stores the contents of a model grid. Getters return the stored
// values themselves, not copies. Store-backed variants load lazily, so every
// accessor can fail.
type Backend interface {
	Lamb() ([]float64, error)
	SEDs() (*mat.Dense, error)
	Grid() (*table.Table, error)
	Header() (map[string]string, error)
	Aliases() (map[string]string, error)

	SetLamb(lamb []float64) error
	SetSEDs(seds *mat.Dense) error
	SetGrid(grid *table.Table) error
	SetHeader(header map[string]string) error

	// Copy returns an independent in-memory copy of the contents.
	Copy() (Backend, error)
	Close() error
}

// Store persists grid contents by id. *db.DB implements it.
type Store interface {
	LoadGrid(id string) (*Data, error)
	SaveGrid(id string, d *Data) error
}

// Options configures NewBackend. Data seeds the memory backend; Store and
// ID locate the grid for the cache and sqlite backends.
type Options struct {
	Data  *Data
	Store Store
	ID    string
}

// Backend names accepted by NewBackend.
const (
	BackendMemory = "memory"
	BackendCache  = "cache"
	BackendSQLite = "sqlite"
)

// NewBackend builds the backend registered under name, ignoring case.
func NewBackend(name string, opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendMemory, "":
		return NewMemoryBackend(opts.Data), nil
	case BackendCache:
		return NewCacheBackend(opts.Store, opts.ID)
	case BackendSQLite:
		return NewPersistedBackend(opts.Store, opts.ID)
	default:
		return nil, fmt.Errorf("%w: %q (use %s, %s or %s)", ErrUnknownBackend, name, BackendMemory, BackendCache, BackendSQLite)
	}
}

// Data is the full contents of a grid.
type Data struct {
	Lamb    []float64
	SEDs    *mat.Dense
	Grid    *table.Table
	Header  map[string]string
	Aliases map[string]string
}

// Clone returns a deep copy of d.
func (d *Data) Clone() *Data {
	if d == nil {
		return &Data{}
	}
	out := &Data{
		Lamb:    append([]float64(nil), d.Lamb...),
		Header:  cloneStrings(d.Header),
		Aliases: cloneStrings(d.Aliases),
	}
	if d.SEDs != nil {
		out.SEDs = mat.DenseCopyOf(d.SEDs)
	}
	if d.Grid != nil {
		out.Grid = d.Grid.Clone()
	}
	return out
}

// Validate checks that the SEDs, wavelengths and grid table agree.
func (d *Data) Validate() error {
	if d.SEDs == nil {
		if d.Grid != nil && d.Grid.NumCols() > 0 && d.Grid.Len() > 0 {
			return fmt.Errorf("%w: %d grid rows but no SEDs", ErrShape, d.Grid.Len())
		}
		return nil
	}
	r, c := d.SEDs.Dims()
	if c != len(d.Lamb) {
		return fmt.Errorf("%w: SEDs have %d columns for %d wavelengths", ErrShape, c, len(d.Lamb))
	}
	if d.Grid != nil && d.Grid.NumCols() > 0 && d.Grid.Len() != r {
		return fmt.Errorf("%w: %d SEDs but %d grid rows", ErrShape, r, d.Grid.Len())
	}
	return nil
}

func cloneStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
