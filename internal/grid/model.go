package grid

import (
	"fmt"

	"github.com/banshee-data/stellarpop/internal/table"
	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/mat"
)

// ModelGrid is a grid of models over some backend.
type ModelGrid struct {
	backend Backend
}

// New returns a grid over b.
func New(b Backend) *ModelGrid {
	return &ModelGrid{backend: b}
}

// NewMemory returns an in-memory grid holding the given contents.
func NewMemory(lamb []float64, seds *mat.Dense, grid *table.Table) (*ModelGrid, error) {
	d := &Data{Lamb: lamb, SEDs: seds, Grid: grid}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return New(NewMemoryBackend(d)), nil
}

// Backend returns the underlying backend.
func (g *ModelGrid) Backend() Backend { return g.backend }

func (g *ModelGrid) Lamb() ([]float64, error)            { return g.backend.Lamb() }
func (g *ModelGrid) SEDs() (*mat.Dense, error)           { return g.backend.SEDs() }
func (g *ModelGrid) Grid() (*table.Table, error)         { return g.backend.Grid() }
func (g *ModelGrid) Header() (map[string]string, error)  { return g.backend.Header() }
func (g *ModelGrid) Aliases() (map[string]string, error) { return g.backend.Aliases() }

// SetLamb overrides the wavelengths.
func (g *ModelGrid) SetLamb(lamb []float64) error { return g.backend.SetLamb(lamb) }

// SetSEDs overrides the SED matrix.
func (g *ModelGrid) SetSEDs(seds *mat.Dense) error { return g.backend.SetSEDs(seds) }

// SetGrid overrides the parameter table.
func (g *ModelGrid) SetGrid(grid *table.Table) error { return g.backend.SetGrid(grid) }

// SetHeader overrides the header.
func (g *ModelGrid) SetHeader(header map[string]string) error { return g.backend.SetHeader(header) }

// Keys returns the grid parameter names.
func (g *ModelGrid) Keys() ([]string, error) {
	t, err := g.backend.Grid()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	return t.ColNames(), nil
}

// Column returns a grid parameter by name. Aliases are resolved first.
func (g *ModelGrid) Column(name string) ([]float64, error) {
	t, err := g.backend.Grid()
	if err != nil {
		return nil, err
	}
	aliases, err := g.backend.Aliases()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", table.ErrColumnNotFound, name)
	}
	if target, ok := aliases[name]; ok && !t.HasColumn(name) {
		name = target
	}
	return t.Floats(name)
}

// Len returns the number of models.
func (g *ModelGrid) Len() (int, error) {
	seds, err := g.backend.SEDs()
	if err != nil {
		return 0, err
	}
	if seds == nil {
		t, err := g.backend.Grid()
		if err != nil || t == nil {
			return 0, err
		}
		return t.Len(), nil
	}
	r, _ := seds.Dims()
	return r, nil
}

// NBytes estimates the memory held by the grid contents.
func (g *ModelGrid) NBytes() (int64, error) {
	lamb, err := g.backend.Lamb()
	if err != nil {
		return 0, err
	}
	n := int64(8 * len(lamb))

	seds, err := g.backend.SEDs()
	if err != nil {
		return 0, err
	}
	if seds != nil {
		r, c := seds.Dims()
		n += int64(8 * r * c)
	}

	t, err := g.backend.Grid()
	if err != nil {
		return 0, err
	}
	if t != nil {
		n += int64(8 * t.Len() * t.NumCols())
	}

	for _, m := range []func() (map[string]string, error){g.backend.Header, g.backend.Aliases} {
		h, err := m()
		if err != nil {
			return 0, err
		}
		for k, v := range h {
			n += int64(len(k) + len(v))
		}
	}
	return n, nil
}

// String reports the grid size in human units.
func (g *ModelGrid) String() string {
	return "ModelGrid " + g.size()
}

func (g *ModelGrid) size() string {
	n, err := g.NBytes()
	if err != nil {
		return fmt.Sprintf("(%v)", err)
	}
	return fmt.Sprintf("(%s)", humanize.Bytes(uint64(n)))
}

// Copy returns an in-memory deep copy of the grid.
func (g *ModelGrid) Copy() (*ModelGrid, error) {
	b, err := g.backend.Copy()
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

// Data returns a deep copy of the grid contents.
func (g *ModelGrid) Data() (*Data, error) {
	c, err := g.backend.Copy()
	if err != nil {
		return nil, err
	}
	if m, ok := c.(*MemoryBackend); ok {
		return m.Data(), nil
	}
	d := &Data{}
	if d.Lamb, err = c.Lamb(); err != nil {
		return nil, err
	}
	if d.SEDs, err = c.SEDs(); err != nil {
		return nil, err
	}
	if d.Grid, err = c.Grid(); err != nil {
		return nil, err
	}
	if d.Header, err = c.Header(); err != nil {
		return nil, err
	}
	if d.Aliases, err = c.Aliases(); err != nil {
		return nil, err
	}
	return d, nil
}

// Close releases the backend.
func (g *ModelGrid) Close() error { return g.backend.Close() }

// SEDGrid is a grid of integrated SEDs, one column per filter.
type SEDGrid struct {
	*ModelGrid
	Filters []string
}

// Copy returns an in-memory deep copy keeping the filter names.
func (g *SEDGrid) Copy() (*SEDGrid, error) {
	c, err := g.ModelGrid.Copy()
	if err != nil {
		return nil, err
	}
	return &SEDGrid{ModelGrid: c, Filters: append([]string(nil), g.Filters...)}, nil
}

// String reports the grid size and bands.
func (g *SEDGrid) String() string {
	return fmt.Sprintf("SEDGrid %v %s", g.Filters, g.size())
}
