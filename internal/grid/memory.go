package grid

import (
	"github.com/banshee-data/stellarpop/internal/table"
	"gonum.org/v1/gonum/mat"
)

// MemoryBackend keeps the whole grid in memory.
type MemoryBackend struct {
	data *Data
}

// NewMemoryBackend wraps d without copying it. A nil d gives an empty grid.
func NewMemoryBackend(d *Data) *MemoryBackend {
	if d == nil {
		d = &Data{}
	}
	if d.Header == nil {
		d.Header = map[string]string{}
	}
	if d.Aliases == nil {
		d.Aliases = map[string]string{}
	}
	if d.Grid == nil {
		d.Grid = table.New()
	}
	return &MemoryBackend{data: d}
}

func (b *MemoryBackend) Lamb() ([]float64, error)            { return b.data.Lamb, nil }
func (b *MemoryBackend) SEDs() (*mat.Dense, error)           { return b.data.SEDs, nil }
func (b *MemoryBackend) Grid() (*table.Table, error)         { return b.data.Grid, nil }
func (b *MemoryBackend) Header() (map[string]string, error)  { return b.data.Header, nil }
func (b *MemoryBackend) Aliases() (map[string]string, error) { return b.data.Aliases, nil }

func (b *MemoryBackend) SetLamb(lamb []float64) error {
	b.data.Lamb = lamb
	return nil
}

func (b *MemoryBackend) SetSEDs(seds *mat.Dense) error {
	b.data.SEDs = seds
	return nil
}

func (b *MemoryBackend) SetGrid(grid *table.Table) error {
	if grid == nil {
		grid = table.New()
	}
	b.data.Grid = grid
	return nil
}

func (b *MemoryBackend) SetHeader(header map[string]string) error {
	if header == nil {
		header = map[string]string{}
	}
	b.data.Header = header
	return nil
}

// Copy returns a deep copy.
func (b *MemoryBackend) Copy() (Backend, error) {
	return NewMemoryBackend(b.data.Clone()), nil
}

// Data returns the contents held by the backend.
func (b *MemoryBackend) Data() *Data { return b.data }

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }
