package grid

import (
	"fmt"
	"sync"

	"github.com/banshee-data/stellarpop/internal/monitoring"
	"github.com/banshee-data/stellarpop/internal/table"
	"gonum.org/v1/gonum/mat"
)

// CacheBackend loads a stored grid on first access and keeps it in memory.
// Changes stay in memory until the cache is cleared.
type CacheBackend struct {
	store Store
	id    string

	mu  sync.Mutex
	mem *MemoryBackend
}

// NewCacheBackend returns a cache over the grid id in store. Nothing is
// read until the first accessor call.
func NewCacheBackend(store Store, id string) (*CacheBackend, error) {
	if store == nil || id == "" {
		return nil, ErrNoStore
	}
	return &CacheBackend{store: store, id: id}, nil
}

// ID returns the id of the stored grid.
func (b *CacheBackend) ID() string { return b.id }

// Loaded reports whether the grid is currently cached.
func (b *CacheBackend) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mem != nil
}

// Clear drops the cached grid; the next access reloads it from the store.
func (b *CacheBackend) Clear() {
	b.mu.Lock()
	b.mem = nil
	b.mu.Unlock()
}

func (b *CacheBackend) loaded() (*MemoryBackend, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mem != nil {
		return b.mem, nil
	}
	d, err := b.store.LoadGrid(b.id)
	if err != nil {
		return nil, fmt.Errorf("load grid %s: %w", b.id, err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("load grid %s: %w", b.id, err)
	}
	monitoring.Logf("loaded grid %s: %d wavelengths", b.id, len(d.Lamb))
	b.mem = NewMemoryBackend(d)
	return b.mem, nil
}

func (b *CacheBackend) Lamb() ([]float64, error) {
	m, err := b.loaded()
	if err != nil {
		return nil, err
	}
	return m.Lamb()
}

func (b *CacheBackend) SEDs() (*mat.Dense, error) {
	m, err := b.loaded()
	if err != nil {
		return nil, err
	}
	return m.SEDs()
}

func (b *CacheBackend) Grid() (*table.Table, error) {
	m, err := b.loaded()
	if err != nil {
		return nil, err
	}
	return m.Grid()
}

func (b *CacheBackend) Header() (map[string]string, error) {
	m, err := b.loaded()
	if err != nil {
		return nil, err
	}
	return m.Header()
}

func (b *CacheBackend) Aliases() (map[string]string, error) {
	m, err := b.loaded()
	if err != nil {
		return nil, err
	}
	return m.Aliases()
}

func (b *CacheBackend) SetLamb(lamb []float64) error {
	m, err := b.loaded()
	if err != nil {
		return err
	}
	return m.SetLamb(lamb)
}

func (b *CacheBackend) SetSEDs(seds *mat.Dense) error {
	m, err := b.loaded()
	if err != nil {
		return err
	}
	return m.SetSEDs(seds)
}

func (b *CacheBackend) SetGrid(grid *table.Table) error {
	m, err := b.loaded()
	if err != nil {
		return err
	}
	return m.SetGrid(grid)
}

func (b *CacheBackend) SetHeader(header map[string]string) error {
	m, err := b.loaded()
	if err != nil {
		return err
	}
	return m.SetHeader(header)
}

// Copy loads the grid if needed and returns an in-memory copy.
func (b *CacheBackend) Copy() (Backend, error) {
	m, err := b.loaded()
	if err != nil {
		return nil, err
	}
	return m.Copy()
}

// Close drops the cache.
func (b *CacheBackend) Close() error {
	b.Clear()
	return nil
}

// PersistedBackend reads through to a store like CacheBackend and writes
// changes back on Flush or Close.
type PersistedBackend struct {
	*CacheBackend
	dirty bool
}

// NewPersistedBackend returns a read-through, write-back backend over the
// grid id in store.
func NewPersistedBackend(store Store, id string) (*PersistedBackend, error) {
	c, err := NewCacheBackend(store, id)
	if err != nil {
		return nil, err
	}
	return &PersistedBackend{CacheBackend: c}, nil
}

func (b *PersistedBackend) SetLamb(lamb []float64) error {
	return b.mark(b.CacheBackend.SetLamb(lamb))
}

func (b *PersistedBackend) SetSEDs(seds *mat.Dense) error {
	return b.mark(b.CacheBackend.SetSEDs(seds))
}

func (b *PersistedBackend) SetGrid(grid *table.Table) error {
	return b.mark(b.CacheBackend.SetGrid(grid))
}

func (b *PersistedBackend) SetHeader(header map[string]string) error {
	return b.mark(b.CacheBackend.SetHeader(header))
}

func (b *PersistedBackend) mark(err error) error {
	if err == nil {
		b.dirty = true
	}
	return err
}

// Dirty reports whether there are changes not yet written to the store.
func (b *PersistedBackend) Dirty() bool { return b.dirty }

// Flush writes pending changes to the store.
func (b *PersistedBackend) Flush() error {
	if !b.dirty {
		return nil
	}
	m, err := b.loaded()
	if err != nil {
		return err
	}
	if err := m.Data().Validate(); err != nil {
		return fmt.Errorf("flush grid %s: %w", b.id, err)
	}
	if err := b.store.SaveGrid(b.id, m.Data()); err != nil {
		return fmt.Errorf("flush grid %s: %w", b.id, err)
	}
	b.dirty = false
	return nil
}

// Close flushes pending changes and drops the cache.
func (b *PersistedBackend) Close() error {
	if err := b.Flush(); err != nil {
		return err
	}
	return b.CacheBackend.Close()
}
