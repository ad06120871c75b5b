package ast

import (
	"math/rand/v2"
	"time"

	"github.com/banshee-data/stellarpop/internal/table"
)

// Output column names.
const (
	ColZeros = "zeros"
	ColOnes  = "ones"
	ColRA    = "RA"
	ColDec   = "DEC"
	ColX     = "X"
	ColY     = "Y"
	ColBin   = "bin"
)

// prependMarkers inserts the zeros/ones marker columns followed by the two
// position columns at the front of t.
func prependMarkers(t *table.Table, xName string, xs []float64, yName string, ys []float64, format string) error {
	n := t.Len()
	zeros := make([]int64, n)
	ones := make([]int64, n)
	for i := range ones {
		ones[i] = 1
	}
	cols := []*table.Column{
		table.NewIntColumn(ColZeros, zeros),
		table.NewIntColumn(ColOnes, ones),
		{Name: xName, Kind: table.Float, Floats: xs, Format: format},
		{Name: yName, Kind: table.Float, Floats: ys, Format: format},
	}
	for i, c := range cols {
		if err := t.InsertColumn(i, c); err != nil {
			return err
		}
	}
	return nil
}

// rngOrDefault returns r, or a time-seeded generator when r is nil.
func rngOrDefault(r *rand.Rand) *rand.Rand {
	if r != nil {
		return r
	}
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// NewRand returns a generator seeded for reproducible sampling.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
