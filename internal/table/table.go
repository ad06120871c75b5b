// Package table holds the small column-oriented table used for model
// magnitude lists, photometric catalogs, density map tiles and AST output.
// Columns are either float64 or int64 and keep their insertion order.
package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrColumnNotFound is returned when a named column does not exist.
var ErrColumnNotFound = errors.New("column not found")

// Kind is the storage type of a column.
type Kind int

const (
	Float Kind = iota
	Int
)

func (k Kind) String() string {
	if k == Int {
		return "int"
	}
	return "float"
}

// Column is a named, typed vector. Exactly one of Floats or Ints is used,
// according to Kind. Format is a printf verb applied when the table is
// written; empty means shortest round-trip representation.
type Column struct {
	Name   string
	Kind   Kind
	Floats []float64
	Ints   []int64
	Format string
}

// NewFloatColumn returns a float column holding data.
func NewFloatColumn(name string, data []float64) *Column {
	return &Column{Name: name, Kind: Float, Floats: data}
}

// NewIntColumn returns an integer column holding data.
func NewIntColumn(name string, data []int64) *Column {
	return &Column{Name: name, Kind: Int, Ints: data}
}

// Len is the number of values in the column.
func (c *Column) Len() int {
	if c.Kind == Int {
		return len(c.Ints)
	}
	return len(c.Floats)
}

// Float returns value i as a float64 whatever the column kind.
func (c *Column) Float(i int) float64 {
	if c.Kind == Int {
		return float64(c.Ints[i])
	}
	return c.Floats[i]
}

// AsFloats returns the column as a float slice. Float columns return their
// backing slice; integer columns are converted into a new slice.
func (c *Column) AsFloats() []float64 {
	if c.Kind == Float {
		return c.Floats
	}
	out := make([]float64, len(c.Ints))
	for i, v := range c.Ints {
		out[i] = float64(v)
	}
	return out
}

// FormatValue renders value i using the column format.
func (c *Column) FormatValue(i int) string {
	if c.Kind == Int {
		v := c.Ints[i]
		switch {
		case c.Format == "":
			return strconv.FormatInt(v, 10)
		case isFloatVerb(c.Format):
			return fmt.Sprintf(c.Format, float64(v))
		default:
			return fmt.Sprintf(c.Format, v)
		}
	}
	v := c.Floats[i]
	switch {
	case c.Format == "":
		return strconv.FormatFloat(v, 'g', -1, 64)
	case isFloatVerb(c.Format):
		return fmt.Sprintf(c.Format, v)
	default:
		return fmt.Sprintf(c.Format, int64(v))
	}
}

func isFloatVerb(format string) bool {
	return strings.ContainsAny(format[len(format)-1:], "eEfFgG")
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Format: c.Format}
	if c.Kind == Int {
		out.Ints = append([]int64(nil), c.Ints...)
	} else {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	return out
}

// Table is an ordered set of equal-length columns.
type Table struct {
	cols []*Column
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// Len is the number of rows. An empty table has zero rows.
func (t *Table) Len() int {
	if t == nil || len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols is the number of columns.
func (t *Table) NumCols() int {
	return len(t.cols)
}

// ColNames returns the column names in order.
func (t *Table) ColNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column called name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.cols {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Columns returns the columns in order. The slice is shared with the table.
func (t *Table) Columns() []*Column {
	return t.cols
}

// Floats returns the named column as float64 values.
func (t *Table) Floats(name string) ([]float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return c.AsFloats(), nil
}

// AddColumn appends c as the last column.
func (t *Table) AddColumn(c *Column) error {
	return t.InsertColumn(len(t.cols), c)
}

// AddFloatColumn appends a float column.
func (t *Table) AddFloatColumn(name string, data []float64) error {
	return t.AddColumn(NewFloatColumn(name, data))
}

// AddIntColumn appends an integer column.
func (t *Table) AddIntColumn(name string, data []int64) error {
	return t.AddColumn(NewIntColumn(name, data))
}

// InsertColumn inserts c so that it becomes column index. Names must be
// unique and lengths must match the existing rows.
func (t *Table) InsertColumn(index int, c *Column) error {
	if c == nil || c.Name == "" {
		return errors.New("column must have a name")
	}
	if t.HasColumn(c.Name) {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if len(t.cols) > 0 && c.Len() != t.Len() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name, c.Len(), t.Len())
	}
	if index < 0 || index > len(t.cols) {
		return fmt.Errorf("column index %d out of range [0, %d]", index, len(t.cols))
	}
	t.cols = append(t.cols, nil)
	copy(t.cols[index+1:], t.cols[index:])
	t.cols[index] = c
	return nil
}

// SetFormat sets the output format of the named column.
func (t *Table) SetFormat(name, format string) error {
	c, ok := t.Column(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	c.Format = format
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{cols: make([]*Column, len(t.cols))}
	for i, c := range t.cols {
		out.cols[i] = c.clone()
	}
	return out
}

// Repeat returns a new table where every row is repeated n times in place,
// so rows a,b with n=2 become a,a,b,b.
func (t *Table) Repeat(n int) *Table {
	if n < 0 {
		n = 0
	}
	rows := t.Len()
	out := &Table{cols: make([]*Column, len(t.cols))}
	for ci, c := range t.cols {
		nc := &Column{Name: c.Name, Kind: c.Kind, Format: c.Format}
		if c.Kind == Int {
			nc.Ints = make([]int64, 0, rows*n)
			for _, v := range c.Ints {
				for k := 0; k < n; k++ {
					nc.Ints = append(nc.Ints, v)
				}
			}
		} else {
			nc.Floats = make([]float64, 0, rows*n)
			for _, v := range c.Floats {
				for k := 0; k < n; k++ {
					nc.Floats = append(nc.Floats, v)
				}
			}
		}
		out.cols[ci] = nc
	}
	return out
}

// Tile returns a new table holding n consecutive copies of the whole table,
// so rows a,b with n=2 become a,b,a,b.
func (t *Table) Tile(n int) *Table {
	if n < 0 {
		n = 0
	}
	out := &Table{cols: make([]*Column, len(t.cols))}
	for ci, c := range t.cols {
		nc := &Column{Name: c.Name, Kind: c.Kind, Format: c.Format}
		for k := 0; k < n; k++ {
			if c.Kind == Int {
				nc.Ints = append(nc.Ints, c.Ints...)
			} else {
				nc.Floats = append(nc.Floats, c.Floats...)
			}
		}
		if c.Kind == Int && nc.Ints == nil {
			nc.Ints = []int64{}
		}
		if c.Kind == Float && nc.Floats == nil {
			nc.Floats = []float64{}
		}
		out.cols[ci] = nc
	}
	return out
}

// Row returns row i as float64 values in column order.
func (t *Table) Row(i int) []float64 {
	row := make([]float64, len(t.cols))
	for ci, c := range t.cols {
		row[ci] = c.Float(i)
	}
	return row
}
