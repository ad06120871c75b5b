package table

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tb := New()
	if err := tb.AddFloatColumn("F475W", []float64{20.5, 21.25}); err != nil {
		t.Fatal(err)
	}
	if err := tb.AddIntColumn("id", []int64{7, 8}); err != nil {
		t.Fatal(err)
	}
	return tb
}

func TestInsertColumn(t *testing.T) {
	tb := sampleTable(t)

	if err := tb.InsertColumn(0, NewIntColumn("zeros", []int64{0, 0})); err != nil {
		t.Fatalf("InsertColumn failed: %v", err)
	}
	want := []string{"zeros", "F475W", "id"}
	if diff := cmp.Diff(want, tb.ColNames()); diff != "" {
		t.Errorf("column order mismatch (-want +got):\n%s", diff)
	}

	testCases := []struct {
		name  string
		index int
		col   *Column
	}{
		{"duplicate", 0, NewFloatColumn("F475W", []float64{1, 2})},
		{"wrong_length", 0, NewFloatColumn("new", []float64{1})},
		{"out_of_range", 9, NewFloatColumn("new", []float64{1, 2})},
		{"unnamed", 0, NewFloatColumn("", []float64{1, 2})},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tb.InsertColumn(tc.index, tc.col); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFloats(t *testing.T) {
	tb := sampleTable(t)

	got, err := tb.Floats("id")
	if err != nil {
		t.Fatalf("Floats failed: %v", err)
	}
	if diff := cmp.Diff([]float64{7, 8}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := tb.Floats("nope"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestRepeatAndTile(t *testing.T) {
	tb := sampleTable(t)

	rep := tb.Repeat(2)
	if rep.Len() != 4 {
		t.Fatalf("Repeat len = %d, want 4", rep.Len())
	}
	ids, _ := rep.Column("id")
	if diff := cmp.Diff([]int64{7, 7, 8, 8}, ids.Ints); diff != "" {
		t.Errorf("Repeat mismatch (-want +got):\n%s", diff)
	}

	tiled := tb.Tile(3)
	mags, _ := tiled.Column("F475W")
	if diff := cmp.Diff([]float64{20.5, 21.25, 20.5, 21.25, 20.5, 21.25}, mags.Floats); diff != "" {
		t.Errorf("Tile mismatch (-want +got):\n%s", diff)
	}

	if tb.Tile(0).Len() != 0 || tb.Repeat(0).Len() != 0 {
		t.Error("zero copies should give an empty table")
	}
	if tb.Len() != 2 {
		t.Error("source table must not change")
	}
}

func TestCloneIsDeep(t *testing.T) {
	tb := sampleTable(t)
	cp := tb.Clone()
	c, _ := cp.Column("F475W")
	c.Floats[0] = 99

	orig, _ := tb.Column("F475W")
	if orig.Floats[0] != 20.5 {
		t.Error("Clone shares column data")
	}
}

func TestFormatValue(t *testing.T) {
	testCases := []struct {
		name string
		col  *Column
		want string
	}{
		{"float_default", NewFloatColumn("a", []float64{0.1}), "0.1"},
		{"float_fixed", &Column{Name: "a", Kind: Float, Floats: []float64{1.234567}, Format: "%.5f"}, "1.23457"},
		{"int_default", NewIntColumn("a", []int64{3}), "3"},
		{"int_as_float", &Column{Name: "a", Kind: Int, Ints: []int64{3}, Format: "%.2f"}, "3.00"},
		{"float_as_int", &Column{Name: "a", Kind: Float, Floats: []float64{3.7}, Format: "%d"}, "3"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.col.FormatValue(0); got != tc.want {
				t.Errorf("FormatValue = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRow(t *testing.T) {
	tb := sampleTable(t)
	if diff := cmp.Diff([]float64{21.25, 8}, tb.Row(1)); diff != "" {
		t.Errorf("Row mismatch (-want +got):\n%s", diff)
	}
}
