package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/stellarpop/internal/fsutil"
)

// Format selects the text layout of a table file.
type Format int

const (
	// Basic is whitespace-delimited with a single header line of column
	// names. Lines starting with '#' are comments.
	Basic Format = iota
	// CSV is comma-delimited with a header record.
	CSV
)

// FormatForPath picks CSV for .csv files and Basic for everything else.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return CSV
	}
	return Basic
}

// Read parses a table in the given format. Every value must be numeric;
// columns whose values all parse as integers become integer columns.
func Read(r io.Reader, format Format) (*Table, error) {
	header, rows, err := readRecords(r, format)
	if err != nil {
		return nil, err
	}
	t, _, err := build(header, rows, false)
	return t, err
}

// ReadNumeric parses a table like Read but drops every column holding a
// value that is not a number, such as source names or quality flags. The
// names of the dropped columns are returned in header order.
func ReadNumeric(r io.Reader, format Format) (*Table, []string, error) {
	header, rows, err := readRecords(r, format)
	if err != nil {
		return nil, nil, err
	}
	return build(header, rows, true)
}

func readRecords(r io.Reader, format Format) ([]string, [][]string, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)
	switch format {
	case CSV:
		header, rows, err = readCSV(r)
	default:
		header, rows, err = readBasic(r)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(header) == 0 {
		return nil, nil, fmt.Errorf("table has no header")
	}
	return header, rows, nil
}

func readBasic(r io.Reader) ([]string, [][]string, error) {
	var header []string
	var rows [][]string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if header == nil {
			header = fields
			continue
		}
		if len(fields) != len(header) {
			return nil, nil, fmt.Errorf("line %d: %d values, header has %d columns", line, len(fields), len(header))
		}
		rows = append(rows, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan table: %w", err)
	}
	return header, rows, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	return header, records[1:], nil
}

func build(header []string, rows [][]string, skipText bool) (*Table, []string, error) {
	t := New()
	var skipped []string
columns:
	for ci, name := range header {
		ints := make([]int64, len(rows))
		allInt := true
		for ri, row := range rows {
			v, err := strconv.ParseInt(strings.TrimSpace(row[ci]), 10, 64)
			if err != nil {
				allInt = false
				break
			}
			ints[ri] = v
		}
		if allInt && len(rows) > 0 {
			if err := t.AddIntColumn(name, ints); err != nil {
				return nil, nil, err
			}
			continue
		}
		floats := make([]float64, len(rows))
		for ri, row := range rows {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[ci]), 64)
			if err != nil {
				if skipText {
					skipped = append(skipped, name)
					continue columns
				}
				return nil, nil, fmt.Errorf("row %d column %q: %w", ri+1, name, err)
			}
			floats[ri] = v
		}
		if err := t.AddFloatColumn(name, floats); err != nil {
			return nil, nil, err
		}
	}
	return t, skipped, nil
}

// Write renders the table in the given format, applying column formats.
func (t *Table) Write(w io.Writer, format Format) error {
	n := t.Len()
	if format == CSV {
		cw := csv.NewWriter(w)
		if err := cw.Write(t.ColNames()); err != nil {
			return err
		}
		record := make([]string, len(t.cols))
		for i := 0; i < n; i++ {
			for ci, c := range t.cols {
				record[ci] = c.FormatValue(i)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(t.ColNames(), " ") + "\n"); err != nil {
		return err
	}
	fields := make([]string, len(t.cols))
	for i := 0; i < n; i++ {
		for ci, c := range t.cols {
			fields[ci] = c.FormatValue(i)
		}
		if _, err := bw.WriteString(strings.Join(fields, " ") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadFile reads a table from path, choosing the format from its extension.
func ReadFile(fsys fsutil.FileSystem, path string) (*Table, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	t, err := Read(bytes.NewReader(data), FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}
	return t, nil
}

// ReadNumericFile is ReadNumeric on a file, choosing the format from its
// extension.
func ReadNumericFile(fsys fsutil.FileSystem, path string) (*Table, []string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read table %s: %w", path, err)
	}
	t, skipped, err := ReadNumeric(bytes.NewReader(data), FormatForPath(path))
	if err != nil {
		return nil, nil, fmt.Errorf("parse table %s: %w", path, err)
	}
	return t, skipped, nil
}

// WriteFile writes the table to path, replacing any existing file
// atomically and creating missing parent directories. The format follows
// the file extension.
func (t *Table) WriteFile(fsys fsutil.FileSystem, path string) error {
	var buf bytes.Buffer
	if err := t.Write(&buf, FormatForPath(path)); err != nil {
		return fmt.Errorf("render table %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}
	if err := fsys.ReplaceFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write table %s: %w", path, err)
	}
	return nil
}
