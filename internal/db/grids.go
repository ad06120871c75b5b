package db

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/stellarpop/internal/grid"
	"github.com/banshee-data/stellarpop/internal/table"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Grid kinds stored in sed_grids.kind.
const (
	KindSpectral = "spectral"
	KindSED      = "sed"
)

// GridInfo summarises a stored grid.
type GridInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	NModels   int       `json:"n_models"`
	NLamb     int       `json:"n_lamb"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateGrid stores d as a new grid and returns its id.
func (db *DB) CreateGrid(name, kind string, d *grid.Data) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	if kind == "" {
		kind = KindSpectral
	}
	id := uuid.New().String()
	err := db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO sed_grids (id, name, kind, n_models, n_lamb) VALUES (?, ?, ?, ?, ?)`,
			id, name, kind, nModels(d), len(d.Lamb),
		); err != nil {
			return fmt.Errorf("failed to insert grid: %w", err)
		}
		return writeGridContents(tx, id, d)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// SaveGrid replaces the contents of an existing grid. It implements
// grid.Store.
func (db *DB) SaveGrid(id string, d *grid.Data) error {
	if err := d.Validate(); err != nil {
		return err
	}
	return db.inTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE sed_grids
			SET n_models = ?, n_lamb = ?, updated_at = strftime('%s', 'now')
			WHERE id = ?
		`, nModels(d), len(d.Lamb), id)
		if err != nil {
			return fmt.Errorf("failed to update grid: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("grid %s: %w", id, ErrNotFound)
		}

		for _, q := range []string{
			`DELETE FROM sed_grid_lambdas WHERE grid_id = ?`,
			`DELETE FROM sed_grid_seds WHERE grid_id = ?`,
			`DELETE FROM sed_grid_params WHERE grid_id = ?`,
			`DELETE FROM sed_grid_header WHERE grid_id = ?`,
		} {
			if _, err := tx.Exec(q, id); err != nil {
				return fmt.Errorf("failed to clear grid contents: %w", err)
			}
		}
		return writeGridContents(tx, id, d)
	})
}

func nModels(d *grid.Data) int {
	if d.SEDs == nil {
		return 0
	}
	r, _ := d.SEDs.Dims()
	return r
}

func writeGridContents(tx *sql.Tx, id string, d *grid.Data) error {
	for i, l := range d.Lamb {
		if _, err := tx.Exec(`INSERT INTO sed_grid_lambdas (grid_id, idx, lamb) VALUES (?, ?, ?)`, id, i, l); err != nil {
			return fmt.Errorf("failed to insert wavelength %d: %w", i, err)
		}
	}

	if d.SEDs != nil {
		r, c := d.SEDs.Dims()
		row := make([]float64, c)
		for i := 0; i < r; i++ {
			mat.Row(row, i, d.SEDs)
			if _, err := tx.Exec(`INSERT INTO sed_grid_seds (grid_id, model_idx, sed) VALUES (?, ?, ?)`, id, i, encodeFloats(row)); err != nil {
				return fmt.Errorf("failed to insert sed %d: %w", i, err)
			}
		}
	}

	if d.Grid != nil {
		for ci, col := range d.Grid.Columns() {
			kind, data := "float", encodeFloats(col.Floats)
			if col.Kind == table.Int {
				kind, data = "int", encodeInts(col.Ints)
			}
			if _, err := tx.Exec(`
				INSERT INTO sed_grid_params (grid_id, col_idx, name, kind, format, data)
				VALUES (?, ?, ?, ?, ?, ?)
			`, id, ci, col.Name, kind, col.Format, data); err != nil {
				return fmt.Errorf("failed to insert grid column %s: %w", col.Name, err)
			}
		}
	}

	for isAlias, m := range []map[string]string{d.Header, d.Aliases} {
		for k, v := range m {
			if _, err := tx.Exec(`
				INSERT INTO sed_grid_header (grid_id, is_alias, key, value) VALUES (?, ?, ?, ?)
			`, id, isAlias, k, v); err != nil {
				return fmt.Errorf("failed to insert header %s: %w", k, err)
			}
		}
	}
	return nil
}

// LoadGrid reads a stored grid. It implements grid.Store.
func (db *DB) LoadGrid(id string) (*grid.Data, error) {
	info, err := db.GetGridInfo(id)
	if err != nil {
		return nil, err
	}

	d := &grid.Data{
		Lamb:    make([]float64, 0, info.NLamb),
		Grid:    table.New(),
		Header:  map[string]string{},
		Aliases: map[string]string{},
	}

	if err := db.eachRow(`SELECT lamb FROM sed_grid_lambdas WHERE grid_id = ? ORDER BY idx`, id, func(rows *sql.Rows) error {
		var l float64
		if err := rows.Scan(&l); err != nil {
			return err
		}
		d.Lamb = append(d.Lamb, l)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load wavelengths: %w", err)
	}

	if info.NModels > 0 {
		d.SEDs = mat.NewDense(info.NModels, len(d.Lamb), nil)
		if err := db.eachRow(`SELECT model_idx, sed FROM sed_grid_seds WHERE grid_id = ? ORDER BY model_idx`, id, func(rows *sql.Rows) error {
			var i int
			var blob []byte
			if err := rows.Scan(&i, &blob); err != nil {
				return err
			}
			row, err := decodeFloats(blob)
			if err != nil {
				return err
			}
			if i < 0 || i >= info.NModels || len(row) != len(d.Lamb) {
				return fmt.Errorf("sed %d has %d values, want %d", i, len(row), len(d.Lamb))
			}
			d.SEDs.SetRow(i, row)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to load seds: %w", err)
		}
	}

	if err := db.eachRow(`SELECT name, kind, format, data FROM sed_grid_params WHERE grid_id = ? ORDER BY col_idx`, id, func(rows *sql.Rows) error {
		var name, kind, format string
		var blob []byte
		if err := rows.Scan(&name, &kind, &format, &blob); err != nil {
			return err
		}
		var col *table.Column
		if kind == "int" {
			ints, err := decodeInts(blob)
			if err != nil {
				return err
			}
			col = table.NewIntColumn(name, ints)
		} else {
			floats, err := decodeFloats(blob)
			if err != nil {
				return err
			}
			col = table.NewFloatColumn(name, floats)
		}
		col.Format = format
		return d.Grid.AddColumn(col)
	}); err != nil {
		return nil, fmt.Errorf("failed to load grid table: %w", err)
	}

	if err := db.eachRow(`SELECT is_alias, key, value FROM sed_grid_header WHERE grid_id = ?`, id, func(rows *sql.Rows) error {
		var isAlias int
		var k, v string
		if err := rows.Scan(&isAlias, &k, &v); err != nil {
			return err
		}
		if isAlias == 1 {
			d.Aliases[k] = v
		} else {
			d.Header[k] = v
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load header: %w", err)
	}
	return d, nil
}

// GetGridInfo returns the summary row of a grid.
func (db *DB) GetGridInfo(id string) (*GridInfo, error) {
	var info GridInfo
	var created, updated float64
	err := db.QueryRow(`
		SELECT id, name, kind, n_models, n_lamb, created_at, updated_at
		FROM sed_grids WHERE id = ?
	`, id).Scan(&info.ID, &info.Name, &info.Kind, &info.NModels, &info.NLamb, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("grid %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query grid: %w", err)
	}
	info.CreatedAt = unixTime(created)
	info.UpdatedAt = unixTime(updated)
	return &info, nil
}

// ListGrids returns every stored grid, newest first.
func (db *DB) ListGrids() ([]GridInfo, error) {
	rows, err := db.Query(`
		SELECT id, name, kind, n_models, n_lamb, created_at, updated_at
		FROM sed_grids
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query grids: %w", err)
	}
	defer rows.Close()

	var grids []GridInfo
	for rows.Next() {
		var info GridInfo
		var created, updated float64
		if err := rows.Scan(&info.ID, &info.Name, &info.Kind, &info.NModels, &info.NLamb, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan grid: %w", err)
		}
		info.CreatedAt = unixTime(created)
		info.UpdatedAt = unixTime(updated)
		grids = append(grids, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grids: %w", err)
	}
	return grids, nil
}

// DeleteGrid removes a grid and all of its contents.
func (db *DB) DeleteGrid(id string) error {
	result, err := db.Exec(`DELETE FROM sed_grids WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete grid: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("grid %s: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) eachRow(query, id string, fn func(*sql.Rows) error) error {
	rows, err := db.Query(query, id)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func encodeFloats(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(f))
	}
	return buf
}

func decodeFloats(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("float blob of %d bytes", len(buf))
	}
	v := make([]float64, len(buf)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return v, nil
}

func encodeInts(v []int64) []byte {
	buf := make([]byte, 8*len(v))
	for i, n := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(n))
	}
	return buf
}

func decodeInts(buf []byte) ([]int64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("int blob of %d bytes", len(buf))
	}
	v := make([]int64, len(buf)/8)
	for i := range v {
		v[i] = int64(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return v, nil
}
