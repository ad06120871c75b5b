package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/stellarpop/internal/densitymap"
	"github.com/google/uuid"
)

// DensityMapInfo summarises a stored density map.
type DensityMapInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NTiles    int       `json:"n_tiles"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveDensityMap stores m under a new id and returns it.
func (db *DB) SaveDensityMap(m *densitymap.Map) (string, error) {
	if m == nil || m.Len() == 0 {
		return "", densitymap.ErrEmptyMap
	}
	id := uuid.New().String()

	err := db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO density_maps (id, name, n_tiles) VALUES (?, ?, ?)`,
			id, m.Name, m.Len(),
		); err != nil {
			return fmt.Errorf("failed to insert density map: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO density_tiles (map_id, seq, tile_id, value, min_ra, min_dec, delta_ra, delta_dec)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare tile insert: %w", err)
		}
		defer stmt.Close()

		for i, tile := range m.Tiles {
			if _, err := stmt.Exec(id, i, tile.ID, tile.Value, tile.MinRA, tile.MinDec, tile.DeltaRA, tile.DeltaDec); err != nil {
				return fmt.Errorf("failed to insert tile %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// LoadDensityMap loads a map by id, or by name when no id matches. With
// several maps of the same name the newest wins.
func (db *DB) LoadDensityMap(ref string) (*densitymap.Map, error) {
	var id, name string
	err := db.QueryRow(`
		SELECT id, name FROM density_maps
		WHERE id = ? OR name = ?
		ORDER BY (id = ?) DESC, created_at DESC, rowid DESC
		LIMIT 1
	`, ref, ref, ref).Scan(&id, &name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("density map %q: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query density map: %w", err)
	}

	rows, err := db.Query(`
		SELECT tile_id, value, min_ra, min_dec, delta_ra, delta_dec
		FROM density_tiles
		WHERE map_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiles: %w", err)
	}
	defer rows.Close()

	var tiles []densitymap.Tile
	for rows.Next() {
		var tile densitymap.Tile
		if err := rows.Scan(&tile.ID, &tile.Value, &tile.MinRA, &tile.MinDec, &tile.DeltaRA, &tile.DeltaDec); err != nil {
			return nil, fmt.Errorf("failed to scan tile: %w", err)
		}
		tiles = append(tiles, tile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tiles: %w", err)
	}
	return densitymap.New(name, tiles)
}

// ListDensityMaps returns all stored maps, newest first.
func (db *DB) ListDensityMaps() ([]DensityMapInfo, error) {
	rows, err := db.Query(`
		SELECT id, name, n_tiles, created_at
		FROM density_maps
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query density maps: %w", err)
	}
	defer rows.Close()

	var maps []DensityMapInfo
	for rows.Next() {
		var info DensityMapInfo
		var created float64
		if err := rows.Scan(&info.ID, &info.Name, &info.NTiles, &created); err != nil {
			return nil, fmt.Errorf("failed to scan density map: %w", err)
		}
		info.CreatedAt = unixTime(created)
		maps = append(maps, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating density maps: %w", err)
	}
	return maps, nil
}

// DeleteDensityMap removes a map and its tiles.
func (db *DB) DeleteDensityMap(id string) error {
	result, err := db.Exec(`DELETE FROM density_maps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete density map: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("density map %s: %w", id, ErrNotFound)
	}
	return nil
}

func unixTime(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second))).UTC()
}
