package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ironsheep/minesite-mcp/internal/detection"
)

// SQLiteSink appends features to a table in a SQLite database file.
//
// Geometry is stored as GeoJSON text alongside its bounding box so the
// table can be filtered without a spatial extension.
type SQLiteSink struct{}

// Write inserts every feature of fc in one transaction.
func (SQLiteSink) Write(ctx context.Context, fc detection.FeatureCollection, dest Destination) error {
	rows, err := featureRows(fc)
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dest.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dest.Path, err)
	}
	defer db.Close()

	for _, stmt := range sqliteSchema(dest.Table) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", dest.Table, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (description, area, properties_json, geometry_json, min_x, min_y, max_x, max_y) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`, dest.Table)
	for _, r := range rows {
		_, err := tx.ExecContext(ctx, insert,
			dest.Description, r.Area, r.Properties, r.Geometry,
			r.Bound.Min[0], r.Bound.Min[1], r.Bound.Max[0], r.Bound.Max[1])
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert feature: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit features: %w", err)
	}
	return nil
}

func sqliteSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            description TEXT NOT NULL,
            area REAL,
            properties_json TEXT,
            geometry_json TEXT NOT NULL,
            min_x REAL,
            min_y REAL,
            max_x REAL,
            max_y REAL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_description ON %s(description);`, table, table),
	}
}
