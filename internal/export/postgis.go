package export

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ironsheep/minesite-mcp/internal/detection"
)

// PostGISSink appends features to a PostGIS table.
type PostGISSink struct {
	// Connect opens the database; nil uses sqlx with the postgres driver.
	Connect func(ctx context.Context, dsn string) (*sqlx.DB, error)
}

func (s *PostGISSink) connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if s.Connect != nil {
		return s.Connect(ctx, dsn)
	}
	return sqlx.ConnectContext(ctx, "postgres", dsn)
}

// Write creates the table if needed and inserts every feature of fc in one
// transaction. Geometries are converted server-side with ST_GeomFromGeoJSON.
func (s *PostGISSink) Write(ctx context.Context, fc detection.FeatureCollection, dest Destination) error {
	rows, err := featureRows(fc)
	if err != nil {
		return err
	}

	db, err := s.connect(ctx, dest.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to postgis: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, postgisCreateTable(dest.Table, dest.SRID)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", dest.Table, err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	query := postgisInsert(dest.Table)
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, query, dest.Description, r.Area, r.Properties, r.Geometry, dest.SRID); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert feature: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit features: %w", err)
	}
	return nil
}

func postgisCreateTable(table string, srid int) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			description TEXT NOT NULL,
			area DOUBLE PRECISION,
			properties JSONB,
			geom geometry(Geometry, %d) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, table, srid)
}

func postgisInsert(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (description, area, properties, geom)
		VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromGeoJSON($4), $5))`, table)
}
