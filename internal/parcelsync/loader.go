package parcelsync

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lispendens-cli/internal/db"
	"github.com/sells-group/lispendens-cli/internal/model"
)

// Migrate creates the dor schema and the parcels table. The trigram index
// backs the local registry provider's ILIKE owner queries.
func Migrate(ctx context.Context, pool db.Pool) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS dor`,
		`CREATE TABLE IF NOT EXISTS dor.parcels (
			county_code   TEXT NOT NULL,
			parcel_number TEXT NOT NULL,
			owner_name    TEXT NOT NULL,
			address_line  TEXT NOT NULL DEFAULT '',
			city          TEXT NOT NULL DEFAULT '',
			zip           TEXT NOT NULL DEFAULT '',
			legal_text    TEXT NOT NULL DEFAULT '',
			roll_year     INTEGER NOT NULL,
			lon           DOUBLE PRECISION,
			lat           DOUBLE PRECISION,
			synced_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (county_code, parcel_number)
		)`,
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
		`CREATE INDEX IF NOT EXISTS idx_dor_parcels_owner_trgm
			ON dor.parcels USING GIN (owner_name gin_trgm_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "parcelsync: migrate dor schema")
		}
	}
	return nil
}

// EnableGeometry adds the boundary column and its spatial index. Requires
// PostGIS; only called when a shapefile pass is configured.
func EnableGeometry(ctx context.Context, pool db.Pool) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`ALTER TABLE dor.parcels ADD COLUMN IF NOT EXISTS boundary geometry(MultiPolygon, 4326)`,
		`CREATE INDEX IF NOT EXISTS idx_dor_parcels_boundary
			ON dor.parcels USING GIST (boundary)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "parcelsync: enable geometry")
		}
	}
	return nil
}

var parcelLoadColumns = []string{
	"county_code", "parcel_number", "owner_name", "address_line",
	"city", "zip", "legal_text", "roll_year", "synced_at",
}

// LoadParcels upserts one batch of roll rows into the mirror. The shapefile
// pass owns lon, lat, and boundary, so a roll reload leaves them in place.
func LoadParcels(ctx context.Context, pool db.Pool, parcels []model.Parcel) (int64, error) {
	if len(parcels) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(parcels))
	for _, p := range parcels {
		rows = append(rows, []any{
			p.CountyCode, p.ParcelNumber, p.OwnerName, p.AddressLine,
			p.City, p.Zip, p.LegalText, p.RollYear, p.SyncedAt,
		})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "dor.parcels",
		Columns:      parcelLoadColumns,
		ConflictKeys: []string{"county_code", "parcel_number"},
		UpdateCols: []string{
			"owner_name", "address_line", "city", "zip",
			"legal_text", "roll_year", "synced_at",
		},
	}, rows)
	if err != nil {
		return n, eris.Wrap(err, "parcelsync: load parcels")
	}
	return n, nil
}

// ApplyShapes joins GIS rows onto mirror rows and fills lon, lat, and
// boundary. Roll and GIS parcel numbers disagree on punctuation, so the
// join runs on the canonicalized key. Returns the number of mirror rows
// updated.
func ApplyShapes(ctx context.Context, pool db.Pool, countyCode string, shapes []ParcelShape) (int64, error) {
	if len(shapes) == 0 {
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "parcelsync: apply shapes: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	createSQL := `CREATE TEMP TABLE _tmp_parcel_shapes (
		parcel_key TEXT,
		lon        DOUBLE PRECISION,
		lat        DOUBLE PRECISION,
		boundary   geometry
	) ON COMMIT DROP`
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrap(err, "parcelsync: apply shapes: create temp table")
	}

	rows := make([][]any, 0, len(shapes))
	for _, s := range shapes {
		rows = append(rows, []any{parcelKey(s.ParcelNumber), s.Lon, s.Lat, s.Boundary})
	}
	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"_tmp_parcel_shapes"},
		[]string{"parcel_key", "lon", "lat", "boundary"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return 0, eris.Wrap(err, "parcelsync: apply shapes: COPY into temp table")
	}

	tag, err := tx.Exec(ctx, `
		UPDATE dor.parcels p
		SET lon = t.lon, lat = t.lat, boundary = t.boundary
		FROM _tmp_parcel_shapes t
		WHERE p.county_code = $1
		  AND regexp_replace(upper(p.parcel_number), '[^A-Z0-9]', '', 'g') = t.parcel_key`,
		countyCode,
	)
	if err != nil {
		return 0, eris.Wrap(err, "parcelsync: apply shapes: update")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "parcelsync: apply shapes: commit tx")
	}

	zap.L().Debug("parcelsync: shapes applied",
		zap.String("county", countyCode),
		zap.Int("shapes", len(shapes)),
		zap.Int64("updated", tag.RowsAffected()),
	)

	return tag.RowsAffected(), nil
}

// parcelKey canonicalizes a parcel number for joining roll and GIS
// identifiers.
func parcelKey(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			b = append(b, c)
		case c >= 'A' && c <= 'Z':
			b = append(b, c)
		case c >= 'a' && c <= 'z':
			b = append(b, c-'a'+'A')
		}
	}
	return string(b)
}

// GetParcel reads one mirror row.
func GetParcel(ctx context.Context, pool db.Pool, countyCode, parcelNumber string) (*model.Parcel, error) {
	row := pool.QueryRow(ctx, `
		SELECT county_code, parcel_number, owner_name, address_line, city, zip,
			legal_text, roll_year, lon, lat, synced_at
		FROM dor.parcels
		WHERE county_code = $1 AND parcel_number = $2`,
		countyCode, parcelNumber,
	)

	var p model.Parcel
	err := row.Scan(&p.CountyCode, &p.ParcelNumber, &p.OwnerName, &p.AddressLine,
		&p.City, &p.Zip, &p.LegalText, &p.RollYear, &p.Lon, &p.Lat, &p.SyncedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("parcelsync: parcel %s/%s not found", countyCode, parcelNumber)
		}
		return nil, eris.Wrap(err, "parcelsync: get parcel")
	}
	return &p, nil
}

// CountyStatus summarizes one county's mirror coverage.
type CountyStatus struct {
	CountyCode string
	Parcels    int
	WithGeo    int
	RollYear   int
	SyncedAt   time.Time
}

// Status reports per-county mirror coverage, for `parcels status`.
func Status(ctx context.Context, pool db.Pool) ([]CountyStatus, error) {
	rows, err := pool.Query(ctx, `
		SELECT county_code, COUNT(*), COUNT(lon), MAX(roll_year), MAX(synced_at)
		FROM dor.parcels
		GROUP BY county_code
		ORDER BY county_code`)
	if err != nil {
		return nil, eris.Wrap(err, "parcelsync: query status")
	}
	defer rows.Close()

	var statuses []CountyStatus
	for rows.Next() {
		var cs CountyStatus
		if err := rows.Scan(&cs.CountyCode, &cs.Parcels, &cs.WithGeo, &cs.RollYear, &cs.SyncedAt); err != nil {
			return nil, eris.Wrap(err, "parcelsync: scan status row")
		}
		statuses = append(statuses, cs)
	}
	return statuses, rows.Err()
}
