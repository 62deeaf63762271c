package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samirrijal/parkpass/internal/core/domain"
)

// SearchRepo implements ports.SearchRepository.
type SearchRepo struct {
	db *DB
}

func NewSearchRepo(db *DB) *SearchRepo {
	return &SearchRepo{db: db}
}

const searchColumns = `
	id::text, COALESCE(request_id, ''),
	origin_lon, origin_lat, destination_lon, destination_lat,
	walk_time_seconds, ok, COALESCE(error_code, ''),
	parking_lon, parking_lat,
	drive_seconds, walk_seconds, drive_fallback, walk_fallback,
	created_at`

// insertSearch stores a record under its event ID. Redelivered events hit
// the primary key and are skipped.
const insertSearch = `
	INSERT INTO parking_searches (
		id, request_id, origin_lon, origin_lat, destination_lon, destination_lat,
		walk_time_seconds, ok, error_code, parking_lon, parking_lat,
		drive_seconds, walk_seconds, drive_fallback, walk_fallback, created_at
	)
	VALUES (
		COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11, $12, $13, $14, $15, COALESCE($16, now())
	)
	ON CONFLICT (id) DO NOTHING
	RETURNING id::text, created_at`

// Insert stores rec and fills in its ID and CreatedAt. Inserting an ID that
// already exists is a no-op.
func (r *SearchRepo) Insert(ctx context.Context, rec *domain.SearchRecord) error {
	var parkingLon, parkingLat *float64
	if rec.Parking != nil {
		parkingLon, parkingLat = &rec.Parking.Lon, &rec.Parking.Lat
	}
	var createdAt *time.Time
	if !rec.CreatedAt.IsZero() {
		createdAt = &rec.CreatedAt
	}

	err := r.db.Pool.QueryRow(ctx, insertSearch,
		nilIfEmpty(rec.ID), nilIfEmpty(rec.RequestID),
		rec.Origin.Lon, rec.Origin.Lat, rec.Destination.Lon, rec.Destination.Lat,
		rec.WalkTimeSeconds, rec.OK, nilIfEmpty(string(rec.ErrorCode)), parkingLon, parkingLat,
		rec.DriveSeconds, rec.WalkSeconds, rec.DriveFallback, rec.WalkFallback, createdAt,
	).Scan(&rec.ID, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert parking search: %w", err)
	}
	return nil
}

func (r *SearchRepo) GetByID(ctx context.Context, id string) (*domain.SearchRecord, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+searchColumns+` FROM parking_searches WHERE id = $1`, id)
	rec, err := scanSearch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *SearchRepo) List(ctx context.Context, offset, limit int) ([]domain.SearchRecord, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM parking_searches`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count parking searches: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+searchColumns+`
		FROM parking_searches
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := make([]domain.SearchRecord, 0, limit)
	for rows.Next() {
		rec, err := scanSearch(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}
	return records, total, rows.Err()
}

func scanSearch(row pgx.Row) (*domain.SearchRecord, error) {
	var rec domain.SearchRecord
	var errorCode string
	var parkingLon, parkingLat *float64
	if err := row.Scan(
		&rec.ID, &rec.RequestID,
		&rec.Origin.Lon, &rec.Origin.Lat, &rec.Destination.Lon, &rec.Destination.Lat,
		&rec.WalkTimeSeconds, &rec.OK, &errorCode,
		&parkingLon, &parkingLat,
		&rec.DriveSeconds, &rec.WalkSeconds, &rec.DriveFallback, &rec.WalkFallback,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.ErrorCode = domain.ErrorCode(errorCode)
	if parkingLon != nil && parkingLat != nil {
		rec.Parking = &domain.GeoPoint{Lon: *parkingLon, Lat: *parkingLat}
	}
	return &rec, nil
}

// isInvalidText reports a malformed UUID literal.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
