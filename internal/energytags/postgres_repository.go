package energytags

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chargepath/chargepath/internal/stations"
)

// PostgresRepository stores tags in the station_energy_tags table:
//
//	station_id    TEXT PRIMARY KEY
//	energy_source TEXT NOT NULL
//	note          TEXT NOT NULL DEFAULT ''
//	updated_at    TIMESTAMPTZ NOT NULL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL energy tag repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const upsertTag = `
	INSERT INTO station_energy_tags (station_id, energy_source, note, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (station_id) DO UPDATE SET
		energy_source = EXCLUDED.energy_source,
		note = EXCLUDED.note,
		updated_at = EXCLUDED.updated_at
`

func (r *PostgresRepository) GetTag(ctx context.Context, stationID string) (*Tag, error) {
	query := `
		SELECT station_id, energy_source, note, updated_at
		FROM station_energy_tags
		WHERE station_id = $1
	`

	var (
		tag    Tag
		source string
	)
	err := r.pool.QueryRow(ctx, query, stationID).Scan(&tag.StationID, &source, &tag.Note, &tag.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	tag.Source = stations.EnergySource(source)
	return &tag, nil
}

func (r *PostgresRepository) ListTags(ctx context.Context) (map[string]*Tag, error) {
	query := `
		SELECT station_id, energy_source, note, updated_at
		FROM station_energy_tags
		ORDER BY station_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make(map[string]*Tag)
	for rows.Next() {
		var (
			tag    Tag
			source string
		)
		if err := rows.Scan(&tag.StationID, &source, &tag.Note, &tag.UpdatedAt); err != nil {
			return nil, err
		}
		tag.Source = stations.EnergySource(source)
		tags[tag.StationID] = &tag
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *PostgresRepository) SetTag(ctx context.Context, tag *Tag) error {
	tag.UpdatedAt = time.Now()
	_, err := r.pool.Exec(ctx, upsertTag, tag.StationID, string(tag.Source), tag.Note, tag.UpdatedAt)
	return err
}

func (r *PostgresRepository) SetTags(ctx context.Context, tags []*Tag) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	now := time.Now()
	for _, tag := range tags {
		tag.UpdatedAt = now
		if _, err := tx.Exec(ctx, upsertTag, tag.StationID, string(tag.Source), tag.Note, now); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) DeleteTag(ctx context.Context, stationID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM station_energy_tags WHERE station_id = $1`, stationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)

// EnsureSchema creates the tag table when it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS station_energy_tags (
			station_id    TEXT PRIMARY KEY,
			energy_source TEXT NOT NULL CHECK (energy_source IN ('solar', 'grid', 'hybrid')),
			note          TEXT NOT NULL DEFAULT '',
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}
