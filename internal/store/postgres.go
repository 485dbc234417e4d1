package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sitelens/photo-ingest/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, narrow enough for
// pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements PhotoStore using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS photos (
	id                   UUID PRIMARY KEY,
	project_id           TEXT NOT NULL,
	uploader_id          TEXT NOT NULL,
	storage_path         TEXT NOT NULL,
	thumbnail_path       TEXT,
	description          TEXT NOT NULL DEFAULT '',
	location_description TEXT NOT NULL DEFAULT '',
	raw_exif             JSONB,
	exif_data            JSONB,
	weather_data         JSONB,
	geo_data             JSONB,
	captured_at          TIMESTAMPTZ,
	ai_processing_status TEXT NOT NULL DEFAULT 'pending'
		CHECK (ai_processing_status IN ('pending', 'processing', 'done', 'failed')),
	analysis             JSONB,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_photos_project ON photos (project_id);
CREATE INDEX IF NOT EXISTS idx_photos_status ON photos (ai_processing_status);
`

// Migrate creates the photos table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const insertPhotoSQL = `
INSERT INTO photos (
	id, project_id, uploader_id, storage_path, thumbnail_path,
	description, location_description, raw_exif, exif_data,
	weather_data, geo_data, captured_at, ai_processing_status, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// InsertPhoto persists one photo record.
func (s *PostgresStore) InsertPhoto(ctx context.Context, record *model.PhotoRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = model.StatusPending
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, insertPhotoSQL,
		record.ID,
		record.ProjectID,
		record.UploaderID,
		record.StoragePath,
		nilIfEmptyString(record.ThumbnailPath),
		record.Description,
		record.LocationDescription,
		nilIfEmptyJSON(record.RawExif),
		nilIfEmptyJSON(record.ExifData),
		nilIfEmptyJSON(record.WeatherData),
		nilIfEmptyJSON(record.GeoData),
		record.CapturedAt,
		string(record.Status),
		record.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert photo")
	}
	return nil
}

const selectPhotoColumns = `
	id, project_id, uploader_id, storage_path, thumbnail_path,
	description, location_description, raw_exif, exif_data,
	weather_data, geo_data, captured_at, ai_processing_status,
	analysis, created_at`

// GetPhoto fetches one record by id.
func (s *PostgresStore) GetPhoto(ctx context.Context, id uuid.UUID) (*model.PhotoRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+selectPhotoColumns+` FROM photos WHERE id = $1`, id)

	record, err := scanPhoto(row)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get photo")
	}
	return record, nil
}

// ListByStatus returns up to limit records in creation order.
func (s *PostgresStore) ListByStatus(ctx context.Context, status model.ProcessingStatus, limit int) ([]model.PhotoRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT`+selectPhotoColumns+` FROM photos WHERE ai_processing_status = $1 ORDER BY created_at ASC LIMIT $2`,
		string(status), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list photos")
	}
	defer rows.Close()

	var records []model.PhotoRecord
	for rows.Next() {
		record, scanErr := scanPhoto(rows)
		if scanErr != nil {
			return nil, eris.Wrap(scanErr, "postgres: scan photo")
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list photos rows")
	}
	return records, nil
}

// MarkProcessing flips a pending record to processing.
func (s *PostgresStore) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE photos SET ai_processing_status = $1 WHERE id = $2 AND ai_processing_status = $3`,
		string(model.StatusProcessing), id, string(model.StatusPending))
	if err != nil {
		return eris.Wrap(err, "postgres: mark processing")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: photo %s is not pending", id)
	}
	return nil
}

// CompleteAnalysis attaches the analysis payload and flips to done.
func (s *PostgresStore) CompleteAnalysis(ctx context.Context, id uuid.UUID, analysis json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE photos SET ai_processing_status = $1, analysis = $2 WHERE id = $3`,
		string(model.StatusDone), analysis, id)
	if err != nil {
		return eris.Wrap(err, "postgres: complete analysis")
	}
	return nil
}

// FailAnalysis flips a record from processing to failed. A record some
// other run already moved on (or finished) is left untouched, so a
// stale failure can never overwrite an in-flight claim or a done
// result.
func (s *PostgresStore) FailAnalysis(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE photos SET ai_processing_status = $1 WHERE id = $2 AND ai_processing_status = $3`,
		string(model.StatusFailed), id, string(model.StatusProcessing))
	if err != nil {
		return eris.Wrap(err, "postgres: fail analysis")
	}
	if tag.RowsAffected() == 0 {
		zap.L().Warn("photo not in processing state, leaving status unchanged",
			zap.String("photo_id", id.String()))
	}
	return nil
}

// scanPhoto reads one record from a row.
func scanPhoto(row pgx.Row) (*model.PhotoRecord, error) {
	var record model.PhotoRecord
	var thumbnail *string
	var status string

	err := row.Scan(
		&record.ID,
		&record.ProjectID,
		&record.UploaderID,
		&record.StoragePath,
		&thumbnail,
		&record.Description,
		&record.LocationDescription,
		&record.RawExif,
		&record.ExifData,
		&record.WeatherData,
		&record.GeoData,
		&record.CapturedAt,
		&status,
		&record.Analysis,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if thumbnail != nil {
		record.ThumbnailPath = *thumbnail
	}
	record.Status = model.ProcessingStatus(status)
	return &record, nil
}

// nilIfEmptyJSON lets absent blobs store as NULL rather than 'null'.
func nilIfEmptyJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func nilIfEmptyString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ PhotoStore = (*PostgresStore)(nil)
