package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitelens/photo-ingest/internal/model"
)

func TestInsertPhoto_Defaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO photos`).
		WithArgs(
			pgxmock.AnyArg(), // generated id
			"project-7",
			"inspector-3",
			"project-7/1710470000000-0.jpg",
			nil,              // no thumbnail
			"cracked column", // description
			"4F B區",
			nil, nil, nil, nil, // raw_exif, exif, weather, geo absent
			(*time.Time)(nil), // captured_at
			"pending",
			pgxmock.AnyArg(), // created_at
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	record := &model.PhotoRecord{
		ProjectID:           "project-7",
		UploaderID:          "inspector-3",
		StoragePath:         "project-7/1710470000000-0.jpg",
		Description:         "cracked column",
		LocationDescription: "4F B區",
	}
	require.NoError(t, s.InsertPhoto(context.Background(), record))

	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.Equal(t, model.StatusPending, record.Status)
	assert.False(t, record.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPhoto_WithEnrichment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	captured := time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local)
	exifBlob := json.RawMessage(`{"make":"Canon"}`)
	weatherBlob := json.RawMessage(`{"data":[{"temp":28.4}]}`)

	mock.ExpectExec(`INSERT INTO photos`).
		WithArgs(
			pgxmock.AnyArg(),
			"project-7",
			"inspector-3",
			"project-7/1710470000000-1.jpg",
			"project-7/thumbs/1710470000000-1.jpg",
			"", "",
			nil,
			exifBlob,
			weatherBlob,
			nil,
			&captured,
			"pending",
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.InsertPhoto(context.Background(), &model.PhotoRecord{
		ProjectID:     "project-7",
		UploaderID:    "inspector-3",
		StoragePath:   "project-7/1710470000000-1.jpg",
		ThumbnailPath: "project-7/thumbs/1710470000000-1.jpg",
		ExifData:      exifBlob,
		WeatherData:   weatherBlob,
		CapturedAt:    &captured,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPhoto_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO photos`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(assert.AnError)

	s := NewPostgresWithPool(mock)
	err = s.InsertPhoto(context.Background(), &model.PhotoRecord{
		ProjectID: "p", UploaderID: "u", StoragePath: "p/x.jpg",
	})
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE photos SET ai_processing_status`).
		WithArgs("processing", id, "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.MarkProcessing(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessing_NotPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE photos SET ai_processing_status`).
		WithArgs("processing", id, "pending").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	s := NewPostgresWithPool(mock)
	assert.Error(t, s.MarkProcessing(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteAnalysis(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	analysis := json.RawMessage(`{"ncr":[],"par":[{"summary":"missing guardrail"}]}`)
	mock.ExpectExec(`UPDATE photos SET ai_processing_status .*, analysis`).
		WithArgs("done", analysis, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.CompleteAnalysis(context.Background(), id, analysis))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailAnalysis(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE photos SET ai_processing_status`).
		WithArgs("failed", id, "processing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.FailAnalysis(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailAnalysis_NotProcessingLeavesStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// another run finished the record first; the guarded update
	// matches nothing and that is not an error
	id := uuid.New()
	mock.ExpectExec(`UPDATE photos SET ai_processing_status`).
		WithArgs("failed", id, "processing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.FailAnalysis(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	created := time.Now().UTC()
	thumb := "p/thumbs/a.jpg"

	mock.ExpectQuery(`SELECT .* FROM photos WHERE ai_processing_status`).
		WithArgs("pending", 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "project_id", "uploader_id", "storage_path", "thumbnail_path",
			"description", "location_description", "raw_exif", "exif_data",
			"weather_data", "geo_data", "captured_at", "ai_processing_status",
			"analysis", "created_at",
		}).AddRow(
			id, "p", "u", "p/a.jpg", &thumb,
			"", "4F B區", json.RawMessage(nil), json.RawMessage(`{"make":"Canon"}`),
			json.RawMessage(nil), json.RawMessage(nil), (*time.Time)(nil), "pending",
			json.RawMessage(nil), created,
		))

	s := NewPostgresWithPool(mock)
	records, err := s.ListByStatus(context.Background(), model.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, model.StatusPending, records[0].Status)
	assert.Equal(t, thumb, records[0].ThumbnailPath)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS photos`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
