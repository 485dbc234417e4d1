// Package store persists photo records to the project database.
package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/sitelens/photo-ingest/internal/model"
)

// PhotoStore defines the persistence interface for the ingestion
// pipeline and the analysis stage.
type PhotoStore interface {
	// Ingestion side. Records are created once, in submission order.
	InsertPhoto(ctx context.Context, record *model.PhotoRecord) error

	// Analysis side. Only the status and analysis fields move after
	// creation; a photo record is never deleted by the pipeline.
	GetPhoto(ctx context.Context, id uuid.UUID) (*model.PhotoRecord, error)
	ListByStatus(ctx context.Context, status model.ProcessingStatus, limit int) ([]model.PhotoRecord, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	CompleteAnalysis(ctx context.Context, id uuid.UUID, analysis json.RawMessage) error
	FailAnalysis(ctx context.Context, id uuid.UUID) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
