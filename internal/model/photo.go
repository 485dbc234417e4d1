// Package model holds the persisted record types shared across the
// ingestion pipeline and the analysis stage.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus tracks where a photo sits in the AI analysis lifecycle.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusDone       ProcessingStatus = "done"
	StatusFailed     ProcessingStatus = "failed"
)

// Valid reports whether s is one of the known status values.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDone, StatusFailed:
		return true
	}
	return false
}

// PhotoRecord is the persisted result of ingesting one uploaded image.
// The ingestion orchestrator is the only writer of every field except
// Analysis and Status, which the analysis stage flips later.
type PhotoRecord struct {
	ID                  uuid.UUID        `json:"id"`
	ProjectID           string           `json:"project_id"`
	UploaderID          string           `json:"uploader_id"`
	StoragePath         string           `json:"storage_path"`
	ThumbnailPath       string           `json:"thumbnail_path,omitempty"`
	Description         string           `json:"description,omitempty"`
	LocationDescription string           `json:"location_description,omitempty"`
	RawExif             json.RawMessage  `json:"raw_exif,omitempty"`
	ExifData            json.RawMessage  `json:"exif_data,omitempty"`
	WeatherData         json.RawMessage  `json:"weather_data,omitempty"`
	GeoData             json.RawMessage  `json:"geo_data,omitempty"`
	CapturedAt          *time.Time       `json:"captured_at,omitempty"`
	Status              ProcessingStatus `json:"ai_processing_status"`
	Analysis            json.RawMessage  `json:"analysis,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}
