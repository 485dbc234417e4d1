package ingest

import (
	"github.com/rotisserie/eris"

	"github.com/sitelens/photo-ingest/internal/batch"
	"github.com/sitelens/photo-ingest/pkg/s3client"
)

// MaxFileSize is the upload ceiling for a single photo.
const MaxFileSize = 10 * 1024 * 1024

// validateFile rejects non-image files and files over the size ceiling
// before any bytes are read.
func validateFile(f batch.File) error {
	if !s3client.IsImageFile(f.Path) {
		return eris.Wrapf(ErrInvalidInput, "%s is not an image file", f.Path)
	}
	if f.Size > MaxFileSize {
		return eris.Wrapf(ErrInvalidInput, "%s exceeds %d byte ceiling (%d bytes)", f.Path, MaxFileSize, f.Size)
	}
	return nil
}
