package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sitelens/photo-ingest/internal/batch"
	"github.com/sitelens/photo-ingest/internal/enrich"
	"github.com/sitelens/photo-ingest/internal/exifdata"
	"github.com/sitelens/photo-ingest/internal/locparse"
	"github.com/sitelens/photo-ingest/internal/model"
	"github.com/sitelens/photo-ingest/internal/progress"
	"github.com/sitelens/photo-ingest/internal/store"
	"github.com/sitelens/photo-ingest/pkg/s3client"
)

// WeatherProvider fetches a historical weather snapshot for a point in time.
type WeatherProvider interface {
	Fetch(ctx context.Context, lat, lon float64, unixTS int64) (*enrich.WeatherSnapshot, error)
}

// GeocodeProvider resolves coordinates to an address payload.
type GeocodeProvider interface {
	Reverse(ctx context.Context, lat, lon float64) (*enrich.GeocodeResult, error)
}

// Job describes one ingestion batch.
type Job struct {
	ProjectID           string
	UploaderID          string
	Description         string
	LocationDescription string
	Files               []batch.File
}

// Ingestor runs the photo pipeline: validate, extract, enrich, upload,
// persist. Files are processed strictly in order.
type Ingestor struct {
	storage  s3client.ObjectStorage
	photos   store.PhotoStore
	weather  WeatherProvider
	geocode  GeocodeProvider
	reporter *progress.Reporter
	now      func() time.Time
}

// Option tweaks an Ingestor.
type Option func(*Ingestor)

// WithClock overrides the timestamp source used for object keys.
func WithClock(now func() time.Time) Option {
	return func(ing *Ingestor) { ing.now = now }
}

// WithReporter substitutes the progress reporter.
func WithReporter(r *progress.Reporter) Option {
	return func(ing *Ingestor) { ing.reporter = r }
}

// New wires an Ingestor from its collaborators. Weather and geocode
// clients are required; per-call failures degrade to null enrichment,
// but missing credentials are caught at construction time upstream.
func New(storage s3client.ObjectStorage, photos store.PhotoStore, weather WeatherProvider, geocode GeocodeProvider, opts ...Option) *Ingestor {
	ing := &Ingestor{
		storage:  storage,
		photos:   photos,
		weather:  weather,
		geocode:  geocode,
		reporter: progress.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Run processes the batch sequentially. A storage or persistence
// failure at file i aborts the remaining files; records already
// inserted stay committed and are returned alongside the error.
func (ing *Ingestor) Run(ctx context.Context, job Job) ([]model.PhotoRecord, error) {
	if job.ProjectID == "" {
		return nil, eris.New("ingest: project id is required")
	}

	hint := locparse.Parse(job.LocationDescription)
	if hint.Floor != "" || hint.Zone != "" {
		zap.L().Info("parsed location hint",
			zap.String("floor", hint.Floor),
			zap.String("zone", hint.Zone),
		)
	}

	ing.reporter.Start(len(job.Files))
	defer ing.reporter.Finish()

	records := make([]model.PhotoRecord, 0, len(job.Files))
	for i, file := range job.Files {
		if err := ctx.Err(); err != nil {
			return records, eris.Wrapf(err, "ingest: cancelled before file %d (%s)", i, file.Path)
		}

		if err := validateFile(file); err != nil {
			ing.reporter.Skip(file.Path, err.Error())
			continue
		}

		record, err := ing.ingestOne(ctx, job, file, i)
		if err != nil {
			ing.reporter.Error(file.Path, err)
			return records, eris.Wrapf(err, "ingest: file %d (%s)", i, file.Path)
		}

		records = append(records, *record)
		ing.reporter.Complete(file.Path)
	}

	return records, nil
}

func (ing *Ingestor) ingestOne(ctx context.Context, job Job, file batch.File, index int) (*model.PhotoRecord, error) {
	data, err := readFile(file)
	if err != nil {
		return nil, err
	}

	ex := exifdata.Extract(bytes.NewReader(data))
	if ex == nil {
		zap.L().Debug("no usable metadata", zap.String("path", file.Path))
	}

	weather, geo := ing.enrichFromExif(ctx, ex)

	key := objectKey(job.ProjectID, ing.now(), index, file.Path)
	contentType := s3client.DetectContentType(file.Path)
	objMeta := map[string]string{
		"project-id":  job.ProjectID,
		"uploader-id": job.UploaderID,
	}
	if err := ing.storage.UploadFile(ctx, bytes.NewReader(data), key, int64(len(data)), objMeta, contentType); err != nil {
		return nil, eris.Wrap(err, "upload original")
	}

	thumbKey := ing.uploadThumbnail(ctx, job.ProjectID, key, data)

	record := &model.PhotoRecord{
		ProjectID:           job.ProjectID,
		UploaderID:          job.UploaderID,
		StoragePath:         key,
		ThumbnailPath:       thumbKey,
		Description:         job.Description,
		LocationDescription: job.LocationDescription,
		Status:              model.StatusPending,
	}

	if ex != nil {
		if blob, err := json.Marshal(ex); err == nil {
			record.ExifData = blob
		}
		if len(ex.RawTags) > 0 {
			if blob, err := json.Marshal(ex.RawTags); err == nil {
				record.RawExif = blob
			}
		}
		if t, ok := ex.CaptureTime(); ok {
			captured := t
			record.CapturedAt = &captured
		}
	}
	if weather != nil {
		record.WeatherData = weather.Raw
	}
	if geo != nil {
		record.GeoData = geo.Raw
	}

	if err := ing.photos.InsertPhoto(ctx, record); err != nil {
		return nil, eris.Wrap(err, "persist record")
	}
	return record, nil
}

// enrichFromExif runs the weather and geocode lookups concurrently.
// Both require decimal GPS coordinates; weather additionally requires a
// capture timestamp. Provider failures log and degrade to nil.
func (ing *Ingestor) enrichFromExif(ctx context.Context, ex *exifdata.NormalizedExif) (*enrich.WeatherSnapshot, *enrich.GeocodeResult) {
	if ex == nil || !ex.HasDecimalGPS() {
		return nil, nil
	}
	lat := *ex.GPS.LatitudeDecimal
	lon := *ex.GPS.LongitudeDecimal

	var (
		weather *enrich.WeatherSnapshot
		geo     *enrich.GeocodeResult
	)

	g, gctx := errgroup.WithContext(ctx)
	if t, ok := ex.CaptureTime(); ok {
		ts := t.Unix()
		g.Go(func() error {
			snap, err := ing.weather.Fetch(gctx, lat, lon, ts)
			if err != nil {
				zap.L().Warn("weather lookup failed", zap.Error(err))
				return nil
			}
			weather = snap
			return nil
		})
	}
	g.Go(func() error {
		result, err := ing.geocode.Reverse(gctx, lat, lon)
		if err != nil {
			zap.L().Warn("reverse geocode failed", zap.Error(err))
			return nil
		}
		geo = result
		return nil
	})
	_ = g.Wait()

	return weather, geo
}

// uploadThumbnail renders and uploads a thumbnail next to the original.
// Failures are logged and swallowed; ingestion proceeds without one.
func (ing *Ingestor) uploadThumbnail(ctx context.Context, projectID, originalKey string, data []byte) string {
	thumb, err := makeThumbnail(data)
	if err != nil {
		zap.L().Warn("thumbnail generation failed", zap.String("key", originalKey), zap.Error(err))
		return ""
	}

	base := strings.TrimSuffix(filepath.Base(originalKey), filepath.Ext(originalKey))
	thumbKey := fmt.Sprintf("%s/thumbs/%s.jpg", projectID, base)
	if err := ing.storage.UploadFile(ctx, bytes.NewReader(thumb), thumbKey, int64(len(thumb)), nil, "image/jpeg"); err != nil {
		zap.L().Warn("thumbnail upload failed", zap.String("key", thumbKey), zap.Error(err))
		return ""
	}
	return thumbKey
}

// objectKey builds `{projectID}/{unixMillis}-{index}{ext}`.
func objectKey(projectID string, now time.Time, index int, path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return fmt.Sprintf("%s/%d-%d%s", projectID, now.UnixMilli(), index, ext)
}

func readFile(file batch.File) ([]byte, error) {
	r, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", file.Path)
	}
	return data, nil
}
