package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sitelens/photo-ingest/internal/locparse"
	"github.com/sitelens/photo-ingest/internal/model"
	"github.com/sitelens/photo-ingest/internal/store"
	"github.com/sitelens/photo-ingest/internal/worker"
	"github.com/sitelens/photo-ingest/pkg/s3client"
)

// Analyzer drains pending photo records through the vision model and
// attaches the structured analysis to each record.
type Analyzer struct {
	photos      store.PhotoStore
	storage     s3client.ObjectStorage
	client      Client
	model       string
	maxTokens   int64
	concurrency int
	batchLimit  int
}

// Config tunes an Analyzer.
type Config struct {
	Model       string
	MaxTokens   int64
	Concurrency int
	BatchLimit  int
}

// New wires an Analyzer from its collaborators.
func New(photos store.PhotoStore, storage s3client.ObjectStorage, client Client, cfg Config) *Analyzer {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 2
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 50
	}
	return &Analyzer{
		photos:      photos,
		storage:     storage,
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		concurrency: cfg.Concurrency,
		batchLimit:  cfg.BatchLimit,
	}
}

// Run analyzes up to the configured batch limit of pending records.
// Records failing mid-flight are flipped to failed and do not stop the
// rest of the batch. Returns the number analyzed successfully.
func (a *Analyzer) Run(ctx context.Context) (int, error) {
	records, err := a.photos.ListByStatus(ctx, model.StatusPending, a.batchLimit)
	if err != nil {
		return 0, eris.Wrap(err, "analysis: list pending")
	}
	if len(records) == 0 {
		zap.L().Info("no pending photos to analyze")
		return 0, nil
	}

	zap.L().Info("analyzing pending photos",
		zap.Int("count", len(records)),
		zap.String("model", a.model),
		zap.Int("concurrency", a.concurrency),
	)

	pool := worker.NewPool(a.concurrency)
	var done atomic.Int64
	for i := range records {
		record := records[i]
		if err := pool.Submit(ctx, func() {
			// claim first; a record another run already holds (or
			// finished) is skipped, never marked failed
			if err := a.photos.MarkProcessing(ctx, record.ID); err != nil {
				zap.L().Warn("record not claimable, skipping",
					zap.String("photo_id", record.ID.String()),
					zap.Error(err),
				)
				return
			}
			if err := a.analyzeOne(ctx, &record); err != nil {
				zap.L().Error("analysis failed",
					zap.String("photo_id", record.ID.String()),
					zap.Error(err),
				)
				if failErr := a.photos.FailAnalysis(ctx, record.ID); failErr != nil {
					zap.L().Error("could not mark photo failed",
						zap.String("photo_id", record.ID.String()),
						zap.Error(failErr),
					)
				}
				return
			}
			done.Add(1)
		}); err != nil {
			pool.Wait()
			return int(done.Load()), eris.Wrap(err, "analysis: submit")
		}
	}
	pool.Wait()

	return int(done.Load()), nil
}

// analyzeOne runs the vision call for a record the caller has already
// claimed. Any error here leaves the record in processing; the caller
// flips it to failed.
func (a *Analyzer) analyzeOne(ctx context.Context, record *model.PhotoRecord) error {
	imageB64, mediaType, err := a.fetchImage(ctx, record.StoragePath)
	if err != nil {
		return err
	}

	hint := locparse.Parse(record.LocationDescription)
	resp, err := a.client.CreateVisionMessage(ctx, VisionRequest{
		Model:          a.model,
		MaxTokens:      a.maxTokens,
		Prompt:         BuildPrompt(record, hint),
		ImageMediaType: mediaType,
		ImageBase64:    imageB64,
	})
	if err != nil {
		return eris.Wrap(err, "vision request")
	}

	payload, err := extractJSON(resp.Text)
	if err != nil {
		return err
	}

	if err := a.photos.CompleteAnalysis(ctx, record.ID, payload); err != nil {
		return eris.Wrap(err, "store analysis")
	}

	zap.L().Info("photo analyzed",
		zap.String("photo_id", record.ID.String()),
		zap.String("storage_path", record.StoragePath),
	)
	return nil
}

func (a *Analyzer) fetchImage(ctx context.Context, objectKey string) (string, string, error) {
	obj, err := a.storage.GetObject(ctx, objectKey)
	if err != nil {
		return "", "", eris.Wrapf(err, "fetch object %s", objectKey)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", "", eris.Wrapf(err, "read object %s", objectKey)
	}

	return base64.StdEncoding.EncodeToString(data), s3client.DetectContentType(objectKey), nil
}

// extractJSON pulls the JSON document out of the model reply, stripping
// a markdown code fence if the model added one.
func extractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	if !json.Valid([]byte(trimmed)) {
		return nil, eris.Errorf("model reply is not valid JSON: %.80s", trimmed)
	}
	return json.RawMessage(trimmed), nil
}
