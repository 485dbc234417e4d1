package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reporter tracks batch progress and logs a percentage after every file.
type Reporter struct {
	mu        sync.Mutex
	total     int
	completed int
	skipped   int
	errors    int
	startTime time.Time
}

func New() *Reporter {
	return &Reporter{}
}

// Start resets counters for a batch of total files.
func (r *Reporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = total
	r.completed = 0
	r.skipped = 0
	r.errors = 0
	r.startTime = time.Now()

	zap.L().Info("starting batch", zap.Int("total", total))
}

// Complete marks one file as fully ingested.
func (r *Reporter) Complete(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completed++
	r.logProgress(path)
}

// Skip marks one file as skipped before upload.
func (r *Reporter) Skip(path string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.skipped++
	zap.L().Warn("skipping file", zap.String("path", path), zap.String("reason", reason))
	r.logProgress(path)
}

// Error marks one file as failed.
func (r *Reporter) Error(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors++
	zap.L().Error("file failed", zap.String("path", path), zap.Error(err))
	r.logProgress(path)
}

// Finish logs the final tally for the batch.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	zap.L().Info("batch finished",
		zap.Int("completed", r.completed),
		zap.Int("total", r.total),
		zap.Int("skipped", r.skipped),
		zap.Int("errors", r.errors),
		zap.Duration("elapsed", time.Since(r.startTime).Round(time.Millisecond)),
	)
}

// Completed returns the number of files fully ingested so far.
func (r *Reporter) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Percentage returns handled files (ingested plus skipped) as a share
// of the batch total. Skipped files stay in the denominator, so a
// batch that ends with skips still reads 100%.
func (r *Reporter) Percentage() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.percentageLocked()
}

func (r *Reporter) percentageLocked() float64 {
	if r.total == 0 {
		return 0
	}
	return float64(r.completed+r.skipped) / float64(r.total) * 100
}

func (r *Reporter) logProgress(path string) {
	zap.L().Info("progress",
		zap.String("path", path),
		zap.Float64("percentage", r.percentageLocked()),
		zap.Int("completed", r.completed),
		zap.Int("total", r.total),
	)
}
