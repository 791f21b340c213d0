// Package evaluation measures identification accuracy against a labeled
// dataset of artwork photos.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/artdocent/docent/internal/camera"
	"github.com/artdocent/docent/internal/identify"
	"github.com/artdocent/docent/internal/models"
)

// Identifier turns an image payload into an identification.
type Identifier interface {
	Identify(ctx context.Context, p models.ImagePayload) (*identify.Result, error)
}

// Result is the outcome for one record.
type Result struct {
	ID             string                `yaml:"id"`
	Reference      Record                `yaml:"reference"`
	Identification models.Identification `yaml:"identification,omitempty"`
	Comparison     *Comparison           `yaml:"comparison,omitempty"`
	Duration       time.Duration         `yaml:"duration"`
	Error          string                `yaml:"error,omitempty"`
}

// Runner identifies records with bounded concurrency.
type Runner struct {
	Identifier    Identifier
	Concurrency   int
	BaseDir       string
	MaxImageBytes int64
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Run processes records and returns results in input order.
func (r *Runner) Run(ctx context.Context, records []Record) []Result {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]Result, len(records))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, record := range records {
		wg.Add(1)
		go func(idx int, record Record) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			logger.Info("Processing record", "id", record.ID, "progress", fmt.Sprintf("%d/%d", idx+1, len(records)))
			results[idx] = r.process(ctx, record)
			if results[idx].Error != "" {
				logger.Warn("Record failed", "id", record.ID, "err", results[idx].Error)
			}
		}(i, record)
	}

	wg.Wait()
	return results
}

func (r *Runner) process(ctx context.Context, record Record) Result {
	result := Result{ID: record.ID, Reference: record}
	start := time.Now()

	frame, err := r.frame(ctx, record)
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	res, err := r.Identifier.Identify(ctx, frame)
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	result.Identification = res.Identification
	result.Comparison = Compare(record, res.Identification)
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) frame(ctx context.Context, record Record) (models.ImagePayload, error) {
	switch {
	case record.ImagePath != "":
		path := record.ImagePath
		if !filepath.IsAbs(path) && r.BaseDir != "" {
			path = filepath.Join(r.BaseDir, path)
		}
		return camera.File{Path: path}.Frame(ctx)
	case record.ImageURL != "":
		limit := r.MaxImageBytes
		if limit <= 0 {
			limit = identify.DefaultMaxImageBytes
		}
		data, err := camera.Download(ctx, r.HTTPClient, record.ImageURL, limit)
		if err != nil {
			return models.ImagePayload{}, err
		}
		return camera.Encode(data), nil
	default:
		return models.ImagePayload{}, fmt.Errorf("record %s has no image_path or image_url", record.ID)
	}
}
