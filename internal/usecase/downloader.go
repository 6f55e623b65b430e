package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
	"github.com/user/poll-extractor/pkg/metrics"
)

// Downloader fetches question images into per-activity directories.
type Downloader struct {
	fetcher  repository.ImageFetcher
	failures repository.FailedDownloadRepository
}

// NewDownloader creates a Downloader. failures may be nil.
func NewDownloader(fetcher repository.ImageFetcher, failures repository.FailedDownloadRepository) *Downloader {
	return &Downloader{fetcher: fetcher, failures: failures}
}

// Download writes each record's image to dir/question_NN.png and annotates
// the record in place. It returns the number of records that now carry a
// local image path. Only a failure to create dir is returned as an error.
func (d *Downloader) Download(ctx context.Context, runID string, questions []entity.QuestionRecord, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: creating %s: %v", entity.ErrDownload, dir, err)
	}

	downloaded := 0
	for i := range questions {
		q := &questions[i]
		if q.QuestionImageURL == "" {
			continue
		}
		if err := d.downloadOne(ctx, q, dir); err != nil {
			slog.Warn("Skipping question image",
				"activity_id", q.ActivityID, "question", q.QuestionNumber, "url", q.QuestionImageURL, "error", err)
			d.recordFailure(ctx, runID, q, err)
			continue
		}
		downloaded++
	}

	slog.Info("Downloaded question images", "dir", dir, "downloaded", downloaded, "total", len(questions))
	return downloaded, nil
}

// downloadError carries the HTTP status of a rejected download, if any.
type downloadError struct {
	status int
	msg    string
}

func (e *downloadError) Error() string { return e.msg }

func (e *downloadError) Unwrap() error { return entity.ErrDownload }

func (d *Downloader) downloadOne(ctx context.Context, q *entity.QuestionRecord, dir string) error {
	status, body, err := d.fetcher.Fetch(ctx, q.QuestionImageURL)
	if err != nil {
		metrics.ImageDownloadsTotal.WithLabelValues("network_error").Inc()
		return &downloadError{msg: fmt.Sprintf("request failed: %v", err)}
	}
	if status != http.StatusOK {
		metrics.ImageDownloadsTotal.WithLabelValues("http_error").Inc()
		return &downloadError{status: status, msg: fmt.Sprintf("unexpected status %d", status)}
	}

	path := filepath.Join(dir, q.ImageFileName())
	size, err := writeFile(path, body)
	if err != nil {
		metrics.ImageDownloadsTotal.WithLabelValues("write_error").Inc()
		return &downloadError{msg: fmt.Sprintf("writing %s: %v", path, err)}
	}

	metrics.ImageDownloadsTotal.WithLabelValues("success").Inc()
	q.LocalImagePath = path
	q.ImageSizeBytes = &size
	return nil
}

// writeFile writes body to path and only reports success once the file is closed.
func writeFile(path string, body []byte) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(body)
	if err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (d *Downloader) recordFailure(ctx context.Context, runID string, q *entity.QuestionRecord, cause error) {
	if d.failures == nil {
		return
	}
	failed := &entity.FailedDownload{
		RunID:          runID,
		ActivityID:     q.ActivityID,
		QuestionNumber: q.QuestionNumber,
		ImageURL:       q.QuestionImageURL,
		Reason:         cause.Error(),
		AttemptedAt:    time.Now(),
	}
	if de, ok := cause.(*downloadError); ok {
		failed.HTTPStatusCode = de.status
	}
	if err := d.failures.Record(ctx, failed); err != nil {
		slog.Error("Failed to record failed download", "url", q.QuestionImageURL, "error", err)
	}
}
