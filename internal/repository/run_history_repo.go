package repository

import (
	"context"

	"github.com/user/poll-extractor/internal/entity"
)

// RunHistoryRepository records extraction runs.
type RunHistoryRepository interface {
	// Save creates or updates a run record.
	Save(ctx context.Context, run *entity.RunRecord) error
	// List returns the most recent runs first.
	List(ctx context.Context, limit int) ([]*entity.RunRecord, error)
}

// FailedDownloadRepository records images that could not be downloaded.
type FailedDownloadRepository interface {
	Record(ctx context.Context, failed *entity.FailedDownload) error
	// FindByRun retrieves the failures recorded for one run.
	FindByRun(ctx context.Context, runID string) ([]*entity.FailedDownload, error)
}
