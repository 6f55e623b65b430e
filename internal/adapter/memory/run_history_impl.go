package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
)

// RunHistoryRepository keeps run records for the lifetime of the process.
type RunHistoryRepository struct {
	mu   sync.RWMutex
	runs map[string]entity.RunRecord
}

// NewRunHistoryRepository creates an empty in-memory run history.
func NewRunHistoryRepository() repository.RunHistoryRepository {
	return &RunHistoryRepository{runs: make(map[string]entity.RunRecord)}
}

// Save creates or replaces the record with the same run id.
func (r *RunHistoryRepository) Save(_ context.Context, run *entity.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.RunID] = *run
	return nil
}

// List returns copies of the most recently started runs first.
func (r *RunHistoryRepository) List(_ context.Context, limit int) ([]*entity.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.RunRecord, 0, len(r.runs))
	for _, run := range r.runs {
		run := run
		out = append(out, &run)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FailedDownloadRepository keeps failed downloads for the lifetime of the process.
type FailedDownloadRepository struct {
	mu     sync.RWMutex
	nextID int64
	byRun  map[string][]entity.FailedDownload
}

// NewFailedDownloadRepository creates an empty in-memory failure ledger.
func NewFailedDownloadRepository() repository.FailedDownloadRepository {
	return &FailedDownloadRepository{byRun: make(map[string][]entity.FailedDownload)}
}

// Record appends a failure and assigns it an id.
func (r *FailedDownloadRepository) Record(_ context.Context, failed *entity.FailedDownload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	failed.ID = r.nextID
	r.byRun[failed.RunID] = append(r.byRun[failed.RunID], *failed)
	return nil
}

// FindByRun returns the failures of one run in recording order.
func (r *FailedDownloadRepository) FindByRun(_ context.Context, runID string) ([]*entity.FailedDownload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	failures := r.byRun[runID]
	out := make([]*entity.FailedDownload, 0, len(failures))
	for i := range failures {
		f := failures[i]
		out = append(out, &f)
	}
	return out, nil
}
