package repository

import (
	"context"

	"github.com/user/poll-extractor/internal/entity"
)

// ProgressNotifier delivers progress events on a best-effort basis.
// Implementations must not block the run and must swallow delivery errors.
type ProgressNotifier interface {
	Notify(ctx context.Context, event entity.ProgressEvent)
}

// ProgressStore keeps the most recent progress event of each run where
// other processes can read it.
type ProgressStore interface {
	// Latest returns the last event of runID, or an error when none is kept.
	Latest(ctx context.Context, runID string) (*entity.ProgressEvent, error)
}
