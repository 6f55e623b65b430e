package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/poll-extractor/internal/entity"
)

// FailedDownloadRepoImpl stores image download failures in the failed_downloads table.
type FailedDownloadRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedDownloadRepo creates a new instance of FailedDownloadRepoImpl.
func NewFailedDownloadRepo(db *pgxpool.Pool) *FailedDownloadRepoImpl {
	return &FailedDownloadRepoImpl{db: db}
}

// Record inserts a failure and sets its id.
func (r *FailedDownloadRepoImpl) Record(ctx context.Context, failed *entity.FailedDownload) error {
	query := `
		INSERT INTO failed_downloads (run_id, activity_id, question_number, image_url, reason, http_status_code, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`
	return r.db.QueryRow(ctx, query,
		failed.RunID,
		failed.ActivityID,
		failed.QuestionNumber,
		failed.ImageURL,
		failed.Reason,
		failed.HTTPStatusCode,
		failed.AttemptedAt,
	).Scan(&failed.ID)
}

// FindByRun retrieves the failures of one run in insertion order.
func (r *FailedDownloadRepoImpl) FindByRun(ctx context.Context, runID string) ([]*entity.FailedDownload, error) {
	query := `
		SELECT id, run_id, activity_id, question_number, image_url, reason, http_status_code, attempted_at
		FROM failed_downloads
		WHERE run_id = $1
		ORDER BY id ASC;
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []*entity.FailedDownload
	for rows.Next() {
		var fd entity.FailedDownload
		if err := rows.Scan(
			&fd.ID,
			&fd.RunID,
			&fd.ActivityID,
			&fd.QuestionNumber,
			&fd.ImageURL,
			&fd.Reason,
			&fd.HTTPStatusCode,
			&fd.AttemptedAt,
		); err != nil {
			return nil, err
		}
		failures = append(failures, &fd)
	}

	return failures, rows.Err()
}
