package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/poll-extractor/internal/entity"
)

// RunHistoryRepoImpl stores run records in the extraction_runs table.
type RunHistoryRepoImpl struct {
	db *pgxpool.Pool
}

// NewRunHistoryRepo creates a new instance of RunHistoryRepoImpl.
func NewRunHistoryRepo(db *pgxpool.Pool) *RunHistoryRepoImpl {
	return &RunHistoryRepoImpl{db: db}
}

// Save creates or updates the record of a run.
func (r *RunHistoryRepoImpl) Save(ctx context.Context, run *entity.RunRecord) error {
	query := `
		INSERT INTO extraction_runs (run_id, course_id, course_url, status, started_at, finished_at, activities, questions, images, output_path, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			activities = EXCLUDED.activities,
			questions = EXCLUDED.questions,
			images = EXCLUDED.images,
			output_path = EXCLUDED.output_path,
			failure_reason = EXCLUDED.failure_reason;
	`
	_, err := r.db.Exec(ctx, query,
		run.RunID,
		run.CourseID,
		run.CourseURL,
		run.Status,
		run.StartedAt,
		run.FinishedAt,
		run.Activities,
		run.Questions,
		run.Images,
		run.OutputPath,
		run.FailureReason,
	)
	return err
}

// List retrieves the most recently started runs.
func (r *RunHistoryRepoImpl) List(ctx context.Context, limit int) ([]*entity.RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT run_id, course_id, course_url, status, started_at, finished_at, activities, questions, images, output_path, failure_reason
		FROM extraction_runs
		ORDER BY started_at DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*entity.RunRecord
	for rows.Next() {
		var run entity.RunRecord
		var finishedAt *time.Time
		if err := rows.Scan(
			&run.RunID,
			&run.CourseID,
			&run.CourseURL,
			&run.Status,
			&run.StartedAt,
			&finishedAt,
			&run.Activities,
			&run.Questions,
			&run.Images,
			&run.OutputPath,
			&run.FailureReason,
		); err != nil {
			return nil, err
		}
		run.FinishedAt = finishedAt
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
