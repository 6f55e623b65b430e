package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
)

// Assembler folds activity results into one course document and persists it.
type Assembler struct {
	results repository.ResultRepository
	now     func() time.Time
}

// NewAssembler creates an Assembler writing through results.
func NewAssembler(results repository.ResultRepository) *Assembler {
	return &Assembler{results: results, now: time.Now}
}

// NewCourseResult starts an empty document for a course.
func NewCourseResult(courseID, courseURL string) *entity.CourseResult {
	return &entity.CourseResult{
		CourseID:   courseID,
		CourseURL:  courseURL,
		Activities: []entity.ActivityResult{},
	}
}

// Add appends one activity result and refreshes the totals.
func (a *Assembler) Add(result *entity.CourseResult, activity entity.ActivityResult) {
	result.Activities = append(result.Activities, activity)
	result.Recount()
}

// Save stamps the document with a single timestamp, recomputes the totals and
// writes it as course_{id}_extraction_{timestamp}.json.
func (a *Assembler) Save(ctx context.Context, result *entity.CourseResult) (string, error) {
	result.ExtractionTimestamp = a.now().Format(entity.TimestampLayout)
	result.Recount()

	path, err := a.results.Save(ctx, result.FileName(), result)
	if err != nil {
		return "", err
	}
	slog.Info("Saved course result",
		"path", path,
		"activities", result.TotalActivitiesProcessed,
		"questions", result.TotalQuestionsExtracted,
		"images", result.TotalImagesDownloaded)
	return path, nil
}
