package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
)

// Catalog reads saved course documents.
type Catalog interface {
	// Summaries describes saved documents, newest first. limit <= 0 means all.
	Summaries(ctx context.Context, limit int) ([]entity.CourseSummary, error)
	// Latest returns the newest document of a course and its path.
	Latest(ctx context.Context, courseID string) (*entity.CourseResult, string, error)
}

type catalog struct {
	results repository.ResultRepository
}

// NewCatalog creates a Catalog over results.
func NewCatalog(results repository.ResultRepository) Catalog {
	return &catalog{results: results}
}

func (c *catalog) Summaries(ctx context.Context, limit int) ([]entity.CourseSummary, error) {
	paths, err := c.results.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]entity.CourseSummary, 0, len(paths))
	for _, path := range paths {
		if limit > 0 && len(summaries) >= limit {
			break
		}
		result, err := c.results.Load(ctx, path)
		if err != nil {
			slog.Warn("Skipping unreadable result document", "path", path, "error", err)
			continue
		}
		summaries = append(summaries, Summarize(path, result))
	}
	return summaries, nil
}

func (c *catalog) Latest(ctx context.Context, courseID string) (*entity.CourseResult, string, error) {
	paths, err := c.results.List(ctx)
	if err != nil {
		return nil, "", err
	}
	for _, path := range paths {
		result, err := c.results.Load(ctx, path)
		if err != nil {
			continue
		}
		if result.CourseID == courseID {
			return result, path, nil
		}
	}
	return nil, "", fmt.Errorf("%w: course %s", entity.ErrNotFound, courseID)
}

// Summarize condenses a document into a listing entry.
func Summarize(path string, result *entity.CourseResult) entity.CourseSummary {
	return entity.CourseSummary{
		Name:       CourseName(result.CourseID),
		File:       filepath.Base(path),
		CourseID:   result.CourseID,
		Activities: result.TotalActivitiesProcessed,
		Questions:  result.TotalQuestionsExtracted,
		Images:     result.TotalImagesDownloaded,
		Timestamp:  result.ExtractionTimestamp,
	}
}
