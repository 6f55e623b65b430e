package repository

import (
	"context"

	"github.com/user/poll-extractor/internal/entity"
)

// ResultRepository persists CourseResult documents.
type ResultRepository interface {
	// Save writes the document under name inside the output directory and returns its path.
	Save(ctx context.Context, name string, result *entity.CourseResult) (string, error)
	// WriteTo writes the document to an explicit path.
	WriteTo(ctx context.Context, path string, result *entity.CourseResult) error
	// Load reads a document from a path.
	Load(ctx context.Context, path string) (*entity.CourseResult, error)
	// List returns the paths of every saved document, newest first.
	List(ctx context.Context) ([]string, error)
}
