package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
)

// ResultRepository stores course documents as indented JSON files in one directory.
type ResultRepository struct {
	dir string
}

// NewResultRepository creates a repository rooted at dir.
func NewResultRepository(dir string) repository.ResultRepository {
	return &ResultRepository{dir: dir}
}

// Save writes the document as dir/name.
func (r *ResultRepository) Save(ctx context.Context, name string, result *entity.CourseResult) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(r.dir, name)
	if err := r.WriteTo(ctx, path, result); err != nil {
		return "", err
	}
	return path, nil
}

// WriteTo writes the document to path with two-space indentation.
func (r *ResultRepository) WriteTo(_ context.Context, path string, result *entity.CourseResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal course result: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// Load reads a document from path.
func (r *ResultRepository) Load(_ context.Context, path string) (*entity.CourseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var result entity.CourseResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &result, nil
}

// List returns every JSON document in the directory, most recently modified first.
// A missing directory lists as empty.
func (r *ResultRepository) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.dir, err)
	}

	type doc struct {
		path  string
		mtime int64
	}
	var docs []doc
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		docs = append(docs, doc{path: filepath.Join(r.dir, e.Name()), mtime: info.ModTime().UnixNano()})
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].mtime != docs[j].mtime {
			return docs[i].mtime > docs[j].mtime
		}
		return docs[i].path > docs[j].path
	})

	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.path)
	}
	return paths, nil
}
