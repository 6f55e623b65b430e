package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/poll-extractor/internal/adapter/memory"
	"github.com/user/poll-extractor/internal/entity"
)

func TestDownloaderDownload(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "images", "course_c1", "activity_1_a1")

	fetcher := newFakeFetcher(map[string]fakeResponse{
		"https://x.test/1.png": {status: 200, body: []byte("png-one")},
		"https://x.test/2.png": {status: 403},
		"https://x.test/3.png": {err: errors.New("connection reset")},
		"https://x.test/4.png": {status: 200, body: []byte("png-four!")},
	})
	failures := memory.NewFailedDownloadRepository()

	questions := []entity.QuestionRecord{
		{QuestionNumber: 1, QuestionImageURL: "https://x.test/1.png", ActivityID: "a1"},
		{QuestionNumber: 2, QuestionImageURL: "https://x.test/2.png", ActivityID: "a1"},
		{QuestionNumber: 3, QuestionImageURL: "https://x.test/3.png", ActivityID: "a1"},
		{QuestionNumber: 4, QuestionImageURL: "https://x.test/4.png", ActivityID: "a1"},
		{QuestionNumber: 5, ActivityID: "a1"},
	}

	n, err := NewDownloader(fetcher, failures).Download(ctx, "run-1", questions, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	withPath := 0
	for _, q := range questions {
		if q.Downloaded() {
			withPath++
		}
	}
	assert.Equal(t, n, withPath)

	assert.Equal(t, filepath.Join(dir, "question_01.png"), questions[0].LocalImagePath)
	require.NotNil(t, questions[0].ImageSizeBytes)
	assert.Equal(t, int64(7), *questions[0].ImageSizeBytes)
	data, err := os.ReadFile(questions[0].LocalImagePath)
	require.NoError(t, err)
	assert.Equal(t, "png-one", string(data))

	assert.Empty(t, questions[1].LocalImagePath)
	assert.Nil(t, questions[1].ImageSizeBytes)
	assert.False(t, questions[2].Downloaded())
	assert.FileExists(t, filepath.Join(dir, "question_04.png"))
	assert.NoFileExists(t, filepath.Join(dir, "question_02.png"))
	assert.NotContains(t, fetcher.requested, "")

	recorded, err := failures.FindByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, recorded, 2)
	assert.Equal(t, 2, recorded[0].QuestionNumber)
	assert.Equal(t, 403, recorded[0].HTTPStatusCode)
	assert.Equal(t, 3, recorded[1].QuestionNumber)
	assert.Zero(t, recorded[1].HTTPStatusCode)
	assert.Contains(t, recorded[1].Reason, "connection reset")
}

func TestDownloaderWithoutFailureLedger(t *testing.T) {
	questions := []entity.QuestionRecord{{QuestionNumber: 1, QuestionImageURL: "https://x.test/missing.png"}}

	n, err := NewDownloader(newFakeFetcher(nil), nil).Download(context.Background(), "", questions, t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDownloaderUnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewDownloader(newFakeFetcher(nil), nil).Download(context.Background(), "", nil, filepath.Join(blocker, "dir"))
	require.ErrorIs(t, err, entity.ErrDownload)
}
