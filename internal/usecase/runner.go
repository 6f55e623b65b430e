package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/user/poll-extractor/internal/credentials"
	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
	"github.com/user/poll-extractor/pkg/metrics"
	"github.com/user/poll-extractor/pkg/utils"
)

// CourseRunner drives the portal on behalf of the CLI and the run coordinator.
type CourseRunner interface {
	// RunCourse extracts every activity of a course and always persists the
	// (possibly partial) result document, returning its path.
	RunCourse(ctx context.Context, runID, courseURL string, creds credentials.Credentials) (*entity.CourseResult, string, error)
	// Discover lists the activities of a course.
	Discover(ctx context.Context, courseURL string, creds credentials.Credentials) ([]entity.ActivityRef, error)
	// Extract classifies the question images of a single activity.
	Extract(ctx context.Context, activityID string, creds credentials.Credentials) ([]entity.QuestionRecord, error)
}

// RunnerConfig holds the runner's portal location and fixed waits.
type RunnerConfig struct {
	PortalBaseURL   string
	ImagesDir       string
	ListingLoadWait time.Duration
}

type courseRunner struct {
	cfg        RunnerConfig
	launcher   repository.BrowserLauncher
	auth       *Authenticator
	discoverer *Discoverer
	extractor  *Extractor
	downloader *Downloader
	assembler  *Assembler
	history    repository.RunHistoryRepository
	notifier   repository.ProgressNotifier
}

// NewCourseRunner wires the pipeline stages into a CourseRunner.
func NewCourseRunner(
	cfg RunnerConfig,
	launcher repository.BrowserLauncher,
	auth *Authenticator,
	discoverer *Discoverer,
	extractor *Extractor,
	downloader *Downloader,
	assembler *Assembler,
	history repository.RunHistoryRepository,
	notifier repository.ProgressNotifier,
) CourseRunner {
	return &courseRunner{
		cfg:        cfg,
		launcher:   launcher,
		auth:       auth,
		discoverer: discoverer,
		extractor:  extractor,
		downloader: downloader,
		assembler:  assembler,
		history:    history,
		notifier:   notifier,
	}
}

// withSession launches a browser, logs in and hands the session to fn.
// The browser is closed on every exit path.
func (r *courseRunner) withSession(ctx context.Context, creds credentials.Credentials, fn func(b repository.Browser) error) error {
	b, err := r.launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("%w: starting browser: %v", entity.ErrConfiguration, err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			slog.Warn("Error closing browser", "error", err)
		}
	}()

	if err := r.auth.Authenticate(ctx, b, creds.Username, creds.Password); err != nil {
		return err
	}
	return fn(b)
}

func (r *courseRunner) openListing(ctx context.Context, b repository.Browser, courseURL string) error {
	slog.Info("Navigating to course", "url", courseURL)
	if err := b.Navigate(ctx, courseURL); err != nil {
		return fmt.Errorf("%w: loading course page: %v", entity.ErrScraping, err)
	}
	return settle(ctx, r.cfg.ListingLoadWait)
}

func (r *courseRunner) Discover(ctx context.Context, courseURL string, creds credentials.Credentials) ([]entity.ActivityRef, error) {
	if _, ok := utils.CourseIDFromURL(courseURL); !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidCourseURL, courseURL)
	}
	var refs []entity.ActivityRef
	err := r.withSession(ctx, creds, func(b repository.Browser) error {
		if err := r.openListing(ctx, b, courseURL); err != nil {
			return err
		}
		var err error
		refs, err = r.discoverer.Discover(ctx, b)
		return err
	})
	return refs, err
}

func (r *courseRunner) Extract(ctx context.Context, activityID string, creds credentials.Credentials) ([]entity.QuestionRecord, error) {
	var records []entity.QuestionRecord
	err := r.withSession(ctx, creds, func(b repository.Browser) error {
		var err error
		records, err = r.extractor.Extract(ctx, b, entity.ActivityRef{ActivityID: activityID})
		return err
	})
	return records, err
}

func (r *courseRunner) RunCourse(ctx context.Context, runID, courseURL string, creds credentials.Credentials) (result *entity.CourseResult, path string, err error) {
	courseID, ok := utils.CourseIDFromURL(courseURL)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", entity.ErrInvalidCourseURL, courseURL)
	}

	start := time.Now()
	record := &entity.RunRecord{
		RunID:     runID,
		CourseID:  courseID,
		CourseURL: courseURL,
		Status:    "running",
		StartedAt: start,
	}
	r.saveRun(ctx, record)

	result = NewCourseResult(courseID, courseURL)
	defer func() {
		saveCtx := context.WithoutCancel(ctx)
		savedPath, saveErr := r.assembler.Save(saveCtx, result)
		if saveErr != nil {
			slog.Error("Failed to save course result", "course_id", courseID, "error", saveErr)
			if err == nil {
				err = saveErr
			}
		}
		path = savedPath
		r.finishRun(saveCtx, record, result, path, err, start)
	}()

	r.progress(ctx, runID, entity.ProgressKindProgress, 10, "Logging in and discovering activities")

	err = r.withSession(ctx, creds, func(b repository.Browser) error {
		if err := r.openListing(ctx, b, courseURL); err != nil {
			return err
		}
		refs, err := r.discoverer.Discover(ctx, b)
		if err != nil {
			if ctx.Err() != nil || len(refs) == 0 {
				return err
			}
			slog.Warn("Discovery ended early, continuing with partial list", "activities", len(refs), "error", err)
		}
		slog.Info("Discovered activities", "course_id", courseID, "count", len(refs))

		for i, ref := range refs {
			if err := ctx.Err(); err != nil {
				return err
			}
			pct := 20 + 60*float64(i)/float64(len(refs))
			r.progress(ctx, runID, entity.ProgressKindProgress, pct,
				fmt.Sprintf("Processing activity %d/%d: %s", i+1, len(refs), ref.DisplayName))

			activity, ok := r.processActivity(ctx, b, runID, courseID, i+1, ref)
			if ok {
				r.assembler.Add(result, activity)
			}
		}
		return nil
	})
	if err != nil {
		return result, path, err
	}

	r.progress(ctx, runID, entity.ProgressKindProgress, 90, "Organizing files")
	return result, path, nil
}

// processActivity extracts and downloads one activity. ok is false when the
// activity yields no result; such failures never abort the run.
func (r *courseRunner) processActivity(ctx context.Context, b repository.Browser, runID, courseID string, index int, ref entity.ActivityRef) (entity.ActivityResult, bool) {
	records, err := r.extractor.Extract(ctx, b, ref)
	if err != nil {
		slog.Error("Failed to extract activity", "activity_id", ref.ActivityID, "error", err)
		return entity.ActivityResult{}, false
	}
	if len(records) == 0 {
		slog.Warn("No questions found, skipping activity", "activity_id", ref.ActivityID, "name", ref.DisplayName)
		return entity.ActivityResult{}, false
	}

	dir := filepath.Join(r.cfg.ImagesDir, "course_"+courseID, fmt.Sprintf("activity_%d_%s", index, ref.ShortID()))
	downloaded, err := r.downloader.Download(ctx, runID, records, dir)
	if err != nil {
		slog.Error("Failed to prepare image directory", "activity_id", ref.ActivityID, "error", err)
	}

	return entity.ActivityResult{
		ActivityID:       ref.ActivityID,
		ActivityName:     records[0].ActivityName,
		ActivityURL:      utils.ActivityQuestionsURL(r.cfg.PortalBaseURL, ref.ActivityID),
		QuestionsFound:   len(records),
		ImagesDownloaded: downloaded,
		Questions:        records,
		ImageDirectory:   dir,
	}, true
}

func (r *courseRunner) progress(ctx context.Context, runID, kind string, pct float64, msg string) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(ctx, entity.ProgressEvent{RunID: runID, Kind: kind, Progress: pct, Message: msg})
}

func (r *courseRunner) saveRun(ctx context.Context, record *entity.RunRecord) {
	if r.history == nil {
		return
	}
	if err := r.history.Save(ctx, record); err != nil {
		slog.Error("Failed to save run record", "run_id", record.RunID, "error", err)
	}
}

func (r *courseRunner) finishRun(ctx context.Context, record *entity.RunRecord, result *entity.CourseResult, path string, runErr error, start time.Time) {
	finished := time.Now()
	record.FinishedAt = &finished
	record.Activities = result.TotalActivitiesProcessed
	record.Questions = result.TotalQuestionsExtracted
	record.Images = result.TotalImagesDownloaded
	record.OutputPath = path
	record.Status = "completed"
	if runErr != nil {
		record.Status = "failed"
		record.FailureReason = runErr.Error()
	}

	metrics.RunsTotal.WithLabelValues(record.Status).Inc()
	metrics.RunDuration.Observe(finished.Sub(start).Seconds())
	r.saveRun(ctx, record)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("Course run failed", "run_id", record.RunID, "course_id", record.CourseID, "error", runErr)
	}
}
