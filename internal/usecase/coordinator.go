package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/poll-extractor/internal/credentials"
	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
	"github.com/user/poll-extractor/pkg/utils"
)

// StartResult reports whether a run was accepted.
type StartResult struct {
	Accepted bool   `json:"accepted"`
	RunID    string `json:"run_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// RunStatus is a snapshot of the coordinator's run slot. After a run
// finishes the slot is idle but keeps describing the last run.
type RunStatus struct {
	State      entity.RunState `json:"status"`
	RunID      string          `json:"run_id,omitempty"`
	CourseURL  string          `json:"course_url,omitempty"`
	Progress   float64         `json:"progress"`
	Message    string          `json:"message,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	ResultPath string          `json:"result_path,omitempty"`
	Activities int             `json:"activities"`
	Questions  int             `json:"questions"`
	Images     int             `json:"images"`
	Error      string          `json:"error,omitempty"`

	err error
}

// Err returns the error the last run finished with, unflattened so callers
// can classify it with errors.Is.
func (s RunStatus) Err() error {
	return s.err
}

// ExtractionCoordinator starts background runs and reports on them.
type ExtractionCoordinator interface {
	Start(ctx context.Context, courseURL string, creds credentials.Credentials) (StartResult, error)
	Status() RunStatus
	Wait(ctx context.Context) (RunStatus, error)
	// Remote describes a run another process holds the shared lock for.
	Remote(ctx context.Context) (RunStatus, bool)
}

// RunCoordinator owns the single background run slot. Only one run may be
// running at a time; a second start is rejected, never queued.
type RunCoordinator struct {
	runner         CourseRunner
	reorganizer    *Reorganizer
	progress       *ProgressBroadcaster
	autoReorganize bool
	lock           repository.RunLock
	lockTTL        time.Duration
	shared         repository.ProgressStore

	mu     sync.Mutex
	status RunStatus
	done   chan struct{}
}

// NewRunCoordinator creates an idle coordinator. It subscribes to progress
// so the status snapshot follows the running pipeline.
func NewRunCoordinator(runner CourseRunner, reorganizer *Reorganizer, progress *ProgressBroadcaster, autoReorganize bool) *RunCoordinator {
	c := &RunCoordinator{
		runner:         runner,
		reorganizer:    reorganizer,
		progress:       progress,
		autoReorganize: autoReorganize,
		status:         RunStatus{State: entity.RunStateIdle},
	}
	progress.Subscribe(ProgressFunc(c.observe))
	return c
}

// UseLock makes the coordinator also hold lock for the duration of every
// run, so runs are exclusive across processes. ttl bounds how long a
// crashed holder blocks others.
func (c *RunCoordinator) UseLock(lock repository.RunLock, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lock = lock
	c.lockTTL = ttl
}

// ShareProgress lets Remote read the latest progress other processes
// published for their runs.
func (c *RunCoordinator) ShareProgress(store repository.ProgressStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shared = store
}

// Start launches a background run of courseURL. The run outlives ctx.
func (c *RunCoordinator) Start(ctx context.Context, courseURL string, creds credentials.Credentials) (StartResult, error) {
	if _, ok := utils.CourseIDFromURL(courseURL); !ok {
		return StartResult{Reason: "invalid course URL"}, fmt.Errorf("%w: %s", entity.ErrInvalidCourseURL, courseURL)
	}

	// The slot is claimed under mu. The cross-process lock is taken outside it.
	c.mu.Lock()
	if c.status.State == entity.RunStateRunning {
		running := c.status.RunID
		c.mu.Unlock()
		return StartResult{RunID: running, Reason: "extraction already in progress"}, entity.ErrRunInProgress
	}
	runID := uuid.NewString()
	lock, ttl := c.lock, c.lockTTL
	previous, previousDone := c.status, c.done
	now := time.Now()
	c.status = RunStatus{
		State:     entity.RunStateRunning,
		RunID:     runID,
		CourseURL: courseURL,
		Message:   "Starting extraction",
		StartedAt: &now,
	}
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	if lock != nil {
		ok, err := lock.Acquire(ctx, runID, ttl)
		if err != nil || !ok {
			c.releaseSlot(runID, previous, previousDone)
			close(done)
		}
		if err != nil {
			return StartResult{Reason: "run lock unavailable"}, fmt.Errorf("acquiring run lock: %w", err)
		}
		if !ok {
			holder, _ := lock.Holder(ctx)
			return StartResult{RunID: holder, Reason: "extraction already in progress"}, entity.ErrRunInProgress
		}
	}

	slog.Info("Starting background extraction", "run_id", runID, "course_url", courseURL)
	go c.run(context.WithoutCancel(ctx), runID, courseURL, creds, done, lock)
	return StartResult{Accepted: true, RunID: runID}, nil
}

// releaseSlot hands the slot back after a start that never ran.
func (c *RunCoordinator) releaseSlot(runID string, previous RunStatus, previousDone chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.RunID == runID {
		c.status = previous
		c.done = previousDone
	}
}

func (c *RunCoordinator) run(ctx context.Context, runID, courseURL string, creds credentials.Credentials, done chan struct{}, lock repository.RunLock) {
	defer close(done)
	if lock != nil {
		defer func() {
			if err := lock.Release(ctx, runID); err != nil {
				slog.Warn("Failed to release run lock", "run_id", runID, "error", err)
			}
		}()
	}

	result, path, err := c.runner.RunCourse(ctx, runID, courseURL, creds)

	if err == nil && c.autoReorganize && path != "" {
		plan, rerr := c.reorganizer.Reorganize(ctx, path, true)
		if rerr != nil {
			slog.Error("Automatic reorganization failed", "run_id", runID, "path", path, "error", rerr)
		} else {
			path = plan.JSON.To
		}
	}

	c.mu.Lock()
	finished := time.Now()
	c.status.State = entity.RunStateIdle
	c.status.FinishedAt = &finished
	c.status.ResultPath = path
	if result != nil {
		c.status.Activities = result.TotalActivitiesProcessed
		c.status.Questions = result.TotalQuestionsExtracted
		c.status.Images = result.TotalImagesDownloaded
	}
	if err != nil {
		c.status.Error = err.Error()
		c.status.err = err
	}
	c.mu.Unlock()

	if err != nil {
		c.progress.Notify(ctx, entity.ProgressEvent{RunID: runID, Kind: entity.ProgressKindError, Progress: c.Status().Progress, Message: err.Error()})
		return
	}
	c.progress.Notify(ctx, entity.ProgressEvent{
		RunID:    runID,
		Kind:     entity.ProgressKindComplete,
		Progress: 100,
		Message: fmt.Sprintf("Extraction complete: %d activities, %d questions, %d images",
			result.TotalActivitiesProcessed, result.TotalQuestionsExtracted, result.TotalImagesDownloaded),
	})
}

// observe mirrors progress of the current run into the status snapshot.
// Events of other runs and late events are dropped.
func (c *RunCoordinator) observe(_ context.Context, event entity.ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event.RunID != c.status.RunID {
		return
	}
	if event.Kind == entity.ProgressKindProgress && c.status.State != entity.RunStateRunning {
		return
	}
	c.status.Progress = event.Progress
	c.status.Message = event.Message
}

// Status returns a snapshot of the run slot.
func (c *RunCoordinator) Status() RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Remote reports the run holding the shared lock when it is not this
// coordinator's. ok is false without a lock, when the lock is free, or when
// the holder cannot be read.
func (c *RunCoordinator) Remote(ctx context.Context) (RunStatus, bool) {
	c.mu.Lock()
	lock, shared, localRun := c.lock, c.shared, c.status.RunID
	c.mu.Unlock()
	if lock == nil {
		return RunStatus{}, false
	}

	holder, err := lock.Holder(ctx)
	if err != nil {
		slog.Warn("Failed to read run lock holder", "error", err)
		return RunStatus{}, false
	}
	if holder == "" || holder == localRun {
		return RunStatus{}, false
	}

	status := RunStatus{State: entity.RunStateRunning, RunID: holder, Message: "Extraction running in another process"}
	if shared != nil {
		if event, err := shared.Latest(ctx, holder); err == nil {
			status.Progress = event.Progress
			status.Message = event.Message
		}
	}
	return status, true
}

// Wait blocks until the current run, if any, has finished, then returns the
// final snapshot.
func (c *RunCoordinator) Wait(ctx context.Context) (RunStatus, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Status(), ctx.Err()
		}
	}
	return c.Status(), nil
}
