package entity

import "time"

// RunState is the coordinator-owned status of the background run slot.
type RunState string

const (
	RunStateIdle    RunState = "idle"
	RunStateRunning RunState = "running"
)

// RunRecord mirrors the `extraction_runs` table.
type RunRecord struct {
	RunID         string     `json:"run_id"`
	CourseID      string     `json:"course_id"`
	CourseURL     string     `json:"course_url"`
	Status        string     `json:"status"` // "running", "completed", "failed"
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Activities    int        `json:"activities"`
	Questions     int        `json:"questions"`
	Images        int        `json:"images"`
	OutputPath    string     `json:"output_path,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// FailedDownload mirrors the `failed_downloads` table.
type FailedDownload struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	ActivityID     string    `json:"activity_id"`
	QuestionNumber int       `json:"question_number"`
	ImageURL       string    `json:"image_url"`
	Reason         string    `json:"reason"`
	HTTPStatusCode int       `json:"http_status_code,omitempty"`
	AttemptedAt    time.Time `json:"attempted_at"`
}

// ProgressEvent is a fire-and-forget progress notification.
type ProgressEvent struct {
	RunID    string  `json:"run_id"`
	Kind     string  `json:"kind"` // "progress", "complete", "error"
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

const (
	ProgressKindProgress = "progress"
	ProgressKindComplete = "complete"
	ProgressKindError    = "error"
)
