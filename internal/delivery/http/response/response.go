package response

import (
	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/usecase"
)

type StartExtractionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

type ExtractionStatusResponse struct {
	Status  string            `json:"status"`
	Current usecase.RunStatus `json:"current"`
}

type CoursesResponse struct {
	Courses []entity.CourseSummary `json:"courses"`
}

type RunsResponse struct {
	Runs []*entity.RunRecord `json:"runs"`
}

type FailuresResponse struct {
	RunID    string                   `json:"run_id"`
	Failures []*entity.FailedDownload `json:"failures"`
}

// PathMove is one planned rename.
type PathMove struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ActivityMove struct {
	ActivityID   string `json:"activity_id"`
	ActivityName string `json:"activity_name"`
	Questions    int    `json:"questions"`
	From         string `json:"from"`
	To           string `json:"to"`
}

// ReorganizeResponse mirrors usecase.ReorganizationPlan.
type ReorganizeResponse struct {
	Applied    bool           `json:"applied"`
	CourseName string         `json:"course_name"`
	JSON       PathMove       `json:"json"`
	CourseDir  *PathMove      `json:"course_dir,omitempty"`
	Activities []ActivityMove `json:"activities"`
}
