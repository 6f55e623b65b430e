package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/poll-extractor/internal/credentials"
	"github.com/user/poll-extractor/internal/delivery/http/request"
	"github.com/user/poll-extractor/internal/delivery/http/response"
	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
	"github.com/user/poll-extractor/internal/usecase"
)

// CredentialsFunc resolves the portal login for a dashboard-started run.
type CredentialsFunc func() (credentials.Credentials, error)

type Handler struct {
	coordinator usecase.ExtractionCoordinator
	catalog     usecase.Catalog
	history     repository.RunHistoryRepository
	failures    repository.FailedDownloadRepository
	reorganizer usecase.ResultReorganizer
	credentials CredentialsFunc
	outputDir   string
}

func NewHandler(
	coordinator usecase.ExtractionCoordinator,
	catalog usecase.Catalog,
	history repository.RunHistoryRepository,
	failures repository.FailedDownloadRepository,
	reorganizer usecase.ResultReorganizer,
	creds CredentialsFunc,
	outputDir string,
) *Handler {
	return &Handler{
		coordinator: coordinator,
		catalog:     catalog,
		history:     history,
		failures:    failures,
		reorganizer: reorganizer,
		credentials: creds,
		outputDir:   outputDir,
	}
}

func (h *Handler) HandleStartExtraction(w http.ResponseWriter, r *http.Request) {
	var req request.StartExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CourseURL == "" {
		h.writeJSONError(w, "course_url is required", http.StatusBadRequest)
		return
	}

	creds, err := h.credentials()
	if err != nil {
		slog.Error("Failed to resolve credentials", "error", err)
		h.writeJSONError(w, "Credentials are not configured", http.StatusInternalServerError)
		return
	}

	started, err := h.coordinator.Start(r.Context(), req.CourseURL, creds)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrRunInProgress):
			h.writeJSONError(w, "Extraction already in progress", http.StatusConflict)
		case errors.Is(err, entity.ErrInvalidCourseURL):
			h.writeJSONError(w, "Invalid course URL", http.StatusBadRequest)
		default:
			slog.Error("Failed to start extraction", "course_url", req.CourseURL, "error", err)
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	resp := response.StartExtractionResponse{
		Status:  "started",
		Message: "Extraction started",
		RunID:   started.RunID,
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

// HandleExtractionStatus reports this process's run slot, or the run
// another process holds the shared lock for while the slot is idle.
func (h *Handler) HandleExtractionStatus(w http.ResponseWriter, r *http.Request) {
	status := h.coordinator.Status()
	if status.State != entity.RunStateRunning {
		if remote, ok := h.coordinator.Remote(r.Context()); ok {
			status = remote
		}
	}
	h.writeJSON(w, http.StatusOK, response.ExtractionStatusResponse{
		Status:  string(status.State),
		Current: status,
	})
}

func (h *Handler) HandleListCourses(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	summaries, err := h.catalog.Summaries(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list courses", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.CoursesResponse{Courses: summaries})
}

func (h *Handler) HandleGetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	result, _, err := h.catalog.Latest(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			h.writeJSONError(w, "Course not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load course", "course_id", courseID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	runs, err := h.history.List(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list runs", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*entity.RunRecord{}
	}
	h.writeJSON(w, http.StatusOK, response.RunsResponse{Runs: runs})
}

func (h *Handler) HandleListRunFailures(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	failures, err := h.failures.FindByRun(r.Context(), runID)
	if err != nil {
		slog.Error("Failed to list failed downloads", "run_id", runID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if failures == nil {
		failures = []*entity.FailedDownload{}
	}
	h.writeJSON(w, http.StatusOK, response.FailuresResponse{RunID: runID, Failures: failures})
}

func (h *Handler) HandleReorganize(w http.ResponseWriter, r *http.Request) {
	var req request.ReorganizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	name := filepath.Base(req.ResultPath)
	if req.ResultPath == "" || name == "." || name == string(filepath.Separator) || filepath.Ext(name) != ".json" {
		h.writeJSONError(w, "result_path must name a result document", http.StatusBadRequest)
		return
	}

	plan, err := h.reorganizer.Reorganize(r.Context(), filepath.Join(h.outputDir, name), req.Apply)
	if err != nil {
		slog.Error("Failed to reorganize", "result_path", name, "apply", req.Apply, "error", err)
		h.writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	h.writeJSON(w, http.StatusOK, toReorganizeResponse(plan, req.Apply))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.writeJSONError(w, "limit must be a non-negative integer", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func toReorganizeResponse(plan *usecase.ReorganizationPlan, applied bool) response.ReorganizeResponse {
	resp := response.ReorganizeResponse{
		Applied:    applied,
		CourseName: plan.CourseName,
		JSON:       response.PathMove{From: plan.JSON.From, To: plan.JSON.To},
		Activities: make([]response.ActivityMove, 0, len(plan.Activities)),
	}
	if plan.CourseDir != nil {
		resp.CourseDir = &response.PathMove{From: plan.CourseDir.From, To: plan.CourseDir.To}
	}
	for _, a := range plan.Activities {
		resp.Activities = append(resp.Activities, response.ActivityMove{
			ActivityID:   a.ActivityID,
			ActivityName: a.ActivityName,
			Questions:    a.Questions,
			From:         a.From,
			To:           a.To,
		})
	}
	return resp
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
