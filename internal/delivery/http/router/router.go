package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/poll-extractor/internal/delivery/http/handler"
	"github.com/user/poll-extractor/internal/delivery/http/middleware"
)

// New builds the dashboard API. imagesDir is served read-only under /images/.
func New(h *handler.Handler, imagesDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(imagesDir))))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Post("/extract", h.HandleStartExtraction)
		r.Get("/extraction/status", h.HandleExtractionStatus)
		r.Get("/courses", h.HandleListCourses)
		r.Get("/courses/{courseID}", h.HandleGetCourse)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{runID}/failures", h.HandleListRunFailures)
		r.Post("/reorganize", h.HandleReorganize)
	})

	return r
}
