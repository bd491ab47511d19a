package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "logclassifier/internal/errors"
	"logclassifier/internal/middleware"
	"logclassifier/internal/operations"
	api "logclassifier/pkg/contracts/api/v1"
	"logclassifier/pkg/contracts/domain"
)

// JobsHandler serves asynchronous classification jobs
type JobsHandler struct {
	service      JobServiceInterface
	validator    *middleware.Validator
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewJobsHandler creates a jobs handler
func NewJobsHandler(service JobServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *JobsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobsHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("handler", "jobs")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /api/jobs routes
func (h *JobsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Submit)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Cancel)
	return r
}

// Submit handles POST /api/jobs
func (h *JobsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req api.JobRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	job, err := h.service.Submit(r.Context(), req.UploadID)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	w.Header().Set("Location", "/api/jobs/"+job.ID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, job)
}

// Get handles GET /api/jobs/{id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, job)
}

// List handles GET /api/jobs?status=&upload_id=&limit=
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	status, ok := h.query.ValidateEnum(w, r, "status", []string{
		string(domain.JobStatusPending),
		string(domain.JobStatusRunning),
		string(domain.JobStatusCompleted),
		string(domain.JobStatusFailed),
		string(domain.JobStatusCancelled),
	}, "")
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 0, 500, 50)
	if !ok {
		return
	}

	jobs, err := h.service.List(operations.JobFilter{
		Status:   domain.JobStatus(status),
		UploadID: r.URL.Query().Get("upload_id"),
		Limit:    limit,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Cancel handles DELETE /api/jobs/{id}
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Cancel(id); err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "job cancellation requested", slog.String("job_id", id))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{
		"job_id":  id,
		"message": "Cancellation requested",
	})
}
