package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "logclassifier/internal/errors"
	"logclassifier/internal/middleware"
	"logclassifier/internal/services"
	api "logclassifier/pkg/contracts/api/v1"
)

const tracerName = "logclassifier.http"

// ClassificationHandler serves uploads, runs, predictions and the pipeline
// description
type ClassificationHandler struct {
	service      ClassificationServiceInterface
	validator    *middleware.Validator
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewClassificationHandler creates a classification handler
func NewClassificationHandler(service ClassificationServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ClassificationHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassificationHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("handler", "classification")),
		errorHandler: errorHandler,
	}
}

// UploadRoutes returns the /api/uploads routes
func (h *ClassificationHandler) UploadRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Upload)
	r.Post("/{id}/classify", h.ClassifyUpload)
	return r
}

// RunRoutes returns the /api/runs routes
func (h *ClassificationHandler) RunRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)
	r.Get("/{id}/download", h.Download)
	return r
}

// Upload handles POST /api/uploads
func (h *ClassificationHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		case errors.Is(err, http.ErrMissingFile):
			h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		default:
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		}
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		h.errorHandler.HandleError(w, r, fieldError("file", "Only CSV files are supported"))
		return
	}

	result, err := h.service.Upload(ctx, header.Filename, header.Size, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// ClassifyUpload handles POST /api/uploads/{id}/classify
func (h *ClassificationHandler) ClassifyUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "id")

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "classification_handler.classify_upload",
		trace.WithAttributes(
			attribute.String("upload.id", uploadID),
			attribute.String("request_id", middleware.GetRequestID(r.Context())),
		),
	)
	defer span.End()

	detail, err := h.service.ClassifyUpload(ctx, uploadID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.errorHandler.HandleError(w, r, toProcessingError(err))
		return
	}

	span.SetAttributes(
		attribute.String("run.id", detail.Run.ID),
		attribute.Int("run.rows", detail.Run.Total),
	)
	span.SetStatus(codes.Ok, "")
	render.JSON(w, r, detail)
}

// Predict handles POST /api/predict
func (h *ClassificationHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req api.PredictRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "classification_handler.predict",
		trace.WithAttributes(attribute.String("log.source", req.Source)),
	)
	defer span.End()

	prediction, err := h.service.Predict(ctx, req.Source, req.LogMessage)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	span.SetAttributes(
		attribute.String("log.label", prediction.Label),
		attribute.String("log.stage", prediction.Stage),
	)
	h.logger.DebugContext(ctx, "real-time classification",
		slog.String("source", prediction.Source),
		slog.String("label", prediction.Label),
		slog.String("stage", prediction.Stage),
		slog.String("processing_time", prediction.ProcessingTime))

	render.JSON(w, r, prediction)
}

// ListRuns handles GET /api/runs
func (h *ClassificationHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.query.ValidateInt(w, r, "limit", 0, 500, 50)
	if !ok {
		return
	}

	runs, err := h.service.ListRuns(r.Context(), limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /api/runs/{id}
func (h *ClassificationHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, detail)
}

// Download handles GET /api/runs/{id}/download?format=csv|xlsx
func (h *ClassificationHandler) Download(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "format", services.ExportFormats, services.FormatCSV)
	if !ok {
		return
	}

	export, err := h.service.Export(r.Context(), chi.URLParam(r, "id"), format)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Data); err != nil {
		h.logger.WarnContext(r.Context(), "download interrupted",
			slog.String("file", export.FileName),
			slog.String("error", err.Error()))
	}
}

// Pipeline handles GET /api/pipeline
func (h *ClassificationHandler) Pipeline(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Pipeline())
}
