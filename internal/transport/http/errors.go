package http

import (
	"context"
	"errors"
	"net/http"

	apierrors "logclassifier/internal/errors"
	"logclassifier/internal/logcsv"
	"logclassifier/internal/operations"
	"logclassifier/internal/services"
)

// toAPIError maps service errors onto API errors. Unknown errors pass
// through and are rendered by the error handler.
func toAPIError(err error) error {
	var parseErr *logcsv.ParseError
	switch {
	case errors.Is(err, logcsv.ErrMissingColumns):
		return apierrors.InvalidCSVError(logcsv.ErrMissingColumns.Error())
	case errors.As(err, &parseErr):
		return apierrors.InvalidCSVError(parseErr.Error())
	case errors.Is(err, services.ErrEmptyMessage):
		return fieldError("log_message", services.ErrEmptyMessage.Error())
	case errors.Is(err, services.ErrUnsupportedFormat):
		return fieldError("format", err.Error())
	case errors.Is(err, services.ErrUploadNotFound):
		return apierrors.NotFoundError("upload")
	case errors.Is(err, services.ErrRunNotFound):
		return apierrors.NotFoundError("run")
	case errors.Is(err, services.ErrJobNotFound):
		return apierrors.NotFoundError("job")
	case errors.Is(err, operations.ErrQueueFull), errors.Is(err, operations.ErrQueueStopped):
		return apierrors.ErrServiceUnavailable
	case errors.Is(err, operations.ErrNotCancellable):
		return apierrors.New(http.StatusConflict, "NOT_CANCELLABLE", err.Error())
	}
	return err
}

// toProcessingError maps err like toAPIError and reports anything left over,
// other than a cancelled request, as a file processing failure.
func toProcessingError(err error) error {
	mapped := toAPIError(err)
	var apiErr *apierrors.APIError
	if errors.As(mapped, &apiErr) {
		return mapped
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apierrors.ProcessingError(err)
}

// fieldError is a validation error whose message names the problem directly
func fieldError(field, message string) *apierrors.APIError {
	apiErr := apierrors.ErrValidation(field, message)
	apiErr.Message = message
	return apiErr
}
