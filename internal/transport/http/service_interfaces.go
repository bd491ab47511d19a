package http

import (
	"context"
	"io"

	"logclassifier/internal/classifier"
	"logclassifier/internal/operations"
	"logclassifier/internal/services"
	"logclassifier/pkg/contracts/domain"
)

// ClassificationServiceInterface is what the classification handler needs
type ClassificationServiceInterface interface {
	Upload(ctx context.Context, fileName string, size int64, r io.Reader) (*services.UploadResult, error)
	ClassifyUpload(ctx context.Context, uploadID string) (*services.RunDetail, error)
	Predict(ctx context.Context, source, message string) (*services.Prediction, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
	GetRun(ctx context.Context, id string) (*services.RunDetail, error)
	Export(ctx context.Context, id, format string) (*services.Export, error)
	Pipeline() classifier.Description
}

// JobServiceInterface is what the jobs handler needs
type JobServiceInterface interface {
	Submit(ctx context.Context, uploadID string) (*operations.Job, error)
	Get(id string) (*operations.Job, error)
	List(filter operations.JobFilter) ([]*operations.Job, error)
	Cancel(id string) error
}
