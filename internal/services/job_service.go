package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"logclassifier/internal/infrastructure"
	"logclassifier/internal/operations"
)

// JobQueue is the part of the operations queue the job service uses
type JobQueue interface {
	Enqueue(job *operations.Job) error
	GetJob(id string) (*operations.Job, error)
	ListJobs(filter operations.JobFilter) ([]*operations.Job, error)
	CancelJob(id string) error
}

// JobService submits stored uploads for asynchronous classification
type JobService struct {
	uploads *UploadStore
	queue   JobQueue
	logger  *slog.Logger
}

// NewJobService creates a job service
func NewJobService(uploads *UploadStore, queue JobQueue, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		uploads: uploads,
		queue:   queue,
		logger:  logger.With(slog.String("service", "jobs")),
	}
}

// Submit queues a classification job for an upload
func (s *JobService) Submit(ctx context.Context, uploadID string) (*operations.Job, error) {
	upload, err := s.uploads.Get(uploadID)
	if err != nil {
		return nil, err
	}

	traceID := infrastructure.GetTraceID(ctx)
	if traceID == "" {
		traceID = middleware.GetReqID(ctx)
	}

	job := &operations.Job{
		ID:       uuid.NewString(),
		UploadID: upload.ID,
		FileName: upload.FileName,
		Total:    upload.Table.Len(),
		TraceID:  traceID,
	}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}

	s.logger.InfoContext(ctx, "classification job submitted",
		slog.String("job_id", job.ID),
		slog.String("upload_id", upload.ID),
		slog.Int("rows", job.Total))
	return job, nil
}

// Get returns a job by id
func (s *JobService) Get(id string) (*operations.Job, error) {
	job, err := s.queue.GetJob(id)
	if errors.Is(err, operations.ErrJobNotFound) {
		return nil, ErrJobNotFound
	}
	return job, err
}

// List returns jobs newest first
func (s *JobService) List(filter operations.JobFilter) ([]*operations.Job, error) {
	return s.queue.ListJobs(filter)
}

// Cancel stops a pending or running job
func (s *JobService) Cancel(id string) error {
	err := s.queue.CancelJob(id)
	if errors.Is(err, operations.ErrJobNotFound) {
		return ErrJobNotFound
	}
	return err
}
