package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"logclassifier/internal/infrastructure"
	"logclassifier/pkg/contracts/domain"
)

// Job is one asynchronous classification of a stored upload
type Job struct {
	ID          string           `json:"id"`
	UploadID    string           `json:"upload_id"`
	FileName    string           `json:"file_name,omitempty"`
	Status      domain.JobStatus `json:"status"`
	Progress    int              `json:"progress"`
	Done        int              `json:"done"`
	Total       int              `json:"total"`
	Message     string           `json:"message,omitempty"`
	Error       string           `json:"error,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
	TraceID     string           `json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func (j *Job) clone() *Job {
	c := *j
	return &c
}

// JobQueue manages async job execution on a fixed worker pool
type JobQueue struct {
	mu          sync.Mutex
	jobs        chan *Job
	workers     int
	wg          sync.WaitGroup
	store       JobStore
	runner      Runner
	broadcaster *StatusBroadcaster
	logger      *slog.Logger
	shutdown    chan struct{}
	stopped     bool
	cancels     map[string]context.CancelFunc // running jobs
}

// NewJobQueue creates a new job queue
func NewJobQueue(workers int, store JobStore, runner Runner, broadcaster *StatusBroadcaster, logger *slog.Logger) *JobQueue {
	if workers <= 0 {
		workers = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	if broadcaster == nil {
		broadcaster = NewStatusBroadcaster(nil, logger)
	}

	return &JobQueue{
		jobs:        make(chan *Job, workers*8),
		workers:     workers,
		store:       store,
		runner:      runner,
		broadcaster: broadcaster,
		logger:      infrastructure.WithComponent(logger, "jobqueue"),
		shutdown:    make(chan struct{}),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Start begins processing jobs
func (q *JobQueue) Start(ctx context.Context) {
	q.logger.Info("starting job queue", slog.Int("workers", q.workers))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop lets running jobs finish within timeout, then cancels them. Jobs
// still queued stay pending.
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.shutdown)
	q.mu.Unlock()

	q.logger.Info("stopping job queue")

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job queue stopped gracefully")
		return nil
	case <-time.After(timeout):
		q.logger.Warn("job queue stop timeout exceeded, cancelling running jobs")
		q.mu.Lock()
		for _, cancel := range q.cancels {
			cancel()
		}
		q.mu.Unlock()
		<-done
		return ErrShutdownTimeout
	}
}

// Enqueue stores a job as pending and hands it to the workers
func (q *JobQueue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrQueueStopped
	}

	job.Status = domain.JobStatusPending
	job.CreatedAt = time.Now()
	job.Message = "Job queued"

	if err := q.store.CreateJob(job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	q.broadcaster.CreateJob(job.ID, job.UploadID, job.Total)

	select {
	case q.jobs <- job.clone():
		q.logger.Info("job enqueued",
			slog.String("job_id", job.ID),
			slog.String("upload_id", job.UploadID))
		return nil
	default:
		job.Status = domain.JobStatusFailed
		job.Error = ErrQueueFull.Error()
		now := time.Now()
		job.CompletedAt = &now
		if err := q.store.UpdateJob(job); err != nil {
			q.logger.Error("failed to update rejected job", slog.String("error", err.Error()))
		}
		q.broadcaster.FailJob(job.ID, ErrQueueFull)
		return ErrQueueFull
	}
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*Job, error) {
	return q.store.GetJob(id)
}

// ListJobs returns jobs matching the filter
func (q *JobQueue) ListJobs(filter JobFilter) ([]*Job, error) {
	return q.store.ListJobs(filter)
}

// CancelJob cancels a pending or running job
func (q *JobQueue) CancelJob(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s (status: %s): %w", id, job.Status, ErrNotCancellable)
	}

	if cancel, running := q.cancels[id]; running {
		// the worker records the final state
		cancel()
		return nil
	}

	job.Status = domain.JobStatusCancelled
	job.Message = "Job cancelled"
	now := time.Now()
	job.CompletedAt = &now
	if err := q.store.UpdateJob(job); err != nil {
		return err
	}
	q.broadcaster.CancelJob(id)
	return nil
}

// Broadcaster returns the status broadcaster used by the queue
func (q *JobQueue) Broadcaster() *StatusBroadcaster {
	return q.broadcaster
}

func (q *JobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case job := <-q.jobs:
			q.processJob(ctx, job, logger)
		}
	}
}

// begin marks the job running unless it was cancelled while queued
func (q *JobQueue) begin(ctx context.Context, job *Job) (context.Context, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.store.GetJob(job.ID)
	if err == nil && current.Status == domain.JobStatusCancelled {
		return nil, false
	}

	jobCtx, cancel := context.WithCancel(ctx)
	q.cancels[job.ID] = cancel

	job.Status = domain.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.Message = "Classifying logs..."
	if err := q.store.UpdateJob(job); err != nil {
		q.logger.Error("failed to update job status", slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}
	q.broadcaster.StartJob(job.ID)
	return jobCtx, true
}

func (q *JobQueue) end(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cancel, ok := q.cancels[job.ID]; ok {
		cancel()
		delete(q.cancels, job.ID)
	}
	if err := q.store.UpdateJob(job); err != nil {
		q.logger.Error("failed to update job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}
}

func (q *JobQueue) processJob(ctx context.Context, job *Job, logger *slog.Logger) {
	logger = logger.With(
		slog.String("job_id", job.ID),
		slog.String("upload_id", job.UploadID))

	jobCtx, ok := q.begin(ctx, job)
	if !ok {
		logger.Info("skipping cancelled job")
		return
	}
	if job.TraceID != "" {
		jobCtx = infrastructure.WithTraceID(jobCtx, job.TraceID)
		jobCtx = context.WithValue(jobCtx, middleware.RequestIDKey, job.TraceID)
	} else {
		jobCtx = infrastructure.EnsureTraceID(jobCtx)
	}

	jobCtx, span := startJobSpan(jobCtx, job)
	logger.InfoContext(jobCtx, "processing job started")

	var (
		runID string
		err   error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("job processing panicked", slog.Any("panic", r))
				err = fmt.Errorf("job processing panicked: %v", r)
			}
		}()
		runID, err = q.runner.RunJob(jobCtx, job.clone(), q.progressFunc(job))
	}()

	now := time.Now()
	job.CompletedAt = &now
	defer func() { endJobSpan(span, job, err) }()

	switch {
	case err == nil:
		job.Status = domain.JobStatusCompleted
		job.RunID = runID
		job.Progress = 100
		job.Done = job.Total
		job.Message = "Classification complete!"
		q.end(job)
		q.broadcaster.CompleteJob(job.ID, runID)
		logger.InfoContext(jobCtx, "processing job completed", slog.String("run_id", runID))

	case errors.Is(err, context.Canceled) && jobCtx.Err() != nil:
		job.Status = domain.JobStatusCancelled
		job.Message = "Job cancelled"
		q.end(job)
		q.broadcaster.CancelJob(job.ID)
		logger.InfoContext(jobCtx, "processing job cancelled")

	default:
		job.Status = domain.JobStatusFailed
		job.Error = err.Error()
		job.Message = "Job failed"
		q.end(job)
		q.broadcaster.FailJob(job.ID, err)
		infrastructure.WithError(logger, err).ErrorContext(jobCtx, "job failed")
	}
}

// progressFunc persists and broadcasts progress whenever the whole percent
// changes. The runner must call it serially.
func (q *JobQueue) progressFunc(job *Job) ProgressFunc {
	last := -1
	return func(done, total int) {
		pct := percent(done, total)
		if pct == last && done != total {
			return
		}
		last = pct

		q.mu.Lock()
		job.Done = done
		job.Total = total
		job.Progress = pct
		if err := q.store.UpdateJob(job); err != nil {
			q.logger.Warn("failed to persist progress", slog.String("job_id", job.ID), slog.String("error", err.Error()))
		}
		q.mu.Unlock()

		q.broadcaster.UpdateProgress(job.ID, done, total)
	}
}

// GetQueueStats returns queue statistics
func (q *JobQueue) GetQueueStats() map[string]interface{} {
	q.mu.Lock()
	running := len(q.cancels)
	q.mu.Unlock()

	return map[string]interface{}{
		"workers":     q.workers,
		"queue_size":  len(q.jobs),
		"queue_cap":   cap(q.jobs),
		"active_jobs": running,
	}
}
