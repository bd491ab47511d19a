package operations

import (
	"log/slog"
	"sync"
	"time"

	"logclassifier/pkg/contracts/domain"
	"logclassifier/pkg/contracts/events"
)

// StatusBroadcaster is the single authority for job status updates. It keeps
// the complete snapshot of every job and broadcasts it after each change.
type StatusBroadcaster struct {
	mu     sync.RWMutex
	jobs   map[string]*events.JobSnapshot
	hub    WebSocketHub
	logger *slog.Logger
}

// NewStatusBroadcaster creates a new status broadcaster. hub may be nil.
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusBroadcaster{
		jobs:   make(map[string]*events.JobSnapshot),
		hub:    hub,
		logger: logger,
	}
}

// UpdateStatus applies fn to the job's snapshot and broadcasts the result.
// Updates are applied and sent one at a time, in call order.
func (sb *StatusBroadcaster) UpdateStatus(jobID string, fn func(*events.JobSnapshot)) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	snapshot, exists := sb.jobs[jobID]
	if !exists {
		now := time.Now()
		snapshot = &events.JobSnapshot{
			JobID:     jobID,
			Status:    string(domain.JobStatusPending),
			StartedAt: now,
		}
		sb.jobs[jobID] = snapshot
	}

	fn(snapshot)
	snapshot.UpdatedAt = time.Now()

	if domain.JobStatus(snapshot.Status).Terminal() && snapshot.CompletedAt == nil {
		now := time.Now()
		snapshot.CompletedAt = &now
	}

	sb.broadcast(*snapshot)
}

func (sb *StatusBroadcaster) broadcast(snapshot events.JobSnapshot) {
	if sb.hub == nil {
		return
	}

	sb.logger.Debug("broadcasting job snapshot",
		slog.String("job_id", snapshot.JobID),
		slog.String("status", snapshot.Status),
		slog.Int("progress", snapshot.Progress))

	sb.hub.BroadcastUpdate(string(events.MessageTypeJobSnapshot), snapshot.JobID, snapshot.Status, snapshot)
}

// CreateJob registers a pending job
func (sb *StatusBroadcaster) CreateJob(jobID, uploadID string, total int) {
	sb.UpdateStatus(jobID, func(s *events.JobSnapshot) {
		s.UploadID = uploadID
		s.Status = string(domain.JobStatusPending)
		s.Total = total
		s.Message = "Job queued"
	})
}

// StartJob marks a job as running
func (sb *StatusBroadcaster) StartJob(jobID string) {
	sb.UpdateStatus(jobID, func(s *events.JobSnapshot) {
		s.Status = string(domain.JobStatusRunning)
		s.StartedAt = time.Now()
		s.Message = "Classifying logs..."
	})
}

// UpdateProgress records rows done. Progress never moves backwards.
func (sb *StatusBroadcaster) UpdateProgress(jobID string, done, total int) {
	sb.UpdateStatus(jobID, func(s *events.JobSnapshot) {
		if done < s.Done {
			return
		}
		s.Done = done
		s.Total = total
		s.Progress = percent(done, total)
	})
}

// CompleteJob marks a job as completed with the run it produced
func (sb *StatusBroadcaster) CompleteJob(jobID, runID string) {
	sb.UpdateStatus(jobID, func(s *events.JobSnapshot) {
		s.Status = string(domain.JobStatusCompleted)
		s.Progress = 100
		s.Done = s.Total
		s.RunID = runID
		s.Message = "Classification complete!"
	})
}

// FailJob marks a job as failed
func (sb *StatusBroadcaster) FailJob(jobID string, err error) {
	sb.UpdateStatus(jobID, func(s *events.JobSnapshot) {
		s.Status = string(domain.JobStatusFailed)
		s.Error = err.Error()
		s.Message = "Job failed"
	})
}

// CancelJob marks a job as cancelled
func (sb *StatusBroadcaster) CancelJob(jobID string) {
	sb.UpdateStatus(jobID, func(s *events.JobSnapshot) {
		s.Status = string(domain.JobStatusCancelled)
		s.Message = "Job cancelled"
	})
}

// GetSnapshot returns a copy of the job's current snapshot
func (sb *StatusBroadcaster) GetSnapshot(jobID string) (events.JobSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, exists := sb.jobs[jobID]
	if !exists {
		return events.JobSnapshot{}, false
	}
	return *snapshot, true
}

// CleanupOldJobs forgets finished jobs that completed more than maxAge ago
func (sb *StatusBroadcaster) CleanupOldJobs(maxAge time.Duration) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	now := time.Now()
	for id, s := range sb.jobs {
		if s.CompletedAt != nil && now.Sub(*s.CompletedAt) > maxAge {
			delete(sb.jobs, id)
		}
	}
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := done * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}
