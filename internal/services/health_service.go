package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"logclassifier/internal/config"
	"logclassifier/pkg/contracts"
)

// Pinger checks the run database
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	ClientCount() int
}

// QueueStatter reports job queue statistics
type QueueStatter interface {
	GetQueueStats() map[string]interface{}
}

// HealthService provides health check functionality
type HealthService struct {
	db        Pinger
	hub       ClientCounter
	queue     QueueStatter
	uploads   *UploadStore
	paths     *config.Paths
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewHealthService creates a health service. Any dependency may be nil and
// is then reported as not ready.
func NewHealthService(db Pinger, hub ClientCounter, queue QueueStatter, uploads *UploadStore, paths *config.Paths, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		db:        db,
		hub:       hub,
		queue:     queue,
		uploads:   uploads,
		paths:     paths,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports whether every dependency can serve requests
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]interface{}{
			"database":  hs.checkDatabase(ctx),
			"websocket": hs.checkWebSocket(),
			"jobs":      hs.checkJobs(),
			"resources": hs.checkResources(),
		},
	}

	for name, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "dependency not ready",
				slog.String("dependency", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"name":         config.AppName,
		"version":      info.Version,
		"api_version":  info.APIVersion,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDatabase(ctx context.Context) ServiceHealth {
	if hs.db == nil {
		return ServiceHealth{Status: "not_ready", Message: "run database not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := hs.db.Ping(ctx); err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return ServiceHealth{Status: "ready", Message: "Run database is healthy"}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "not_ready", Message: "WebSocket hub not initialized"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "WebSocket service is healthy",
		Details: map[string]interface{}{"clients": hs.hub.ClientCount()},
	}
}

func (hs *HealthService) checkJobs() ServiceHealth {
	if hs.queue == nil {
		return ServiceHealth{Status: "not_ready", Message: "job queue not initialized"}
	}
	details := hs.queue.GetQueueStats()
	if hs.uploads != nil {
		details["uploads_cached"] = hs.uploads.Len()
	}
	return ServiceHealth{
		Status:  "ready",
		Message: "Job queue is healthy",
		Details: details,
	}
}

// checkResources verifies the output directory exists
func (hs *HealthService) checkResources() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}
	info, err := os.Stat(hs.paths.ResourcesDir)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("resources directory unavailable: %v", err)}
	}
	if !info.IsDir() {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("%s is not a directory", hs.paths.ResourcesDir)}
	}
	return ServiceHealth{Status: "ready", Message: "Output directory is available"}
}
