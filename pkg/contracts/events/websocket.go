// Package events contains the WebSocket message contracts of the log
// classification service.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeJobSnapshot carries the full state of one classification job
	MessageTypeJobSnapshot MessageType = "job:snapshot"

	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// JobSnapshot is the only payload used for job progress. Every update
// carries the complete state so clients never merge partial events.
type JobSnapshot struct {
	JobID       string     `json:"job_id"`
	UploadID    string     `json:"upload_id"`
	Status      string     `json:"status"`   // pending|running|completed|failed|cancelled
	Progress    int        `json:"progress"` // 0-100
	Done        int        `json:"done"`
	Total       int        `json:"total"`
	RunID       string     `json:"run_id,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Message     string     `json:"message,omitempty"`
}
