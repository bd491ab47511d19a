package domain

import (
	"time"
)

// ClassifiedLog is one labeled row of an uploaded CSV
type ClassifiedLog struct {
	Source      string            `json:"source"`
	LogMessage  string            `json:"log_message"`
	TargetLabel string            `json:"target_label"`
	Stage       string            `json:"stage"`
	Confidence  float64           `json:"confidence"`
	Error       string            `json:"error,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Field returns the value of a CSV column for this row
func (l ClassifiedLog) Field(column string) string {
	switch column {
	case "source":
		return l.Source
	case "log_message":
		return l.LogMessage
	case "target_label":
		return l.TargetLabel
	default:
		return l.Extra[column]
	}
}

// Run is one classification of an uploaded file
type Run struct {
	ID                string          `json:"id"`
	FileName          string          `json:"file_name"`
	CreatedAt         time.Time       `json:"created_at"`
	Total             int             `json:"total"`
	ProcessingSeconds float64         `json:"processing_seconds"`
	Header            []string        `json:"header"`
	Logs              []ClassifiedLog `json:"logs,omitempty"`
}

// Rows renders the run as CSV rows following Header
func (r *Run) Rows() [][]string {
	rows := make([][]string, len(r.Logs))
	for i, l := range r.Logs {
		row := make([]string, len(r.Header))
		for j, col := range r.Header {
			row[j] = l.Field(col)
		}
		rows[i] = row
	}
	return rows
}

// RunSummary is a run without its rows, used for listings
type RunSummary struct {
	ID                string    `json:"id"`
	FileName          string    `json:"file_name"`
	CreatedAt         time.Time `json:"created_at"`
	Total             int       `json:"total"`
	ProcessingSeconds float64   `json:"processing_seconds"`
}

// JobStatus represents the status of an async classification job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transitions happen
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}
