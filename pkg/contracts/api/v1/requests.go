// Package api contains the request contracts of the log classifier HTTP API.
// Version v1 represents the current stable API version.
package api

// PaginationRequest represents common list parameters
type PaginationRequest struct {
	Limit int `json:"limit" query:"limit" validate:"min=0,max=500"`
}

// PredictRequest classifies a single log line in real time
type PredictRequest struct {
	Source     string `json:"source" validate:"required,logsource"`
	LogMessage string `json:"log_message" validate:"notblank,max=10000"`
}

// JobRequest queues an asynchronous classification of a stored upload
type JobRequest struct {
	UploadID string `json:"upload_id" validate:"required,uuid"`
}

// ClientLogRequest is a log entry sent by the web page
type ClientLogRequest struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,max=2000"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Source  string                 `json:"source,omitempty" validate:"max=200"`
}
