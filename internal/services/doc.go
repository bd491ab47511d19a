// Package services holds the business logic behind the HTTP handlers and the
// job queue.
//
// ClassificationService owns the upload, classify, persist and export flow
// for CSV files of log lines and also serves single-line predictions. It
// implements operations.Runner so the same flow backs asynchronous jobs.
// JobService submits uploads to the job queue and HealthService reports on
// the database, WebSocket hub and workers.
//
// Services return the sentinel errors in errors.go (or wrap them with %w);
// handlers translate them into API errors.
package services
