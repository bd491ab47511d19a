// Package http contains the HTTP handlers of the log classifier.
//
// Handlers decode and validate requests, call a service interface and render
// JSON with go-chi/render. Failures go through the shared
// errors.ErrorHandler so every error response is an RFC 7807 problem
// document. Routes:
//
//	POST   /api/uploads                 upload a CSV (multipart field "file")
//	POST   /api/uploads/{id}/classify   classify an upload synchronously
//	POST   /api/jobs                    classify an upload in the background
//	GET    /api/jobs/{id}               job status
//	DELETE /api/jobs/{id}               cancel a job
//	POST   /api/predict                 classify one line
//	GET    /api/runs                    run history
//	GET    /api/runs/{id}               run with insights
//	GET    /api/runs/{id}/download      csv or xlsx download
//	GET    /api/pipeline                pipeline description
//	POST   /api/logs                    browser log entries
//	GET    /ws                          job progress stream
package http
