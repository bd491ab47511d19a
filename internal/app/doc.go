// Package app wires the log classification service together.
//
// New builds, in order: resolved paths, OpenTelemetry providers and business
// metrics, the classification pipeline, the SQLite run store, the WebSocket
// hub, the upload cache, the classification/job/health services and the job
// queue. setupRouter then mounts the HTTP handlers behind the middleware
// chain:
//
//	RequestID → RealIP → OTel → Logger → Recoverer → SecurityHeaders → CORS → RateLimit → Compress
//
// /ws and /metrics are registered before the group so their responses are
// never wrapped.
//
// Run blocks until SIGINT or SIGTERM and then shuts down the HTTP server, the
// job queue, the hub, the store and the telemetry providers in that order.
package app
