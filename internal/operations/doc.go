// Package operations runs classification jobs in the background.
//
// A JobQueue owns a fixed pool of workers fed from a bounded channel. Each
// job is executed by a Runner; progress and state changes flow through the
// StatusBroadcaster, which keeps a complete snapshot per job and pushes it
// to connected WebSocket clients. Jobs can be cancelled while pending or
// running.
package operations
