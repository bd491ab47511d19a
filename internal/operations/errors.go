package operations

import (
	"errors"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrJobExists       = errors.New("job already exists")
	ErrQueueFull       = errors.New("job queue is full")
	ErrQueueStopped    = errors.New("job queue is stopped")
	ErrNotCancellable  = errors.New("job cannot be cancelled")
	ErrShutdownTimeout = errors.New("timeout waiting for workers to finish")
)
