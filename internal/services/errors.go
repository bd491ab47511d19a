package services

import "errors"

var (
	// Upload errors
	ErrUploadNotFound = errors.New("upload not found")

	// Run errors
	ErrRunNotFound       = errors.New("run not found")
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// Real-time classification errors
	ErrEmptyMessage = errors.New("Please enter a log message to classify.")

	// Job errors
	ErrJobNotFound = errors.New("job not found")
)
