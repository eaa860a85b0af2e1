package storage

import "errors"

// Common agent storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrRecordNotFound indicates that a local record was not found
	ErrRecordNotFound = errors.New("record not found")

	// ErrChangeNotFound indicates that a queued change was not found
	ErrChangeNotFound = errors.New("queued change not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
