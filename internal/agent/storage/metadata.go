package storage

import (
	"context"
	"time"
)

// MetadataStorage defines interface for storing agent sync metadata
type MetadataStorage interface {
	// SaveLastSync saves the server timestamp of the last successful pull
	SaveLastSync(ctx context.Context, at time.Time) error

	// GetLastSync retrieves the pull cursor.
	// Returns the zero time if no pull has happened yet.
	GetLastSync(ctx context.Context) (time.Time, error)
}
