package storage

import (
	"context"
	"time"

	"github.com/iudanet/sitesync/internal/models"
)


// RecordStorage is the agent's local copy of the synchronized tables.
// Find, Insert, Update and SoftDelete follow the same contract the engine
// applier expects: Find returns (nil, nil) for absent or soft-deleted rows.
type RecordStorage interface {
	// Find returns the live record or (nil, nil) when it is absent
	Find(ctx context.Context, table, uuid string) (*models.Record, error)

	// Insert stores a new record. Fails if a live record already exists;
	// a soft-deleted record is resurrected instead.
	Insert(ctx context.Context, record *models.Record) error

	// Update replaces an existing live record.
	// Returns ErrRecordNotFound if no live record exists.
	Update(ctx context.Context, record *models.Record) error

	// SoftDelete marks a record deleted at the given time
	SoftDelete(ctx context.Context, table, uuid string, at time.Time) error

	// List returns all live records of a table ordered by update time
	List(ctx context.Context, table string) ([]*models.Record, error)
}
