package storage

import (
	"context"
	"time"

	"github.com/iudanet/sitesync/internal/models"
)


// QueueStorage defines interface for the agent's outgoing change queue.
// Every local mutation lands here as PENDING and leaves as SYNCED,
// FAILED or CONFLICT after a push.
type QueueStorage interface {
	// Enqueue appends a change to the queue and assigns its local ID
	Enqueue(ctx context.Context, change *models.ChangeRecord) (*models.ChangeRecord, error)

	// ListByStatus returns queued changes with the given status in enqueue order
	ListByStatus(ctx context.Context, status models.ChangeStatus) ([]*models.ChangeRecord, error)

	// ListAll returns every queued change in enqueue order
	ListAll(ctx context.Context) ([]*models.ChangeRecord, error)

	// UpdateStatus transitions a queued change and records an error message.
	// Returns ErrChangeNotFound if the change doesn't exist.
	UpdateStatus(ctx context.Context, id int64, status models.ChangeStatus, errorMessage string) error

	// DeleteSyncedBefore removes SYNCED changes older than cutoff
	DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Counts returns the number of queued changes per status
	Counts(ctx context.Context) (map[models.ChangeStatus]int, error)
}
