package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/sitesync/internal/models"
)

func (c *Cli) runQueue(ctx context.Context) error {
	fmt.Println("=== Local Change Queue ===")
	fmt.Println()

	counts, err := c.store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}

	fmt.Printf("Pending: %d  Synced: %d  Failed: %d  Conflict: %d\n",
		counts[models.StatusPending],
		counts[models.StatusSynced],
		counts[models.StatusFailed],
		counts[models.StatusConflict])

	changes, err := c.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}

	// Показываем только незавершенные записи: SYNCED интересен лишь числом
	shown := 0
	for _, change := range changes {
		if change.Status == models.StatusSynced {
			continue
		}
		if shown == 0 {
			fmt.Println()
		}
		shown++
		fmt.Printf("#%d  %-8s %s/%s  [%s]  %s\n",
			change.ID,
			change.Operation,
			change.TableName,
			change.RecordUUID,
			change.Status,
			change.CreatedAtOffline.Format(time.RFC3339))
		if change.ErrorMessage != "" {
			fmt.Printf("     error: %s\n", change.ErrorMessage)
		}
	}

	if shown == 0 {
		fmt.Println()
		fmt.Println("✓ Nothing waiting to be synchronized.")
	}

	return nil
}
