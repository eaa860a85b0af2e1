package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/sitesync/internal/agent/sync"
	"github.com/iudanet/sitesync/internal/engine"
)

func (c *Cli) runSync(ctx context.Context) error {
	fmt.Println("=== Synchronization ===")

	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Starting synchronization with the central server...")

	applier := engine.NewApplier(c.store, c.logger)
	syncService := sync.NewService(c.apiClient, c.store, c.store, applier, c.logger)

	result, err := syncService.Sync(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Synchronization completed!")
	fmt.Println()
	fmt.Printf("Pushed to server:    %d change(s)\n", result.Pushed)
	if result.PushConflicts > 0 {
		fmt.Printf("Lost to newer data:  %d change(s)\n", result.PushConflicts)
	}
	if result.PushFailed > 0 {
		fmt.Printf("Rejected by server:  %d change(s), run 'sitesync-agent retry' after fixing\n", result.PushFailed)
	}
	if result.Reapplied > 0 {
		fmt.Printf("Retried by server:   %d change(s)\n", result.Reapplied)
	}
	fmt.Printf("Pulled from server:  %d change(s)\n", result.Pulled)
	fmt.Printf("Applied locally:     %d change(s)\n", result.Applied)
	if result.PullConflicts > 0 {
		fmt.Printf("Kept local version:  %d change(s)\n", result.PullConflicts)
	}
	if result.PullFailed > 0 {
		fmt.Printf("Failed to apply:     %d change(s)\n", result.PullFailed)
	}

	return nil
}
