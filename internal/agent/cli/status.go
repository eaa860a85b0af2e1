package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/iudanet/sitesync/internal/agent/storage"
	"github.com/iudanet/sitesync/internal/models"
)

func (c *Cli) runStatus(ctx context.Context) error {
	fmt.Println("=== Synchronization Status ===")
	fmt.Println()

	authData, err := c.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			fmt.Println("Status: Not authenticated")
			fmt.Println()
			fmt.Println("Run 'sitesync-agent login' to authenticate.")
			return nil
		}
		return fmt.Errorf("failed to get auth data: %w", err)
	}

	expiresAt := time.Unix(authData.ExpiresAt, 0)
	remaining := time.Until(expiresAt)

	fmt.Println("Status: Authenticated")
	fmt.Printf("Site ID:       %s\n", authData.SiteID)
	fmt.Printf("Site name:     %s\n", authData.SiteName)
	fmt.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
	if remaining > 0 {
		fmt.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		fmt.Println("⚠️  Token has expired. It will be refreshed on the next command.")
	}

	// Локальная очередь
	counts, err := c.store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("failed to read local queue: %w", err)
	}

	fmt.Println()
	fmt.Println("Local queue:")
	fmt.Printf("  Pending:  %d\n", counts[models.StatusPending])
	fmt.Printf("  Synced:   %d\n", counts[models.StatusSynced])
	fmt.Printf("  Failed:   %d\n", counts[models.StatusFailed])
	fmt.Printf("  Conflict: %d\n", counts[models.StatusConflict])

	lastSync, err := c.store.GetLastSync(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pull cursor: %w", err)
	}
	if lastSync.IsZero() {
		fmt.Println("Last pull: never")
	} else {
		fmt.Printf("Last pull: %s\n", lastSync.Format(time.RFC3339))
	}

	// Статус со стороны сервера. Его недоступность не делает локальный
	// статус бесполезным, поэтому только предупреждаем.
	if _, err := c.requireSession(ctx); err != nil {
		fmt.Printf("\nWarning: failed to reach server: %v\n", err)
		return nil
	}

	serverStatus, err := c.apiClient.Status(ctx)
	if err != nil {
		fmt.Printf("\nWarning: failed to get server status: %v\n", err)
		return nil
	}

	fmt.Println()
	fmt.Println("Server view:")
	fmt.Printf("  Pending: %d\n", serverStatus.PendingChanges)
	fmt.Printf("  Failed:  %d\n", serverStatus.FailedChanges)
	if serverStatus.LastSync != nil {
		fmt.Printf("  Last sync: %s\n", serverStatus.LastSync.Format(time.RFC3339))
	}

	tables := make([]string, 0, len(serverStatus.TablesStatus))
	for name := range serverStatus.TablesStatus {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		ts := serverStatus.TablesStatus[name]
		fmt.Printf("  %-20s pending=%d failed=%d\n", name, ts.Pending, ts.Failed)
	}

	return nil
}
