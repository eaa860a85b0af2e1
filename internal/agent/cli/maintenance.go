package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/sitesync/pkg/api"
)

func (c *Cli) runRetry(ctx context.Context) error {
	fmt.Println("=== Retry Failed Changes ===")
	fmt.Println()

	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	// Повтор выполняется на сервере: его PENDING применятся при следующем
	// push, а локальные FAILED обновятся из reapplied в ответе
	resp, err := c.apiClient.Retry(ctx)
	if err != nil {
		return fmt.Errorf("server retry failed: %w", err)
	}

	fmt.Printf("Requeued on server: %d change(s)\n", resp.Count)
	for _, change := range resp.RetriedChanges {
		fmt.Printf("  %-8s %s/%s\n", change.Operation, change.TableName, change.RecordUUID)
	}

	if resp.Count > 0 {
		fmt.Println()
		fmt.Println("Run 'sitesync-agent sync' to re-apply the requeued changes.")
	}

	return nil
}

func (c *Cli) runFullSync(ctx context.Context, args []string) error {
	fmt.Println("=== Full Synchronization ===")

	var tables []string
	if len(args) > 0 {
		for _, part := range strings.Split(args[0], ",") {
			if name := strings.TrimSpace(part); name != "" {
				tables = append(tables, name)
			}
		}
	}

	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	fmt.Println()
	if len(tables) > 0 {
		fmt.Printf("Requesting bootstrap replay for: %s\n", strings.Join(tables, ", "))
	} else {
		fmt.Println("Requesting bootstrap replay for all replicated tables...")
	}

	resp, err := c.apiClient.FullSync(ctx, api.FullSyncRequest{Tables: tables})
	if err != nil {
		return fmt.Errorf("full sync failed: %w", err)
	}

	names := make([]string, 0, len(resp.Tables))
	for name := range resp.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	for _, name := range names {
		outcome := resp.Tables[name]
		fmt.Printf("%-20s %-8s %d/%d record(s)\n", name, outcome.Status, outcome.SyncedRecords, outcome.TotalRecords)
		if outcome.Message != "" {
			fmt.Printf("  %s\n", outcome.Message)
		}
	}

	fmt.Println()
	fmt.Println("Run 'sitesync-agent sync' to pull the replayed records.")

	return nil
}

func (c *Cli) runCleanup(ctx context.Context, args []string) error {
	fmt.Println("=== Cleanup ===")

	daysOld := 0 // 0 означает серверный default
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid days value %q: %w", args[0], err)
		}
		daysOld = parsed
	}

	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	resp, err := c.apiClient.Cleanup(ctx, api.CleanupRequest{DaysOld: daysOld})
	if err != nil {
		return fmt.Errorf("server cleanup failed: %w", err)
	}

	fmt.Println()
	fmt.Printf("Server: removed %d entry(ies) older than %s\n",
		resp.DeletedRecords, resp.CleanupDate.Format(time.RFC3339))

	// Чистим локальную очередь тем же порогом
	deleted, err := c.store.DeleteSyncedBefore(ctx, resp.CleanupDate)
	if err != nil {
		return fmt.Errorf("local cleanup failed: %w", err)
	}
	fmt.Printf("Local:  removed %d entry(ies)\n", deleted)

	return nil
}
