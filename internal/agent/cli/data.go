package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

func (c *Cli) runSet(ctx context.Context, args []string) error {
	var table, recordUUID, payloadJSON string
	switch len(args) {
	case 2:
		table, payloadJSON = args[0], args[1]
	case 3:
		table, recordUUID, payloadJSON = args[0], args[1], args[2]
	default:
		return fmt.Errorf("usage: sitesync-agent set <table> [uuid] <json>")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}

	authData, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	uuid, err := c.dataService(authData.SiteID).Set(ctx, table, recordUUID, payload)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Saved %s/%s\n", table, uuid)
	fmt.Println("The change is queued. Run 'sitesync-agent sync' to push it.")

	return nil
}

func (c *Cli) runGet(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sitesync-agent get <table> <uuid>")
	}
	table, recordUUID := args[0], args[1]

	authData, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	record, err := c.dataService(authData.SiteID).Get(ctx, table, recordUUID)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(record.Payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render payload: %w", err)
	}

	fmt.Printf("Table:      %s\n", record.TableName)
	fmt.Printf("UUID:       %s\n", record.UUID)
	fmt.Printf("Origin:     %s\n", record.OriginSiteID)
	fmt.Printf("Updated at: %s\n", record.UpdatedAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println(string(payload))

	return nil
}

func (c *Cli) runList(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sitesync-agent list <table>")
	}
	table := args[0]

	authData, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	records, err := c.dataService(authData.SiteID).List(ctx, table)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Printf("No records in %s.\n", table)
		return nil
	}

	fmt.Printf("%d record(s) in %s:\n", len(records), table)
	for _, record := range records {
		fmt.Printf("  %s  updated=%s origin=%s\n",
			record.UUID,
			record.UpdatedAt.Format(time.RFC3339),
			record.OriginSiteID)
	}

	return nil
}

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: sitesync-agent delete <table> <uuid>")
	}
	table, recordUUID := args[0], args[1]

	authData, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	if err := c.dataService(authData.SiteID).Delete(ctx, table, recordUUID); err != nil {
		return err
	}

	fmt.Printf("✓ Deleted %s/%s\n", table, recordUUID)
	fmt.Println("The deletion is queued. Run 'sitesync-agent sync' to push it.")

	return nil
}
