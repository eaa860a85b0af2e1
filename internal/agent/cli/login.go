package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runLogin(ctx context.Context) error {
	fmt.Println("=== Login ===")
	fmt.Println()

	siteID, err := readInput("Site ID: ")
	if err != nil {
		return fmt.Errorf("failed to read site ID: %w", err)
	}

	siteName, err := readInput("Site name: ")
	if err != nil {
		return fmt.Errorf("failed to read site name: %w", err)
	}

	passphrase, _, err := c.getPassphrase()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Authenticating...")

	authData, err := c.authService.Login(ctx, siteID, siteName, passphrase)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("✓ Login successful!")
	fmt.Printf("Site ID:       %s\n", authData.SiteID)
	fmt.Printf("Token expires: %s\n", time.Unix(authData.ExpiresAt, 0).Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Your session has been saved.")

	return nil
}
