package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runRegister(ctx context.Context) error {
	fmt.Println("=== Site Registration ===")
	fmt.Println()

	// Запрашиваем идентификатор и название филиала
	siteID, err := readInput("Site ID (e.g. clinic-north): ")
	if err != nil {
		return fmt.Errorf("failed to read site ID: %w", err)
	}

	siteName, err := readInput("Site name (e.g. North Clinic): ")
	if err != nil {
		return fmt.Errorf("failed to read site name: %w", err)
	}

	passphrase, interactive, err := c.getPassphrase()
	if err != nil {
		return err
	}

	// Подтверждение имеет смысл только при вводе с клавиатуры
	if interactive {
		confirm, err := readPassword("Confirm passphrase: ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}
	}

	fmt.Println()
	fmt.Println("Registering site...")

	result, err := c.authService.Register(ctx, siteID, siteName, passphrase)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("✓ Registration successful!")
	fmt.Printf("Site ID:   %s\n", result.SiteID)
	fmt.Printf("Site name: %s\n", result.SiteName)
	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Keep the passphrase safe!")
	fmt.Println("   Without it this site cannot authenticate with the central server.")
	fmt.Println()
	fmt.Println("Please run 'sitesync-agent login' to start synchronizing.")

	return nil
}
