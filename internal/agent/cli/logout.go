package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogout(ctx context.Context) error {
	fmt.Println("=== Logout ===")

	if err := c.authService.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Session removed.")
	fmt.Println("Queued changes are kept and will be pushed after the next login.")

	return nil
}
