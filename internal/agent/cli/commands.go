package cli

import (
	"context"
	"fmt"
	"os"
)

// Run dispatches one CLI command. Errors terminate the process with a
// non-zero exit code.
func (c *Cli) Run(ctx context.Context, command string, args []string) {
	var err error

	switch command {
	case "register":
		err = c.runRegister(ctx)
	case "login":
		err = c.runLogin(ctx)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "sync":
		err = c.runSync(ctx)
	case "queue":
		err = c.runQueue(ctx)
	case "retry":
		err = c.runRetry(ctx)
	case "fullsync":
		err = c.runFullSync(ctx, args)
	case "cleanup":
		err = c.runCleanup(ctx, args)
	case "set":
		err = c.runSet(ctx, args)
	case "get":
		err = c.runGet(ctx, args)
	case "list":
		err = c.runList(ctx, args)
	case "delete":
		err = c.runDelete(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		PrintUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
