package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/iudanet/sitesync/internal/agent/api"
	"github.com/iudanet/sitesync/internal/agent/auth"
	"github.com/iudanet/sitesync/internal/agent/data"
	"github.com/iudanet/sitesync/internal/agent/storage"
	"github.com/iudanet/sitesync/internal/agent/storage/boltdb"
	"golang.org/x/term"
)

// Passphrases holds non-interactive passphrase sources passed on the command
// line. Either field may be empty.
type Passphrases struct {
	FromFile string
	FromArgs string
}

type Cli struct {
	apiClient   *api.Client
	authService *auth.Service
	store       *boltdb.Storage
	logger      *slog.Logger
	passphrases Passphrases
}

func New(apiClient *api.Client, authService *auth.Service, store *boltdb.Storage, logger *slog.Logger, passphrases Passphrases) *Cli {
	return &Cli{
		apiClient:   apiClient,
		authService: authService,
		store:       store,
		logger:      logger,
		passphrases: passphrases,
	}
}

// requireSession loads the saved session, refreshing tokens when needed, and
// arms the API client with the access token.
func (c *Cli) requireSession(ctx context.Context) (*storage.AuthData, error) {
	authData, err := c.authService.Session(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, fmt.Errorf("not authenticated. Please run 'sitesync-agent login' first")
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	c.apiClient.SetAccessToken(authData.AccessToken)
	return authData, nil
}

// dataService builds the record service bound to the current site.
func (c *Cli) dataService(siteID string) data.Service {
	return data.NewService(c.store, c.store, siteID)
}

// getPassphrase retrieves the site passphrase from various sources with priority:
// 1. Environment variable SITESYNC_PASSPHRASE
// 2. File passed via --passphrase-file
// 3. Command-line parameter --passphrase
// 4. Interactive prompt (fallback)
// The second return value reports whether the passphrase came from the prompt.
func (c *Cli) getPassphrase() (string, bool, error) {
	// Priority 1: Environment variable
	if envPassphrase := os.Getenv("SITESYNC_PASSPHRASE"); envPassphrase != "" {
		return envPassphrase, false, nil
	}

	// Priority 2: File
	if c.passphrases.FromFile != "" {
		content, err := os.ReadFile(c.passphrases.FromFile)
		if err != nil {
			return "", false, fmt.Errorf("failed to read passphrase file: %w", err)
		}
		// Убираем trailing newline/whitespace
		passphrase := strings.TrimSpace(string(content))
		if passphrase == "" {
			return "", false, fmt.Errorf("passphrase file is empty")
		}
		return passphrase, false, nil
	}

	// Priority 3: CLI parameter
	if c.passphrases.FromArgs != "" {
		return c.passphrases.FromArgs, false, nil
	}

	// Priority 4: Interactive prompt (fallback)
	passphrase, err := readPassword("Passphrase: ")
	if err != nil {
		return "", false, fmt.Errorf("failed to read passphrase from stdin: %w", err)
	}
	if passphrase == "" {
		return "", false, fmt.Errorf("passphrase cannot be empty")
	}

	return passphrase, true, nil
}

func PrintUsage() {
	fmt.Println("SiteSync Agent")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sitesync-agent [OPTIONS] COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version                Show version information")
	fmt.Println("  --server URL             Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH                Path to local database (default: sitesync-agent.db)")
	fmt.Println("  --passphrase VALUE       Site passphrase (not recommended, use env var or file)")
	fmt.Println("  --passphrase-file PATH   Path to file containing the site passphrase")
	fmt.Println()
	fmt.Println("Passphrase Priority (highest to lowest):")
	fmt.Println("  1. SITESYNC_PASSPHRASE environment variable")
	fmt.Println("  2. --passphrase-file (file path)")
	fmt.Println("  3. --passphrase (command line)")
	fmt.Println("  4. Interactive prompt (fallback)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register                       Register this site with the central server")
	fmt.Println("  login                          Login to the central server")
	fmt.Println("  logout                         Remove the saved session")
	fmt.Println("  status                         Show session and synchronization status")
	fmt.Println("  sync                           Push queued changes and pull foreign ones")
	fmt.Println("  queue                          Show the local change queue")
	fmt.Println("  retry                          Requeue FAILED changes locally and on the server")
	fmt.Println("  fullsync [table,...]           Bootstrap replay of server records")
	fmt.Println("  cleanup [days]                 Prune old synchronized queue entries")
	fmt.Println("  set <table> [uuid] <json>      Create or update a record")
	fmt.Println("  get <table> <uuid>             Show one record")
	fmt.Println("  list <table>                   List live records of a table")
	fmt.Println("  delete <table> <uuid>          Soft-delete a record")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Interactive passphrase prompt")
	fmt.Println("  sitesync-agent register")
	fmt.Println("  sitesync-agent login")
	fmt.Println()
	fmt.Println("  # Using environment variable (recommended)")
	fmt.Println("  export SITESYNC_PASSPHRASE='myClinicPassphrase42'")
	fmt.Println("  sitesync-agent login")
	fmt.Println()
	fmt.Println("  # Using passphrase file (for automation)")
	fmt.Println("  echo 'myClinicPassphrase42' > ~/.sitesync-passphrase")
	fmt.Println("  chmod 600 ~/.sitesync-passphrase")
	fmt.Println("  sitesync-agent --passphrase-file ~/.sitesync-passphrase login")
	fmt.Println()
	fmt.Println("  # Day-to-day usage")
	fmt.Println("  sitesync-agent set patients '{\"primer_nombre\":\"Ana\",\"apellido\":\"Diaz\"}'")
	fmt.Println("  sitesync-agent list patients")
	fmt.Println("  sitesync-agent get patients b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5")
	fmt.Println("  sitesync-agent delete patients b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5")
	fmt.Println("  sitesync-agent sync")
	fmt.Println("  sitesync-agent fullsync tariffs,consultation_types")
	fmt.Println("  sitesync-agent --server https://central.example.com sync")
}

// readInput читает строку из stdin
func readInput(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readPassword читает пароль без отображения на экране
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // Переход на новую строку после ввода
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}
