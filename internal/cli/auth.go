package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/bugchan/bountyd/pkg/client"
)

// Credentials maps server URLs to stored API keys, persisted as YAML at
// ~/.bountyctl/credentials with owner-only permissions.
type Credentials struct {
	Servers map[string]ServerCredential `yaml:"servers"`
}

// ServerCredential holds the key for one server.
type ServerCredential struct {
	APIKey string `yaml:"api_key"`
	Name   string `yaml:"name,omitempty"`
}

func createAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(createAuthLoginCmd())
	cmd.AddCommand(createAuthLogoutCmd())
	cmd.AddCommand(createAuthStatusCmd())

	return cmd
}

func createAuthLoginCmd() *cobra.Command {
	var serverFlag string
	var apiKeyFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save an API key for a server",
		Long: `Validate an API key against a bountyd server and store it.

Keys are issued on the server with 'bountyd keys create'. The key is
checked against the server before it is saved.

EXAMPLES:
  # Prompt for a key (input hidden on a terminal)
  bountyctl auth login

  # Log in to a specific server
  bountyctl auth login --server https://bounties.example.com

  # Non-interactive, for CI
  bountyctl auth login --api-key $BOUNTYD_API_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(serverFlag, apiKeyFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "server URL (default from config)")
	cmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key (prompted for when omitted)")

	return cmd
}

func createAuthLogoutCmd() *cobra.Command {
	var serverFlag string
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials",
		Long: `Remove the stored API key for a server.

EXAMPLES:
  bountyctl auth logout
  bountyctl auth logout --server https://bounties.example.com
  bountyctl auth logout --all
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(serverFlag, allFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "server URL (default from config)")
	cmd.Flags().BoolVar(&allFlag, "all", false, "forget every stored credential")

	return cmd
}

func createAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus()
		},
	}
}

func runAuthLogin(serverURL, apiKey string) error {
	if serverURL == "" {
		serverURL = getServer()
	}

	if apiKey == "" {
		var err error
		apiKey, err = promptAPIKey(serverURL)
		if err != nil {
			return err
		}
	}
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	fmt.Printf("Checking key against %s...\n", serverURL)
	if err := probeAPIKey(serverURL, apiKey); err != nil {
		return err
	}

	if err := saveCredential(serverURL, apiKey); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("Logged in to %s as %s\n", serverURL, maskAPIKey(apiKey))
	fmt.Printf("Credentials stored in %s\n", credentialsFilePath())
	return nil
}

// promptAPIKey reads a key from stdin, without echo when stdin is a
// terminal.
func promptAPIKey(serverURL string) (string, error) {
	fmt.Printf("API key for %s: ", serverURL)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// probeAPIKey exercises a write-free authenticated request to tell a
// bad key from an unreachable server.
func probeAPIKey(serverURL, apiKey string) error {
	c := client.New(serverURL, apiKey)
	_, err := c.ListBounties(context.Background(), client.ListBountiesOptions{Limit: 1})
	if err == nil {
		return nil
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Code == "UNAUTHORIZED" {
		return errors.New("server rejected the API key")
	}
	// Listing is open on servers that run without auth, so any other
	// error means we could not reach the server at all.
	return fmt.Errorf("could not reach %s: %w", serverURL, err)
}

func runAuthLogout(serverURL string, all bool) error {
	if all {
		if err := os.Remove(credentialsFilePath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credentials: %w", err)
		}
		fmt.Println("All credentials forgotten")
		return nil
	}

	if serverURL == "" {
		serverURL = getServer()
	}

	creds, err := loadCredentials()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No credentials stored for %s\n", serverURL)
			return nil
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if _, ok := creds.Servers[serverURL]; !ok {
		fmt.Printf("No credentials stored for %s\n", serverURL)
		return nil
	}

	delete(creds.Servers, serverURL)
	if err := writeCredentials(creds); err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	fmt.Printf("Logged out from %s\n", serverURL)
	return nil
}

func runAuthStatus() error {
	creds, err := loadCredentials()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if creds == nil || len(creds.Servers) == 0 {
		fmt.Println("Not logged in to any server.")
		fmt.Println("Run 'bountyctl auth login' to store a key.")
		return nil
	}

	fmt.Println("Stored credentials:")
	for server, cred := range creds.Servers {
		if cred.Name != "" {
			fmt.Printf("  %s  %s (%s)\n", server, maskAPIKey(cred.APIKey), cred.Name)
		} else {
			fmt.Printf("  %s  %s\n", server, maskAPIKey(cred.APIKey))
		}
	}
	return nil
}

func credentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bountyctl"
	}
	return filepath.Join(home, ".bountyctl")
}

func credentialsFilePath() string {
	return filepath.Join(credentialsDir(), "credentials")
}

func loadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(credentialsFilePath())
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	if creds.Servers == nil {
		creds.Servers = make(map[string]ServerCredential)
	}
	return &creds, nil
}

func writeCredentials(creds *Credentials) error {
	if err := os.MkdirAll(credentialsDir(), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	// Keys are secrets; keep the file owner-only
	return os.WriteFile(credentialsFilePath(), data, 0600)
}

func saveCredential(serverURL, apiKey string) error {
	creds, err := loadCredentials()
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		creds = &Credentials{Servers: make(map[string]ServerCredential)}
	}
	creds.Servers[serverURL] = ServerCredential{APIKey: apiKey}
	return writeCredentials(creds)
}

func getCredential(serverURL string) string {
	creds, err := loadCredentials()
	if err != nil {
		return ""
	}
	return creds.Servers[serverURL].APIKey
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
