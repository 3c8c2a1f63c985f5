package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	server  string
	apiKey  string
)

// Execute runs the CLI
func Execute(version string) error {
	rootCmd := &cobra.Command{
		Use:     "bountyctl",
		Short:   "Bug bounty marketplace CLI",
		Long:    `bountyctl is a CLI for creating bounties, submitting reports, and triaging them against a bountyd server.`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: bountyctl.toml or bc.toml)")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "server URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")

	// Add subcommands
	rootCmd.AddCommand(createCreateCmd())
	rootCmd.AddCommand(createListCmd())
	rootCmd.AddCommand(createInfoCmd())
	rootCmd.AddCommand(createSubmitCmd())
	rootCmd.AddCommand(createTriageCmd())
	rootCmd.AddCommand(createDiscloseCmd())
	rootCmd.AddCommand(createCloseCmd())
	rootCmd.AddCommand(createEventsCmd())
	rootCmd.AddCommand(createAuthCmd())
	rootCmd.AddCommand(createConfigCmd())

	return rootCmd.Execute()
}

// getServer returns the server URL from flag, env, config file, or credentials
func getServer() string {
	// 1. Command line flag
	if server != "" {
		return server
	}

	// 2. Environment variable
	if env := os.Getenv("BOUNTYD_SERVER"); env != "" {
		return env
	}

	// 3. Project config file (TOML)
	if config := loadProjectConfigSilent(); config != nil && config.Server != "" {
		return config.Server
	}

	// 4. Default
	return "http://localhost:8080"
}

// getAPIKey returns the API key from flag, env, config, or credentials file
func getAPIKey() string {
	// 1. Command line flag
	if apiKey != "" {
		return apiKey
	}

	// 2. Environment variable
	if env := os.Getenv("BOUNTYD_API_KEY"); env != "" {
		return env
	}

	// 3. Credentials file (keyed by server URL)
	serverURL := getServer()
	if cred := getCredential(serverURL); cred != "" {
		return cred
	}

	return ""
}

// getWallet returns the caller wallet from the flag value, env, or config
func getWallet(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("BOUNTYD_WALLET"); env != "" {
		return env
	}
	if config := loadProjectConfigSilent(); config != nil && config.Wallet != "" {
		return config.Wallet
	}
	return ""
}
