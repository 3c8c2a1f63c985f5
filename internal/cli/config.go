package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// projectConfigFiles is the search order for project config files
var projectConfigFiles = []string{"bountyctl.toml", "bc.toml"}

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	Server   string `toml:"server"`
	Wallet   string `toml:"wallet,omitempty"`
	Triager  string `toml:"triager,omitempty"`
	Stake    string `toml:"stake,omitempty"`    // default per-submission stake, wei
	Duration int64  `toml:"duration,omitempty"` // default bounty duration, seconds
}

// ServerConfig is the global server configuration (stored in ~/.bountyctl/config.yaml)
type ServerConfig struct {
	Server string `yaml:"server"`
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var serverURL string
	var wallet string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a bountyctl.toml configuration file in the current directory.

This file stores project-specific settings like the server URL and the
wallet address used as the default caller.

EXAMPLES:
  # Create config with default server
  bountyctl config init

  # Create config for a specific server
  bountyctl config init --server https://bounties.example.com

  # Overwrite existing config
  bountyctl config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(serverURL, wallet, force)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "server URL")
	cmd.Flags().StringVar(&wallet, "wallet", "", "default wallet address")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		Long: `Display the current configuration.

Shows both the local project config (bountyctl.toml) and the global config from ~/.bountyctl/config.yaml.

EXAMPLES:
  bountyctl config show
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}
}

func runConfigInit(serverURL, wallet string, force bool) error {
	configPath := "bountyctl.toml"

	// Check if any config file already exists
	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil && !force {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", name)
		}
	}

	content := fmt.Sprintf(`# bountyctl project configuration

server = "%s"
wallet = "%s"

# Default per-submission stake (wei)
# stake = "20000000000000000"

# Default bounty duration (seconds)
# duration = 2592000
`, serverURL, wallet)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Server: %s\n", serverURL)
	if wallet != "" {
		fmt.Printf("  Wallet: %s\n", wallet)
	}
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Edit %s to customize settings\n", configPath)
	fmt.Println("  2. Run 'bountyctl auth login' to authenticate")
	fmt.Println("  3. Run 'bountyctl create --reward <wei> --stake <wei>' to open a bounty")

	return nil
}

func runConfigShow() error {
	fmt.Println("Configuration sources (in order of precedence):")
	fmt.Println()

	// 1. Command line flags
	fmt.Println("1. Command line flags")
	fmt.Println("   --server, --api-key, --config")
	fmt.Println()

	// 2. Environment variables
	fmt.Println("2. Environment variables")
	serverEnv := os.Getenv("BOUNTYD_SERVER")
	keyEnv := os.Getenv("BOUNTYD_API_KEY")
	walletEnv := os.Getenv("BOUNTYD_WALLET")
	if serverEnv != "" {
		fmt.Printf("   BOUNTYD_SERVER=%s\n", serverEnv)
	} else {
		fmt.Println("   BOUNTYD_SERVER=(not set)")
	}
	if keyEnv != "" {
		fmt.Printf("   BOUNTYD_API_KEY=%s\n", maskAPIKey(keyEnv))
	} else {
		fmt.Println("   BOUNTYD_API_KEY=(not set)")
	}
	if walletEnv != "" {
		fmt.Printf("   BOUNTYD_WALLET=%s\n", walletEnv)
	} else {
		fmt.Println("   BOUNTYD_WALLET=(not set)")
	}
	fmt.Println()

	// 3. Local project config
	fmt.Println("3. Local project config (bountyctl.toml or bc.toml)")
	projectConfig, configPath, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("   (not found)")
		} else {
			fmt.Printf("   Error: %v\n", err)
		}
	} else {
		fmt.Printf("   Loaded from: %s\n", configPath)
		if projectConfig.Server != "" {
			fmt.Printf("   server: %s\n", projectConfig.Server)
		}
		if projectConfig.Wallet != "" {
			fmt.Printf("   wallet: %s\n", projectConfig.Wallet)
		}
		if projectConfig.Triager != "" {
			fmt.Printf("   triager: %s\n", projectConfig.Triager)
		}
		if projectConfig.Stake != "" {
			fmt.Printf("   stake: %s\n", projectConfig.Stake)
		}
		if projectConfig.Duration != 0 {
			fmt.Printf("   duration: %d\n", projectConfig.Duration)
		}
	}
	fmt.Println()

	// 4. Global config
	fmt.Println("4. Global config (~/.bountyctl/config.yaml)")
	globalPath := filepath.Join(credentialsDir(), "config.yaml")
	globalData, err := os.ReadFile(globalPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("   (not found)")
		} else {
			fmt.Printf("   Error: %v\n", err)
		}
	} else {
		var globalConfig ServerConfig
		if err := yaml.Unmarshal(globalData, &globalConfig); err == nil {
			if globalConfig.Server != "" {
				fmt.Printf("   server: %s\n", globalConfig.Server)
			}
		}
	}
	fmt.Println()

	// 5. Credentials
	fmt.Println("5. Credentials (~/.bountyctl/credentials)")
	creds, err := loadCredentials()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("   (not found)")
		} else {
			fmt.Printf("   Error: %v\n", err)
		}
	} else {
		if len(creds.Servers) == 0 {
			fmt.Println("   (no credentials stored)")
		} else {
			for server, cred := range creds.Servers {
				fmt.Printf("   %s: %s\n", server, maskAPIKey(cred.APIKey))
			}
		}
	}
	fmt.Println()

	// Effective config
	fmt.Println("Effective configuration:")
	fmt.Printf("   Server:  %s\n", getServer())
	if key := getAPIKey(); key != "" {
		fmt.Printf("   API Key: %s\n", maskAPIKey(key))
	} else {
		fmt.Println("   API Key: (not set)")
	}
	if wallet := getWallet(""); wallet != "" {
		fmt.Printf("   Wallet:  %s\n", wallet)
	} else {
		fmt.Println("   Wallet:  (not set)")
	}

	return nil
}

// loadProjectConfig loads the project config from the first matching config file.
// Returns the config, the path it was loaded from, and an error.
func loadProjectConfig() (*ProjectConfig, string, error) {
	// If --config flag was provided, use that directly
	if cfgFile != "" {
		config, err := loadProjectConfigFromPath(cfgFile)
		if err != nil {
			return nil, cfgFile, err
		}
		return config, cfgFile, nil
	}

	// Search for config files in order
	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil {
			config, err := loadProjectConfigFromPath(name)
			if err != nil {
				return nil, name, err
			}
			return config, name, nil
		}
	}
	return nil, "", os.ErrNotExist
}

// loadProjectConfigFromPath loads a project config from a specific path
func loadProjectConfigFromPath(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config ProjectConfig
	if _, err := toml.Decode(string(data), &config); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	return &config, nil
}

// loadProjectConfigSilent loads the project config without returning errors for missing files.
// Returns nil if the file doesn't exist, but returns errors for parse failures.
func loadProjectConfigSilent() *ProjectConfig {
	config, _, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		// Show actionable errors (parse failures)
		fmt.Fprintf(os.Stderr, "Warning: failed to load project config: %v\n", err)
		return nil
	}
	return config
}
