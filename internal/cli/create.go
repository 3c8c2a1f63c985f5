package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bugchan/bountyd/pkg/client"
)

func createCreateCmd() *cobra.Command {
	var owner string
	var triager string
	var contentRef string
	var reward string
	var stake string
	var duration int64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a bounty",
		Long: `Create a new bounty, escrowing the reward pool.

The owner funds the reward up front. Researchers submit reports with a
stake deposit matching --stake, and the bounty accepts submissions until
the duration elapses.

EXAMPLES:
  # Create a 1 ETH bounty with a 0.02 ETH stake, open for 30 days
  bountyctl create --content-ref QmScope... --reward 1000000000000000000 \
    --stake 20000000000000000 --duration 2592000

  # Delegate triage to a separate wallet
  bountyctl create --content-ref QmScope... --reward 1000000000000000000 \
    --stake 20000000000000000 --duration 2592000 \
    --triager 0xabc...
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(owner, triager, contentRef, reward, stake, duration, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner wallet address (default from config)")
	cmd.Flags().StringVar(&triager, "triager", "", "delegated triager wallet address")
	cmd.Flags().StringVar(&contentRef, "content-ref", "", "CID of the bounty scope document (required)")
	cmd.Flags().StringVar(&reward, "reward", "", "reward pool in wei (required)")
	cmd.Flags().StringVar(&stake, "stake", "", "per-submission stake in wei (default from config)")
	cmd.Flags().Int64Var(&duration, "duration", 0, "submission window in seconds (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	_ = cmd.MarkFlagRequired("content-ref")
	_ = cmd.MarkFlagRequired("reward")

	return cmd
}

func runCreate(owner, triager, contentRef, reward, stake string, duration int64, jsonOutput bool) error {
	owner = getWallet(owner)
	if owner == "" {
		return fmt.Errorf("no owner wallet set (use --owner, BOUNTYD_WALLET, or bountyctl.toml)")
	}

	// Fall back to project config for stake/duration defaults
	config := loadProjectConfigSilent()
	if stake == "" && config != nil {
		stake = config.Stake
	}
	if duration == 0 && config != nil {
		duration = config.Duration
	}
	if triager == "" && config != nil {
		triager = config.Triager
	}
	if stake == "" {
		return fmt.Errorf("no stake amount set (use --stake or bountyctl.toml)")
	}
	if duration == 0 {
		return fmt.Errorf("no duration set (use --duration or bountyctl.toml)")
	}

	c := client.New(getServer(), getAPIKey())

	bounty, err := c.CreateBounty(context.Background(), client.CreateBountyRequest{
		Owner:       owner,
		Triager:     triager,
		ContentRef:  contentRef,
		Reward:      reward,
		StakeAmount: stake,
		Duration:    duration,
	})
	if err != nil {
		return fmt.Errorf("failed to create bounty: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bounty)
	}

	fmt.Printf("Created bounty %s\n", bounty.ID)
	fmt.Println()
	fmt.Printf("  Owner:       %s\n", bounty.Owner)
	if bounty.Triager != "" {
		fmt.Printf("  Triager:     %s\n", bounty.Triager)
	}
	fmt.Printf("  Scope:       %s\n", bounty.ContentRef)
	fmt.Printf("  Reward pool: %s wei\n", bounty.RewardPool)
	fmt.Printf("  Stake:       %s wei\n", bounty.StakeAmount)
	fmt.Printf("  Closes at:   %s\n", bounty.EndTime)
	fmt.Println()
	fmt.Printf("Researchers submit with: bountyctl submit %s --content-ref <cid> --deposit %s\n", bounty.ID, bounty.StakeAmount)

	return nil
}
