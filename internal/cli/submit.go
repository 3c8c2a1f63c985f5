package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bugchan/bountyd/pkg/client"
)

func createSubmitCmd() *cobra.Command {
	var researcher string
	var contentRef string
	var deposit string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit <bounty-id>",
		Short: "Submit a vulnerability report",
		Long: `Submit a vulnerability report to a bounty.

The deposit must match the bounty's stake amount exactly. Each wallet may
submit once per bounty, ever; a rejected submission cannot be replaced.
Reports start private, visible only to the author and the triage side.

EXAMPLES:
  # Submit a report
  bountyctl submit 4f8a... --content-ref QmReport... --deposit 20000000000000000

  # Submit from an explicit wallet
  bountyctl submit 4f8a... --researcher 0xabc... --content-ref QmReport... \
    --deposit 20000000000000000
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(args[0], getWallet(researcher), contentRef, deposit, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&researcher, "researcher", "", "researcher wallet address (default from config)")
	cmd.Flags().StringVar(&contentRef, "content-ref", "", "CID of the encrypted report (required)")
	cmd.Flags().StringVar(&deposit, "deposit", "", "stake deposit in wei (required, must equal bounty stake)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	_ = cmd.MarkFlagRequired("content-ref")
	_ = cmd.MarkFlagRequired("deposit")

	return cmd
}

func runSubmit(bountyID, researcher, contentRef, deposit string, jsonOutput bool) error {
	if researcher == "" {
		return fmt.Errorf("no researcher wallet set (use --researcher, BOUNTYD_WALLET, or bountyctl.toml)")
	}

	c := client.New(getServer(), getAPIKey())

	sub, err := c.SubmitReport(context.Background(), bountyID, client.SubmitReportRequest{
		Researcher: researcher,
		ContentRef: contentRef,
		Deposit:    deposit,
	})
	if err != nil {
		return fmt.Errorf("failed to submit report: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sub)
	}

	fmt.Printf("Submitted report to bounty %s\n", bountyID)
	fmt.Println()
	fmt.Printf("  Researcher: %s\n", sub.Researcher)
	fmt.Printf("  Report:     %s\n", sub.ContentRef)
	fmt.Printf("  Stake:      %s wei\n", sub.Stake)
	fmt.Printf("  State:      %s\n", sub.State)
	fmt.Println()
	fmt.Println("Your stake is held in escrow until the report is triaged or the bounty closes.")

	return nil
}
