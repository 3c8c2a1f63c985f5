package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bugchan/bountyd/pkg/client"
)

func createTriageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Triage submissions",
		Long: `Triage commands for the bounty owner or delegated triager.

Accepting a submission marks it as a winner for settlement; its stake is
returned when the bounty closes. Rejecting a submission forfeits the
researcher's stake to the owner immediately. Both are one-shot.
`,
	}

	cmd.AddCommand(createTriageAcceptCmd())
	cmd.AddCommand(createTriageRejectCmd())
	cmd.AddCommand(createTriageSeverityCmd())

	return cmd
}

func createTriageAcceptCmd() *cobra.Command {
	var caller string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "accept <bounty-id> <researcher>",
		Short: "Accept a pending submission",
		Long: `Accept a pending submission as a valid report.

Accepted submissions share the reward pool equally at settlement and get
their stake back. Payment happens when the bounty closes, not on accept.

EXAMPLES:
  bountyctl triage accept 4f8a... 0xabc...
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(args[0], args[1], "accept", "", getWallet(caller), jsonOutput)
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "triager or owner wallet (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func createTriageRejectCmd() *cobra.Command {
	var caller string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "reject <bounty-id> <researcher>",
		Short: "Reject a pending submission",
		Long: `Reject a pending submission.

The researcher's stake is forfeited to the bounty owner immediately, and
the wallet cannot submit to this bounty again.

EXAMPLES:
  bountyctl triage reject 4f8a... 0xabc...
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(args[0], args[1], "reject", "", getWallet(caller), jsonOutput)
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "triager or owner wallet (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func createTriageSeverityCmd() *cobra.Command {
	var caller string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "severity <bounty-id> <researcher> <severity>",
		Short: "Set a submission's severity",
		Long: `Set the severity of a submission.

Severity is advisory and does not affect payouts. Valid values are
none, low, medium, high, and critical.

EXAMPLES:
  bountyctl triage severity 4f8a... 0xabc... high
`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(args[0], args[1], "severity", args[2], getWallet(caller), jsonOutput)
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "triager or owner wallet (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runTriage(bountyID, researcher, action, severity, caller string, jsonOutput bool) error {
	if caller == "" {
		return fmt.Errorf("no caller wallet set (use --caller, BOUNTYD_WALLET, or bountyctl.toml)")
	}

	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	var sub *client.Submission
	var err error

	switch action {
	case "accept":
		sub, err = c.AcceptSubmission(ctx, bountyID, researcher, caller)
	case "reject":
		sub, err = c.RejectSubmission(ctx, bountyID, researcher, caller)
	case "severity":
		sub, err = c.SetSeverity(ctx, bountyID, researcher, caller, severity)
	default:
		return fmt.Errorf("unknown triage action %q", action)
	}
	if err != nil {
		return fmt.Errorf("failed to %s submission: %w", action, err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sub)
	}

	switch action {
	case "accept":
		fmt.Printf("Accepted submission from %s\n", sub.Researcher)
		fmt.Println("The researcher will be paid when the bounty closes.")
	case "reject":
		fmt.Printf("Rejected submission from %s\n", sub.Researcher)
		fmt.Println("The researcher's stake was forfeited to the bounty owner.")
	case "severity":
		fmt.Printf("Set severity of %s's submission to %s\n", sub.Researcher, sub.Severity)
	}

	return nil
}
