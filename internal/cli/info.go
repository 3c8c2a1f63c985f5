package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bugchan/bountyd/pkg/client"
)

func createInfoCmd() *cobra.Command {
	var viewer string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <bounty-id>",
		Short: "Show bounty details",
		Long: `Show a bounty's details and its submissions.

Private submission content refs are only shown when --viewer names the
submission's author, the bounty owner, or the triager.

EXAMPLES:
  # Show a bounty
  bountyctl info 4f8a...

  # Show with content refs visible to a triager
  bountyctl info 4f8a... --viewer 0xabc...

  # Output as JSON
  bountyctl info 4f8a... --json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0], getWallet(viewer), jsonOutput)
		},
	}

	cmd.Flags().StringVar(&viewer, "viewer", "", "wallet to view as (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runInfo(bountyID, viewer string, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	bounty, err := c.GetBounty(ctx, bountyID)
	if err != nil {
		return fmt.Errorf("failed to fetch bounty: %w", err)
	}

	subs, err := c.ListSubmissions(ctx, bountyID, viewer)
	if err != nil {
		return fmt.Errorf("failed to fetch submissions: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"bounty":      bounty,
			"submissions": subs.Data,
		})
	}

	fmt.Printf("Bounty %s\n", bounty.ID)
	fmt.Println()
	fmt.Printf("  Owner:       %s\n", bounty.Owner)
	if bounty.Triager != "" {
		fmt.Printf("  Triager:     %s\n", bounty.Triager)
	}
	fmt.Printf("  Scope:       %s\n", bounty.ContentRef)
	fmt.Printf("  Status:      %s\n", bounty.Status)
	fmt.Printf("  Reward pool: %s wei\n", bounty.RewardPool)
	fmt.Printf("  Stake:       %s wei\n", bounty.StakeAmount)
	fmt.Printf("  Created:     %s\n", bounty.CreatedAt)
	fmt.Printf("  Ends:        %s\n", bounty.EndTime)
	if bounty.ClosedAt != "" {
		fmt.Printf("  Closed:      %s\n", bounty.ClosedAt)
	}
	fmt.Println()

	if len(subs.Data) == 0 {
		fmt.Println("No submissions")
		return nil
	}

	fmt.Printf("Submissions (%d):\n", len(subs.Data))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RESEARCHER\tSTATE\tSEVERITY\tVISIBILITY\tCONTENT REF")
	for _, s := range subs.Data {
		ref := s.ContentRef
		if ref == "" {
			ref = "(private)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Researcher, s.State, s.Severity, s.Visibility, ref)
	}
	w.Flush()

	return nil
}
