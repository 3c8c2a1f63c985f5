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

func createEventsCmd() *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events <bounty-id>",
		Short: "Show a bounty's audit trail",
		Long: `Show the ordered audit trail for a bounty.

Every state change records an event: submissions, stake movements,
triage decisions, disclosures, and settlement payouts.

EXAMPLES:
  # Show the audit trail
  bountyctl events 4f8a...

  # Output as JSON
  bountyctl events 4f8a... --json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(args[0], limit, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "number of events to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runEvents(bountyID string, limit int, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())

	resp, err := c.ListEvents(context.Background(), bountyID, "", limit)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"events":     resp.Data,
			"count":      len(resp.Data),
			"hasMore":    resp.Pagination.HasMore,
			"nextCursor": resp.Pagination.NextCursor,
		})
	}

	if len(resp.Data) == 0 {
		fmt.Println("No events found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tTYPE\tRESEARCHER\tRECIPIENT\tAMOUNT\tAT")
	for _, e := range resp.Data {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Seq, e.Type, shortAddr(e.Researcher), shortAddr(e.Recipient), e.Amount, e.CreatedAt)
	}
	w.Flush()

	if resp.Pagination.HasMore {
		fmt.Printf("\n(showing %d events, more available)\n", len(resp.Data))
	}

	return nil
}
