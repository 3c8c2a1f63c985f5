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

func createListCmd() *cobra.Command {
	var owner string
	var status string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bounties",
		Long: `List bounties on the server.

EXAMPLES:
  # List all bounties
  bountyctl list

  # List only open bounties
  bountyctl list --status open

  # List bounties by owner
  bountyctl list --owner 0xabc...

  # Output as JSON
  bountyctl list --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(owner, status, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner wallet")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open, closed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of bounties to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runList(owner, status string, limit int, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())

	resp, err := c.ListBounties(context.Background(), client.ListBountiesOptions{
		Owner:  owner,
		Status: status,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list bounties: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"bounties":   resp.Data,
			"count":      len(resp.Data),
			"hasMore":    resp.Pagination.HasMore,
			"nextCursor": resp.Pagination.NextCursor,
		})
	}

	if len(resp.Data) == 0 {
		fmt.Println("No bounties found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOWNER\tSTATUS\tREWARD POOL\tSTAKE\tENDS")
	for _, b := range resp.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, shortAddr(b.Owner), b.Status, b.RewardPool, b.StakeAmount, b.EndTime)
	}
	w.Flush()

	if resp.Pagination.HasMore {
		fmt.Printf("\n(showing %d bounties, more available)\n", len(resp.Data))
	}

	return nil
}

// shortAddr abbreviates a wallet address for table output
func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:8] + ".." + addr[len(addr)-4:]
}
