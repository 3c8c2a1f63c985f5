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

func createCloseCmd() *cobra.Command {
	var caller string
	var expired bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "close <bounty-id>",
		Short: "Close a bounty and settle funds",
		Long: `Close a bounty and settle all escrowed funds.

Pending submissions are refunded their stakes. Accepted submissions split
the reward pool equally and get their stakes back. With no accepted
submissions the pool returns to the owner. Division dust stays escrowed.

The owner may close at any time. Anyone may close a bounty whose
submission window has passed, using --expired.

EXAMPLES:
  # Close as the owner
  bountyctl close 4f8a...

  # Close an expired bounty (no authorization needed)
  bountyctl close 4f8a... --expired
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClose(args[0], getWallet(caller), expired, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "owner wallet (default from config)")
	cmd.Flags().BoolVar(&expired, "expired", false, "close as expired, without owner authorization")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runClose(bountyID, caller string, expired, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	var res *client.CloseResult
	var err error

	if expired {
		res, err = c.CloseExpiredBounty(ctx, bountyID)
	} else {
		if caller == "" {
			return fmt.Errorf("no caller wallet set (use --caller, BOUNTYD_WALLET, or bountyctl.toml)")
		}
		res, err = c.CloseBounty(ctx, bountyID, caller)
	}
	if err != nil {
		return fmt.Errorf("failed to close bounty: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("Closed bounty %s\n", res.BountyID)
	fmt.Println()
	fmt.Printf("  Winners:    %d\n", res.Winners)
	fmt.Printf("  Total paid: %s wei\n", res.TotalPaid)
	fmt.Printf("  Dust:       %s wei\n", res.Dust)
	if res.OwnerReturn != "" {
		fmt.Printf("  Returned to owner: %s wei\n", res.OwnerReturn)
	}

	if len(res.Payouts) > 0 {
		fmt.Println()
		fmt.Println("Payouts:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  RECIPIENT\tAMOUNT")
		for _, p := range res.Payouts {
			fmt.Fprintf(w, "  %s\t%s\n", p.Recipient, p.Amount)
		}
		w.Flush()
	}

	if len(res.Refunds) > 0 {
		fmt.Println()
		fmt.Println("Stake refunds:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  RECIPIENT\tAMOUNT")
		for _, r := range res.Refunds {
			fmt.Fprintf(w, "  %s\t%s\n", r.Recipient, r.Amount)
		}
		w.Flush()
	}

	return nil
}
