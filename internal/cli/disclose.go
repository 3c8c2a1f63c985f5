package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bugchan/bountyd/pkg/client"
)

func createDiscloseCmd() *cobra.Command {
	var caller string
	var contentRef string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "disclose <bounty-id> <researcher>",
		Short: "Make a submission public",
		Long: `Make a submission's report publicly visible.

The private content reference is replaced by the plaintext one you
provide. Disclosure is one-way: a public report cannot be made private
again. The bounty owner and triager may disclose any report; the
author may disclose their own once it has been triaged.

EXAMPLES:
  bountyctl disclose 4f8a... 0xabc... --content-ref QmPlaintext...
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisclose(args[0], args[1], getWallet(caller), contentRef, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "wallet making the change (default from config)")
	cmd.Flags().StringVar(&contentRef, "content-ref", "", "CID of the plaintext report (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("content-ref")

	return cmd
}

func runDisclose(bountyID, researcher, caller, contentRef string, jsonOutput bool) error {
	if caller == "" {
		return fmt.Errorf("no caller wallet set (use --caller, BOUNTYD_WALLET, or bountyctl.toml)")
	}

	c := client.New(getServer(), getAPIKey())

	sub, err := c.SetVisibility(context.Background(), bountyID, researcher, caller, "public", contentRef)
	if err != nil {
		return fmt.Errorf("failed to disclose submission: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sub)
	}

	fmt.Printf("Disclosed submission from %s\n", sub.Researcher)
	fmt.Printf("  Report: %s\n", sub.ContentRef)
	fmt.Println()
	fmt.Println("The report is now publicly visible. This cannot be undone.")

	return nil
}
