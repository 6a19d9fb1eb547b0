package main

import (
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// options are the persistent flags shared by every command.
type options struct {
	baseURL string
	timeout time.Duration
	json    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "bankledger-cli",
		Short:         "BankLedger CLI tool",
		Long:          `A command line interface for viewing and editing account ledgers through the BankLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8081", "Base URL of the BankLedger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(newAccountCmd(opts), newLedgerCmd(opts), newMovementCmd(opts))
	return rootCmd
}
