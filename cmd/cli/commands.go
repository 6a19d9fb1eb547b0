package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/oklog/ulid/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/presentation"
)

func newLedgerCmd(opts *options) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	showCmd := &cobra.Command{
		Use:   "show ACCOUNT",
		Short: "Show the movements and balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, raw, err := newAPIClient(opts).ledger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), raw)
			}
			return presentation.RenderTable(cmd.OutOrStdout(), resp.ToView())
		},
	}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile ACCOUNT",
		Short: "Recompute the account balance from its movements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, raw, err := newAPIClient(opts).reconcile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), raw)
			}

			out := cmd.OutOrStdout()
			if resp.Corrected {
				fmt.Fprint(out, pterm.Warning.Sprintfln("Balance corrected from %s to %s",
					presentation.FormatEUR(resp.RecordedBalance), presentation.FormatEUR(resp.CalculatedBalance)))
				return nil
			}
			fmt.Fprint(out, pterm.Success.Sprintfln("Balance %s matches the ledger", presentation.FormatEUR(resp.CalculatedBalance)))
			return nil
		},
	}

	ledgerCmd.AddCommand(showCmd, reconcileCmd)
	return ledgerCmd
}

func newMovementCmd(opts *options) *cobra.Command {
	movementCmd := &cobra.Command{
		Use:   "movement",
		Short: "Movement operations",
	}

	var (
		amount         string
		kind           string
		idempotencyKey string
	)

	createCmd := &cobra.Command{
		Use:   "create ACCOUNT",
		Short: "Record a deposit or payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := domain.ParseAmount(amount)
			if err != nil {
				return err
			}
			if idempotencyKey == "" {
				idempotencyKey = ulid.Make().String()
			}

			resp, raw, err := newAPIClient(opts).createMovement(cmd.Context(), args[0], dto.CreateMovementRequest{
				Amount: json.Number(parsed.String()),
				Kind:   kind,
			}, idempotencyKey)
			if err != nil {
				var apiErr *apiError
				if errors.As(err, &apiErr) && apiErr.Body.Movement != nil {
					fmt.Fprint(cmd.ErrOrStderr(), pterm.Warning.Sprintfln(
						"Movement %s was recorded; run 'ledger reconcile %s' instead of repeating it",
						apiErr.Body.Movement.ID, args[0]))
				}
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), raw)
			}

			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("%s %s recorded as %s, balance %s",
				resp.Kind, presentation.FormatEUR(resp.Amount), resp.ID, presentation.FormatEUR(resp.RunningBalance)))
			return nil
		},
	}
	createCmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 150.50")
	createCmd.Flags().StringVar(&kind, "kind", "", "Movement kind: Deposit or Payment")
	createCmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Key that makes a repeated submission safe (generated when empty)")
	_ = createCmd.MarkFlagRequired("amount")
	_ = createCmd.MarkFlagRequired("kind")

	deleteCmd := &cobra.Command{
		Use:   "delete ACCOUNT MOVEMENT",
		Short: "Delete the last movement of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newAPIClient(opts).deleteMovement(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Movement %s deleted", args[1]))
			return nil
		},
	}

	movementCmd.AddCommand(createCmd, deleteCmd)
	return movementCmd
}

func newAccountCmd(opts *options) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	listCmd := &cobra.Command{
		Use:   "list CUSTOMER",
		Short: "List the accounts of a customer with their total balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, raw, err := newAPIClient(opts).customerAccounts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), raw)
			}
			return presentation.RenderAccounts(cmd.OutOrStdout(), resp.ToPortfolio())
		},
	}

	var (
		customerID     string
		description    string
		accountType    string
		openingBalance string
		creditLine     string
	)

	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Open an account for a customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := dto.OpenAccountRequest{
				CustomerID:  customerID,
				Description: description,
				Type:        accountType,
			}
			if openingBalance != "" {
				parsed, err := domain.ParseBalance(openingBalance)
				if err != nil {
					return err
				}
				req.OpeningBalance = json.Number(parsed.String())
			}
			if creditLine != "" {
				parsed, err := domain.ParseBalance(creditLine)
				if err != nil {
					return err
				}
				req.CreditLine = json.Number(parsed.String())
			}

			resp, raw, err := newAPIClient(opts).openAccount(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), raw)
			}

			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("%s account %s opened with %s",
				resp.Type, resp.ID, presentation.FormatEUR(resp.Balance)))
			return nil
		},
	}
	openCmd.Flags().StringVar(&customerID, "customer", "", "Owning customer ID")
	openCmd.Flags().StringVar(&description, "description", "", "Account description")
	openCmd.Flags().StringVar(&accountType, "type", string(domain.AccountTypeStandard), "Account type: STANDARD or CREDIT")
	openCmd.Flags().StringVar(&openingBalance, "opening-balance", "", "Opening balance, e.g. 100.00")
	openCmd.Flags().StringVar(&creditLine, "credit-line", "", "Credit line of a CREDIT account")
	_ = openCmd.MarkFlagRequired("customer")
	_ = openCmd.MarkFlagRequired("description")

	closeCmd := &cobra.Command{
		Use:   "close ACCOUNT",
		Short: "Close an account that has no movements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newAPIClient(opts).closeAccount(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Account %s closed", args[0]))
			return nil
		},
	}

	accountCmd.AddCommand(listCmd, openCmd, closeCmd)
	return accountCmd
}

// printJSON re-indents a raw JSON body.
func printJSON(w io.Writer, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
