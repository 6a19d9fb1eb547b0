package presentation

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/iho/bankledger/internal/domain"
)

// DateLayout is how account opening dates are shown.
const DateLayout = "02/01/2006"

// RenderAccounts writes a customer's accounts and their total balance to w.
func RenderAccounts(w io.Writer, portfolio *domain.Portfolio) error {
	data := pterm.TableData{{"Account", "Description", "Type", "Opened", "Balance"}}
	for _, account := range portfolio.Accounts {
		opened := ""
		if !account.OpeningBalanceAt.IsZero() {
			opened = account.OpeningBalanceAt.Local().Format(DateLayout)
		}

		balance := FormatEUR(account.CurrentBalance)
		if account.CurrentBalance.IsNegative() {
			balance = pterm.Red(balance)
		}

		data = append(data, []string{
			account.ID,
			account.Description,
			string(account.Type()),
			opened,
			balance,
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render accounts table: %w", err)
	}

	out := pterm.DefaultSection.Sprintln("Customer " + portfolio.CustomerID)
	out += table + "\n"
	out += fmt.Sprintf("Accounts: %d\n", portfolio.Count())
	out += pterm.Bold.Sprint("Total balance: "+FormatEUR(portfolio.TotalBalance)) + "\n"

	_, err = io.WriteString(w, out)
	return err
}
