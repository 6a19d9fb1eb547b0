package presentation

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/iho/bankledger/internal/domain"
)

// TimestampLayout is how movement timestamps are shown.
const TimestampLayout = "02/01/2006 15:04:05"

// RenderTable writes the ledger as a terminal table to w.
func RenderTable(w io.Writer, view LedgerView) error {
	data := pterm.TableData{{"Date", "Movement", "Amount", "Balance", ""}}
	for _, row := range view.Rows {
		amount := FormatEUR(row.SignedAmount())
		if row.Kind == domain.MovementKindPayment {
			amount = pterm.Red(amount)
		} else {
			amount = pterm.Green(amount)
		}

		marker := ""
		if row.Deletable {
			marker = "deletable"
		}

		data = append(data, []string{
			row.Timestamp.Local().Format(TimestampLayout),
			string(row.Kind),
			amount,
			FormatEUR(row.RunningBalance),
			marker,
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render ledger table: %w", err)
	}

	out := pterm.DefaultSection.Sprintln(view.Title())
	if view.Description != "" {
		out += view.Description + "\n"
	}
	out += table + "\n"
	out += fmt.Sprintf("Movements: %d\n", view.MovementCount)
	if view.CreditLine.IsPositive() {
		out += "Credit line: " + FormatEUR(view.CreditLine) + "\n"
	}
	out += pterm.Bold.Sprint("Total: "+FormatEUR(view.Total)) + "\n"

	_, err = io.WriteString(w, out)
	return err
}
