// Package presentation turns ledgers into display-ready views.
// Running balances shown here are derived data and never flow back into
// ledger mutations.
package presentation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// Row is one displayed movement.
type Row struct {
	Timestamp      time.Time
	MovementID     string
	Kind           domain.MovementKind
	Amount         decimal.Decimal
	RunningBalance decimal.Decimal
	// Deletable is set on the last row only.
	Deletable bool
}

// SignedAmount returns the amount with payments shown as negative.
func (r Row) SignedAmount() decimal.Decimal {
	if r.Kind == domain.MovementKindPayment {
		return r.Amount.Neg()
	}
	return r.Amount
}

// LedgerView is the display model of an account ledger.
type LedgerView struct {
	AccountID      string
	Description    string
	AccountType    domain.AccountType
	Rows           []Row
	MovementCount  int
	OpeningBalance decimal.Decimal
	Balance        decimal.Decimal
	CreditLine     decimal.Decimal
	// Total is the available balance: the ledger tail plus the credit line.
	Total decimal.Decimal
}

// NewLedgerView builds the view of ledger in chronological order.
func NewLedgerView(ledger *domain.Ledger) LedgerView {
	account := ledger.Account

	rows := make([]Row, len(ledger.Movements))
	for i, m := range ledger.Movements {
		rows[i] = Row{
			Timestamp:      m.Timestamp,
			MovementID:     m.ID,
			Kind:           m.Kind,
			Amount:         m.Amount,
			RunningBalance: m.RunningBalance,
			Deletable:      i == len(ledger.Movements)-1,
		}
	}

	return LedgerView{
		AccountID:      account.ID,
		Description:    account.Description,
		AccountType:    account.Type(),
		Rows:           rows,
		MovementCount:  len(rows),
		OpeningBalance: account.OpeningBalance,
		Balance:        ledger.Balance,
		CreditLine:     account.CreditLine,
		Total:          ledger.Available,
	}
}

// Title returns the "{type} ({id})" heading of the view.
func (v LedgerView) Title() string {
	return string(v.AccountType) + " (" + v.AccountID + ")"
}

// LastMovementID returns the ID of the only deletable movement.
func (v LedgerView) LastMovementID() (string, bool) {
	if len(v.Rows) == 0 {
		return "", false
	}
	return v.Rows[len(v.Rows)-1].MovementID, true
}
