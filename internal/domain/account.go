package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is derived from the credit line.
type AccountType string

// Account types.
const (
	AccountTypeStandard AccountType = "STANDARD"
	AccountTypeCredit   AccountType = "CREDIT"
)

// ParseAccountType converts user or wire input into an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(strings.ToUpper(strings.TrimSpace(s))) {
	case AccountTypeStandard:
		return AccountTypeStandard, nil
	case AccountTypeCredit:
		return AccountTypeCredit, nil
	default:
		return "", fmt.Errorf("%w: unknown account type %q", ErrInvalidAccount, s)
	}
}

// Account is a snapshot of one account's financial parameters.
// OpeningBalance and CreditLine are fixed at account creation;
// CurrentBalance is written only by the ledger after a recomputation.
type Account struct {
	OpeningBalanceAt time.Time
	ID               string
	Description      string
	CustomerID       string
	OpeningBalance   decimal.Decimal
	CreditLine       decimal.Decimal
	CurrentBalance   decimal.Decimal
}

// OpenAccount builds a new account whose balance starts at opening. A
// STANDARD account never carries a credit line; a CREDIT account needs one.
func OpenAccount(id, customerID, description string, accountType AccountType, opening, creditLine decimal.Decimal, openedAt time.Time) (*Account, error) {
	if err := ValidateID("account", id); err != nil {
		return nil, err
	}
	if err := ValidateID("customer", customerID); err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidAccount)
	}
	if err := ValidateBalance(opening); err != nil {
		return nil, err
	}

	switch accountType {
	case AccountTypeStandard:
		creditLine = decimal.Zero
	case AccountTypeCredit:
		if err := ValidateBalance(creditLine); err != nil {
			return nil, err
		}
		if !creditLine.IsPositive() {
			return nil, fmt.Errorf("%w: a credit account needs a positive credit line", ErrInvalidAccount)
		}
	default:
		return nil, fmt.Errorf("%w: unknown account type %q", ErrInvalidAccount, string(accountType))
	}

	return &Account{
		ID:               id,
		CustomerID:       customerID,
		Description:      description,
		OpeningBalance:   opening,
		OpeningBalanceAt: openedAt,
		CreditLine:       creditLine,
		CurrentBalance:   opening,
	}, nil
}

// Type returns CREDIT when the account has a credit line.
func (a *Account) Type() AccountType {
	if a.CreditLine.IsPositive() {
		return AccountTypeCredit
	}
	return AccountTypeStandard
}

// Available returns the balance usable for payments.
func (a *Account) Available() decimal.Decimal {
	return AvailableBalance(a.CurrentBalance, a.CreditLine)
}

// WithBalance returns a copy of the snapshot carrying balance.
func (a *Account) WithBalance(balance decimal.Decimal) *Account {
	cp := *a
	cp.CurrentBalance = balance
	return &cp
}

// Ledger is an account together with its accumulated movements.
type Ledger struct {
	Account   *Account
	Movements []Movement
	Balance   decimal.Decimal
	Available decimal.Decimal
}

// NewLedger accumulates movements on top of the account's opening balance.
func NewLedger(account *Account, movements []Movement) (*Ledger, error) {
	accumulated, err := Accumulate(movements, account.OpeningBalance)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account.ID, err)
	}
	balance := TailBalance(accumulated, account.OpeningBalance)

	return &Ledger{
		Account:   account,
		Movements: accumulated,
		Balance:   balance,
		Available: AvailableBalance(balance, account.CreditLine),
	}, nil
}

// Last returns the last movement of the ledger.
func (l *Ledger) Last() (Movement, bool) {
	if len(l.Movements) == 0 {
		return Movement{}, false
	}
	return l.Movements[len(l.Movements)-1], true
}

// Find returns the movement with id.
func (l *Ledger) Find(id string) (Movement, bool) {
	for _, m := range l.Movements {
		if m.ID == id {
			return m, true
		}
	}
	return Movement{}, false
}

// InSync reports whether the stored account balance matches the ledger tail.
func (l *Ledger) InSync() bool {
	return l.Account.CurrentBalance.Equal(l.Balance)
}
