package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Portfolio is the set of accounts owned by one customer.
type Portfolio struct {
	CustomerID   string
	Accounts     []Account
	TotalBalance decimal.Decimal
}

// NewPortfolio orders accounts by ID and sums their stored balances.
func NewPortfolio(customerID string, accounts []Account) *Portfolio {
	sorted := slices.Clone(accounts)
	slices.SortFunc(sorted, func(a, b Account) int { return compareIDs(a.ID, b.ID) })

	total := decimal.Zero
	for _, a := range sorted {
		total = total.Add(a.CurrentBalance)
	}

	return &Portfolio{
		CustomerID:   customerID,
		Accounts:     sorted,
		TotalBalance: total,
	}
}

// Count returns the number of accounts.
func (p *Portfolio) Count() int {
	return len(p.Accounts)
}
