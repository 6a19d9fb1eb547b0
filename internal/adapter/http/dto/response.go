package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/presentation"
	"github.com/iho/bankledger/internal/usecase"
)

// OutcomeHeader carries the classified outcome of a ledger operation.
const OutcomeHeader = "X-Ledger-Outcome"

// SessionHeader identifies the client session on session-scoped routes.
const SessionHeader = "X-Session-ID"

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID                 string          `json:"id"`
	Description        string          `json:"description"`
	CustomerID         string          `json:"customer_id,omitempty"`
	Type               string          `json:"type"`
	OpeningBalance     decimal.Decimal `json:"opening_balance"`
	OpeningBalanceAt   time.Time       `json:"opening_balance_at"`
	CreditLine         decimal.Decimal `json:"credit_line"`
	Balance            decimal.Decimal `json:"balance"`
	AvailableBalance   decimal.Decimal `json:"available_balance"`
	FormattedAvailable string          `json:"formatted_available"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:                 a.ID,
		Description:        a.Description,
		CustomerID:         a.CustomerID,
		Type:               string(a.Type()),
		OpeningBalance:     a.OpeningBalance,
		OpeningBalanceAt:   a.OpeningBalanceAt,
		CreditLine:         a.CreditLine,
		Balance:            a.CurrentBalance,
		AvailableBalance:   a.Available(),
		FormattedAvailable: presentation.FormatEUR(a.Available()),
	}
}

// PortfolioResponse lists the accounts of a customer.
type PortfolioResponse struct {
	CustomerID            string             `json:"customer_id"`
	Accounts              []*AccountResponse `json:"accounts"`
	TotalAccounts         int                `json:"total_accounts"`
	TotalBalance          decimal.Decimal    `json:"total_balance"`
	FormattedTotalBalance string             `json:"formatted_total_balance"`
}

// PortfolioFromDomain converts a domain portfolio to response.
func PortfolioFromDomain(p *domain.Portfolio) *PortfolioResponse {
	accounts := make([]*AccountResponse, len(p.Accounts))
	for i := range p.Accounts {
		accounts[i] = AccountFromDomain(&p.Accounts[i])
	}

	return &PortfolioResponse{
		CustomerID:            p.CustomerID,
		Accounts:              accounts,
		TotalAccounts:         p.Count(),
		TotalBalance:          p.TotalBalance,
		FormattedTotalBalance: presentation.FormatEUR(p.TotalBalance),
	}
}

// ToPortfolio converts the response back into a renderable portfolio.
func (r *PortfolioResponse) ToPortfolio() *domain.Portfolio {
	accounts := make([]domain.Account, len(r.Accounts))
	for i, a := range r.Accounts {
		accounts[i] = domain.Account{
			ID:               a.ID,
			Description:      a.Description,
			CustomerID:       a.CustomerID,
			OpeningBalance:   a.OpeningBalance,
			OpeningBalanceAt: a.OpeningBalanceAt,
			CreditLine:       a.CreditLine,
			CurrentBalance:   a.Balance,
		}
	}

	return &domain.Portfolio{
		CustomerID:   r.CustomerID,
		Accounts:     accounts,
		TotalBalance: r.TotalBalance,
	}
}

// MovementResponse represents a movement in API responses.
type MovementResponse struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	Timestamp      time.Time       `json:"timestamp"`
}

// MovementFromDomain converts domain movement to response.
func MovementFromDomain(m *domain.Movement) *MovementResponse {
	return &MovementResponse{
		ID:             m.ID,
		AccountID:      m.AccountID,
		Kind:           m.Kind.String(),
		Amount:         m.Amount,
		RunningBalance: m.RunningBalance,
		Timestamp:      m.Timestamp,
	}
}

// LedgerRowResponse is one displayed ledger row.
type LedgerRowResponse struct {
	MovementID       string          `json:"movement_id"`
	Timestamp        time.Time       `json:"timestamp"`
	Kind             string          `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	RunningBalance   decimal.Decimal `json:"running_balance"`
	FormattedAmount  string          `json:"formatted_amount"`
	FormattedBalance string          `json:"formatted_balance"`
	Deletable        bool            `json:"deletable"`
}

// LedgerResponse represents an account ledger view.
type LedgerResponse struct {
	AccountID      string              `json:"account_id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	AccountType    string              `json:"account_type"`
	Rows           []LedgerRowResponse `json:"rows"`
	MovementCount  int                 `json:"movement_count"`
	OpeningBalance decimal.Decimal     `json:"opening_balance"`
	Balance        decimal.Decimal     `json:"balance"`
	CreditLine     decimal.Decimal     `json:"credit_line"`
	Total          decimal.Decimal     `json:"total"`
	FormattedTotal string              `json:"formatted_total"`
	LastMovementID string              `json:"last_movement_id,omitempty"`
}

// LedgerFromView converts a ledger view to response.
func LedgerFromView(v presentation.LedgerView) *LedgerResponse {
	rows := make([]LedgerRowResponse, len(v.Rows))
	for i, row := range v.Rows {
		rows[i] = LedgerRowResponse{
			MovementID:       row.MovementID,
			Timestamp:        row.Timestamp,
			Kind:             row.Kind.String(),
			Amount:           row.Amount,
			RunningBalance:   row.RunningBalance,
			FormattedAmount:  presentation.FormatEUR(row.SignedAmount()),
			FormattedBalance: presentation.FormatEUR(row.RunningBalance),
			Deletable:        row.Deletable,
		}
	}

	last, _ := v.LastMovementID()
	return &LedgerResponse{
		AccountID:      v.AccountID,
		Title:          v.Title(),
		Description:    v.Description,
		AccountType:    string(v.AccountType),
		Rows:           rows,
		MovementCount:  v.MovementCount,
		OpeningBalance: v.OpeningBalance,
		Balance:        v.Balance,
		CreditLine:     v.CreditLine,
		Total:          v.Total,
		FormattedTotal: presentation.FormatEUR(v.Total),
		LastMovementID: last,
	}
}

// ReconciliationResponse represents a reconciliation result.
type ReconciliationResponse struct {
	AccountID         string          `json:"account_id"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	Corrected         bool            `json:"corrected"`
	CheckedAt         time.Time       `json:"checked_at"`
}

// ReconciliationFromResult converts a reconciliation result to response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:         r.AccountID,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		Difference:        r.Difference,
		Corrected:         r.Corrected,
		CheckedAt:         r.CheckedAt,
	}
}

// SessionResponse describes the account selected by a session.
type SessionResponse struct {
	SessionID string           `json:"session_id"`
	Account   *AccountResponse `json:"account,omitempty"`
	AccountID string           `json:"account_id"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message,omitempty"`
	Outcome   string            `json:"outcome,omitempty"`
	Retryable bool              `json:"retryable"`
	Movement  *MovementResponse `json:"movement,omitempty"`
}

// ErrorFromResult converts a classified operation result to response.
func ErrorFromResult(res usecase.LedgerOperationResult) *ErrorResponse {
	resp := &ErrorResponse{
		Error:     res.Message,
		Outcome:   string(res.Outcome),
		Retryable: res.Retryable,
	}
	if res.Err != nil {
		resp.Message = res.Err.Error()
	}
	return resp
}

// ToView converts the response back into a renderable ledger view.
func (r *LedgerResponse) ToView() presentation.LedgerView {
	rows := make([]presentation.Row, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = presentation.Row{
			Timestamp:      row.Timestamp,
			MovementID:     row.MovementID,
			Kind:           domain.MovementKind(row.Kind),
			Amount:         row.Amount,
			RunningBalance: row.RunningBalance,
			Deletable:      row.Deletable,
		}
	}

	return presentation.LedgerView{
		AccountID:      r.AccountID,
		Description:    r.Description,
		AccountType:    domain.AccountType(r.AccountType),
		Rows:           rows,
		MovementCount:  r.MovementCount,
		OpeningBalance: r.OpeningBalance,
		Balance:        r.Balance,
		CreditLine:     r.CreditLine,
		Total:          r.Total,
	}
}
