package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// CreateMovementRequest represents a request to record a movement.
// Amount accepts either a JSON number or a numeric string.
type CreateMovementRequest struct {
	Amount json.Number `json:"amount"`
	Kind   string      `json:"kind"`
}

// ToUseCaseInput parses the request for accountID.
func (r *CreateMovementRequest) ToUseCaseInput(accountID string) (usecase.CreateMovementInput, error) {
	kind, err := domain.ParseMovementKind(r.Kind)
	if err != nil {
		return usecase.CreateMovementInput{}, err
	}

	amount, err := domain.ParseAmount(r.Amount.String())
	if err != nil {
		return usecase.CreateMovementInput{}, err
	}

	return usecase.CreateMovementInput{
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
	}, nil
}

// OpenAccountRequest represents a request to open an account for a customer.
type OpenAccountRequest struct {
	CustomerID     string      `json:"customer_id"`
	Description    string      `json:"description"`
	Type           string      `json:"type"`
	OpeningBalance json.Number `json:"opening_balance"`
	CreditLine     json.Number `json:"credit_line"`
}

// ToUseCaseInput parses the request. Missing amounts count as zero.
func (r *OpenAccountRequest) ToUseCaseInput() (usecase.OpenAccountInput, error) {
	accountType, err := domain.ParseAccountType(r.Type)
	if err != nil {
		return usecase.OpenAccountInput{}, err
	}

	opening, err := parseOptionalBalance(r.OpeningBalance)
	if err != nil {
		return usecase.OpenAccountInput{}, err
	}
	creditLine, err := parseOptionalBalance(r.CreditLine)
	if err != nil {
		return usecase.OpenAccountInput{}, err
	}

	return usecase.OpenAccountInput{
		CustomerID:     r.CustomerID,
		Description:    r.Description,
		Type:           accountType,
		OpeningBalance: opening,
		CreditLine:     creditLine,
	}, nil
}

func parseOptionalBalance(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return domain.ParseBalance(n.String())
}

// SelectAccountRequest represents a request to select the session account.
type SelectAccountRequest struct {
	AccountID string `json:"account_id"`
}
