package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	ListCustomerAccounts(ctx context.Context, customerID string) (*domain.Portfolio, error)
	OpenAccount(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error)
	CloseAccount(ctx context.Context, accountID string) error
}

// AccountHandler handles customer account requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// ListByCustomer returns the accounts of a customer with their total balance.
func (h *AccountHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.accountUC.ListCustomerAccounts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.PortfolioFromDomain(portfolio))
}

// Open creates an account.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}

	account, err := h.accountUC.OpenAccount(r.Context(), input)
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Close deletes an account that has no movements.
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.accountUC.CloseAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeOperationError(w, err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
