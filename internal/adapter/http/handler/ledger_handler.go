package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/presentation"
	"github.com/iho/bankledger/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	LoadLedger(ctx context.Context, accountID string) (*domain.Ledger, error)
	CreateMovement(ctx context.Context, input usecase.CreateMovementInput) (*domain.Movement, error)
	DeleteLastMovement(ctx context.Context, accountID, movementID string) error
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
}

// LedgerHandler handles account ledger requests.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// Get returns the ledger view of an account.
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.getLedger(w, r, chi.URLParam(r, "id"))
}

// CreateMovement records a movement on an account.
func (h *LedgerHandler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	h.createMovement(w, r, chi.URLParam(r, "id"))
}

// DeleteMovement deletes the last movement of an account.
func (h *LedgerHandler) DeleteMovement(w http.ResponseWriter, r *http.Request) {
	h.deleteMovement(w, r, chi.URLParam(r, "id"), chi.URLParam(r, "movementId"))
}

// Reconcile brings the stored account balance in line with its ledger.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledgerUC.ReconcileAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromResult(result))
}

func (h *LedgerHandler) getLedger(w http.ResponseWriter, r *http.Request, accountID string) {
	ledger, err := h.ledgerUC.LoadLedger(r.Context(), accountID)
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerFromView(presentation.NewLedgerView(ledger)))
}

func (h *LedgerHandler) createMovement(w http.ResponseWriter, r *http.Request, accountID string) {
	var req dto.CreateMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(accountID)
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}

	movement, err := h.ledgerUC.CreateMovement(r.Context(), input)
	if err != nil {
		writeOperationError(w, err, movement)
		return
	}

	w.Header().Set(dto.OutcomeHeader, string(usecase.OutcomeSuccess))
	writeJSON(w, http.StatusCreated, dto.MovementFromDomain(movement))
}

func (h *LedgerHandler) deleteMovement(w http.ResponseWriter, r *http.Request, accountID, movementID string) {
	if err := h.ledgerUC.DeleteLastMovement(r.Context(), accountID, movementID); err != nil {
		writeOperationError(w, err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
