package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
)

// SessionHeader identifies the client session.
const SessionHeader = dto.SessionHeader

// SessionService defines the behavior needed by SessionHandler.
type SessionService interface {
	Select(ctx context.Context, sessionID, accountID string) (*domain.Account, error)
	Selected(ctx context.Context, sessionID string) (string, error)
	Clear(ctx context.Context, sessionID string) error
}

// SessionHandler handles requests scoped to the account a session selected.
type SessionHandler struct {
	sessions SessionService
	ledger   *LedgerHandler
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionService, ledger *LedgerHandler) *SessionHandler {
	return &SessionHandler{sessions: sessions, ledger: ledger}
}

// SelectAccount remembers the account for the session.
func (h *SessionHandler) SelectAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	account, err := h.sessions.Select(r.Context(), sessionID, req.AccountID)
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionResponse{
		SessionID: sessionID,
		AccountID: account.ID,
		Account:   dto.AccountFromDomain(account),
	})
}

// GetAccount returns the account selected by the session.
func (h *SessionHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionHeader)
	accountID, ok := h.selected(w, r)
	if !ok {
		return
	}

	ledger, err := h.ledger.ledgerUC.LoadLedger(r.Context(), accountID)
	if err != nil {
		writeOperationError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionResponse{
		SessionID: sessionID,
		AccountID: accountID,
		Account:   dto.AccountFromDomain(ledger.Account),
	})
}

// ClearAccount forgets the session's selection.
func (h *SessionHandler) ClearAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context(), r.Header.Get(SessionHeader)); err != nil {
		writeOperationError(w, err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Ledger returns the ledger of the selected account.
func (h *SessionHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	if accountID, ok := h.selected(w, r); ok {
		h.ledger.getLedger(w, r, accountID)
	}
}

// CreateMovement records a movement on the selected account.
func (h *SessionHandler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	if accountID, ok := h.selected(w, r); ok {
		h.ledger.createMovement(w, r, accountID)
	}
}

// DeleteMovement deletes the last movement of the selected account.
func (h *SessionHandler) DeleteMovement(w http.ResponseWriter, r *http.Request) {
	if accountID, ok := h.selected(w, r); ok {
		h.ledger.deleteMovement(w, r, accountID, chi.URLParam(r, "movementId"))
	}
}

func (h *SessionHandler) selected(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID, err := h.sessions.Selected(r.Context(), r.Header.Get(SessionHeader))
	if err != nil {
		writeOperationError(w, err, nil)
		return "", false
	}
	return accountID, true
}
