package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/bankledger/internal/domain"
)

// ErrNoAccountSelected is returned when a session has not selected an account.
var ErrNoAccountSelected = fmt.Errorf("%w: no account selected for this session", domain.ErrValidation)

// SessionUseCase scopes ledger operations to the account a client selected.
type SessionUseCase struct {
	selections SelectionStore
	accounts   AccountStore
	ttl        time.Duration
}

// NewSessionUseCase creates a new SessionUseCase.
func NewSessionUseCase(selections SelectionStore, accounts AccountStore, ttl time.Duration) *SessionUseCase {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionUseCase{
		selections: selections,
		accounts:   accounts,
		ttl:        ttl,
	}
}

// Select remembers accountID for the session after checking it exists.
func (uc *SessionUseCase) Select(ctx context.Context, sessionID, accountID string) (*domain.Account, error) {
	if err := domain.ValidateID("session", sessionID); err != nil {
		return nil, err
	}
	if err := domain.ValidateID("account", accountID); err != nil {
		return nil, err
	}

	getCtx, cancel := context.WithTimeout(ctx, DefaultCallTimeout)
	defer cancel()

	account, err := uc.accounts.GetByID(getCtx, accountID)
	if err != nil {
		return nil, err
	}

	if err := uc.selections.Set(ctx, sessionID, accountID, uc.ttl); err != nil {
		return nil, fmt.Errorf("remember selected account: %w", err)
	}

	return account, nil
}

// Selected returns the account ID selected by the session.
func (uc *SessionUseCase) Selected(ctx context.Context, sessionID string) (string, error) {
	if err := domain.ValidateID("session", sessionID); err != nil {
		return "", err
	}
	return uc.selections.Get(ctx, sessionID)
}

// Clear forgets the session's selection.
func (uc *SessionUseCase) Clear(ctx context.Context, sessionID string) error {
	if err := domain.ValidateID("session", sessionID); err != nil {
		return err
	}
	return uc.selections.Clear(ctx, sessionID)
}
