package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountConfig holds the dependencies of AccountUseCase.
type AccountConfig struct {
	Directory   AccountDirectory
	Movements   MovementStore
	IDGen       IDGenerator
	Events      EventPublisher
	Logger      zerolog.Logger
	Now         func() time.Time
	CallTimeout time.Duration
}

// AccountUseCase handles the accounts of a customer.
type AccountUseCase struct {
	directory   AccountDirectory
	movements   MovementStore
	idGen       IDGenerator
	events      EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
	callTimeout time.Duration
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(cfg AccountConfig) *AccountUseCase {
	if cfg.Events == nil {
		cfg.Events = discardEvents{}
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}

	return &AccountUseCase{
		directory:   cfg.Directory,
		movements:   cfg.Movements,
		idGen:       cfg.IDGen,
		events:      cfg.Events,
		logger:      cfg.Logger,
		now:         cfg.Now,
		callTimeout: cfg.CallTimeout,
	}
}

// OpenAccountInput represents input for opening an account.
type OpenAccountInput struct {
	CustomerID     string
	Description    string
	Type           domain.AccountType
	OpeningBalance decimal.Decimal
	CreditLine     decimal.Decimal
}

// ListCustomerAccounts returns the accounts of a customer with their total balance.
func (uc *AccountUseCase) ListCustomerAccounts(ctx context.Context, customerID string) (*domain.Portfolio, error) {
	if err := domain.ValidateID("customer", customerID); err != nil {
		return nil, err
	}

	var accounts []domain.Account
	err := callWithTimeout(ctx, uc.callTimeout, func(ctx context.Context) error {
		var err error
		accounts, err = uc.directory.ListByCustomer(ctx, customerID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts of customer %s: %w", customerID, err)
	}

	return domain.NewPortfolio(customerID, accounts), nil
}

// OpenAccount creates an account whose balance starts at the opening balance.
func (uc *AccountUseCase) OpenAccount(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	account, err := domain.OpenAccount(
		uc.idGen.Generate(),
		input.CustomerID,
		input.Description,
		input.Type,
		input.OpeningBalance,
		input.CreditLine,
		uc.now(),
	)
	if err != nil {
		return nil, err
	}

	var created *domain.Account
	err = callWithTimeout(ctx, uc.callTimeout, func(ctx context.Context) error {
		var err error
		created, err = uc.directory.CreateAccount(ctx, account)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open account: %w", err)
	}

	uc.publish(ctx, domain.LedgerEvent{
		Type:      domain.EventTypeAccountOpened,
		AccountID: created.ID,
		Balance:   created.CurrentBalance.StringFixed(2),
	})
	uc.logger.Info().
		Str("account_id", created.ID).
		Str("customer_id", created.CustomerID).
		Str("type", string(created.Type())).
		Msg("account opened")

	return created, nil
}

// CloseAccount deletes an account that has no movements.
func (uc *AccountUseCase) CloseAccount(ctx context.Context, accountID string) error {
	if err := domain.ValidateID("account", accountID); err != nil {
		return err
	}

	var movements []domain.Movement
	err := callWithTimeout(ctx, uc.callTimeout, func(ctx context.Context) error {
		var err error
		movements, err = uc.movements.ListByAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return fmt.Errorf("close account %s: %w", accountID, err)
	}
	if len(movements) > 0 {
		return fmt.Errorf("close account %s: %w (%d)", accountID, domain.ErrAccountHasMovements, len(movements))
	}

	err = callWithTimeout(ctx, uc.callTimeout, func(ctx context.Context) error {
		return uc.directory.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return fmt.Errorf("close account %s: %w", accountID, err)
	}

	uc.publish(ctx, domain.LedgerEvent{Type: domain.EventTypeAccountClosed, AccountID: accountID})
	uc.logger.Info().Str("account_id", accountID).Msg("account closed")

	return nil
}

func (uc *AccountUseCase) publish(ctx context.Context, event domain.LedgerEvent) {
	event.OccurredAt = uc.now()
	if err := uc.events.Publish(ctx, event); err != nil {
		uc.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish account event")
	}
}

// callWithTimeout runs fn under timeout and reports deadline expiry as ErrTimeout.
func callWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && !errors.Is(err, domain.ErrTimeout) && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: after %s: %w", domain.ErrTimeout, timeout, err)
	}
	return err
}
