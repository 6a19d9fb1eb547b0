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

// LedgerConfig holds the dependencies of LedgerUseCase.
type LedgerConfig struct {
	Accounts    AccountStore
	Movements   MovementStore
	Retrier     Retrier
	Events      EventPublisher
	Recorder    Recorder
	Logger      zerolog.Logger
	Now         func() time.Time
	CallTimeout time.Duration
}

// LedgerUseCase is the only writer of movements and account balances.
type LedgerUseCase struct {
	accounts    AccountStore
	movements   MovementStore
	retrier     Retrier
	events      EventPublisher
	recorder    Recorder
	logger      zerolog.Logger
	now         func() time.Time
	callTimeout time.Duration
	guard       *accountGuard
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(cfg LedgerConfig) *LedgerUseCase {
	if cfg.Retrier == nil {
		cfg.Retrier = singleAttempt{}
	}
	if cfg.Events == nil {
		cfg.Events = discardEvents{}
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}

	return &LedgerUseCase{
		accounts:    cfg.Accounts,
		movements:   cfg.Movements,
		retrier:     cfg.Retrier,
		events:      cfg.Events,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger,
		now:         cfg.Now,
		callTimeout: cfg.CallTimeout,
		guard:       newAccountGuard(),
	}
}

// CreateMovementInput represents input for creating a movement.
type CreateMovementInput struct {
	AccountID string
	Kind      domain.MovementKind
	Amount    decimal.Decimal
}

// Validate checks the input without touching the network.
func (in CreateMovementInput) Validate() error {
	if err := domain.ValidateID("account", in.AccountID); err != nil {
		return err
	}
	if !in.Kind.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMovementKind, string(in.Kind))
	}
	return domain.ValidateAmount(in.Amount)
}

// LoadLedger fetches an account and its movements and accumulates them.
func (uc *LedgerUseCase) LoadLedger(ctx context.Context, accountID string) (*domain.Ledger, error) {
	if err := domain.ValidateID("account", accountID); err != nil {
		return nil, uc.reject(err)
	}
	return uc.load(ctx, accountID)
}

// CreateMovement validates, funds-checks and persists a movement, then
// brings the account balance in line with the new ledger tail.
func (uc *LedgerUseCase) CreateMovement(ctx context.Context, input CreateMovementInput) (*domain.Movement, error) {
	if err := input.Validate(); err != nil {
		return nil, uc.reject(err)
	}

	release, err := uc.guard.acquire(input.AccountID)
	if err != nil {
		return nil, uc.reject(err)
	}
	defer release()

	ledger, err := uc.load(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}

	previous := ledger.Balance
	if input.Kind == domain.MovementKindPayment {
		if err := domain.CheckPayment(previous, ledger.Account.CreditLine, input.Amount); err != nil {
			return nil, uc.reject(err)
		}
	}

	newBalance, err := domain.Apply(previous, input.Kind, input.Amount)
	if err != nil {
		return nil, uc.reject(err)
	}

	pending := domain.Movement{
		AccountID:      input.AccountID,
		Kind:           input.Kind,
		Amount:         input.Amount,
		Timestamp:      uc.now(),
		RunningBalance: newBalance,
	}

	var created *domain.Movement
	err = uc.call(ctx, "create_movement", func(ctx context.Context) error {
		var err error
		created, err = uc.movements.Create(ctx, input.AccountID, pending)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrTimeout) && !errors.Is(err, domain.ErrUpstreamUnavailable) {
			return nil, fmt.Errorf("create movement: %w", err)
		}
		// The write may have landed before the connection dropped.
		return uc.recoverCreate(context.WithoutCancel(ctx), pending, err)
	}
	created.RunningBalance = newBalance

	// The movement exists now; finish reconciliation even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	err = uc.call(ctx, "update_account", func(ctx context.Context) error {
		return uc.accounts.Update(ctx, ledger.Account.WithBalance(newBalance))
	})
	if err != nil {
		uc.logger.Warn().Err(err).
			Str("account_id", input.AccountID).
			Str("movement_id", created.ID).
			Msg("balance update failed after movement was persisted, reconciling")

		if _, recErr := uc.reconcile(ctx, input.AccountID); recErr != nil {
			return created, uc.reconciliationFailed(ctx, input.AccountID, created.ID, newBalance, recErr)
		}
	}

	uc.movementCreated(ctx, created)
	return created, nil
}

// recoverCreate settles a create whose outcome is unknown. The reloaded
// ledger decides: a missing movement leaves the original error retryable,
// a present one is reconciled and reported as created. When the ledger
// cannot be read the movement may exist, so resubmitting is not safe.
func (uc *LedgerUseCase) recoverCreate(ctx context.Context, pending domain.Movement, cause error) (*domain.Movement, error) {
	accountID := pending.AccountID

	var ledger *domain.Ledger
	err := uc.retrier.Retry(ctx, func() error {
		var err error
		ledger, err = uc.load(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, uc.reconciliationFailed(ctx, accountID, "", pending.RunningBalance,
			fmt.Errorf("create movement: %w; reload ledger: %w", cause, err))
	}

	found, ok := domain.FindPosted(ledger.Movements, pending)
	if !ok {
		return nil, fmt.Errorf("create movement: %w", cause)
	}
	created := &found

	uc.logger.Warn().Err(cause).
		Str("account_id", accountID).
		Str("movement_id", created.ID).
		Msg("movement was persisted despite a failed create call, reconciling")

	if !ledger.InSync() {
		if _, recErr := uc.reconcile(ctx, accountID); recErr != nil {
			return created, uc.reconciliationFailed(ctx, accountID, created.ID, ledger.Balance, recErr)
		}
	}

	uc.movementCreated(ctx, created)
	return created, nil
}

func (uc *LedgerUseCase) movementCreated(ctx context.Context, created *domain.Movement) {
	uc.recorder.MovementCreated(created.Kind)
	uc.publish(ctx, domain.LedgerEvent{
		Type:       domain.EventTypeMovementCreated,
		AccountID:  created.AccountID,
		MovementID: created.ID,
		Kind:       created.Kind.String(),
		Amount:     created.Amount.StringFixed(2),
		Balance:    created.RunningBalance.StringFixed(2),
	})

	uc.logger.Info().
		Str("account_id", created.AccountID).
		Str("movement_id", created.ID).
		Str("kind", created.Kind.String()).
		Str("amount", created.Amount.StringFixed(2)).
		Str("balance", created.RunningBalance.StringFixed(2)).
		Msg("movement created")
}

// DeleteLastMovement removes the chronologically last movement of an
// account and reconciles the account balance.
func (uc *LedgerUseCase) DeleteLastMovement(ctx context.Context, accountID, movementID string) error {
	if err := domain.ValidateID("account", accountID); err != nil {
		return uc.reject(err)
	}
	if err := domain.ValidateID("movement", movementID); err != nil {
		return uc.reject(err)
	}

	release, err := uc.guard.acquire(accountID)
	if err != nil {
		return uc.reject(err)
	}
	defer release()

	ledger, err := uc.load(ctx, accountID)
	if err != nil {
		return err
	}

	if _, ok := ledger.Find(movementID); !ok {
		return uc.reject(fmt.Errorf("%w: %s in account %s", domain.ErrMovementNotFound, movementID, accountID))
	}

	last, _ := ledger.Last()
	if last.ID != movementID {
		return uc.reject(fmt.Errorf("%w: last movement is %s", domain.ErrNotLastMovement, last.ID))
	}

	err = uc.call(ctx, "delete_movement", func(ctx context.Context) error {
		return uc.movements.Delete(ctx, movementID)
	})
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}

	ctx = context.WithoutCancel(ctx)

	expected := ledger.Account.OpeningBalance
	if n := len(ledger.Movements); n > 1 {
		expected = ledger.Movements[n-2].RunningBalance
	}

	if _, err := uc.reconcile(ctx, accountID); err != nil {
		return uc.reconciliationFailed(ctx, accountID, movementID, expected, err)
	}

	uc.recorder.MovementDeleted()
	uc.publish(ctx, domain.LedgerEvent{
		Type:       domain.EventTypeMovementDeleted,
		AccountID:  accountID,
		MovementID: movementID,
		Kind:       last.Kind.String(),
		Amount:     last.Amount.StringFixed(2),
		Balance:    expected.StringFixed(2),
	})

	uc.logger.Info().
		Str("account_id", accountID).
		Str("movement_id", movementID).
		Str("balance", expected.StringFixed(2)).
		Msg("movement deleted")

	return nil
}

func (uc *LedgerUseCase) load(ctx context.Context, accountID string) (*domain.Ledger, error) {
	var account *domain.Account
	err := uc.call(ctx, "get_account", func(ctx context.Context) error {
		var err error
		account, err = uc.accounts.GetByID(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", accountID, err)
	}

	var movements []domain.Movement
	err = uc.call(ctx, "list_movements", func(ctx context.Context) error {
		var err error
		movements, err = uc.movements.ListByAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load movements of %s: %w", accountID, err)
	}

	ledger, err := domain.NewLedger(account, movements)
	if err != nil {
		// Bad data from the store is not the caller's input error.
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamRejected, err)
	}
	return ledger, nil
}

// call runs fn under the per-call timeout and records its duration.
func (uc *LedgerUseCase) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := callWithTimeout(ctx, uc.callTimeout, fn)
	uc.recorder.UpstreamCall(operation, time.Since(start), err)

	if err != nil && errors.Is(err, domain.ErrTimeout) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return err
}

func (uc *LedgerUseCase) reject(err error) error {
	uc.recorder.OperationRejected(Classify(err))
	return err
}

func (uc *LedgerUseCase) reconciliationFailed(ctx context.Context, accountID, movementID string, expected decimal.Decimal, cause error) error {
	recErr := &domain.ReconciliationError{
		AccountID:  accountID,
		MovementID: movementID,
		Expected:   expected,
		Cause:      cause,
	}

	uc.recorder.Reconciliation("failed")
	uc.logger.Error().Err(cause).
		Str("account_id", accountID).
		Str("movement_id", movementID).
		Str("expected_balance", expected.StringFixed(2)).
		Msg("account balance diverged from ledger")

	uc.publish(ctx, domain.LedgerEvent{
		Type:       domain.EventTypeReconciliationFailed,
		AccountID:  accountID,
		MovementID: movementID,
		Balance:    expected.StringFixed(2),
		Error:      cause.Error(),
	})

	return recErr
}

func (uc *LedgerUseCase) publish(ctx context.Context, event domain.LedgerEvent) {
	event.OccurredAt = uc.now()
	if err := uc.events.Publish(ctx, event); err != nil {
		uc.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish ledger event")
	}
}

type singleAttempt struct{}

func (singleAttempt) Retry(_ context.Context, operation func() error) error {
	return operation()
}

type discardEvents struct{}

func (discardEvents) Publish(context.Context, domain.LedgerEvent) error { return nil }

type nopRecorder struct{}

func (nopRecorder) MovementCreated(domain.MovementKind)       {}
func (nopRecorder) MovementDeleted()                          {}
func (nopRecorder) OperationRejected(Outcome)                 {}
func (nopRecorder) Reconciliation(string)                     {}
func (nopRecorder) UpstreamCall(string, time.Duration, error) {}
