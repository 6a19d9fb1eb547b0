package usecase

import (
	"context"
	"time"

	"github.com/iho/bankledger/internal/domain"
)

// AccountStore defines access to account snapshots held by the persistence collaborator.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// Update replaces the stored snapshot with account.
	Update(ctx context.Context, account *domain.Account) error
}

// MovementStore defines access to the movements of an account.
type MovementStore interface {
	ListByAccount(ctx context.Context, accountID string) ([]domain.Movement, error)
	// Create appends movement to the account and returns it with its assigned ID.
	Create(ctx context.Context, accountID string, movement domain.Movement) (*domain.Movement, error)
	Delete(ctx context.Context, id string) error
}

// AccountDirectory lists, opens and closes the accounts of customers.
type AccountDirectory interface {
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	// DeleteAccount returns ErrAccountHasMovements while the account has a ledger.
	DeleteAccount(ctx context.Context, id string) error
}

// SelectionStore keeps the account selected by a client session.
type SelectionStore interface {
	// Get returns ErrNoAccountSelected when the session has no selection.
	Get(ctx context.Context, sessionID string) (string, error)
	Set(ctx context.Context, sessionID, accountID string, ttl time.Duration) error
	Clear(ctx context.Context, sessionID string) error
}

// EventPublisher receives completed ledger events.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

// Retrier repeats an operation while it fails with a retryable error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Recorder collects ledger metrics.
type Recorder interface {
	MovementCreated(kind domain.MovementKind)
	MovementDeleted()
	OperationRejected(outcome Outcome)
	Reconciliation(result string)
	UpstreamCall(operation string, duration time.Duration, err error)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release forgets a key whose request did not complete successfully.
	Release(ctx context.Context, key string) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}
