package usecase

import "time"

const (
	// DefaultCallTimeout bounds every call to the persistence collaborator.
	// An unbounded call would freeze the ledger workflow.
	DefaultCallTimeout = 5 * time.Second

	// DefaultSessionTTL is how long a selected account is remembered.
	DefaultSessionTTL = 12 * time.Hour

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
