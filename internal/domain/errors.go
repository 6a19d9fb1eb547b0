package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation is the parent of every input validation error.
	ErrValidation = errors.New("validation failed")

	ErrInvalidAmount       = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrUnknownMovementKind = fmt.Errorf("%w: unknown movement kind", ErrValidation)
	ErrInvalidID           = fmt.Errorf("%w: invalid identifier", ErrValidation)
	ErrInvalidAccount      = fmt.Errorf("%w: invalid account", ErrValidation)

	// Ledger rule errors
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotLastMovement   = errors.New("only the last movement of an account can be deleted")
	ErrLedgerBusy        = errors.New("another ledger operation is in progress for this account")

	// ErrAccountHasMovements blocks closing an account with a ledger.
	ErrAccountHasMovements = errors.New("account still has movements")

	// Lookup errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrMovementNotFound = errors.New("movement not found")

	// Collaborator errors
	ErrUpstreamUnavailable = errors.New("persistence service unavailable")
	ErrUpstreamRejected    = errors.New("persistence service rejected the request")
	ErrTimeout             = errors.New("persistence service call timed out")

	// ErrReconciliation is matched by every *ReconciliationError.
	ErrReconciliation = errors.New("account balance reconciliation failed")
)

// ReconciliationError reports that a ledger mutation was persisted but the
// account balance could not be brought in line with the ledger tail.
// Resubmitting the original operation would apply it twice.
type ReconciliationError struct {
	AccountID  string
	MovementID string
	Expected   decimal.Decimal
	Cause      error
}

func (e *ReconciliationError) Error() string {
	if e.MovementID == "" {
		return fmt.Sprintf("account %s: outcome of movement creation unknown, reconcile before resubmitting: %v",
			e.AccountID, e.Cause)
	}
	return fmt.Sprintf("account %s: balance should be %s after movement %s: %v",
		e.AccountID, e.Expected.StringFixed(2), e.MovementID, e.Cause)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Cause
}

// Is matches ErrReconciliation.
func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliation
}

// IsRetryable reports whether simply repeating the call may succeed.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrReconciliation) {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrLedgerBusy)
}
