package domain

import "time"

// Event types
const (
	EventTypeMovementCreated      = "movement.created"
	EventTypeMovementDeleted      = "movement.deleted"
	EventTypeBalanceReconciled    = "account.balance_reconciled"
	EventTypeReconciliationFailed = "account.reconciliation_failed"
	EventTypeAccountOpened        = "account.opened"
	EventTypeAccountClosed        = "account.closed"
)

// LedgerEvent describes a completed ledger mutation.
type LedgerEvent struct {
	OccurredAt time.Time `json:"occurred_at"`
	Type       string    `json:"type"`
	AccountID  string    `json:"account_id"`
	MovementID string    `json:"movement_id,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	Balance    string    `json:"balance"`
	Error      string    `json:"error,omitempty"`
}
