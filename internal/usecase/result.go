package usecase

import (
	"errors"

	"github.com/iho/bankledger/internal/domain"
)

// Outcome classifies the result of a ledger operation.
type Outcome string

// Outcomes
const (
	OutcomeSuccess               Outcome = "success"
	OutcomeValidationError       Outcome = "validation_error"
	OutcomeInsufficientFunds     Outcome = "insufficient_funds"
	OutcomeNotLastMovement       Outcome = "not_last_movement"
	OutcomeAccountNotEmpty       Outcome = "account_not_empty"
	OutcomeNotFound              Outcome = "not_found"
	OutcomeBusy                  Outcome = "busy"
	OutcomeUpstreamUnavailable   Outcome = "upstream_unavailable"
	OutcomeUpstreamRejected      Outcome = "upstream_rejected"
	OutcomeTimeout               Outcome = "timeout"
	OutcomeReconciliationFailure Outcome = "reconciliation_failure"
	OutcomeUnclassified          Outcome = "unclassified"
)

var outcomeMessages = map[Outcome]string{
	OutcomeSuccess:               "The operation completed successfully.",
	OutcomeValidationError:       "The movement data is invalid. Check the amount and the movement type.",
	OutcomeInsufficientFunds:     "Insufficient funds, taking the credit line into account.",
	OutcomeNotLastMovement:       "Only the most recent movement of the account can be deleted.",
	OutcomeAccountNotEmpty:       "The account still has movements and cannot be closed.",
	OutcomeNotFound:              "The requested account or movement does not exist.",
	OutcomeBusy:                  "Another operation on this account is still running. Try again when it finishes.",
	OutcomeUpstreamUnavailable:   "The banking service is unavailable. Nothing was changed; try again later.",
	OutcomeUpstreamRejected:      "The banking service refused the request.",
	OutcomeTimeout:               "The banking service did not answer in time. Try again later.",
	OutcomeReconciliationFailure: "The movement was recorded but the account balance could not be updated. Run a reconciliation instead of repeating the operation.",
	OutcomeUnclassified:          "An unexpected error occurred.",
}

// Message returns the human-readable text for the outcome.
func (o Outcome) Message() string {
	return outcomeMessages[o]
}

// LedgerOperationResult is the typed result handed to presentation code.
type LedgerOperationResult struct {
	Err       error
	Outcome   Outcome
	Message   string
	Retryable bool
}

// OK reports whether the operation succeeded.
func (r LedgerOperationResult) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// ResultOf classifies err.
func ResultOf(err error) LedgerOperationResult {
	outcome := Classify(err)
	return LedgerOperationResult{
		Err:       err,
		Outcome:   outcome,
		Message:   outcome.Message(),
		Retryable: err != nil && domain.IsRetryable(err),
	}
}

// Classify maps an error to its outcome. Order matters: a reconciliation
// failure wraps the upstream error that caused it.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrReconciliation):
		return OutcomeReconciliationFailure
	case errors.Is(err, domain.ErrValidation):
		return OutcomeValidationError
	case errors.Is(err, domain.ErrInsufficientFunds):
		return OutcomeInsufficientFunds
	case errors.Is(err, domain.ErrNotLastMovement):
		return OutcomeNotLastMovement
	case errors.Is(err, domain.ErrAccountHasMovements):
		return OutcomeAccountNotEmpty
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrMovementNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrLedgerBusy):
		return OutcomeBusy
	case errors.Is(err, domain.ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return OutcomeUpstreamUnavailable
	case errors.Is(err, domain.ErrUpstreamRejected):
		return OutcomeUpstreamRejected
	default:
		return OutcomeUnclassified
	}
}
