package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// ReconciliationResult represents the result of a reconciliation
type ReconciliationResult struct {
	AccountID         string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	Corrected         bool
	CheckedAt         time.Time
}

// ReconcileAccount recomputes the ledger tail of an account and stores it
// as the account balance when the two differ. It is the recovery path after
// a ReconciliationError.
func (uc *LedgerUseCase) ReconcileAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	if err := domain.ValidateID("account", accountID); err != nil {
		return nil, uc.reject(err)
	}

	release, err := uc.guard.acquire(accountID)
	if err != nil {
		return nil, uc.reject(err)
	}
	defer release()

	result, err := uc.reconcile(ctx, accountID)
	if err != nil {
		uc.recorder.Reconciliation("failed")
		return nil, fmt.Errorf("reconcile account %s: %w", accountID, err)
	}

	return result, nil
}

// reconcile must be called with the account guard held.
func (uc *LedgerUseCase) reconcile(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	var result *ReconciliationResult

	err := uc.retrier.Retry(ctx, func() error {
		ledger, err := uc.load(ctx, accountID)
		if err != nil {
			return err
		}

		result = &ReconciliationResult{
			AccountID:         accountID,
			RecordedBalance:   ledger.Account.CurrentBalance,
			CalculatedBalance: ledger.Balance,
			Difference:        ledger.Account.CurrentBalance.Sub(ledger.Balance),
			CheckedAt:         uc.now(),
		}

		if ledger.InSync() {
			return nil
		}

		err = uc.call(ctx, "update_account", func(ctx context.Context) error {
			return uc.accounts.Update(ctx, ledger.Account.WithBalance(ledger.Balance))
		})
		if err != nil {
			return err
		}

		result.Corrected = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Corrected {
		uc.recorder.Reconciliation("corrected")
		uc.publish(ctx, domain.LedgerEvent{
			Type:      domain.EventTypeBalanceReconciled,
			AccountID: accountID,
			Balance:   result.CalculatedBalance.StringFixed(2),
		})
		uc.logger.Info().
			Str("account_id", accountID).
			Str("recorded", result.RecordedBalance.StringFixed(2)).
			Str("calculated", result.CalculatedBalance.StringFixed(2)).
			Msg("account balance reconciled")
	} else {
		uc.recorder.Reconciliation("in_sync")
	}

	return result, nil
}
