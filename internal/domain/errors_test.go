package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestReconciliationError(t *testing.T) {
	cause := fmt.Errorf("put account: %w", ErrUpstreamUnavailable)
	err := fmt.Errorf("create movement: %w", &ReconciliationError{
		AccountID:  "1",
		MovementID: "7",
		Expected:   dec("150"),
		Cause:      cause,
	})

	if !errors.Is(err, ErrReconciliation) {
		t.Fatal("expected errors.Is(err, ErrReconciliation)")
	}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatal("expected cause to be unwrapped")
	}

	var recErr *ReconciliationError
	if !errors.As(err, &recErr) || recErr.MovementID != "7" {
		t.Fatalf("expected ReconciliationError, got %v", err)
	}

	if IsRetryable(err) {
		t.Fatal("reconciliation failures must not be retryable by resubmission")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrUpstreamUnavailable, true},
		{fmt.Errorf("get account: %w", ErrTimeout), true},
		{ErrLedgerBusy, true},
		{ErrInsufficientFunds, false},
		{ErrInvalidAmount, false},
		{ErrNotLastMovement, false},
		{errors.New("boom"), false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
