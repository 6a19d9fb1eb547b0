package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Accumulate returns a sorted copy of movements with running balances
// folded from opening. The input slice is left untouched. A movement of an
// unknown kind fails the whole fold.
func Accumulate(movements []Movement, opening decimal.Decimal) ([]Movement, error) {
	out := make([]Movement, len(movements))
	copy(out, movements)
	SortMovements(out)

	running := opening
	for i := range out {
		next, err := Apply(running, out[i].Kind, out[i].Amount)
		if err != nil {
			return nil, fmt.Errorf("movement %s: %w", out[i].ID, err)
		}
		running = next
		out[i].RunningBalance = running
	}

	return out, nil
}

// TailBalance returns the running balance of the last accumulated movement,
// or opening when there are none.
func TailBalance(accumulated []Movement, opening decimal.Decimal) decimal.Decimal {
	if len(accumulated) == 0 {
		return opening
	}
	return accumulated[len(accumulated)-1].RunningBalance
}

// AvailableBalance returns the ceiling for payments. It must never be
// stored as the account balance.
func AvailableBalance(current, creditLine decimal.Decimal) decimal.Decimal {
	if creditLine.IsPositive() {
		return current.Add(creditLine)
	}
	return current
}

// CanApplyPayment reports whether amount fits in the available balance.
func CanApplyPayment(previous, creditLine, amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(AvailableBalance(previous, creditLine))
}

// CheckPayment returns ErrInsufficientFunds when the payment does not fit.
func CheckPayment(previous, creditLine, amount decimal.Decimal) error {
	if !CanApplyPayment(previous, creditLine, amount) {
		return fmt.Errorf("%w: payment %s exceeds available %s",
			ErrInsufficientFunds, amount.StringFixed(2), AvailableBalance(previous, creditLine).StringFixed(2))
	}
	return nil
}

// Apply folds a single movement onto previous.
func Apply(previous decimal.Decimal, kind MovementKind, amount decimal.Decimal) (decimal.Decimal, error) {
	switch kind {
	case MovementKindDeposit:
		return previous.Add(amount), nil
	case MovementKindPayment:
		return previous.Sub(amount), nil
	default:
		return previous, fmt.Errorf("%w: %q", ErrUnknownMovementKind, string(kind))
	}
}
