package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind is the direction of a movement.
type MovementKind string

// Movement kinds.
const (
	MovementKindDeposit MovementKind = "Deposit"
	MovementKindPayment MovementKind = "Payment"
)

// ParseMovementKind converts user or wire input into a MovementKind.
// Matching is case-insensitive; unknown kinds are rejected.
func ParseMovementKind(s string) (MovementKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return MovementKindDeposit, nil
	case "payment":
		return MovementKindPayment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMovementKind, s)
	}
}

// IsValid reports whether k is a recognized kind.
func (k MovementKind) IsValid() bool {
	return k == MovementKindDeposit || k == MovementKindPayment
}

func (k MovementKind) String() string {
	return string(k)
}

// Movement is a single ledger entry of an account.
type Movement struct {
	Timestamp      time.Time
	ID             string
	AccountID      string
	Kind           MovementKind
	Amount         decimal.Decimal
	RunningBalance decimal.Decimal
}

// SortMovements orders movements by timestamp, breaking ties by ID.
func SortMovements(movements []Movement) {
	slices.SortStableFunc(movements, compareMovements)
}

func compareMovements(a, b Movement) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

// compareIDs compares numerically when both IDs are integers, lexically otherwise.
func compareIDs(a, b string) int {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// FindPosted returns the newest movement matching what a client posted.
// Timestamps are compared at millisecond precision, the resolution the
// collaborator stores.
func FindPosted(movements []Movement, posted Movement) (Movement, bool) {
	sorted := slices.Clone(movements)
	SortMovements(sorted)
	for i := len(sorted) - 1; i >= 0; i-- {
		m := sorted[i]
		if m.Kind == posted.Kind && m.Amount.Equal(posted.Amount) &&
			m.Timestamp.Truncate(time.Millisecond).Equal(posted.Timestamp.Truncate(time.Millisecond)) {
			return m, true
		}
	}
	return Movement{}, false
}
