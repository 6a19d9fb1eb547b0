package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxMovementAmount = "1000000000" // 1 billion
	MinMovementAmount = "0.01"
	AmountScale       = 2
	MaxIDLength       = 64
)

var (
	minAmount = decimal.RequireFromString(MinMovementAmount)
	maxAmount = decimal.RequireFromString(MaxMovementAmount)
)

// ParseAmount parses user input such as "150", "150.5" or "150,50".
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	return amount, ValidateAmount(amount)
}

// ParseBalance parses an opening balance or credit line. Zero is allowed.
func ParseBalance(s string) (decimal.Decimal, error) {
	balance, err := parseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	return balance, ValidateBalance(balance)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}

	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return amount, nil
}

// ValidateBalance checks a non-negative account figure.
func ValidateBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidAmount, balance.String())
	}
	if balance.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxMovementAmount)
	}
	if !balance.Equal(balance.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places allowed", ErrInvalidAmount, AmountScale)
	}
	return nil
}

// ValidateAmount validates a movement amount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrInvalidAmount, MinMovementAmount)
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxMovementAmount)
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places allowed", ErrInvalidAmount, AmountScale)
	}

	return nil
}

// ValidateID validates an account or movement identifier.
func ValidateID(kind, id string) error {
	id = strings.TrimSpace(id)

	if id == "" {
		return fmt.Errorf("%w: %s id is required", ErrInvalidID, kind)
	}

	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: %s id exceeds %d characters", ErrInvalidID, kind, MaxIDLength)
	}

	if strings.ContainsAny(id, "/?#% ") {
		return fmt.Errorf("%w: %s id contains forbidden characters", ErrInvalidID, kind)
	}

	return nil
}
