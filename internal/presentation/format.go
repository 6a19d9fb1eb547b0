package presentation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatEUR renders an amount the way a German locale shows euros,
// e.g. "1.234,56 €" and "-30,00 €".
func FormatEUR(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	// -0.001 rounds to "-0.00"
	if strings.Trim(fixed, "0.") == "" {
		sign = ""
	}

	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + groupThousands(whole) + "," + frac + " €"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
