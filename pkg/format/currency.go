// Package format renders monetary values for display.
package format

import (
	"strings"

	"github.com/iwvelando/taxsim/pkg/mathutil"
)

// CurrencySymbol prefixes displayed amounts.
const CurrencySymbol = "R$"

// Currency returns an amount in Brazilian notation with the currency symbol,
// e.g. "R$ 1.234,56" or "-R$ 1.234,56".
func Currency(amount float64) string {
	formatted := NumericCurrency(amount)
	if strings.HasPrefix(formatted, "-") {
		return "-" + CurrencySymbol + " " + formatted[1:]
	}
	return CurrencySymbol + " " + formatted
}

// NumericCurrency returns an amount in Brazilian notation without the
// currency symbol, e.g. "13.007,78".
func NumericCurrency(amount float64) string {
	fixed := mathutil.DisplayString(amount)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	if strings.Trim(fixed, "0.") == "" {
		sign = ""
	}

	parts := strings.SplitN(fixed, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte('.')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return sign + intPart + "," + decPart
}
