package utils

import (
	"strings"

	"lendledger/domain/entities"
)

// DisplayDecimals is the number of fractional digits shown for token amounts
const DisplayDecimals = 6

// FormatThousands inserts comma separators into a plain integer string
func FormatThousands(digits string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	n := len(digits)
	if n <= 3 {
		return sign + digits
	}

	var result strings.Builder
	result.WriteString(sign)
	for i, digit := range digits {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	return result.String()
}

// FormatAmount renders whole-token units with thousand separators, truncated to
// DisplayDecimals fractional digits
func FormatAmount(a entities.Amount) string {
	s := a.ToDisplayString(DisplayDecimals)
	whole, frac, hasFrac := strings.Cut(s, ".")
	out := FormatThousands(whole)
	if hasFrac {
		out += "." + frac
	}
	return out
}

// ShortAddress abbreviates a hex address as 0x1234…abcd
func ShortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}
