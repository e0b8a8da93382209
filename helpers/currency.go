package helpers

import (
	"fmt"
	"math"
)

// FormatUSD formats an amount as US dollars with thousand separators and
// two decimal places, e.g. 1234.5 -> "$1,234.50".
func FormatUSD(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	// Round to cents before splitting to avoid 9.999 -> "$9.100"
	amount = math.Round(amount*100) / 100
	whole := int64(amount)
	cents := int64(math.Round((amount - float64(whole)) * 100))

	str := fmt.Sprintf("%d", whole)
	length := len(str)

	var result string
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}

	if negative {
		return fmt.Sprintf("-$%s.%02d", result, cents)
	}
	return fmt.Sprintf("$%s.%02d", result, cents)
}

// FormatPercent formats a percentage value rounded to a whole number,
// e.g. 67.8 -> "68%".
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%d%%", int64(math.Round(pct)))
}
