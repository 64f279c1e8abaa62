// Package money provides helpers for the integer-cents monetary convention
// used across the pipeline and billing entities. Amounts are stored and
// computed as int64 cents; floats never touch money.
package money

import "fmt"

// FormatCents renders cents as a plain decimal string, e.g. 150000 -> "1500.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
