package domain

import (
	"fmt"
	"math"
)

// Currency is fixed; multi-currency is out of scope.
const CurrencyUSD = "USD"

// CentsFromAmount converts a decimal amount into integer minor units.
func CentsFromAmount(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("invalid amount")
	}
	cents := math.Round(amount * 100)
	if cents > math.MaxInt64/2 || cents < -math.MaxInt64/2 {
		return 0, fmt.Errorf("amount out of range")
	}
	return int64(cents), nil
}

// AmountFromCents renders minor units as a decimal amount for JSON output only.
func AmountFromCents(cents int64) float64 {
	return float64(cents) / 100
}
