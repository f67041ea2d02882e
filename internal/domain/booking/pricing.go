package booking

import (
	"math"

	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

// PricingStrategy defines the interface for calculating booking prices.
type PricingStrategy interface {
	// Calculate returns the total price in cents for the stay.
	Calculate(stay Stay, nightlyRateCents int64) (int64, error)
}

// NightlyPricingStrategy charges the campsite's nightly rate for every night.
type NightlyPricingStrategy struct{}

// NewNightlyPricingStrategy creates a new NightlyPricingStrategy.
func NewNightlyPricingStrategy() *NightlyPricingStrategy {
	return &NightlyPricingStrategy{}
}

// Calculate implements PricingStrategy.
func (s *NightlyPricingStrategy) Calculate(stay Stay, nightlyRateCents int64) (int64, error) {
	return Price(stay.Nights(), nightlyRateCents)
}

// Price returns nights * nightlyRateCents.
func Price(nights int, nightlyRateCents int64) (int64, error) {
	if nights < 1 {
		return 0, domain.NewValidationError("A booking must cover at least one night")
	}
	if nightlyRateCents <= 0 {
		return 0, domain.NewValidationError("Nightly rate must be greater than 0")
	}
	if nightlyRateCents > math.MaxInt64/int64(nights) {
		return 0, domain.NewValidationError("Total price is too large")
	}
	return int64(nights) * nightlyRateCents, nil
}
