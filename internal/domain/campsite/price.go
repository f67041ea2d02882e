package campsite

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

// ParsePrice reads a nightly rate given as a JSON number or a numeric string
// and returns it in cents.
func ParsePrice(raw json.RawMessage) (int64, error) {
	invalid := domain.NewValidationError("Invalid price format")

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, invalid
	}

	var amount float64
	switch x := v.(type) {
	case float64:
		amount = x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, invalid
		}
		amount = f
	default:
		return 0, invalid
	}

	cents, err := domain.CentsFromAmount(amount)
	if err != nil {
		return 0, invalid
	}
	if cents <= 0 {
		return 0, domain.NewValidationError("Price must be greater than 0")
	}
	return cents, nil
}

// ParsePriceFilter reads a min_price/max_price query value. name is used in
// the error message.
func ParsePriceFilter(name, value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, domain.NewValidationError("Invalid " + name + " format")
	}
	cents, err := domain.CentsFromAmount(f)
	if err != nil {
		return nil, domain.NewValidationError("Invalid " + name + " format")
	}
	return &cents, nil
}
