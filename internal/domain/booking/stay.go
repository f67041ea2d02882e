package booking

import (
	"time"

	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Stay is a half-open range of calendar nights [Start, End). Both ends are
// dates at UTC midnight; End is the checkout day and is not occupied.
type Stay struct {
	Start time.Time
	End   time.Time
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, domain.NewValidationError("Invalid date format. Use YYYY-MM-DD")
	}
	return t, nil
}

// DateOf truncates t to its calendar date in loc, expressed at UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewStay builds a Stay, rejecting ranges that do not cover at least one night.
func NewStay(start, end time.Time) (Stay, error) {
	if !start.Before(end) {
		return Stay{}, domain.NewValidationError("End date must be after start date")
	}
	return Stay{Start: start, End: end}, nil
}

// ParseStay parses both dates and builds the Stay.
func ParseStay(start, end string) (Stay, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Stay{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Stay{}, err
	}
	return NewStay(s, e)
}

const secondsPerDay = 24 * 60 * 60

// Nights returns the number of whole nights in the stay. It counts from Unix
// seconds since time.Duration saturates for stays longer than ~292 years.
func (s Stay) Nights() int {
	return int((s.End.Unix() - s.Start.Unix()) / secondsPerDay)
}

// Overlaps reports whether two stays share at least one night. Back-to-back
// stays, where one ends on the day the other starts, do not overlap.
func (s Stay) Overlaps(other Stay) bool {
	return s.Start.Before(other.End) && s.End.After(other.Start)
}

// StartsAfter reports whether the stay begins strictly after day.
func (s Stay) StartsAfter(day time.Time) bool {
	return s.Start.After(day)
}

// String renders the stay as "start..end".
func (s Stay) String() string {
	return s.Start.Format(DateLayout) + ".." + s.End.Format(DateLayout)
}

// UnavailableMessage is returned whenever a stay collides with an active booking.
const UnavailableMessage = "Campsite is not available for selected dates"

// NewUnavailableError reports that the campsite is taken for the stay.
func NewUnavailableError() *domain.AppError {
	return domain.NewConflictError(UnavailableMessage)
}
