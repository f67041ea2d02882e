package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func stay(t *testing.T, start, end string) Stay {
	t.Helper()
	s, err := ParseStay(start, end)
	require.NoError(t, err)
	return s
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-07-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "2026/07/01", "07-01-2026", "2026-13-01", "2026-02-30", "2026-07-01T00:00:00Z"} {
		_, err := ParseDate(bad)
		require.Error(t, err, bad)
		assert.Equal(t, "Invalid date format. Use YYYY-MM-DD", err.Error())
	}
}

func TestNewStayRejectsEmptyOrInvertedRange(t *testing.T) {
	_, err := ParseStay("2026-07-05", "2026-07-05")
	require.Error(t, err)
	assert.Equal(t, "End date must be after start date", err.Error())
	assert.Equal(t, domain.KindValidation, mustKind(t, err))

	_, err = ParseStay("2026-07-05", "2026-07-01")
	require.Error(t, err)
}

func TestNights(t *testing.T) {
	assert.Equal(t, 1, stay(t, "2026-07-01", "2026-07-02").Nights())
	assert.Equal(t, 3, stay(t, "2026-07-07", "2026-07-10").Nights())
	assert.Equal(t, 30, stay(t, "2026-02-15", "2026-03-17").Nights())
	// Crosses a DST change in zones that observe one; dates are UTC so it stays exact.
	assert.Equal(t, 7, stay(t, "2026-03-05", "2026-03-12").Nights())
	// Longer than a time.Duration can represent.
	assert.Equal(t, 136308, stay(t, "2026-10-20", "2400-01-01").Nights())
	assert.Equal(t, 2914635, stay(t, "1990-01-01", "9970-01-01").Nights())
}

func TestOverlaps(t *testing.T) {
	base := stay(t, "2026-07-10", "2026-07-15")

	tests := []struct {
		name  string
		other Stay
		want  bool
	}{
		{"identical", stay(t, "2026-07-10", "2026-07-15"), true},
		{"inside", stay(t, "2026-07-11", "2026-07-12"), true},
		{"covers", stay(t, "2026-07-01", "2026-07-20"), true},
		{"overlaps start", stay(t, "2026-07-08", "2026-07-11"), true},
		{"overlaps end", stay(t, "2026-07-14", "2026-07-18"), true},
		{"ends on start day", stay(t, "2026-07-05", "2026-07-10"), false},
		{"starts on end day", stay(t, "2026-07-15", "2026-07-18"), false},
		{"entirely before", stay(t, "2026-07-01", "2026-07-03"), false},
		{"entirely after", stay(t, "2026-08-01", "2026-08-03"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestDateOf(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	// 03:00 UTC on July 2nd is still July 1st in Los Angeles.
	instant := time.Date(2026, 7, 2, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, date(t, "2026-07-01"), DateOf(instant, loc))
	assert.Equal(t, date(t, "2026-07-02"), DateOf(instant, time.UTC))
}

func mustKind(t *testing.T, err error) domain.ErrorKind {
	t.Helper()
	kind, ok := domain.KindOf(err)
	require.True(t, ok, "expected an AppError, got %T", err)
	return kind
}
