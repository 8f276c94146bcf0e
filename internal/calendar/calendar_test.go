package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaps_Cases(t *testing.T) {
	d := func(day int) time.Time { return Date(2025, time.January, day) }

	tests := []struct {
		name        string
		a, b        Range
		wantOverlap bool
	}{
		{"partial overlap", Range{d(10), d(13)}, Range{d(12), d(15)}, true},
		{"adjacent", Range{d(10), d(13)}, Range{d(13), d(16)}, false},
		{"adjacent reversed", Range{d(13), d(16)}, Range{d(10), d(13)}, false},
		{"contained", Range{d(10), d(20)}, Range{d(12), d(14)}, true},
		{"containing", Range{d(12), d(14)}, Range{d(10), d(20)}, true},
		{"equal", Range{d(10), d(13)}, Range{d(10), d(13)}, true},
		{"disjoint", Range{d(1), d(3)}, Range{d(5), d(8)}, false},
		{"single night inside", Range{d(10), d(11)}, Range{d(10), d(13)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOverlap, tt.a.Overlaps(tt.b))
			// symmetry
			assert.Equal(t, tt.a.Overlaps(tt.b), tt.b.Overlaps(tt.a))
		})
	}
}

func TestOverlaps_SymmetryExhaustive(t *testing.T) {
	base := Date(2025, time.March, 1)
	day := func(n int) time.Time { return base.AddDate(0, 0, n) }
	for a := 0; a < 6; a++ {
		for b := a + 1; b <= 6; b++ {
			for c := 0; c < 6; c++ {
				for e := c + 1; e <= 6; e++ {
					x, y := day(a), day(b)
					u, v := day(c), day(e)
					require.Equal(t, Overlaps(x, y, u, v), Overlaps(u, v, x, y))
				}
			}
		}
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 3, DaysBetween(Date(2025, 1, 10), Date(2025, 1, 13)))
	assert.Equal(t, 0, DaysBetween(Date(2025, 1, 10), Date(2025, 1, 10)))
	assert.Equal(t, -2, DaysBetween(Date(2025, 1, 10), Date(2025, 1, 8)))
	assert.Equal(t, 366, DaysBetween(Date(2024, 1, 1), Date(2025, 1, 1)))

	// a DST switch in between does not change the count
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	a := time.Date(2025, 3, 8, 23, 0, 0, 0, ny)
	b := time.Date(2025, 3, 10, 1, 0, 0, 0, ny)
	assert.Equal(t, 2, DaysBetween(a, b))
}

func TestParseAndFormat(t *testing.T) {
	d, err := ParseDate("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, Date(2025, 1, 10), d)
	assert.Equal(t, "2025-01-10", Format(d))

	_, err = ParseDate("10/01/2025")
	assert.Error(t, err)
}

func TestTodayAndIsPast(t *testing.T) {
	clock := FixedClock{T: time.Date(2025, 1, 5, 23, 30, 0, 0, time.UTC)}
	today := Today(clock, nil)
	assert.Equal(t, Date(2025, 1, 5), today)

	// late evening UTC is already the next day further east
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, Date(2025, 1, 6), Today(clock, tokyo))

	assert.True(t, IsPast(Date(2025, 1, 4), today))
	assert.False(t, IsPast(Date(2025, 1, 5), today))
	assert.False(t, IsPast(Date(2025, 1, 6), today))
}

func TestRange(t *testing.T) {
	r := NewRange(time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC), Date(2025, 1, 13))
	assert.Equal(t, 3, r.Nights())
	assert.True(t, r.Contains(Date(2025, 1, 12)))
	assert.False(t, r.Contains(Date(2025, 1, 13)))
	assert.Equal(t, "[2025-01-10, 2025-01-13)", r.String())
}
