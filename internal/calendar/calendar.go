// Package calendar holds the date arithmetic used by bookings.
//
// Every date is a calendar day represented as time.Time at 00:00 UTC, so two
// dates compare with Before/Equal and differ by whole multiples of 24h.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout wire format for check-in/check-out dates.
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// Clock supplies "now"; tests swap in a FixedClock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Date builds a calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time of day, keeping the wall-clock date of t in its own location.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar day as seen from loc (UTC when nil).
func Today(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Truncate(c.Now().In(loc))
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return t, nil
}

// Format renders a calendar day as "YYYY-MM-DD".
func Format(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween counts calendar days from a to b; negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int((Truncate(b).Unix() - Truncate(a).Unix()) / secondsPerDay)
}

// IsPast reports whether day is strictly before today.
func IsPast(day, today time.Time) bool {
	return Truncate(day).Before(Truncate(today))
}

// Overlaps tests the half-open intervals [aStart, aEnd) and [bStart, bEnd).
// Back-to-back ranges (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Range is a stay [CheckIn, CheckOut).
type Range struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewRange truncates both ends to calendar days.
func NewRange(checkIn, checkOut time.Time) Range {
	return Range{CheckIn: Truncate(checkIn), CheckOut: Truncate(checkOut)}
}

// Nights is the number of nights in the stay.
func (r Range) Nights() int {
	return DaysBetween(r.CheckIn, r.CheckOut)
}

// Overlaps reports whether r and o share at least one night.
func (r Range) Overlaps(o Range) bool {
	return Overlaps(r.CheckIn, r.CheckOut, o.CheckIn, o.CheckOut)
}

// Contains reports whether the night starting on day is part of r.
func (r Range) Contains(day time.Time) bool {
	d := Truncate(day)
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", Format(r.CheckIn), Format(r.CheckOut))
}
