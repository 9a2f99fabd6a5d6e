// Package calendar computes the month keys the rotation is organised around.
// A month key is the canonical YYYY-MM string; it is stored verbatim and used as a
// uniqueness key, so it is never localised.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const layout = "2006-01"

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

var ErrInvalidMonth = errors.New("month must use the YYYY-MM format")

// Month is a month key such as "2024-03".
type Month string

// Clock provides the reference time. Every computation in this package takes the
// time explicitly; the clock only exists so callers can be driven by a fake time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the configured location (UTC when nil)
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// ParseMonth validates the YYYY-MM format and the month range
func ParseMonth(s string) (Month, error) {
	if !monthPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	month, _ := strconv.Atoi(s[5:])
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month(s), nil
}

func MonthOf(t time.Time) Month {
	return Month(t.Format(layout))
}

func CurrentMonth(now time.Time) Month {
	return MonthOf(now)
}

func NextMonth(now time.Time) Month {
	return CurrentMonth(now).Add(1)
}

// DaysLeftInMonth returns the number of days after today until the end of the month.
// On the last day of the month it returns 0.
func DaysLeftInMonth(now time.Time) int {
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	return lastDay - now.Day()
}

func IsLastWeekOfMonth(now time.Time) bool {
	return DaysLeftInMonth(now) <= 7
}

// MonthsFrom lists n consecutive months starting at the month containing now
func MonthsFrom(now time.Time, n int) []Month {
	months := make([]Month, 0, n)
	current := CurrentMonth(now)
	for i := 0; i < n; i++ {
		months = append(months, current.Add(i))
	}
	return months
}

// Time returns midnight UTC of the first day of the month.
// The month must be valid; an invalid key yields the zero time.
func (m Month) Time() time.Time {
	t, err := time.Parse(layout, string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (m Month) Add(months int) Month {
	t := m.Time()
	return MonthOf(time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC))
}

// Title renders the month for humans, e.g. "March 2024"
func (m Month) Title() string {
	t := m.Time()
	if t.IsZero() {
		return string(m)
	}
	return t.Format("January 2006")
}

func (m Month) String() string {
	return string(m)
}
