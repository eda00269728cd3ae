// Package temporal contains the pure date logic behind urgency and progress
// indicators: calendar-day arithmetic, urgency tiers, recurrence advancement
// and the progress fraction rendered as a bar in the UI. Nothing here touches
// storage or the clock; callers inject "now".
package temporal

import (
	"errors"
	"fmt"
	"time"
)

// Unit is a recurrence unit.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitMonths Unit = "months"
	UnitYears  Unit = "years"
)

// ErrInvalidUnit is returned when a recurrence unit is not one of
// days, months or years. Unknown units never silently default.
var ErrInvalidUnit = errors.New("invalid recurrence unit")

// Valid reports whether u is a known recurrence unit.
func (u Unit) Valid() bool {
	switch u {
	case UnitDays, UnitMonths, UnitYears:
		return true
	}
	return false
}

// Urgency classifies how soon an event is due.
type Urgency string

const (
	UrgencyImminent    Urgency = "imminent"
	UrgencyApproaching Urgency = "approaching"
	UrgencyFar         Urgency = "far"
)

// urgency tier boundaries, inclusive on the lower tier
const (
	imminentDays    = 7
	approachingDays = 30
)

// DaysRemaining returns the signed number of calendar days from now until
// target. Both timestamps are truncated to their calendar day, so two
// timestamps on the same day yield 0; negative means overdue.
func DaysRemaining(target, now time.Time) int {
	t := midnightUTC(target)
	n := midnightUTC(now)
	return int(t.Sub(n).Hours() / 24)
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UrgencyFor maps a days-remaining value to its urgency tier.
// Overdue events are imminent.
func UrgencyFor(daysRemaining int) Urgency {
	switch {
	case daysRemaining <= imminentDays:
		return UrgencyImminent
	case daysRemaining <= approachingDays:
		return UrgencyApproaching
	default:
		return UrgencyFar
	}
}

// Advance adds interval units to date using calendar-correct arithmetic.
// Month and year arithmetic clamp the day-of-month to the last valid day of
// the target month (Jan 31 + 1 month = Feb 28/29, never a rollover into
// March). Interval may be negative.
func Advance(date time.Time, unit Unit, interval int) (time.Time, error) {
	switch unit {
	case UnitDays:
		return date.AddDate(0, 0, interval), nil
	case UnitMonths:
		return addMonthsClamped(date, interval), nil
	case UnitYears:
		return addMonthsClamped(date, 12*interval), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
}

// addMonthsClamped shifts t by the given number of months, anchoring on the
// first of the month so time.AddDate cannot roll an out-of-range day into
// the following month.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	anchor := time.Date(y, m, 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	if last := daysInMonth(anchor.Year(), anchor.Month()); d > last {
		d = last
	}
	return time.Date(anchor.Year(), anchor.Month(), d, h, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
