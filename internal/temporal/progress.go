package temporal

import (
	"fmt"
	"time"
)

// DefaultOneTimeCycleDays is the progress window for one-time events, which
// have no recurrence cycle to measure against. Overridable per deployment.
const DefaultOneTimeCycleDays = 365

// ProgressInput describes the scheduling fields of an event needed to
// compute its progress bar.
type ProgressInput struct {
	DueDate            time.Time
	IsRecurring        bool
	RecurrenceInterval int
	RecurrenceUnit     Unit

	// OneTimeCycleDays overrides the window used for one-time events.
	// Zero means DefaultOneTimeCycleDays.
	OneTimeCycleDays int
}

// ProgressResult is the computed display state for an event.
type ProgressResult struct {
	DaysRemaining int
	Urgency       Urgency
	// Fraction is in [0,1]; 1 the moment an event is due or overdue.
	Fraction float64
	// Remaining is a human-readable remaining-time label.
	Remaining string
}

// Progress computes the progress fraction and remaining-time label for an
// event at the given instant.
//
// Overdue and due-today events are pegged at 1. Imminent events count down
// over the final 7 days, approaching events over the final 30. Beyond that
// the fraction advances continuously across the event's whole cycle: the
// window from one recurrence interval before the due date up to the due
// date itself (one-time events use a fixed-length window instead).
func Progress(in ProgressInput, now time.Time) (ProgressResult, error) {
	days := DaysRemaining(in.DueDate, now)
	res := ProgressResult{
		DaysRemaining: days,
		Urgency:       UrgencyFor(days),
	}

	switch {
	case days <= 0:
		res.Fraction = 1
		res.Remaining = fmt.Sprintf("Overdue by %s", plural(-days, "day"))
	case days <= imminentDays:
		res.Fraction = float64(imminentDays-days) / float64(imminentDays)
		res.Remaining = plural(days, "day") + " remaining"
	case days <= approachingDays:
		res.Fraction = float64(approachingDays-days) / float64(approachingDays)
		res.Remaining = plural(days, "day") + " remaining"
	default:
		frac, err := cycleFraction(in, now)
		if err != nil {
			return ProgressResult{}, err
		}
		res.Fraction = frac
		res.Remaining = farLabel(days)
	}

	return res, nil
}

// cycleFraction computes elapsed/window for the far tier, clamped to [0,1].
func cycleFraction(in ProgressInput, now time.Time) (float64, error) {
	var start time.Time
	if in.IsRecurring {
		var err error
		start, err = Advance(in.DueDate, in.RecurrenceUnit, -in.RecurrenceInterval)
		if err != nil {
			return 0, err
		}
	} else {
		cycle := in.OneTimeCycleDays
		if cycle <= 0 {
			cycle = DefaultOneTimeCycleDays
		}
		start = in.DueDate.AddDate(0, 0, -cycle)
	}

	window := DaysRemaining(in.DueDate, start)
	if window <= 0 {
		return 1, nil
	}
	elapsed := DaysRemaining(now, start)
	return clamp01(float64(elapsed) / float64(window)), nil
}

// farLabel renders remaining time in coarse units for distant events,
// matching the 365/30-day approximations used on the event cards.
func farLabel(days int) string {
	switch {
	case days >= 365:
		years := days / 365
		months := (days % 365) / 30
		label := plural(years, "year")
		if months > 0 {
			label += " & " + plural(months, "month")
		}
		return label + " remaining"
	case days >= 30:
		return plural(days/30, "month") + " remaining"
	default:
		return plural(days, "day") + " remaining"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
