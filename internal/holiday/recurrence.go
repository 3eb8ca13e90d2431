package holiday

import (
	"strings"
	"time"

	"github.com/username/holiday-countdown/pkg/dateutil"
)

// Recurrence is the repeat unit of a holiday
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceYearly  Recurrence = "yearly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceWeekly  Recurrence = "weekly"
)

// ParseRecurrence converts a stored value into a Recurrence.
// Unrecognized units are treated as RecurrenceNone.
func ParseRecurrence(s string) Recurrence {
	switch r := Recurrence(strings.ToLower(strings.TrimSpace(s))); r {
	case RecurrenceYearly, RecurrenceMonthly, RecurrenceWeekly:
		return r
	default:
		return RecurrenceNone
	}
}

// Step returns the anchor advanced by n recurrence units. Monthly and yearly
// steps are computed from the anchor and clamp to the last day of the month.
func (r Recurrence) Step(anchor time.Time, n int) time.Time {
	switch r {
	case RecurrenceWeekly:
		return anchor.AddDate(0, 0, 7*n)
	case RecurrenceMonthly:
		return dateutil.AddMonthsClamped(anchor, n)
	case RecurrenceYearly:
		return dateutil.AddYearsClamped(anchor, n)
	default:
		return anchor
	}
}

// NextOccurrence returns the first occurrence of anchor strictly after now.
// Future anchors and non-recurring holidays are returned unchanged.
func NextOccurrence(anchor time.Time, recurrence Recurrence, now time.Time) time.Time {
	if anchor.After(now) {
		return anchor
	}

	recurrence = ParseRecurrence(string(recurrence))

	// k starts at a step count known to be <= now
	var k int
	switch recurrence {
	case RecurrenceWeekly:
		k = dateutil.DaysUntil(now, anchor) / 7
	case RecurrenceMonthly:
		k = (now.Year()-anchor.Year())*12 + int(now.Month()) - int(anchor.Month()) - 1
	case RecurrenceYearly:
		k = now.Year() - anchor.Year() - 1
	default:
		return anchor
	}
	if k < 0 {
		k = 0
	}

	next := recurrence.Step(anchor, k)
	for !next.After(now) {
		k++
		next = recurrence.Step(anchor, k)
	}

	return next
}
