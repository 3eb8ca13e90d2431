package dateutil

import (
	"fmt"
	"strings"
	"time"
)

// ISODate is the layout used for calendar dates in storage keys and messages
const ISODate = "2006-01-02"

// StartOfDay returns the start of the day (00:00:00) for the given date
func StartOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// EndOfDay returns the end of the day (23:59:59.999) for the given date
func EndOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 999999999, date.Location())
}

// WithLocation returns the same wall-clock date and time in loc.
// Calendar dates stored without a zone keep their day in every user's location.
func WithLocation(date time.Time, loc *time.Location) time.Time {
	if loc == nil || date.Location() == loc {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), loc)
}

// AddDays returns the calendar day n days after date, at midnight
func AddDays(date time.Time, n int) time.Time {
	return StartOfDay(date).AddDate(0, 0, n)
}

const secondsPerDay = 24 * 60 * 60

// DaysUntil returns the number of calendar days from "from" to target.
// Both dates are truncated to midnight in from's location, so the result
// equals ceil((target-from)/24h) without being skewed by DST transitions.
func DaysUntil(target, from time.Time) int {
	target = target.In(from.Location())
	t := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	return int((t.Unix() - f.Unix()) / secondsPerDay)
}

// DaysIn returns the number of days in the given month
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped adds n months keeping the day of month where possible.
// When the day does not exist in the target month it is clamped to the
// month's last day (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(date time.Time, n int) time.Time {
	total := int(date.Month()) - 1 + n
	year := date.Year() + total/12
	month := total % 12
	if month < 0 {
		month += 12
		year--
	}
	m := time.Month(month + 1)

	day := date.Day()
	if last := DaysIn(year, m); day > last {
		day = last
	}

	return time.Date(year, m, day, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

// AddYearsClamped adds n years, clamping Feb 29 to Feb 28 in non-leap years
func AddYearsClamped(date time.Time, n int) time.Time {
	return AddMonthsClamped(date, 12*n)
}

// IsWeekday returns true if the date is Monday-Friday
func IsWeekday(date time.Time) bool {
	weekday := date.Weekday()
	return weekday >= time.Monday && weekday <= time.Friday
}

// IsWeekend returns true if the date is Saturday or Sunday
func IsWeekend(date time.Time) bool {
	weekday := date.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// IsSameDay returns true if two dates are on the same day
func IsSameDay(date1, date2 time.Time) bool {
	return date1.Year() == date2.Year() &&
		date1.Month() == date2.Month() &&
		date1.Day() == date2.Day()
}

// FormatDate formats the calendar part of date as YYYY-MM-DD
func FormatDate(date time.Time) string {
	return date.Format(ISODate)
}

var dateLayouts = []string{
	ISODate,
	"02.01.2006",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05-0700",
}

// ParseDate parses date string in various formats.
// Values without an explicit offset are interpreted in loc (time.Local if nil).
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	dateStr = strings.TrimSpace(dateStr)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, dateStr, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", dateStr)
}

// Today returns today's date (start of day) in loc
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return StartOfDay(time.Now().In(loc))
}
