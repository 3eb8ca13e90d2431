package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/username/holiday-countdown/pkg/dateutil"
)

// Option is a user's reminder preference for an event
type Option string

const (
	OptionNone   Option = "none"
	OptionOnDay  Option = "on_day"
	Option1Day   Option = "1_day"
	Option3Days  Option = "3_days"
	Option1Week  Option = "1_week"
	Option2Weeks Option = "2_weeks"
)

// triggerDays lists, per option, the days-until values on which a reminder fires.
// Every set contains 0 and 1 (except on_day) so a missed job run still
// produces a reminder as the event approaches.
var triggerDays = map[Option][]int{
	OptionOnDay:  {0},
	Option1Day:   {1, 0},
	Option3Days:  {3, 1, 0},
	Option1Week:  {7, 3, 1, 0},
	Option2Weeks: {14, 7, 3, 1, 0},
}

// ParseOption converts a stored value into an Option. Unknown values map to OptionNone.
func ParseOption(s string) Option {
	opt := Option(strings.TrimSpace(strings.ToLower(s)))
	if _, ok := triggerDays[opt]; ok {
		return opt
	}
	return OptionNone
}

// Options returns all options in ascending lead-time order
func Options() []Option {
	return []Option{OptionNone, OptionOnDay, Option1Day, Option3Days, Option1Week, Option2Weeks}
}

// TriggerDays returns the descending days-until values that fire for option
func TriggerDays(option Option) []int {
	days := triggerDays[option]
	out := make([]int, len(days))
	copy(out, days)
	return out
}

// ShouldNotify reports whether a reminder is due for option daysUntil days before the event
func ShouldNotify(option Option, daysUntil int) bool {
	for _, d := range triggerDays[option] {
		if d == daysUntil {
			return true
		}
	}
	return false
}

// NotifyKey returns the idempotency marker stored as lastNotified after a send
func NotifyKey(daysUntil int, today time.Time) string {
	return fmt.Sprintf("%d:%s", daysUntil, dateutil.FormatDate(today))
}

// Describe returns a short human label for the option
func (o Option) Describe() string {
	switch o {
	case OptionOnDay:
		return "on the day"
	case Option1Day:
		return "1 day before"
	case Option3Days:
		return "3 days before"
	case Option1Week:
		return "1 week before"
	case Option2Weeks:
		return "2 weeks before"
	default:
		return "no reminder"
	}
}
