package holiday

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/enescakir/emoji"
	"github.com/go-playground/validator"

	"github.com/username/holiday-countdown/internal/reminder"
	"github.com/username/holiday-countdown/pkg/dateutil"
)

// Category groups holidays for display
type Category string

const (
	CategoryCelebration Category = "celebration"
	CategoryTravel      Category = "travel"
	CategoryBirthday    Category = "birthday"
	CategoryCustom      Category = "custom"
	CategoryReligious   Category = "religious"
)

// ParseCategory converts a stored value into a Category. Unknown values map to CategoryCustom.
func ParseCategory(s string) Category {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryCelebration, CategoryTravel, CategoryBirthday, CategoryReligious:
		return c
	default:
		return CategoryCustom
	}
}

// DefaultIcon returns the icon shown for a category when a holiday has none
func (c Category) DefaultIcon() string {
	switch c {
	case CategoryCelebration:
		return emoji.PartyPopper.String()
	case CategoryTravel:
		return emoji.Airplane.String()
	case CategoryBirthday:
		return emoji.BirthdayCake.String()
	case CategoryReligious:
		return emoji.PlaceOfWorship.String()
	default:
		return emoji.Calendar.String()
	}
}

// Holiday is a user-visible countdown event.
// Date is the original anchor and is never rewritten by recurrence.
type Holiday struct {
	ID             string          `json:"id" yaml:"id" validate:"required"`
	Name           string          `json:"name" yaml:"name" validate:"required"`
	Date           time.Time       `json:"date" yaml:"date" validate:"required"`
	Icon           string          `json:"icon,omitempty" yaml:"icon,omitempty"`
	Category       Category        `json:"category" yaml:"category"`
	Color          string          `json:"color,omitempty" yaml:"color,omitempty"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
	Recurrence     Recurrence      `json:"recurrence" yaml:"recurrence"`
	Source         string          `json:"source,omitempty" yaml:"source,omitempty"`
	ReminderOption reminder.Option `json:"reminderOption" yaml:"reminderOption"`
}

// Validate checks required fields
func (h *Holiday) Validate() error {
	validate := validator.New()
	if err := validate.Struct(*h); err != nil {
		return fmt.Errorf("invalid holiday %q: %w", h.ID, err)
	}
	return nil
}

// Normalize maps unknown enum values to their fail-safe defaults
func (h *Holiday) Normalize() {
	h.Category = ParseCategory(string(h.Category))
	h.Recurrence = ParseRecurrence(string(h.Recurrence))
	h.ReminderOption = reminder.ParseOption(string(h.ReminderOption))
}

// DisplayIcon returns the holiday icon, falling back to the category default
func (h *Holiday) DisplayIcon() string {
	if h.Icon != "" {
		return h.Icon
	}
	return h.Category.DefaultIcon()
}

// EffectiveDate returns the current occurrence of the holiday relative to now.
// An occurrence stays current for its whole calendar day.
func (h *Holiday) EffectiveDate(now time.Time) time.Time {
	anchor := dateutil.WithLocation(h.Date, now.Location())
	cutoff := dateutil.StartOfDay(now).Add(-time.Nanosecond)
	return NextOccurrence(anchor, h.Recurrence, cutoff)
}

// DaysUntil returns the number of days from now until the current occurrence
func (h *Holiday) DaysUntil(now time.Time) int {
	return dateutil.DaysUntil(h.EffectiveDate(now), now)
}

// Visible reports whether the holiday should be listed. Past one-time events are hidden.
func (h *Holiday) Visible(now time.Time) bool {
	return h.DaysUntil(now) >= 0
}

// Occurrence is a holiday paired with its resolved date
type Occurrence struct {
	Holiday   Holiday
	Date      time.Time
	DaysUntil int
}

// Upcoming resolves every visible holiday and sorts them by resolved date, then name
func Upcoming(holidays []Holiday, now time.Time) []Occurrence {
	out := make([]Occurrence, 0, len(holidays))
	for _, h := range holidays {
		if !h.Visible(now) {
			continue
		}
		date := h.EffectiveDate(now)
		out = append(out, Occurrence{
			Holiday:   h,
			Date:      date,
			DaysUntil: dateutil.DaysUntil(date, now),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Holiday.Name < out[j].Holiday.Name
	})

	return out
}
