package holiday

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/holiday-countdown/internal/reminder"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		anchor     time.Time
		recurrence Recurrence
		want       time.Time
	}{
		{"future anchor unchanged", date(2025, 7, 1), RecurrenceYearly, date(2025, 7, 1)},
		{"past one-time unchanged", date(2025, 1, 1), RecurrenceNone, date(2025, 1, 1)},
		{"unknown unit treated as none", date(2025, 1, 1), Recurrence("hourly"), date(2025, 1, 1)},
		{"yearly past this year", date(1990, 1, 1), RecurrenceYearly, date(2026, 1, 1)},
		{"yearly later this year", date(1990, 12, 31), RecurrenceYearly, date(2025, 12, 31)},
		{"yearly leap day clamps", date(2000, 2, 29), RecurrenceYearly, date(2026, 2, 28)},
		{"monthly", date(2024, 11, 20), RecurrenceMonthly, date(2025, 6, 20)},
		{"monthly earlier day rolls to next month", date(2024, 11, 3), RecurrenceMonthly, date(2025, 7, 3)},
		{"monthly 31st clamps in June", date(2025, 1, 31), RecurrenceMonthly, date(2025, 6, 30)},
		{"weekly", date(2025, 6, 2), RecurrenceWeekly, date(2025, 6, 16)},
		{"weekly same weekday later hour", time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC), RecurrenceWeekly, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)},
		{"uppercase unit", date(2020, 3, 1), Recurrence("YEARLY"), date(2026, 3, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.anchor, tt.recurrence, now)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestNextOccurrenceMonthlyDoesNotDrift(t *testing.T) {
	anchor := date(2025, 1, 31)

	got := NextOccurrence(anchor, RecurrenceMonthly, date(2025, 3, 1))
	assert.Equal(t, date(2025, 3, 31), got, "clamping in February must not stick")
}

func TestNextOccurrenceProperties(t *testing.T) {
	anchors := []time.Time{
		date(2000, 2, 29),
		date(2019, 1, 31),
		date(2023, 8, 30),
		time.Date(2024, 5, 5, 18, 30, 0, 0, time.UTC),
	}
	nows := []time.Time{
		date(2024, 2, 29),
		time.Date(2025, 3, 1, 0, 0, 0, 1, time.UTC),
		time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC),
		date(2031, 7, 4),
	}

	for _, r := range []Recurrence{RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly} {
		for _, anchor := range anchors {
			for _, now := range nows {
				got := NextOccurrence(anchor, r, now)

				if !anchor.After(now) {
					require.True(t, got.After(now), "%s %v now=%v: got %v", r, anchor, now, got)
				}

				steps := -1
				for k := 0; k < 2000; k++ {
					step := r.Step(anchor, k)
					if step.Equal(got) {
						steps = k
						break
					}
					if step.After(got) {
						break
					}
				}
				require.GreaterOrEqual(t, steps, 0, "%s %v now=%v: %v is not a step of the anchor", r, anchor, now, got)

				if steps > 0 {
					require.False(t, r.Step(anchor, steps-1).After(now),
						"%s %v now=%v: %v is not the first occurrence after now", r, anchor, now, got)
				}
			}
		}
	}
}

func TestNextOccurrenceIdempotentOnFutureDates(t *testing.T) {
	now := date(2025, 6, 15)
	future := date(2025, 6, 16)

	for _, r := range []Recurrence{RecurrenceNone, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly} {
		assert.Equal(t, future, NextOccurrence(future, r, now))
	}
}

func TestEffectiveDateKeepsTodaysOccurrence(t *testing.T) {
	h := Holiday{ID: "bday", Name: "Birthday", Date: date(1990, 6, 15), Recurrence: RecurrenceYearly}
	now := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)

	assert.Equal(t, date(2025, 6, 15), h.EffectiveDate(now))
	assert.Equal(t, 0, h.DaysUntil(now))

	tomorrow := now.AddDate(0, 0, 1)
	assert.Equal(t, date(2026, 6, 15), h.EffectiveDate(tomorrow))
}

func TestEffectiveDateUsesWallClockInUserLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	h := Holiday{ID: "xmas", Name: "Christmas", Date: date(2020, 12, 25), Recurrence: RecurrenceYearly}

	got := h.EffectiveDate(time.Date(2025, 12, 1, 9, 0, 0, 0, loc))
	assert.Equal(t, 25, got.Day())
	assert.Equal(t, time.December, got.Month())
	assert.Equal(t, loc, got.Location())
}

func TestVisibleHidesPastOneTimeEvents(t *testing.T) {
	now := date(2025, 6, 15)

	past := Holiday{ID: "a", Name: "Concert", Date: date(2025, 6, 1), Recurrence: RecurrenceNone}
	today := Holiday{ID: "b", Name: "Launch", Date: time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)}
	yearly := Holiday{ID: "c", Name: "Anniversary", Date: date(2010, 6, 1), Recurrence: RecurrenceYearly}

	assert.False(t, past.Visible(now))
	assert.True(t, today.Visible(now))
	assert.True(t, yearly.Visible(now))
}

func TestUpcoming(t *testing.T) {
	now := date(2025, 6, 15)
	holidays := []Holiday{
		{ID: "nye", Name: "New Year", Date: date(2020, 1, 1), Recurrence: RecurrenceYearly},
		{ID: "gone", Name: "Old trip", Date: date(2025, 5, 1)},
		{ID: "trip", Name: "Trip", Date: date(2025, 7, 10), Category: CategoryTravel},
		{ID: "pay", Name: "Payday", Date: date(2025, 1, 25), Recurrence: RecurrenceMonthly},
	}

	got := Upcoming(holidays, now)
	require.Len(t, got, 3)
	assert.Equal(t, "pay", got[0].Holiday.ID)
	assert.Equal(t, 10, got[0].DaysUntil)
	assert.Equal(t, "trip", got[1].Holiday.ID)
	assert.Equal(t, "nye", got[2].Holiday.ID)
	assert.Equal(t, date(2026, 1, 1), got[2].Date)
}

func TestNormalizeAndDefaults(t *testing.T) {
	h := Holiday{
		ID:             "x",
		Name:           "X",
		Date:           date(2025, 1, 1),
		Category:       "party",
		Recurrence:     "fortnightly",
		ReminderOption: "sometimes",
	}
	h.Normalize()

	assert.Equal(t, CategoryCustom, h.Category)
	assert.Equal(t, RecurrenceNone, h.Recurrence)
	assert.Equal(t, reminder.OptionNone, h.ReminderOption)
	assert.NotEmpty(t, h.DisplayIcon())

	h.Icon = "🎯"
	assert.Equal(t, "🎯", h.DisplayIcon())
}

func TestValidate(t *testing.T) {
	ok := Holiday{ID: "a", Name: "A", Date: date(2025, 1, 1)}
	assert.NoError(t, ok.Validate())

	missingName := Holiday{ID: "a", Date: date(2025, 1, 1)}
	assert.Error(t, missingName.Validate())

	missingDate := Holiday{ID: "a", Name: "A"}
	assert.Error(t, missingDate.Validate())
}

func TestDecode(t *testing.T) {
	doc := `
holidays:
  - id: nye
    name: New Year
    date: "2025-01-01"
    category: celebration
    recurrence: yearly
    reminderOption: 1_week
  - name: Summer Trip
    date: 20.07.2025
    category: travel
`
	got, err := Decode(strings.NewReader(doc), time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "nye", got[0].ID)
	assert.Equal(t, RecurrenceYearly, got[0].Recurrence)
	assert.Equal(t, reminder.Option1Week, got[0].ReminderOption)

	assert.Equal(t, "summer-trip-2025-07-20", got[1].ID)
	assert.Equal(t, date(2025, 7, 20), got[1].Date)
	assert.Equal(t, RecurrenceNone, got[1].Recurrence)
	assert.Equal(t, "file", got[1].Source)
}

func TestDecodeRejectsBadDate(t *testing.T) {
	_, err := Decode(strings.NewReader("holidays:\n  - name: X\n    date: someday\n"), time.UTC)
	assert.Error(t, err)
}
