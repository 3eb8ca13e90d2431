package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldNotify(t *testing.T) {
	tests := []struct {
		option Option
		fires  []int
	}{
		{OptionNone, nil},
		{OptionOnDay, []int{0}},
		{Option1Day, []int{0, 1}},
		{Option3Days, []int{0, 1, 3}},
		{Option1Week, []int{0, 1, 3, 7}},
		{Option2Weeks, []int{0, 1, 3, 7, 14}},
		{Option("fortnightly"), nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.option), func(t *testing.T) {
			for days := -2; days <= 30; days++ {
				want := false
				for _, f := range tt.fires {
					if f == days {
						want = true
					}
				}
				assert.Equal(t, want, ShouldNotify(tt.option, days), "days=%d", days)
			}
		})
	}
}

func TestTriggerSetsAreNested(t *testing.T) {
	chain := []Option{OptionOnDay, Option1Day, Option3Days, Option1Week, Option2Weeks}

	for i := 1; i < len(chain); i++ {
		smaller, larger := chain[i-1], chain[i]
		for _, d := range TriggerDays(smaller) {
			assert.True(t, ShouldNotify(larger, d),
				"%s fires on %d but %s does not", smaller, d, larger)
		}
	}
}

func TestTriggerDaysIsDescendingCopy(t *testing.T) {
	days := TriggerDays(Option2Weeks)
	assert.Equal(t, []int{14, 7, 3, 1, 0}, days)

	days[0] = 99
	assert.Equal(t, 14, TriggerDays(Option2Weeks)[0], "caller mutation leaked into policy")
}

func TestParseOption(t *testing.T) {
	assert.Equal(t, Option1Week, ParseOption("1_week"))
	assert.Equal(t, Option2Weeks, ParseOption(" 2_WEEKS "))
	assert.Equal(t, OptionNone, ParseOption(""))
	assert.Equal(t, OptionNone, ParseOption("none"))
	assert.Equal(t, OptionNone, ParseOption("every_hour"))
}

func TestNotifyKey(t *testing.T) {
	today := time.Date(2025, 12, 22, 9, 15, 0, 0, time.UTC)
	assert.Equal(t, "3:2025-12-22", NotifyKey(3, today))
	assert.NotEqual(t, NotifyKey(3, today), NotifyKey(1, today))
	assert.NotEqual(t, NotifyKey(3, today), NotifyKey(3, today.AddDate(0, 0, 1)))
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name     string
		days     int
		contains string
	}{
		{"today", 0, "TODAY"},
		{"tomorrow", 1, "Tomorrow"},
		{"three days", 3, "in 3 days"},
		{"one week", 7, "in 1 week"},
		{"two weeks", 14, "in 2 weeks"},
		{"generic", 42, "in 42 days"},
		{"passed", -1, "has passed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := FormatMessage("New Year", tt.days, "🎄", false)
			assert.Contains(t, msg, tt.contains)
			assert.Contains(t, msg, "🎄 New Year")
		})
	}
}

func TestFormatMessagePreview(t *testing.T) {
	for _, days := range []int{0, 1, 2, 5, 14, 100} {
		msg := FormatMessage("Trip", days, "", true)
		assert.Contains(t, msg, "Reminder set")
		assert.Contains(t, msg, "<b>Trip</b>")
	}

	assert.Contains(t, FormatMessage("Trip", 0, "", true), "TODAY")
	assert.Contains(t, FormatMessage("Trip", 1, "", true), "Tomorrow")
	assert.Contains(t, FormatMessage("Trip", 9, "", true), "in 9 days")
}

func TestFormatMessageEscapesHTML(t *testing.T) {
	msg := FormatMessage("<script>Tom & Jerry</script>", 0, "", false)
	assert.False(t, strings.Contains(msg, "<script>"))
	assert.Contains(t, msg, "Tom &amp; Jerry")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "1 week before", Option1Week.Describe())
	assert.Equal(t, "no reminder", Option("bogus").Describe())
}
