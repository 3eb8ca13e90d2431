package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	cal "github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"

	"github.com/username/holiday-countdown/pkg/dateutil"
)

// publicHolidaySets lists the supported countries
var publicHolidaySets = map[string][]*cal.Holiday{
	"us": {
		us.NewYear,
		us.MlkDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.DayAfterThanksgivingDay,
		us.ChristmasDay,
	},
}

// Countries returns the supported public holiday sets
func Countries() []string {
	out := make([]string, 0, len(publicHolidaySets))
	for c := range publicHolidaySets {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// PublicHoliday is one resolved public holiday
type PublicHoliday struct {
	Name     string
	Actual   time.Time
	Observed time.Time
}

// PublicCalendar implements Calendar using built-in public holiday rules
type PublicCalendar struct {
	country  string
	calendar *cal.BusinessCalendar
	holidays []*cal.Holiday
	loc      *time.Location
}

// NewPublicCalendar creates a calendar for the given country code
func NewPublicCalendar(country string, loc *time.Location) (*PublicCalendar, error) {
	country = strings.ToLower(strings.TrimSpace(country))
	holidays, ok := publicHolidaySets[country]
	if !ok {
		return nil, fmt.Errorf("unsupported country %q (supported: %s)", country, strings.Join(Countries(), ", "))
	}
	if loc == nil {
		loc = time.Local
	}

	c := cal.NewBusinessCalendar()
	c.AddHoliday(holidays...)

	return &PublicCalendar{
		country:  country,
		calendar: c,
		holidays: holidays,
		loc:      loc,
	}, nil
}

// Country returns the country code of the calendar
func (pc *PublicCalendar) Country() string {
	return pc.country
}

// GetDayInfo returns detailed info for a specific day
func (pc *PublicCalendar) GetDayInfo(date time.Time) (*DayInfo, error) {
	date = dateutil.StartOfDay(date)
	info := &DayInfo{Date: date, Type: DayTypeWorkday, IsWorkday: true}

	actual, observed, h := pc.calendar.IsHoliday(date)
	if (actual || observed) && h != nil {
		info.Name = h.Name
		info.Type = DayTypeHoliday
		info.IsWorkday = false
	}
	if dateutil.IsWeekend(date) {
		info.Type = DayTypeWeekend
		info.IsWorkday = false
	}

	return info, nil
}

// GetMonthInfo returns calendar info for the entire month
func (pc *PublicCalendar) GetMonthInfo(year int, month time.Month) (*MonthInfo, error) {
	monthInfo := &MonthInfo{Year: year, Month: month}

	for day := 1; day <= dateutil.DaysIn(year, month); day++ {
		info, err := pc.GetDayInfo(time.Date(year, month, day, 0, 0, 0, 0, pc.loc))
		if err != nil {
			return nil, err
		}
		monthInfo.add(*info)
	}

	return monthInfo, nil
}

// Holidays returns the public holidays observed within [from, to], sorted by observed date
func (pc *PublicCalendar) Holidays(from, to time.Time) []PublicHoliday {
	from, to = dateutil.StartOfDay(from), dateutil.StartOfDay(to)

	var out []PublicHoliday
	for year := from.Year(); year <= to.Year()+1; year++ {
		for _, h := range pc.holidays {
			actual, observed := h.Calc(year)
			if actual.IsZero() || observed.IsZero() {
				continue
			}
			ph := PublicHoliday{
				Name:     h.Name,
				Actual:   pc.date(actual),
				Observed: pc.date(observed),
			}
			if ph.Observed.Before(from) || ph.Observed.After(to) {
				continue
			}
			out = append(out, ph)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Observed.Before(out[j].Observed)
	})

	return out
}

func (pc *PublicCalendar) date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, pc.loc)
}
