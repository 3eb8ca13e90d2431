// Package longweekend finds leave-day opportunities that bridge public
// holidays to adjacent weekends and tracks a user's leave budget against them.
package longweekend

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/username/holiday-countdown/internal/holiday"
	"github.com/username/holiday-countdown/pkg/dateutil"
)

// DefaultLookahead is how far ahead opportunities are generated
const DefaultLookahead = 12 // months

// Opportunity is a way to turn a weekday holiday into a longer break
type Opportunity struct {
	ID           string      `json:"id"`
	HolidayID    string      `json:"holidayId"`
	HolidayName  string      `json:"holidayName"`
	HolidayDate  time.Time   `json:"holidayDate"`
	LeaveDays    []time.Time `json:"leaveDays"`
	TotalDaysOff int         `json:"totalDaysOff"`
	Efficiency   float64     `json:"efficiency"`
	StartDate    time.Time   `json:"startDate"`
	EndDate      time.Time   `json:"endDate"`
	Description  string      `json:"description"`
}

// Natural reports whether the opportunity needs no leave at all
func (o *Opportunity) Natural() bool {
	return len(o.LeaveDays) == 0
}

// Efficiency returns days off per leave day; +Inf when no leave is needed
func Efficiency(totalDaysOff, leaveDays int) float64 {
	if leaveDays == 0 {
		return math.Inf(1)
	}
	return float64(totalDaysOff) / float64(leaveDays)
}

// DayOffFunc reports whether a date is already a non-working day for reasons
// other than the weekend (public holidays from an external calendar)
type DayOffFunc func(date time.Time) bool

// Options configure opportunity generation
type Options struct {
	// Now anchors recurrence resolution and the lookahead window
	Now time.Time
	// LookaheadMonths bounds the window (Now, Now+LookaheadMonths]. Zero means DefaultLookahead.
	LookaheadMonths int
	// ExtraDaysOff marks additional non-working days. Optional.
	ExtraDaysOff DayOffFunc
}

// Plan is the sorted list of opportunities for a holiday set
type Plan struct {
	Opportunities []Opportunity
	index         map[string]int
}

// Find returns the opportunity with the given id
func (p *Plan) Find(id string) (*Opportunity, bool) {
	if p == nil {
		return nil, false
	}
	i, ok := p.index[id]
	if !ok {
		return nil, false
	}
	return &p.Opportunities[i], true
}

// planner holds the per-call state for a single FindOpportunities run
type planner struct {
	holidays map[string]bool // resolved holiday dates, YYYY-MM-DD
	extra    DayOffFunc
}

// isFree reports whether a date is a working day the user could take as leave
func (p *planner) isFree(date time.Time) bool {
	if dateutil.IsWeekend(date) {
		return false
	}
	if p.holidays[dateutil.FormatDate(date)] {
		return false
	}
	if p.extra != nil && p.extra(date) {
		return false
	}
	return true
}

// FindOpportunities resolves every holiday relative to opts.Now and returns the
// leave opportunities for weekday holidays inside the lookahead window, sorted
// by holiday date then by efficiency (best first).
func FindOpportunities(holidays []holiday.Holiday, opts Options) *Plan {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	months := opts.LookaheadMonths
	if months <= 0 {
		months = DefaultLookahead
	}

	today := dateutil.StartOfDay(now)
	horizon := dateutil.AddMonthsClamped(today, months)

	type resolved struct {
		h    holiday.Holiday
		date time.Time
	}

	p := &planner{holidays: make(map[string]bool), extra: opts.ExtraDaysOff}
	candidates := make([]resolved, 0, len(holidays))
	for _, h := range holidays {
		date := dateutil.StartOfDay(h.EffectiveDate(now))
		key := dateutil.FormatDate(date)
		if p.holidays[key] {
			continue
		}
		p.holidays[key] = true
		candidates = append(candidates, resolved{h: h, date: date})
	}

	plan := &Plan{index: make(map[string]int)}
	for _, c := range candidates {
		if !c.date.After(today) || c.date.After(horizon) {
			continue
		}
		if dateutil.IsWeekend(c.date) {
			continue
		}
		if opp, ok := p.opportunityFor(c.h, c.date); ok {
			plan.Opportunities = append(plan.Opportunities, opp)
		}
	}

	sortOpportunities(plan.Opportunities)
	for i, o := range plan.Opportunities {
		plan.index[o.ID] = i
	}

	return plan
}

// sortOpportunities orders by holiday date, then best efficiency first
func sortOpportunities(opps []Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if !a.HolidayDate.Equal(b.HolidayDate) {
			return a.HolidayDate.Before(b.HolidayDate)
		}
		if a.Efficiency != b.Efficiency {
			return a.Efficiency > b.Efficiency
		}
		return a.ID < b.ID
	})
}

// OpportunityID builds the stable identifier of a holiday's opportunity
func OpportunityID(holidayID string, date time.Time) string {
	return fmt.Sprintf("%s@%s", holidayID, dateutil.FormatDate(date))
}

func (p *planner) opportunityFor(h holiday.Holiday, date time.Time) (Opportunity, bool) {
	day := func(offset int) time.Time { return dateutil.AddDays(date, offset) }

	opp := Opportunity{
		ID:          OpportunityID(h.ID, date),
		HolidayID:   h.ID,
		HolidayName: h.Name,
		HolidayDate: date,
	}

	switch date.Weekday() {
	case time.Monday:
		if friday := day(-3); p.isFree(friday) {
			opp.fill([]time.Time{friday}, friday, date,
				fmt.Sprintf("Take Friday %s off for a 4-day weekend", friday.Format("Jan 2")))
		} else {
			opp.fill(nil, day(-2), date, "Natural 3-day weekend, no leave needed")
		}

	case time.Tuesday:
		monday := day(-1)
		if !p.isFree(monday) {
			return opp, false
		}
		opp.fill([]time.Time{monday}, day(-3), date,
			fmt.Sprintf("Take Monday %s off for a 4-day weekend", monday.Format("Jan 2")))

	case time.Wednesday:
		before := []time.Time{day(-2), day(-1)}
		after := []time.Time{day(1), day(2)}
		beforeFree := p.isFree(before[0]) && p.isFree(before[1])
		afterFree := p.isFree(after[0]) && p.isFree(after[1])

		switch {
		case beforeFree && afterFree:
			opp.fill(append(before, after...), day(-4), day(4),
				"Take Mon-Tue and Thu-Fri off for a 9-day break")
		case beforeFree:
			opp.fill(before, day(-4), date,
				"Take Monday and Tuesday off for a 5-day break")
		case afterFree:
			opp.fill(after, date, day(4),
				"Take Thursday and Friday off for a 5-day break")
		default:
			return opp, false
		}

	case time.Thursday:
		friday := day(1)
		if !p.isFree(friday) {
			return opp, false
		}
		opp.fill([]time.Time{friday}, date, day(3),
			fmt.Sprintf("Take Friday %s off for a 4-day weekend", friday.Format("Jan 2")))

	case time.Friday:
		if monday := day(3); p.isFree(monday) {
			opp.fill([]time.Time{monday}, date, monday,
				fmt.Sprintf("Take Monday %s off for a 4-day weekend", monday.Format("Jan 2")))
		} else {
			opp.fill(nil, date, day(2), "Natural 3-day weekend, no leave needed")
		}

	default:
		return opp, false
	}

	return opp, true
}

func (o *Opportunity) fill(leave []time.Time, start, end time.Time, description string) {
	if leave == nil {
		leave = []time.Time{}
	}
	o.LeaveDays = leave
	o.StartDate = start
	o.EndDate = end
	o.TotalDaysOff = dateutil.DaysUntil(end, start) + 1
	o.Efficiency = Efficiency(o.TotalDaysOff, len(leave))
	o.Description = description
}
