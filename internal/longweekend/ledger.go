package longweekend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/username/holiday-countdown/pkg/dateutil"
)

var (
	ErrUnknownOpportunity = errors.New("unknown opportunity")
	ErrAlreadySelected    = errors.New("opportunity already selected")
	ErrNotSelected        = errors.New("opportunity not selected")
	ErrBudgetExceeded     = errors.New("leave budget exceeded")
	ErrNothingToShrink    = errors.New("no extension to shrink on this side")
	ErrInvalidSide        = errors.New("invalid side")
)

// Side is the end of an opportunity window that an extension applies to
type Side string

const (
	SideBefore Side = "before"
	SideAfter  Side = "after"
)

// ParseSide converts user input into a Side
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBefore:
		return SideBefore, nil
	case SideAfter:
		return SideAfter, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// Extension is the number of extra days added on each side of an opportunity
type Extension struct {
	Before int `json:"before"`
	After  int `json:"after"`
}

// Ledger tracks a user's leave budget against selected opportunities.
// Only ids, extensions and the budget are stored; opportunities are always
// recomputed from the holiday set.
type Ledger struct {
	TotalLeaveDays int                  `json:"total_leave_days"`
	Selected       map[string]bool      `json:"selected"`
	Extensions     map[string]Extension `json:"extensions"`
}

// NewLedger creates an empty ledger with the given budget
func NewLedger(totalLeaveDays int) *Ledger {
	l := &Ledger{}
	l.SetTotalLeaveDays(totalLeaveDays)
	l.ensure()
	return l
}

func (l *Ledger) ensure() {
	if l.Selected == nil {
		l.Selected = make(map[string]bool)
	}
	if l.Extensions == nil {
		l.Extensions = make(map[string]Extension)
	}
}

// SetTotalLeaveDays updates the budget. Lowering it below the consumed amount
// is allowed; further selections and extensions are then rejected.
func (l *Ledger) SetTotalLeaveDays(n int) {
	if n < 0 {
		n = 0
	}
	l.TotalLeaveDays = n
}

// IsSelected reports whether the opportunity is selected
func (l *Ledger) IsSelected(id string) bool {
	return l.Selected[id]
}

// SelectedIDs returns the selected opportunity ids in sorted order
func (l *Ledger) SelectedIDs() []string {
	ids := make([]string, 0, len(l.Selected))
	for id, ok := range l.Selected {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// EffectiveRange returns the opportunity window grown by the extension
func EffectiveRange(opp *Opportunity, ext Extension) (start, end time.Time) {
	return dateutil.AddDays(opp.StartDate, -ext.Before), dateutil.AddDays(opp.EndDate, ext.After)
}

// EffectiveLeaveDays counts weekdays in the extended window, excluding the holiday itself
func EffectiveLeaveDays(opp *Opportunity, ext Extension) int {
	start, end := EffectiveRange(opp, ext)

	count := 0
	for d := start; !d.After(end); d = dateutil.AddDays(d, 1) {
		if dateutil.IsWeekend(d) || dateutil.IsSameDay(d, opp.HolidayDate) {
			continue
		}
		count++
	}
	return count
}

// Consumed returns the leave days used by all selected opportunities present in the plan
func (l *Ledger) Consumed(plan *Plan) int {
	total := 0
	for id, ok := range l.Selected {
		if !ok {
			continue
		}
		opp, found := plan.Find(id)
		if !found {
			continue
		}
		total += EffectiveLeaveDays(opp, l.Extensions[id])
	}
	return total
}

// Remaining returns the unspent budget; negative when over budget
func (l *Ledger) Remaining(plan *Plan) int {
	return l.TotalLeaveDays - l.Consumed(plan)
}

// Select adds an opportunity to the selection if the budget allows
func (l *Ledger) Select(plan *Plan, id string) error {
	opp, ok := plan.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOpportunity, id)
	}
	if l.IsSelected(id) {
		return fmt.Errorf("%w: %s", ErrAlreadySelected, id)
	}

	required := EffectiveLeaveDays(opp, Extension{})
	if remaining := l.Remaining(plan); required > remaining {
		return fmt.Errorf("%w: need %d, have %d", ErrBudgetExceeded, required, remaining)
	}

	l.ensure()
	l.Selected[id] = true
	delete(l.Extensions, id)
	return nil
}

// Deselect removes an opportunity and clears its extensions
func (l *Ledger) Deselect(id string) error {
	if !l.IsSelected(id) {
		return fmt.Errorf("%w: %s", ErrNotSelected, id)
	}
	delete(l.Selected, id)
	delete(l.Extensions, id)
	return nil
}

// Extend grows a selected opportunity's window by one day on the given side
func (l *Ledger) Extend(plan *Plan, id string, side Side) error {
	if _, ok := plan.Find(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOpportunity, id)
	}
	if !l.IsSelected(id) {
		return fmt.Errorf("%w: %s", ErrNotSelected, id)
	}
	if remaining := l.Remaining(plan); remaining <= 0 {
		return fmt.Errorf("%w: %d days left", ErrBudgetExceeded, remaining)
	}

	ext := l.Extensions[id]
	switch side {
	case SideBefore:
		ext.Before++
	case SideAfter:
		ext.After++
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}

	l.ensure()
	l.Extensions[id] = ext
	return nil
}

// Shrink reverses one day of extension on the given side
func (l *Ledger) Shrink(plan *Plan, id string, side Side) error {
	if _, ok := plan.Find(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOpportunity, id)
	}
	if !l.IsSelected(id) {
		return fmt.Errorf("%w: %s", ErrNotSelected, id)
	}

	ext := l.Extensions[id]
	switch side {
	case SideBefore:
		if ext.Before == 0 {
			return ErrNothingToShrink
		}
		ext.Before--
	case SideAfter:
		if ext.After == 0 {
			return ErrNothingToShrink
		}
		ext.After--
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}

	if ext == (Extension{}) {
		delete(l.Extensions, id)
	} else {
		l.Extensions[id] = ext
	}
	return nil
}

// Prune drops selections and extensions whose opportunity is no longer in the plan
func (l *Ledger) Prune(plan *Plan) []string {
	var dropped []string
	for id := range l.Selected {
		if _, ok := plan.Find(id); !ok {
			dropped = append(dropped, id)
			delete(l.Selected, id)
		}
	}
	for id := range l.Extensions {
		if !l.Selected[id] {
			delete(l.Extensions, id)
		}
	}
	sort.Strings(dropped)
	return dropped
}

// Selection is a selected opportunity with its extended window
type Selection struct {
	Opportunity *Opportunity
	Extension   Extension
	Start       time.Time
	End         time.Time
	LeaveDays   int
	TotalDays   int
}

// Selections resolves the selected opportunities against the plan, in plan order
func (l *Ledger) Selections(plan *Plan) []Selection {
	if plan == nil {
		return nil
	}

	var out []Selection
	for i := range plan.Opportunities {
		opp := &plan.Opportunities[i]
		if !l.IsSelected(opp.ID) {
			continue
		}
		ext := l.Extensions[opp.ID]
		start, end := EffectiveRange(opp, ext)
		out = append(out, Selection{
			Opportunity: opp,
			Extension:   ext,
			Start:       start,
			End:         end,
			LeaveDays:   EffectiveLeaveDays(opp, ext),
			TotalDays:   dateutil.DaysUntil(end, start) + 1,
		})
	}
	return out
}
