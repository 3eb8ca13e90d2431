package longweekend

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/holiday-countdown/internal/holiday"
)

const (
	thanksID = "thanks@2025-11-27" // 1 leave day
	eveID    = "eve@2025-12-24"    // 4 leave days
)

func testPlan() *Plan {
	return FindOpportunities([]holiday.Holiday{
		hol("thanks", day(2025, 11, 27)),
		hol("eve", day(2025, 12, 24)),
	}, Options{Now: now})
}

func TestLedgerSelectWithinBudget(t *testing.T) {
	plan := testPlan()
	l := NewLedger(5)

	require.NoError(t, l.Select(plan, thanksID))
	assert.Equal(t, 1, l.Consumed(plan))
	assert.Equal(t, 4, l.Remaining(plan))

	require.NoError(t, l.Select(plan, eveID))
	assert.Equal(t, 5, l.Consumed(plan))
	assert.Equal(t, 0, l.Remaining(plan))

	assert.ErrorIs(t, l.Select(plan, thanksID), ErrAlreadySelected)
	assert.ErrorIs(t, l.Select(plan, "nope"), ErrUnknownOpportunity)
}

func TestLedgerSelectRejectedOverBudget(t *testing.T) {
	plan := testPlan()
	l := NewLedger(3)

	err := l.Select(plan, eveID)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.False(t, l.IsSelected(eveID))
	assert.Equal(t, 0, l.Consumed(plan))
}

func TestLedgerExtendAndShrink(t *testing.T) {
	plan := testPlan()
	l := NewLedger(6)
	require.NoError(t, l.Select(plan, eveID))

	require.NoError(t, l.Extend(plan, eveID, SideAfter))
	assert.Equal(t, Extension{After: 1}, l.Extensions[eveID])
	assert.Equal(t, 5, l.Consumed(plan))

	opp, _ := plan.Find(eveID)
	start, end := EffectiveRange(opp, l.Extensions[eveID])
	assert.Equal(t, day(2025, 12, 20), start)
	assert.Equal(t, day(2025, 12, 29), end)

	require.NoError(t, l.Extend(plan, eveID, SideBefore))
	assert.Equal(t, 6, l.Consumed(plan))

	// budget exhausted
	assert.ErrorIs(t, l.Extend(plan, eveID, SideBefore), ErrBudgetExceeded)
	assert.Equal(t, Extension{Before: 1, After: 1}, l.Extensions[eveID])

	require.NoError(t, l.Shrink(plan, eveID, SideAfter))
	assert.Equal(t, 5, l.Consumed(plan))
	assert.ErrorIs(t, l.Shrink(plan, eveID, SideAfter), ErrNothingToShrink)

	require.NoError(t, l.Shrink(plan, eveID, SideBefore))
	assert.NotContains(t, l.Extensions, eveID)
	assert.Equal(t, 4, l.Consumed(plan))
}

func TestLedgerExtendRequiresSelection(t *testing.T) {
	plan := testPlan()
	l := NewLedger(10)

	assert.ErrorIs(t, l.Extend(plan, thanksID, SideAfter), ErrNotSelected)
	assert.ErrorIs(t, l.Shrink(plan, thanksID, SideAfter), ErrNotSelected)
	assert.ErrorIs(t, l.Extend(plan, "nope", SideAfter), ErrUnknownOpportunity)

	require.NoError(t, l.Select(plan, thanksID))
	assert.ErrorIs(t, l.Extend(plan, thanksID, Side("sideways")), ErrInvalidSide)
}

func TestLedgerDeselectReleasesDays(t *testing.T) {
	plan := testPlan()
	l := NewLedger(6)

	require.NoError(t, l.Select(plan, eveID))
	require.NoError(t, l.Extend(plan, eveID, SideAfter))
	require.NoError(t, l.Deselect(eveID))

	assert.Equal(t, 0, l.Consumed(plan))
	assert.Empty(t, l.Extensions)
	assert.ErrorIs(t, l.Deselect(eveID), ErrNotSelected)

	// extensions do not come back on reselect
	require.NoError(t, l.Select(plan, eveID))
	assert.Equal(t, 4, l.Consumed(plan))
}

func TestLedgerOverBudgetToleratedButNotIncreased(t *testing.T) {
	plan := testPlan()
	l := NewLedger(5)
	require.NoError(t, l.Select(plan, eveID))

	l.SetTotalLeaveDays(2)
	assert.Equal(t, -2, l.Remaining(plan))
	assert.True(t, l.IsSelected(eveID))

	assert.ErrorIs(t, l.Select(plan, thanksID), ErrBudgetExceeded)
	assert.ErrorIs(t, l.Extend(plan, eveID, SideBefore), ErrBudgetExceeded)

	l.SetTotalLeaveDays(-3)
	assert.Equal(t, 0, l.TotalLeaveDays)
}

func TestEffectiveLeaveDaysSkipsWeekends(t *testing.T) {
	// Monday leave day before a Tuesday holiday
	opp := &Opportunity{
		HolidayDate: day(2025, 7, 8),
		StartDate:   day(2025, 7, 7),
		EndDate:     day(2025, 7, 8),
	}

	assert.Equal(t, 1, EffectiveLeaveDays(opp, Extension{}))
	assert.Equal(t, 1, EffectiveLeaveDays(opp, Extension{Before: 2}))
	assert.Equal(t, 2, EffectiveLeaveDays(opp, Extension{Before: 3}))
	assert.Equal(t, 2, EffectiveLeaveDays(opp, Extension{After: 1}))
}

func TestLedgerPrune(t *testing.T) {
	plan := testPlan()
	l := NewLedger(10)
	require.NoError(t, l.Select(plan, thanksID))
	require.NoError(t, l.Select(plan, eveID))
	require.NoError(t, l.Extend(plan, eveID, SideAfter))

	smaller := FindOpportunities([]holiday.Holiday{hol("thanks", day(2025, 11, 27))}, Options{Now: now})
	dropped := l.Prune(smaller)

	assert.Equal(t, []string{eveID}, dropped)
	assert.Equal(t, []string{thanksID}, l.SelectedIDs())
	assert.Empty(t, l.Extensions)
}

func TestLedgerSelections(t *testing.T) {
	plan := testPlan()
	l := NewLedger(10)
	require.NoError(t, l.Select(plan, eveID))
	require.NoError(t, l.Select(plan, thanksID))
	require.NoError(t, l.Extend(plan, thanksID, SideAfter))

	sel := l.Selections(plan)
	require.Len(t, sel, 2)
	assert.Equal(t, thanksID, sel[0].Opportunity.ID)
	assert.Equal(t, 2, sel[0].LeaveDays)
	assert.Equal(t, 5, sel[0].TotalDays)
	assert.Equal(t, eveID, sel[1].Opportunity.ID)
	assert.Equal(t, 9, sel[1].TotalDays)
}

func TestLedgerInvariantUnderRandomOperations(t *testing.T) {
	holidays := []holiday.Holiday{
		hol("a", day(2025, 7, 4)),
		hol("b", day(2025, 9, 1)),
		hol("c", day(2025, 11, 11)),
		hol("d", day(2025, 11, 27)),
		hol("e", day(2025, 12, 24)),
		hol("f", day(2026, 1, 1)),
	}
	plan := FindOpportunities(holidays, Options{Now: now})
	require.NotEmpty(t, plan.Opportunities)

	rng := rand.New(rand.NewSource(42))
	sides := []Side{SideBefore, SideAfter}

	for run := 0; run < 50; run++ {
		l := NewLedger(rng.Intn(12))
		for step := 0; step < 40; step++ {
			id := plan.Opportunities[rng.Intn(len(plan.Opportunities))].ID
			side := sides[rng.Intn(2)]

			var err error
			switch rng.Intn(4) {
			case 0:
				err = l.Select(plan, id)
			case 1:
				err = l.Extend(plan, id, side)
			case 2:
				err = l.Shrink(plan, id, side)
			case 3:
				err = l.Deselect(id)
			}

			if err == nil {
				require.LessOrEqual(t, l.Consumed(plan), l.TotalLeaveDays,
					"run %d step %d: accepted operation exceeded budget", run, step)
			}
		}
	}
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide(" Before ")
	require.NoError(t, err)
	assert.Equal(t, SideBefore, s)

	s, err = ParseSide("after")
	require.NoError(t, err)
	assert.Equal(t, SideAfter, s)

	_, err = ParseSide("left")
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestStateManagerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "leave.json")
	plan := testPlan()

	sm := NewStateManager(path, 7, nil)
	require.NoError(t, sm.Load())

	l := sm.Ledger("42")
	assert.Equal(t, 7, l.TotalLeaveDays)
	require.NoError(t, l.Select(plan, eveID))
	require.NoError(t, l.Extend(plan, eveID, SideBefore))
	require.NoError(t, sm.Save())

	reloaded := NewStateManager(path, 3, nil)
	require.NoError(t, reloaded.Load())

	got := reloaded.Ledger("42")
	assert.Equal(t, 7, got.TotalLeaveDays)
	assert.True(t, got.IsSelected(eveID))
	assert.Equal(t, Extension{Before: 1}, got.Extensions[eveID])

	fresh := reloaded.Ledger("other")
	assert.Equal(t, 3, fresh.TotalLeaveDays)
	assert.Empty(t, fresh.SelectedIDs())
}

func TestStateManagerLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leave.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	sm := NewStateManager(path, 0, nil)
	assert.Error(t, sm.Load())
}
