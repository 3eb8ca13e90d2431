package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/holiday-countdown/internal/calendar"
	"github.com/username/holiday-countdown/internal/holiday"
	"github.com/username/holiday-countdown/internal/longweekend"
	"github.com/username/holiday-countdown/pkg/dateutil"
)

type planFlags struct {
	user       string
	file       string
	withPublic bool
}

// planContext is the loaded plan and the user's ledger
type planContext struct {
	plan   *longweekend.Plan
	state  *longweekend.StateManager
	ledger *longweekend.Ledger
}

func planCmd() *cobra.Command {
	flags := &planFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan long weekends around holidays with a leave-day budget",
	}

	cmd.PersistentFlags().StringVarP(&flags.user, "user", "u", "default", "Ledger owner")
	cmd.PersistentFlags().StringVarP(&flags.file, "file", "f", "", "Holidays file, .yaml or .ics (default: calendar.holidays_file)")
	cmd.PersistentFlags().BoolVar(&flags.withPublic, "public", true, "Include public holidays of calendar.country")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List opportunities and the current selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadPlan(flags)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), pc)
			return nil
		},
	})

	cmd.AddCommand(ledgerCmd(flags, "select <id>", "Select an opportunity", 1,
		func(pc *planContext, args []string) error {
			return pc.ledger.Select(pc.plan, args[0])
		}))

	cmd.AddCommand(ledgerCmd(flags, "deselect <id>", "Deselect an opportunity", 1,
		func(pc *planContext, args []string) error {
			return pc.ledger.Deselect(args[0])
		}))

	cmd.AddCommand(ledgerCmd(flags, "extend <id> <before|after>", "Add one leave day to a selected opportunity", 2,
		func(pc *planContext, args []string) error {
			side, err := longweekend.ParseSide(args[1])
			if err != nil {
				return err
			}
			return pc.ledger.Extend(pc.plan, args[0], side)
		}))

	cmd.AddCommand(ledgerCmd(flags, "shrink <id> <before|after>", "Remove one extension day from a selected opportunity", 2,
		func(pc *planContext, args []string) error {
			side, err := longweekend.ParseSide(args[1])
			if err != nil {
				return err
			}
			return pc.ledger.Shrink(pc.plan, args[0], side)
		}))

	cmd.AddCommand(ledgerCmd(flags, "budget <days>", "Set the total number of leave days", 1,
		func(pc *planContext, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid number of days: %q", args[0])
			}
			pc.ledger.SetTotalLeaveDays(n)
			return nil
		}))

	return cmd
}

// ledgerCmd builds a command that mutates the ledger, saves it and prints the plan
func ledgerCmd(flags *planFlags, use, short string, nargs int, apply func(*planContext, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := loadPlan(flags)
			if err != nil {
				return err
			}

			if err := apply(pc, args); err != nil {
				if errors.Is(err, longweekend.ErrBudgetExceeded) {
					return fmt.Errorf("%w (%d leave days remaining)", err, pc.ledger.Remaining(pc.plan))
				}
				return err
			}

			if err := pc.state.Save(); err != nil {
				return err
			}

			printPlan(cmd.OutOrStdout(), pc)
			return nil
		},
	}
}

func loadPlan(flags *planFlags) (*planContext, error) {
	loc := cfg.Dispatch.GetLocation()
	now := time.Now().In(loc)

	// 1. Holidays
	file := flags.file
	if file == "" {
		file = cfg.Calendar.HolidaysFile
	}
	var holidays []holiday.Holiday
	if _, err := os.Stat(file); err == nil {
		holidays, err = loadHolidays(file, loc)
		if err != nil {
			return nil, err
		}
	} else if flags.file != "" {
		return nil, fmt.Errorf("holidays file: %w", err)
	}

	if flags.withPublic {
		public, err := publicHolidays(cfg.Calendar.Country, loc, now, cfg.Planner.LookaheadMonths)
		if err != nil {
			logger.Warn("Public holidays unavailable", zap.Error(err))
		}
		holidays = append(holidays, public...)
	}

	// 2. Opportunities
	opts := longweekend.Options{
		Now:             now,
		LookaheadMonths: cfg.Planner.LookaheadMonths,
	}
	if cal, err := newCalendar(cfg, loc); err != nil {
		logger.Warn("Day-off calendar unavailable, using weekends only", zap.Error(err))
	} else {
		opts.ExtraDaysOff = calendar.DayOffFunc(cal, logger)
	}
	plan := longweekend.FindOpportunities(holidays, opts)

	// 3. Ledger
	state := longweekend.NewStateManager(cfg.State.PlannerFile, cfg.Planner.TotalLeaveDays, logger)
	if err := state.Load(); err != nil {
		return nil, err
	}
	ledger := state.Ledger(flags.user)
	if dropped := ledger.Prune(plan); len(dropped) > 0 {
		logger.Info("Dropped selections no longer in the plan", zap.Strings("ids", dropped))
	}

	return &planContext{plan: plan, state: state, ledger: ledger}, nil
}

func printPlan(w io.Writer, pc *planContext) {
	fmt.Fprintf(w, "Leave budget: %d days, %d used, %d remaining\n\n",
		pc.ledger.TotalLeaveDays, pc.ledger.Consumed(pc.plan), pc.ledger.Remaining(pc.plan))

	if len(pc.plan.Opportunities) == 0 {
		fmt.Fprintln(w, "No long-weekend opportunities in the planning window")
		return
	}

	for _, opp := range pc.plan.Opportunities {
		mark := "[ ]"
		if pc.ledger.IsSelected(opp.ID) {
			mark = "[x]"
		}
		fmt.Fprintf(w, "%s %-32s %s  %2d days off  %d leave  eff %s\n",
			mark, opp.ID, opp.HolidayDate.Format("Mon 02 Jan"), opp.TotalDaysOff, len(opp.LeaveDays), formatEfficiency(opp.Efficiency))
		fmt.Fprintf(w, "    %s: %s\n", opp.HolidayName, opp.Description)
	}

	selections := pc.ledger.Selections(pc.plan)
	if len(selections) == 0 {
		return
	}

	fmt.Fprintln(w, "\nSelected:")
	for _, sel := range selections {
		fmt.Fprintf(w, "  %s  %s .. %s  %d days, %d leave",
			sel.Opportunity.HolidayName,
			dateutil.FormatDate(sel.Start),
			dateutil.FormatDate(sel.End),
			sel.TotalDays,
			sel.LeaveDays)
		if sel.Extension.Before > 0 || sel.Extension.After > 0 {
			fmt.Fprintf(w, " (+%d before, +%d after)", sel.Extension.Before, sel.Extension.After)
		}
		fmt.Fprintln(w)
	}
}

func formatEfficiency(e float64) string {
	if math.IsInf(e, 1) {
		return "∞"
	}
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(e, 'f', 2, 64), "0"), ".")
}
