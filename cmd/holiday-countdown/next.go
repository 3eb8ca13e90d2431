package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/holiday-countdown/internal/holiday"
	"github.com/username/holiday-countdown/internal/reminder"
)

func nextCmd() *cobra.Command {
	var file string
	var limit int
	var withPublic bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "List upcoming holidays with days remaining",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := cfg.Dispatch.GetLocation()
			now := time.Now().In(loc)

			if file == "" {
				file = cfg.Calendar.HolidaysFile
			}
			holidays, err := loadHolidays(file, loc)
			if err != nil {
				return err
			}
			if withPublic {
				public, err := publicHolidays(cfg.Calendar.Country, loc, now, cfg.Planner.LookaheadMonths)
				if err != nil {
					logger.Warn("Public holidays unavailable", zap.Error(err))
				}
				holidays = append(holidays, public...)
			}

			upcoming := holiday.Upcoming(holidays, now)
			if limit > 0 && len(upcoming) > limit {
				upcoming = upcoming[:limit]
			}

			out := cmd.OutOrStdout()
			if len(upcoming) == 0 {
				fmt.Fprintln(out, "No upcoming holidays")
				return nil
			}

			for _, o := range upcoming {
				when := humanize.Time(o.Date)
				switch o.DaysUntil {
				case 0:
					when = "today"
				case 1:
					when = "tomorrow"
				}
				fmt.Fprintf(out, "%s %-28s %s  %4d days  %s\n",
					o.Holiday.DisplayIcon(),
					o.Holiday.Name,
					o.Date.Format("Mon 02 Jan 2006"),
					o.DaysUntil,
					when)
				if o.Holiday.ReminderOption != "" && o.Holiday.ReminderOption != reminder.OptionNone {
					fmt.Fprintf(out, "   🔔 %s\n", o.Holiday.ReminderOption.Describe())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Holidays file, .yaml or .ics (default: calendar.holidays_file)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of holidays to show (0 for all)")
	cmd.Flags().BoolVar(&withPublic, "public", false, "Include public holidays of calendar.country")

	return cmd
}
