// Package calendar provides non-working day sources used to decide whether a
// weekday around a holiday is free to take as leave.
package calendar

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/username/holiday-countdown/pkg/dateutil"
)

// DayType represents the type of day
type DayType int

const (
	DayTypeWorkday DayType = iota + 1
	DayTypeWeekend
	DayTypeHoliday
	DayTypeShortened
)

// String returns the lowercase name of the day type
func (t DayType) String() string {
	switch t {
	case DayTypeWorkday:
		return "workday"
	case DayTypeWeekend:
		return "weekend"
	case DayTypeHoliday:
		return "holiday"
	case DayTypeShortened:
		return "shortened"
	default:
		return fmt.Sprintf("DayType(%d)", int(t))
	}
}

// DayInfo represents information about a specific day
type DayInfo struct {
	Date      time.Time
	Type      DayType
	IsWorkday bool
	Name      string // holiday name when known
}

// IsDayOff reports whether nobody works on that day
func (d *DayInfo) IsDayOff() bool {
	return !d.IsWorkday
}

// MonthInfo represents calendar information for a month
type MonthInfo struct {
	Year     int
	Month    time.Month
	WorkDays int
	Weekends int
	Holidays int
	Days     []DayInfo
}

// Calendar interface for checking non-working days
type Calendar interface {
	// GetMonthInfo returns calendar info for the entire month
	GetMonthInfo(year int, month time.Month) (*MonthInfo, error)

	// GetDayInfo returns detailed info for a specific day
	GetDayInfo(date time.Time) (*DayInfo, error)
}

// DayOffFunc adapts a Calendar into a predicate. Lookup errors are logged and
// the day is treated as a regular working day.
func DayOffFunc(cal Calendar, logger *zap.Logger) func(time.Time) bool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(date time.Time) bool {
		info, err := cal.GetDayInfo(date)
		if err != nil {
			logger.Debug("Calendar lookup failed, assuming workday",
				zap.String("date", dateutil.FormatDate(date)),
				zap.Error(err))
			return false
		}
		return info.IsDayOff()
	}
}

// findDay picks a date out of month data
func findDay(monthInfo *MonthInfo, date time.Time) (*DayInfo, error) {
	for i := range monthInfo.Days {
		day := monthInfo.Days[i]
		if day.Date.Year() == date.Year() &&
			day.Date.Month() == date.Month() &&
			day.Date.Day() == date.Day() {
			return &day, nil
		}
	}
	return nil, fmt.Errorf("day not found in calendar: %s", dateutil.FormatDate(date))
}

func (m *MonthInfo) add(day DayInfo) {
	switch day.Type {
	case DayTypeWorkday, DayTypeShortened:
		m.WorkDays++
	case DayTypeWeekend:
		m.Weekends++
	case DayTypeHoliday:
		m.Holidays++
	}
	m.Days = append(m.Days, day)
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%d-%02d", year, month)
}
