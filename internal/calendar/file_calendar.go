package calendar

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/username/holiday-countdown/pkg/dateutil"
)

// fileDay is one entry of a day-off file
type fileDay struct {
	Date string `yaml:"date"`
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

type dayFile struct {
	Days []fileDay `yaml:"days"`
}

// FileCalendar implements Calendar using a local YAML file of exceptions.
// Days not listed follow the regular Monday-Friday week.
type FileCalendar struct {
	filePath string
	logger   *zap.Logger
	days     map[string]DayInfo // key: YYYY-MM-DD
}

// NewFileCalendar creates a new FileCalendar instance
func NewFileCalendar(filePath string, logger *zap.Logger) *FileCalendar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileCalendar{
		filePath: filePath,
		logger:   logger,
		days:     make(map[string]DayInfo),
	}
}

// Load loads calendar data from file
func (fc *FileCalendar) Load() error {
	file, err := os.Open(fc.filePath)
	if err != nil {
		return fmt.Errorf("failed to open calendar file: %w", err)
	}
	defer file.Close()

	if err := fc.decode(file); err != nil {
		return err
	}

	fc.logger.Info("Calendar file loaded",
		zap.String("file", fc.filePath),
		zap.Int("days", len(fc.days)))

	return nil
}

func (fc *FileCalendar) decode(r io.Reader) error {
	var doc dayFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse calendar file: %w", err)
	}

	days := make(map[string]DayInfo, len(doc.Days))
	for _, d := range doc.Days {
		date, err := dateutil.ParseDate(d.Date, time.UTC)
		if err != nil {
			fc.logger.Warn("Failed to parse date", zap.String("date", d.Date), zap.Error(err))
			continue
		}

		info := DayInfo{Date: date, Name: d.Name}
		switch strings.ToLower(strings.TrimSpace(d.Type)) {
		case "workday":
			info.Type = DayTypeWorkday
			info.IsWorkday = true
		case "shortened":
			info.Type = DayTypeShortened
			info.IsWorkday = true
		case "weekend":
			info.Type = DayTypeWeekend
		case "holiday", "":
			info.Type = DayTypeHoliday
		default:
			fc.logger.Warn("Unknown day type", zap.String("type", d.Type))
			continue
		}

		days[dateutil.FormatDate(date)] = info
	}

	fc.days = days
	return nil
}

// GetDayInfo returns detailed info for a specific day
func (fc *FileCalendar) GetDayInfo(date time.Time) (*DayInfo, error) {
	if info, ok := fc.days[dateutil.FormatDate(date)]; ok {
		info.Date = dateutil.StartOfDay(date)
		return &info, nil
	}

	info := &DayInfo{Date: dateutil.StartOfDay(date), Type: DayTypeWorkday, IsWorkday: true}
	if dateutil.IsWeekend(date) {
		info.Type = DayTypeWeekend
		info.IsWorkday = false
	}
	return info, nil
}

// GetMonthInfo returns calendar info for the entire month
func (fc *FileCalendar) GetMonthInfo(year int, month time.Month) (*MonthInfo, error) {
	monthInfo := &MonthInfo{Year: year, Month: month}
	for day := 1; day <= dateutil.DaysIn(year, month); day++ {
		info, err := fc.GetDayInfo(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
		if err != nil {
			return nil, err
		}
		monthInfo.add(*info)
	}
	return monthInfo, nil
}
