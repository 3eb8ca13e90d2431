package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/username/holiday-countdown/internal/calendar"
	"github.com/username/holiday-countdown/internal/config"
	"github.com/username/holiday-countdown/internal/countdown"
	"github.com/username/holiday-countdown/internal/holiday"
	"github.com/username/holiday-countdown/internal/ics"
	"github.com/username/holiday-countdown/internal/store"
	"github.com/username/holiday-countdown/internal/telegram"
	"github.com/username/holiday-countdown/pkg/dateutil"
)

// openStore connects to Redis, or keeps records in memory when no URL is set
func openStore(ctx context.Context, c *config.Config) (store.Store, func(), error) {
	if c.Redis.URL == "" {
		logger.Warn("redis.url is not set, countdowns are kept in memory only")
		return store.NewMemoryStore(), func() {}, nil
	}

	rs, err := store.Dial(ctx, c.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Connected to redis")
	return rs, func() { _ = rs.Close() }, nil
}

func openRepository(ctx context.Context, c *config.Config) (*countdown.Repository, store.Store, func(), error) {
	s, closeFn, err := openStore(ctx, c)
	if err != nil {
		return nil, nil, nil, err
	}
	return countdown.NewRepository(s, logger), s, closeFn, nil
}

func newTelegramClient(c *config.Config) (*telegram.Client, error) {
	if err := c.RequireTelegram(); err != nil {
		return nil, err
	}
	return telegram.NewClient(c.Telegram.APIURL, c.Telegram.BotToken, logger), nil
}

// newCalendar builds the day-off calendar used by the planner
func newCalendar(c *config.Config, loc *time.Location) (calendar.Calendar, error) {
	var fallback calendar.Calendar
	if c.Calendar.FallbackFile != "" {
		fallback = calendar.NewFileCalendar(c.Calendar.FallbackFile, logger)
	}

	switch c.Calendar.Type {
	case config.CalendarPublic:
		logger.Debug("Using public holiday calendar", zap.String("country", c.Calendar.Country))
		return calendar.NewPublicCalendar(c.Calendar.Country, loc)

	case config.CalendarIsDayOff:
		logger.Debug("Using isdayoff.ru calendar API", zap.String("country", c.Calendar.Country))
		primary := calendar.NewIsDayOffCalendar(c.Calendar.APIURL, c.Calendar.Country, c.Calendar.GetCacheTTL(), logger)
		if fallback == nil {
			pc, err := calendar.NewPublicCalendar(c.Calendar.Country, loc)
			if err != nil {
				// no public rules for this country; weekends only
				return primary, nil
			}
			fallback = pc
		}
		composite := calendar.NewCompositeCalendar(primary, fallback, logger)
		if err := composite.LoadFallback(); err != nil {
			logger.Warn("Failed to load fallback calendar, continuing with API only", zap.Error(err))
		}
		return composite, nil

	case config.CalendarFile:
		fc := calendar.NewFileCalendar(c.Calendar.FallbackFile, logger)
		if err := fc.Load(); err != nil {
			return nil, err
		}
		return fc, nil

	default:
		return nil, fmt.Errorf("unknown calendar type: %s", c.Calendar.Type)
	}
}

// loadHolidays reads user holidays from a YAML or ICS file
func loadHolidays(path string, loc *time.Location) ([]holiday.Holiday, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ics", ".ical":
		return ics.NewImporter(loc, logger).ImportFile(path)
	default:
		return holiday.LoadFile(path, loc)
	}
}

// publicHolidays converts the public holidays of the next months into holiday records
func publicHolidays(country string, loc *time.Location, now time.Time, months int) ([]holiday.Holiday, error) {
	pc, err := calendar.NewPublicCalendar(country, loc)
	if err != nil {
		return nil, err
	}

	today := dateutil.StartOfDay(now)
	var out []holiday.Holiday
	for _, ph := range pc.Holidays(today, dateutil.AddMonthsClamped(today, months)) {
		h := holiday.Holiday{
			ID:       fmt.Sprintf("%s-%s", pc.Country(), dateutil.FormatDate(ph.Observed)),
			Name:     ph.Name,
			Date:     ph.Observed,
			Category: holiday.CategoryCelebration,
			Source:   "public",
		}
		h.Normalize()
		out = append(out, h)
	}
	return out, nil
}
