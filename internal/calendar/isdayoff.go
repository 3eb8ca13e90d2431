package calendar

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/username/holiday-countdown/pkg/dateutil"
)

const (
	isdayoffBaseURL    = "https://isdayoff.ru"
	defaultHTTPTimeout = 10 * time.Second
	defaultCacheTTL    = 24 * time.Hour
)

// IsDayOffCalendar implements Calendar using the isdayoff.ru bulk API
type IsDayOffCalendar struct {
	baseURL    string
	country    string
	httpClient *http.Client
	logger     *zap.Logger
	cache      map[string]*cachedMonth
	cacheMu    sync.RWMutex
	cacheTTL   time.Duration
}

type cachedMonth struct {
	data      *MonthInfo
	fetchedAt time.Time
}

// NewIsDayOffCalendar creates a new IsDayOffCalendar instance.
// An empty baseURL uses the public service.
func NewIsDayOffCalendar(baseURL, country string, cacheTTL time.Duration, logger *zap.Logger) *IsDayOffCalendar {
	if baseURL == "" {
		baseURL = isdayoffBaseURL
	}
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IsDayOffCalendar{
		baseURL: strings.TrimRight(baseURL, "/"),
		country: strings.ToLower(country),
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		logger:   logger,
		cache:    make(map[string]*cachedMonth),
		cacheTTL: cacheTTL,
	}
}

// GetDayInfo returns detailed info for a specific day
func (c *IsDayOffCalendar) GetDayInfo(date time.Time) (*DayInfo, error) {
	monthInfo, err := c.GetMonthInfo(date.Year(), date.Month())
	if err != nil {
		return nil, err
	}
	return findDay(monthInfo, date)
}

// GetMonthInfo returns calendar info for the entire month
func (c *IsDayOffCalendar) GetMonthInfo(year int, month time.Month) (*MonthInfo, error) {
	key := monthKey(year, month)

	c.cacheMu.RLock()
	cached, ok := c.cache[key]
	c.cacheMu.RUnlock()
	if ok && time.Since(cached.fetchedAt) < c.cacheTTL {
		return cached.data, nil
	}

	monthInfo, err := c.fetchMonth(year, month)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.cache[key] = &cachedMonth{data: monthInfo, fetchedAt: time.Now()}
	c.cacheMu.Unlock()

	return monthInfo, nil
}

// fetchMonth fetches an entire month from the bulk endpoint
func (c *IsDayOffCalendar) fetchMonth(year int, month time.Month) (*MonthInfo, error) {
	// https://isdayoff.ru/api/getdata?year=2025&month=11&pre=1
	url := fmt.Sprintf("%s/api/getdata?year=%d&month=%d&pre=1", c.baseURL, year, int(month))
	if c.country != "" {
		url += "&cc=" + c.country
	}

	c.logger.Debug("Fetching month from isdayoff",
		zap.String("url", url),
		zap.Int("year", year),
		zap.Int("month", int(month)))

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("isdayoff returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	monthInfo, err := parseBulkResponse(year, month, strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bulk response: %w", err)
	}

	c.logger.Info("Month info fetched from isdayoff",
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int("holidays", monthInfo.Holidays))

	return monthInfo, nil
}

// parseBulkResponse parses the bulk response string, one digit per day:
// 0 = working day, 1 = non-working day, 2 = shortened day, 4 = working day
func parseBulkResponse(year int, month time.Month, data string) (*MonthInfo, error) {
	daysInMonth := dateutil.DaysIn(year, month)

	if len(data) != daysInMonth {
		return nil, fmt.Errorf("bulk data length mismatch: expected %d, got %d", daysInMonth, len(data))
	}

	monthInfo := &MonthInfo{
		Year:  year,
		Month: month,
		Days:  make([]DayInfo, 0, daysInMonth),
	}

	for i, code := range data {
		date := time.Date(year, month, i+1, 0, 0, 0, 0, time.UTC)
		day := DayInfo{Date: date}

		switch code {
		case '0', '4':
			day.Type = DayTypeWorkday
			day.IsWorkday = true
		case '1':
			if dateutil.IsWeekend(date) {
				day.Type = DayTypeWeekend
			} else {
				day.Type = DayTypeHoliday
			}
		case '2':
			day.Type = DayTypeShortened
			day.IsWorkday = true
		default:
			return nil, fmt.Errorf("unknown code '%c' at position %d", code, i)
		}

		monthInfo.add(day)
	}

	return monthInfo, nil
}

// ClearCache clears the cache
func (c *IsDayOffCalendar) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	c.cache = make(map[string]*cachedMonth)
	c.logger.Debug("Calendar cache cleared")
}
