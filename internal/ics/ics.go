// Package ics imports holidays from iCalendar files.
package ics

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/username/holiday-countdown/internal/holiday"
)

// Source is the holiday source recorded on imported events
const Source = "ics"

const dateLayout = "20060102"

// Importer converts VEVENTs into holidays
type Importer struct {
	location *time.Location
	logger   *zap.Logger
}

// NewImporter creates an importer. All-day dates are placed in loc.
func NewImporter(loc *time.Location, logger *zap.Logger) *Importer {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{location: loc, logger: logger}
}

// ImportFile reads holidays from an .ics file
func (im *Importer) ImportFile(path string) ([]holiday.Holiday, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ics file: %w", err)
	}
	defer f.Close()

	return im.Import(f)
}

// Import parses an iCalendar stream. Events that cannot be converted are
// logged and skipped.
func (im *Importer) Import(r io.Reader) ([]holiday.Holiday, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ics: %w", err)
	}

	events := cal.Events()
	holidays := make([]holiday.Holiday, 0, len(events))
	for _, ev := range events {
		h, err := im.convert(ev)
		if err != nil {
			im.logger.Warn("Skipping event", zap.String("uid", ev.Id()), zap.Error(err))
			continue
		}
		holidays = append(holidays, h)
	}

	im.logger.Info("Calendar imported",
		zap.Int("events", len(events)),
		zap.Int("holidays", len(holidays)))

	return holidays, nil
}

func (im *Importer) convert(ev *ical.VEvent) (holiday.Holiday, error) {
	var h holiday.Holiday

	summary := propValue(ev, ical.ComponentPropertySummary)
	if summary == "" {
		return h, errors.New("missing SUMMARY")
	}

	date, err := im.startDate(ev)
	if err != nil {
		return h, err
	}

	id := propValue(ev, ical.ComponentPropertyUniqueId)
	if id == "" {
		id = uuid.NewString()
	}

	h = holiday.Holiday{
		ID:          id,
		Name:        summary,
		Date:        date,
		Description: propValue(ev, ical.ComponentPropertyDescription),
		Category:    category(propValue(ev, ical.ComponentPropertyCategories)),
		Recurrence:  holiday.RecurrenceNone,
		Source:      Source,
	}

	if raw := propValue(ev, ical.ComponentPropertyRrule); raw != "" {
		rec, err := RecurrenceFromRRule(raw)
		if err != nil {
			im.logger.Warn("Unsupported RRULE, importing as one-time event",
				zap.String("uid", id),
				zap.String("rrule", raw),
				zap.Error(err))
		} else {
			h.Recurrence = rec
		}
	}

	h.Normalize()
	if err := h.Validate(); err != nil {
		return h, err
	}
	return h, nil
}

// startDate returns DTSTART. All-day values are read as calendar dates in
// the importer location, date-times keep their zone.
func (im *Importer) startDate(ev *ical.VEvent) (time.Time, error) {
	prop := ev.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil || prop.Value == "" {
		return time.Time{}, errors.New("missing DTSTART")
	}

	value := strings.TrimSpace(prop.Value)
	if !strings.Contains(value, "T") {
		date, err := time.ParseInLocation(dateLayout, value, im.location)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid DTSTART %q: %w", value, err)
		}
		return date, nil
	}

	start, err := ev.GetStartAt()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid DTSTART %q: %w", value, err)
	}
	return start, nil
}

// RecurrenceFromRRule maps an RRULE onto the supported repeat units.
// Only unit intervals of yearly, monthly and weekly rules are representable.
func RecurrenceFromRRule(raw string) (holiday.Recurrence, error) {
	opt, err := rrule.StrToROption(strings.TrimPrefix(strings.TrimSpace(raw), "RRULE:"))
	if err != nil {
		return holiday.RecurrenceNone, fmt.Errorf("failed to parse RRULE: %w", err)
	}
	if opt.Interval > 1 {
		return holiday.RecurrenceNone, fmt.Errorf("interval %d not supported", opt.Interval)
	}

	switch opt.Freq {
	case rrule.YEARLY:
		return holiday.RecurrenceYearly, nil
	case rrule.MONTHLY:
		return holiday.RecurrenceMonthly, nil
	case rrule.WEEKLY:
		return holiday.RecurrenceWeekly, nil
	default:
		return holiday.RecurrenceNone, fmt.Errorf("frequency %s not supported", opt.Freq)
	}
}

func propValue(ev *ical.VEvent, name ical.ComponentProperty) string {
	if p := ev.GetProperty(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

// category picks the first CATEGORIES entry we know about
func category(raw string) holiday.Category {
	for _, c := range strings.Split(raw, ",") {
		if cat := holiday.ParseCategory(c); cat != holiday.CategoryCustom {
			return cat
		}
	}
	return holiday.CategoryCustom
}
