package holiday

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/username/holiday-countdown/internal/reminder"
	"github.com/username/holiday-countdown/pkg/dateutil"
)

// fileHoliday is the YAML representation of a holiday
type fileHoliday struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Date           string `yaml:"date"`
	Icon           string `yaml:"icon"`
	Category       string `yaml:"category"`
	Color          string `yaml:"color"`
	Description    string `yaml:"description"`
	Recurrence     string `yaml:"recurrence"`
	ReminderOption string `yaml:"reminderOption"`
}

type holidayFile struct {
	Holidays []fileHoliday `yaml:"holidays"`
}

// LoadFile reads holidays from a YAML file
func LoadFile(path string, loc *time.Location) ([]Holiday, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open holidays file: %w", err)
	}
	defer f.Close()

	return Decode(f, loc)
}

// Decode parses a YAML document of the form `holidays: [...]`.
// Dates without a zone are interpreted in loc.
func Decode(r io.Reader, loc *time.Location) ([]Holiday, error) {
	var doc holidayFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse holidays file: %w", err)
	}

	holidays := make([]Holiday, 0, len(doc.Holidays))
	for i, fh := range doc.Holidays {
		date, err := dateutil.ParseDate(fh.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("holiday #%d (%s): %w", i+1, fh.Name, err)
		}

		id := fh.ID
		if id == "" {
			id = fmt.Sprintf("%s-%s", slug(fh.Name), dateutil.FormatDate(date))
		}

		h := Holiday{
			ID:             id,
			Name:           fh.Name,
			Date:           date,
			Icon:           fh.Icon,
			Category:       Category(fh.Category),
			Color:          fh.Color,
			Description:    fh.Description,
			Recurrence:     Recurrence(fh.Recurrence),
			Source:         "file",
			ReminderOption: reminder.Option(fh.ReminderOption),
		}
		h.Normalize()

		if err := h.Validate(); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}

	return holidays, nil
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
