// Package countdown stores the server-side countdown records that drive
// reminder notifications.
package countdown

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/username/holiday-countdown/internal/reminder"
	"github.com/username/holiday-countdown/pkg/dateutil"
)

const (
	recordPrefix = "countdown:"
	userPrefix   = "user:"
	indexSuffix  = ":countdowns"
)

// ErrMalformedRecord is returned when a stored record cannot be decoded
var ErrMalformedRecord = errors.New("malformed countdown record")

// Record is a registered countdown. Date is the concrete next reminder date,
// materialized at registration time.
type Record struct {
	UserID         int64           `json:"userId" validate:"required"`
	HolidayID      string          `json:"holidayId" validate:"required"`
	Name           string          `json:"name" validate:"required"`
	Date           string          `json:"date" validate:"required"`
	Icon           string          `json:"icon,omitempty"`
	ReminderOption reminder.Option `json:"reminderOption"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastNotified   string          `json:"lastNotified,omitempty"`
}

// Key returns the storage key of the record
func (r *Record) Key() string {
	return RecordKey(r.UserID, r.HolidayID)
}

// ParsedDate parses the stored date in loc
func (r *Record) ParsedDate(loc *time.Location) (time.Time, error) {
	return dateutil.ParseDate(r.Date, loc)
}

// Validate checks required fields and that the date parses
func (r *Record) Validate() error {
	if err := validator.New().Struct(*r); err != nil {
		return err
	}
	if _, err := r.ParsedDate(time.UTC); err != nil {
		return err
	}
	return nil
}

// RecordKey builds countdown:<userId>:<holidayId>
func RecordKey(userID int64, holidayID string) string {
	return fmt.Sprintf("%s%d:%s", recordPrefix, userID, holidayID)
}

// IndexKey builds user:<userId>:countdowns
func IndexKey(userID int64) string {
	return fmt.Sprintf("%s%d%s", userPrefix, userID, indexSuffix)
}

// ParseRecordKey splits a record key into its user and holiday ids
func ParseRecordKey(key string) (userID int64, holidayID string, err error) {
	rest, ok := strings.CutPrefix(key, recordPrefix)
	if !ok {
		return 0, "", fmt.Errorf("not a countdown key: %q", key)
	}
	user, holidayID, ok := strings.Cut(rest, ":")
	if !ok || holidayID == "" {
		return 0, "", fmt.Errorf("not a countdown key: %q", key)
	}
	userID, err = strconv.ParseInt(user, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid user id in key %q: %w", key, err)
	}
	return userID, holidayID, nil
}
