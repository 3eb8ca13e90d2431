package countdown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/username/holiday-countdown/internal/reminder"
	"github.com/username/holiday-countdown/internal/store"
)

// ErrNotFound is returned when a countdown is not registered
var ErrNotFound = errors.New("countdown not found")

// Entry is a raw stored record, decoded lazily so one bad record cannot
// break a listing. Err is set when the key could not be read.
type Entry struct {
	Key  string
	Data []byte
	Err  error
}

// Repository stores countdown records and per-user indexes in a key-value store
type Repository struct {
	store  store.Store
	logger *zap.Logger
}

// NewRepository creates a repository over s
func NewRepository(s store.Store, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{store: s, logger: logger}
}

// Decode parses a stored record
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	rec.ReminderOption = reminder.ParseOption(string(rec.ReminderOption))
	return &rec, nil
}

// Register stores the record and adds it to the user's index.
// Registering an existing countdown replaces it.
func (r *Repository) Register(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid countdown: %w", err)
	}
	if err := r.put(ctx, rec); err != nil {
		return err
	}

	ids, err := r.index(ctx, rec.UserID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == rec.HolidayID {
			return nil
		}
	}
	return r.writeIndex(ctx, rec.UserID, append(ids, rec.HolidayID))
}

// Unregister deletes the record and removes it from the user's index
func (r *Repository) Unregister(ctx context.Context, userID int64, holidayID string) error {
	if err := r.store.Delete(ctx, RecordKey(userID, holidayID)); err != nil {
		return fmt.Errorf("failed to delete countdown: %w", err)
	}

	ids, err := r.index(ctx, userID)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, id := range ids {
		if id != holidayID {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		if err := r.store.Delete(ctx, IndexKey(userID)); err != nil {
			return fmt.Errorf("failed to delete countdown index: %w", err)
		}
		return nil
	}
	return r.writeIndex(ctx, userID, kept)
}

// Get returns a single record
func (r *Repository) Get(ctx context.Context, userID int64, holidayID string) (*Record, error) {
	data, err := r.store.Get(ctx, RecordKey(userID, holidayID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get countdown: %w", err)
	}
	return Decode(data)
}

// ListForUser returns the user's records in index order. Dangling index
// entries and malformed records are logged and skipped.
func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]Record, error) {
	ids, err := r.index(ctx, userID)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Get(ctx, userID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformedRecord) {
				r.logger.Warn("Skipping countdown",
					zap.Int64("user_id", userID),
					zap.String("holiday_id", id),
					zap.Error(err))
				continue
			}
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Entries returns every stored countdown record, undecoded and sorted by key.
// Only a failed listing is an error; unreadable keys come back with Err set.
func (r *Repository) Entries(ctx context.Context) ([]Entry, error) {
	keys, err := r.store.List(ctx, recordPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list countdowns: %w", err)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// deleted since listing
				continue
			}
			r.logger.Warn("Failed to read countdown",
				zap.String("key", key),
				zap.Error(err))
			entries = append(entries, Entry{Key: key, Err: fmt.Errorf("failed to read %s: %w", key, err)})
			continue
		}
		entries = append(entries, Entry{Key: key, Data: data})
	}
	return entries, nil
}

// MarkNotified records a successful send on the record stored under key
func (r *Repository) MarkNotified(ctx context.Context, key string, rec *Record, notifyKey string) error {
	updated := *rec
	updated.LastNotified = notifyKey

	data, err := json.Marshal(&updated)
	if err != nil {
		return fmt.Errorf("failed to marshal countdown: %w", err)
	}
	if err := r.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store countdown: %w", err)
	}

	rec.LastNotified = notifyKey
	return nil
}

func (r *Repository) put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal countdown: %w", err)
	}
	if err := r.store.Put(ctx, rec.Key(), data); err != nil {
		return fmt.Errorf("failed to store countdown: %w", err)
	}
	return nil
}

func (r *Repository) index(ctx context.Context, userID int64) ([]string, error) {
	data, err := r.store.Get(ctx, IndexKey(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read countdown index: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		r.logger.Warn("Countdown index is corrupt, rebuilding",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, nil
	}
	return ids, nil
}

func (r *Repository) writeIndex(ctx context.Context, userID int64, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal countdown index: %w", err)
	}
	if err := r.store.Put(ctx, IndexKey(userID), data); err != nil {
		return fmt.Errorf("failed to store countdown index: %w", err)
	}
	return nil
}
