package countdown

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/holiday-countdown/internal/reminder"
	"github.com/username/holiday-countdown/internal/store"
)

func setupRepository(t *testing.T) (*miniredis.Miniredis, *Repository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRepository(store.NewRedisStore(client), nil)
}

func record(userID int64, holidayID string) *Record {
	return &Record{
		UserID:         userID,
		HolidayID:      holidayID,
		Name:           "New Year",
		Date:           "2026-01-01",
		Icon:           "🎉",
		ReminderOption: reminder.Option1Week,
		CreatedAt:      time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "countdown:42:nye", RecordKey(42, "nye"))
	assert.Equal(t, "user:42:countdowns", IndexKey(42))

	userID, holidayID, err := ParseRecordKey("countdown:42:nye:2026")
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "nye:2026", holidayID)

	for _, bad := range []string{"user:42:countdowns", "countdown:42", "countdown:abc:nye", "countdown:42:"} {
		_, _, err := ParseRecordKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestRegisterStoresRecordAndIndex(t *testing.T) {
	ctx := context.Background()
	mr, repo := setupRepository(t)

	require.NoError(t, repo.Register(ctx, record(42, "nye")))
	require.NoError(t, repo.Register(ctx, record(42, "xmas")))
	require.NoError(t, repo.Register(ctx, record(42, "nye")))

	index, err := mr.Get("user:42:countdowns")
	require.NoError(t, err)
	assert.JSONEq(t, `["nye","xmas"]`, index)

	raw, err := mr.Get("countdown:42:nye")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"userId": 42,
		"holidayId": "nye",
		"name": "New Year",
		"date": "2026-01-01",
		"icon": "🎉",
		"reminderOption": "1_week",
		"createdAt": "2025-12-01T09:00:00Z"
	}`, raw)

	got, err := repo.Get(ctx, 42, "nye")
	require.NoError(t, err)
	assert.Equal(t, record(42, "nye"), got)
}

func TestRegisterRejectsInvalidRecord(t *testing.T) {
	_, repo := setupRepository(t)

	rec := record(42, "nye")
	rec.Date = "soon"
	assert.Error(t, repo.Register(context.Background(), rec))

	rec = record(0, "nye")
	assert.Error(t, repo.Register(context.Background(), rec))
}

func TestUnregister(t *testing.T) {
	ctx := context.Background()
	mr, repo := setupRepository(t)

	require.NoError(t, repo.Register(ctx, record(42, "nye")))
	require.NoError(t, repo.Register(ctx, record(42, "xmas")))

	require.NoError(t, repo.Unregister(ctx, 42, "nye"))
	_, err := repo.Get(ctx, 42, "nye")
	assert.ErrorIs(t, err, ErrNotFound)

	index, err := mr.Get("user:42:countdowns")
	require.NoError(t, err)
	assert.JSONEq(t, `["xmas"]`, index)

	require.NoError(t, repo.Unregister(ctx, 42, "xmas"))
	assert.False(t, mr.Exists("user:42:countdowns"))

	// removing twice is harmless
	require.NoError(t, repo.Unregister(ctx, 42, "xmas"))
}

func TestListForUserSkipsBrokenEntries(t *testing.T) {
	ctx := context.Background()
	mr, repo := setupRepository(t)

	require.NoError(t, repo.Register(ctx, record(42, "nye")))
	require.NoError(t, repo.Register(ctx, record(42, "xmas")))
	require.NoError(t, repo.Register(ctx, record(7, "bday")))

	mr.Set("countdown:42:xmas", "{broken")
	mr.Set("user:42:countdowns", `["nye","xmas","ghost"]`)

	got, err := repo.ListForUser(ctx, 42)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "nye", got[0].HolidayID)

	none, err := repo.ListForUser(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEntriesAndDecode(t *testing.T) {
	ctx := context.Background()
	mr, repo := setupRepository(t)

	require.NoError(t, repo.Register(ctx, record(42, "nye")))
	require.NoError(t, repo.Register(ctx, record(7, "bday")))
	mr.Set("countdown:9:bad", "not json")

	entries, err := repo.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	keys := []string{entries[0].Key, entries[1].Key, entries[2].Key}
	assert.Equal(t, []string{"countdown:42:nye", "countdown:7:bday", "countdown:9:bad"}, keys)

	_, err = Decode(entries[2].Data)
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = Decode([]byte(`{"userId":1,"holidayId":"x","name":"X"}`))
	assert.ErrorIs(t, err, ErrMalformedRecord)

	rec, err := Decode(entries[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "nye", rec.HolidayID)
}

func TestEntriesKeepUnreadableKeys(t *testing.T) {
	ctx := context.Background()
	mr, repo := setupRepository(t)

	require.NoError(t, repo.Register(ctx, record(42, "nye")))
	mr.HSet("countdown:1:hash", "field", "value")

	entries, err := repo.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "countdown:1:hash", entries[0].Key)
	assert.Error(t, entries[0].Err)
	assert.Nil(t, entries[0].Data)

	assert.Equal(t, "countdown:42:nye", entries[1].Key)
	assert.NoError(t, entries[1].Err)
}

func TestDecodeNormalizesReminderOption(t *testing.T) {
	tests := []struct {
		raw  string
		want reminder.Option
	}{
		{`"1_DAY"`, reminder.Option1Day},
		{`" 2_weeks "`, reminder.Option2Weeks},
		{`"sometimes"`, reminder.OptionNone},
		{`""`, reminder.OptionNone},
	}

	for _, tt := range tests {
		data := []byte(`{"userId":1,"holidayId":"x","name":"X","date":"2026-01-01","reminderOption":` + tt.raw + `}`)
		rec, err := Decode(data)
		require.NoError(t, err)
		if rec.ReminderOption != tt.want {
			t.Errorf("Decode(reminderOption=%s) = %q, want %q", tt.raw, rec.ReminderOption, tt.want)
		}
	}
}

func TestMarkNotified(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepository(t)

	rec := record(42, "nye")
	require.NoError(t, repo.Register(ctx, rec))
	require.NoError(t, repo.MarkNotified(ctx, rec.Key(), rec, "7:2025-12-25"))
	assert.Equal(t, "7:2025-12-25", rec.LastNotified)

	got, err := repo.Get(ctx, 42, "nye")
	require.NoError(t, err)
	assert.Equal(t, "7:2025-12-25", got.LastNotified)
}

func TestRepositoryOnMemoryStore(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(store.NewMemoryStore(), nil)

	require.NoError(t, repo.Register(ctx, record(1, "a")))
	got, err := repo.ListForUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
