package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/holiday-countdown/internal/countdown"
	"github.com/username/holiday-countdown/internal/store"
)

type sentMessage struct {
	chatID int64
	text   string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

var fixedNow = time.Date(2025, 12, 20, 9, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T, sender *recordingSender) (*httptest.Server, *countdown.Repository) {
	t.Helper()

	repo := countdown.NewRepository(store.NewMemoryStore(), nil)
	var h *Handler
	if sender != nil {
		h = NewHandler(repo, sender, time.UTC, nil)
	} else {
		h = NewHandler(repo, nil, time.UTC, nil)
	}
	h.now = func() time.Time { return fixedNow }

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"}))

	srv := httptest.NewServer(NewRouter(RouterConfig{Handler: h, Gatherer: reg}))
	t.Cleanup(srv.Close)
	return srv, repo
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRegisterMaterializesNextOccurrence(t *testing.T) {
	sender := &recordingSender{}
	srv, repo := newTestServer(t, sender)

	resp := post(t, srv.URL+"/api/countdowns", `{
		"userId": "42",
		"holidayId": "xmas",
		"name": "Christmas",
		"date": "2020-12-25",
		"category": "celebration",
		"recurrence": "yearly",
		"reminderOption": "1_week"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got CountdownResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "2025-12-25", got.Date)
	assert.Equal(t, 5, got.DaysUntil)
	assert.True(t, got.PreviewSent)
	assert.NotEmpty(t, got.Icon)

	rec, err := repo.Get(context.Background(), 42, "xmas")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-25", rec.Date)
	assert.Empty(t, rec.LastNotified)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].chatID)
	assert.Contains(t, sender.sent[0].text, "Reminder set!")
	assert.Contains(t, sender.sent[0].text, "Christmas")
}

func TestRegisterAssignsIDWhenMissing(t *testing.T) {
	srv, repo := newTestServer(t, &recordingSender{})

	resp := post(t, srv.URL+"/api/countdowns", `{"userId": 7, "name": "Trip", "date": "2026-03-01"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got CountdownResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Len(t, got.HolidayID, 36)

	records, err := repo.ListForUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, got.HolidayID, records[0].HolidayID)
}

func TestRegisterSucceedsWhenPreviewFails(t *testing.T) {
	srv, repo := newTestServer(t, &recordingSender{err: errors.New("bot was blocked")})

	resp := post(t, srv.URL+"/api/countdowns", `{"userId": 9, "holidayId": "nye", "name": "New Year", "date": "2025-12-31"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got CountdownResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.False(t, got.PreviewSent)

	_, err := repo.Get(context.Background(), 9, "nye")
	assert.NoError(t, err)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"not json", `{`, http.StatusBadRequest},
		{"missing user", `{"name": "X", "date": "2026-01-01"}`, http.StatusBadRequest},
		{"missing name", `{"userId": 1, "date": "2026-01-01"}`, http.StatusBadRequest},
		{"bad date", `{"userId": 1, "name": "X", "date": "someday"}`, http.StatusBadRequest},
		{"bad user id", `{"userId": "abc", "name": "X", "date": "2026-01-01"}`, http.StatusBadRequest},
		{"past one-time event", `{"userId": 1, "name": "X", "date": "2025-01-01"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/countdowns", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestListGetAndUnregister(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	post(t, srv.URL+"/api/countdowns", `{"userId": 5, "holidayId": "a", "name": "A", "date": "2025-12-21"}`)
	post(t, srv.URL+"/api/countdowns", `{"userId": 5, "holidayId": "b", "name": "B", "date": "2026-01-01"}`)

	resp, err := http.Get(srv.URL + "/api/users/5/countdowns")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list ListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "a", list.Countdowns[0].HolidayID)
	assert.Equal(t, 1, list.Countdowns[0].DaysUntil)
	assert.Equal(t, 12, list.Countdowns[1].DaysUntil)

	getResp, err := http.Get(srv.URL + "/api/countdowns/5/b")
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/countdowns/5/a", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	missing, err := http.Get(srv.URL + "/api/countdowns/5/a")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestListRejectsBadUserID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/users/nobody/countdowns")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)

	var body bytes.Buffer
	_, err = body.ReadFrom(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "test_total")
}

func TestHealthReportsStoreFailure(t *testing.T) {
	repo := countdown.NewRepository(store.NewMemoryStore(), nil)
	srv := httptest.NewServer(NewRouter(RouterConfig{
		Handler:  NewHandler(repo, nil, time.UTC, nil),
		Health:   failingPinger{},
		Gatherer: prometheus.NewRegistry(),
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
