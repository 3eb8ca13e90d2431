// Package api exposes the countdown registration endpoints used by the Mini App.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/username/holiday-countdown/internal/countdown"
	"github.com/username/holiday-countdown/internal/dispatch"
	"github.com/username/holiday-countdown/internal/holiday"
	"github.com/username/holiday-countdown/internal/reminder"
	"github.com/username/holiday-countdown/internal/telegram"
	"github.com/username/holiday-countdown/pkg/dateutil"
)

const defaultPreviewTimeout = 10 * time.Second

// RegisterRequest is the body of POST /api/countdowns
type RegisterRequest struct {
	UserID         telegram.ChatID `json:"userId" validate:"required"`
	HolidayID      string          `json:"holidayId,omitempty"`
	Name           string          `json:"name" validate:"required"`
	Date           string          `json:"date" validate:"required"`
	Icon           string          `json:"icon,omitempty"`
	Category       string          `json:"category,omitempty"`
	Recurrence     string          `json:"recurrence,omitempty"`
	ReminderOption string          `json:"reminderOption,omitempty"`
}

// CountdownResponse is a stored countdown with its current distance
type CountdownResponse struct {
	countdown.Record
	DaysUntil   int  `json:"daysUntil"`
	PreviewSent bool `json:"previewSent,omitempty"`
}

// ListResponse is the body of GET /api/users/{userID}/countdowns
type ListResponse struct {
	Countdowns []CountdownResponse `json:"countdowns"`
	Count      int                 `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the countdown registration API
type Handler struct {
	repo           *countdown.Repository
	sender         dispatch.Sender
	location       *time.Location
	now            func() time.Time
	previewTimeout time.Duration
	validate       *validator.Validate
	logger         *zap.Logger
}

// NewHandler creates a new handler. sender may be nil, in which case no
// preview is sent.
func NewHandler(repo *countdown.Repository, sender dispatch.Sender, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:           repo,
		sender:         sender,
		location:       loc,
		now:            time.Now,
		previewTimeout: defaultPreviewTimeout,
		validate:       validator.New(),
		logger:         logger,
	}
}

// Register handles POST /api/countdowns
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	// 1. Decode and validate
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	anchor, err := dateutil.ParseDate(req.Date, h.location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	hol := holiday.Holiday{
		ID:             req.HolidayID,
		Name:           req.Name,
		Date:           anchor,
		Icon:           req.Icon,
		Category:       holiday.Category(req.Category),
		Recurrence:     holiday.Recurrence(req.Recurrence),
		ReminderOption: reminder.Option(req.ReminderOption),
	}
	if hol.ID == "" {
		hol.ID = uuid.NewString()
	}
	hol.Normalize()

	// 2. Materialize the next occurrence
	now := h.now().In(h.location)
	date := hol.EffectiveDate(now)
	daysUntil := dateutil.DaysUntil(date, now)
	if daysUntil < 0 {
		writeError(w, http.StatusUnprocessableEntity, "event has already passed")
		return
	}

	rec := &countdown.Record{
		UserID:         req.UserID.Int64(),
		HolidayID:      hol.ID,
		Name:           hol.Name,
		Date:           dateutil.FormatDate(date),
		Icon:           hol.DisplayIcon(),
		ReminderOption: hol.ReminderOption,
		CreatedAt:      now,
	}

	// 3. Store
	if err := h.repo.Register(r.Context(), rec); err != nil {
		h.logger.Error("Failed to register countdown",
			zap.Int64("user_id", rec.UserID),
			zap.String("holiday_id", rec.HolidayID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to register countdown")
		return
	}

	h.logger.Info("Countdown registered",
		zap.Int64("user_id", rec.UserID),
		zap.String("holiday_id", rec.HolidayID),
		zap.String("date", rec.Date),
		zap.String("reminder", string(rec.ReminderOption)))

	// 4. Preview; failure does not undo the registration
	resp := CountdownResponse{Record: *rec, DaysUntil: daysUntil}
	resp.PreviewSent = h.sendPreview(r.Context(), rec, daysUntil)

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) sendPreview(ctx context.Context, rec *countdown.Record, daysUntil int) bool {
	if h.sender == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, h.previewTimeout)
	defer cancel()

	text := reminder.FormatMessage(rec.Name, daysUntil, rec.Icon, true)
	if err := h.sender.SendMessage(ctx, rec.UserID, text); err != nil {
		h.logger.Warn("Failed to send preview",
			zap.Int64("user_id", rec.UserID),
			zap.String("holiday_id", rec.HolidayID),
			zap.Error(err))
		return false
	}
	return true
}

// Unregister handles DELETE /api/countdowns/{userID}/{holidayID}
func (h *Handler) Unregister(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	holidayID := chi.URLParam(r, "holidayID")

	if err := h.repo.Unregister(r.Context(), userID, holidayID); err != nil {
		h.logger.Error("Failed to unregister countdown",
			zap.Int64("user_id", userID),
			zap.String("holiday_id", holidayID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to unregister countdown")
		return
	}

	h.logger.Info("Countdown unregistered",
		zap.Int64("user_id", userID),
		zap.String("holiday_id", holidayID))

	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /api/countdowns/{userID}/{holidayID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	rec, err := h.repo.Get(r.Context(), userID, chi.URLParam(r, "holidayID"))
	if err != nil {
		if errors.Is(err, countdown.ErrNotFound) {
			writeError(w, http.StatusNotFound, "countdown not found")
			return
		}
		h.logger.Error("Failed to get countdown", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get countdown")
		return
	}

	writeJSON(w, http.StatusOK, h.response(rec))
}

// List handles GET /api/users/{userID}/countdowns
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	records, err := h.repo.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list countdowns", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list countdowns")
		return
	}

	resp := ListResponse{Countdowns: make([]CountdownResponse, 0, len(records))}
	for i := range records {
		resp.Countdowns = append(resp.Countdowns, h.response(&records[i]))
	}
	resp.Count = len(resp.Countdowns)

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) response(rec *countdown.Record) CountdownResponse {
	resp := CountdownResponse{Record: *rec}
	if date, err := rec.ParsedDate(h.location); err == nil {
		resp.DaysUntil = dateutil.DaysUntil(date, h.now().In(h.location))
	}
	return resp
}

func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
