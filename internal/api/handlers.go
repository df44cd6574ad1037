package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/internal/service"
	"github.com/limbo/habitsync/pkg/entity"
	"github.com/limbo/habitsync/pkg/httputil"
)

const requestTimeout = 10 * time.Second

type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type SnapshotResponse struct {
	Snapshot entity.Snapshot `json:"snapshot"`
	Loading  bool            `json:"loading"`
	Notice   string          `json:"notice,omitempty"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("registering error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	user, err := s.userService.Register(ctx, &service.RegisterRequest{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserExists) {
			logger.Error("registering error: existed user")
			httputil.WriteErrorResponse(w, http.StatusConflict, "user with such name already exists", nil)
			return
		}
		if errors.Is(err, errorvalues.ErrValidation) {
			logger.Error("registering error: invalid credentials format")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid name or password", err)
			return
		}
		logger.Error("registering error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error during registration", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, map[string]any{
		"uid": user.ID.String(),
	})
	logger.Info("successful registration")
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("login error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	user, err := s.userService.Login(ctx, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, errorvalues.ErrWrongCredentials) {
			logger.Error("login error: wrong credentials")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "invalid username or password", nil)
			return
		}
		logger.Error("login error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error during login", nil)
		return
	}
	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		logger.Error("login error: generating token error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error creating token", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"uid":   user.ID.String(),
		"token": token,
	})
	logger.Info("successful login")
}

func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	view, err := s.habitsService.Snapshot(ctx, identity)
	if err != nil {
		writeServiceError(w, logger, "get snapshot", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, SnapshotResponse{
		Snapshot: view.Snapshot,
		Loading:  view.Loading,
		Notice:   view.Notice,
	})
}

func (s *Server) AddHabit(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	var req service.AddHabitRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("add habit error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := service.Validate(&req); err != nil {
		logger.Error("add habit error: validation", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid habit name", err)
		return
	}
	if req.Name == nil {
		// prompt cancelled
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if strings.TrimSpace(*req.Name) == "" {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, errorvalues.ErrEmptyHabitName.Error(), nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	habit, err := s.habitsService.AddHabit(ctx, identity, requestInteractor{name: req.Name})
	if err != nil {
		writeServiceError(w, logger, "add habit", err)
		return
	}
	if habit == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, habit)
	logger.Info("habit added", slog.String("habit_id", string(habit.ID)))
}

func (s *Server) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	habitID := entity.HabitID(chi.URLParam(r, "id"))
	deleted, err := s.habitsService.DeleteHabit(ctx, identity, habitID, requestInteractor{confirm: confirm})
	if err != nil {
		writeServiceError(w, logger, "delete habit", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"id":      habitID,
		"deleted": deleted,
	})
}

func (s *Server) ToggleHabit(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	date, err := s.dateParam(r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, logger, "toggle habit", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	habit, err := s.habitsService.ToggleCompletion(ctx, identity, entity.HabitID(chi.URLParam(r, "id")), date)
	if err != nil {
		writeServiceError(w, logger, "toggle habit", err)
		return
	}
	key := s.keys.Normalize(date)
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"habit": habit,
		"date":  key,
		"done":  habit.Done(key),
	})
}

func (s *Server) SetMood(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	date, err := s.dateParam(chi.URLParam(r, "date"))
	if err != nil {
		writeServiceError(w, logger, "set mood", err)
		return
	}
	var req service.MoodRequest
	if err = decodeBody(r, &req); err != nil {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err = service.Validate(&req); err != nil {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, errorvalues.ErrMoodOutOfRange.Error(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	metrics, err := s.habitsService.SetMood(ctx, identity, date, req.Value)
	if err != nil {
		writeServiceError(w, logger, "set mood", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, metrics)
}

func (s *Server) SetSleep(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	date, err := s.dateParam(chi.URLParam(r, "date"))
	if err != nil {
		writeServiceError(w, logger, "set sleep", err)
		return
	}
	var req service.SleepRequest
	if err = decodeBody(r, &req); err != nil {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err = service.Validate(&req); err != nil {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, errorvalues.ErrInvalidSleepHours.Error(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	metrics, err := s.habitsService.SetSleep(ctx, identity, date, req.Hours)
	if err != nil {
		writeServiceError(w, logger, "set sleep", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, metrics)
}

func (s *Server) StepSleep(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	date, err := s.dateParam(chi.URLParam(r, "date"))
	if err != nil {
		writeServiceError(w, logger, "step sleep", err)
		return
	}
	var req service.SleepStepRequest
	if err = decodeBody(r, &req); err != nil {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err = service.Validate(&req); err != nil {
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "delta must be -1 or 1", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	hours, err := s.habitsService.StepSleep(ctx, identity, date, req.Delta)
	if err != nil {
		writeServiceError(w, logger, "step sleep", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"date":  s.keys.Normalize(date),
		"sleep": hours,
	})
}

func (s *Server) GetOverview(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	year, month := 0, 0
	query := r.URL.Query()
	if query.Get("year") != "" || query.Get("month") != "" {
		var errY, errM error
		year, errY = strconv.Atoi(query.Get("year"))
		month, errM = strconv.Atoi(query.Get("month"))
		if errY != nil || errM != nil {
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "year and month must be integers", nil)
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	overview, err := s.habitsService.Overview(ctx, identity, year, month)
	if err != nil {
		writeServiceError(w, logger, "get overview", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, overview)
}

func (s *Server) GetToday(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	today, err := s.habitsService.Today(ctx, identity)
	if err != nil {
		writeServiceError(w, logger, "get today", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, today)
}

func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	body, err := s.habitsService.Export(ctx, identity)
	if err != nil {
		writeServiceError(w, logger, "export", err)
		return
	}
	httputil.WriteAttachment(w, entity.ExportFilename, body)
}

func (s *Server) SignOut(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	closed := s.habitsService.SignOut(identity)
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"signed_out": closed,
	})
	logger.Info("signed out")
}

// identity resolves the authorized user into the opaque sync identity.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, err := GetUIDFromContext(r)
	if err != nil {
		GetLoggerFromCtx(r.Context()).Error("unauthorized request")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return "", false
	}
	return uid.String(), true
}

// dateParam parses a YYYY-MM-DD value, empty meaning today.
func (s *Server) dateParam(value string) (time.Time, error) {
	if value == "" {
		key := s.keys.Today(s.now())
		return s.keys.ParseDate(key.String())
	}
	return s.keys.ParseDate(value)
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return sonic.ConfigDefault.NewDecoder(r.Body).Decode(dst)
}

func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, errorvalues.ErrHabitNotFound):
		logger.Error(op+" error: habit not found", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusNotFound, "habit not found", nil)
	case errors.Is(err, errorvalues.ErrInvalidDateKey),
		errors.Is(err, errorvalues.ErrInvalidMonth),
		errors.Is(err, errorvalues.ErrMoodOutOfRange),
		errors.Is(err, errorvalues.ErrInvalidSleepHours),
		errors.Is(err, errorvalues.ErrEmptyHabitName):
		logger.Error(op+" error: bad input", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, errorvalues.ErrNoIdentity):
		logger.Error(op+" error: no identity")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, errorvalues.ErrGatewayClosed):
		logger.Error(op+" error: unavailable", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusServiceUnavailable, "habit data is not available yet", nil)
	default:
		logger.Error(op+" error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error", nil)
	}
}
