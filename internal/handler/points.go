package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/homecrew/internal/auth"
	"github.com/dukerupert/homecrew/internal/model"
	"github.com/dukerupert/homecrew/internal/service"
)

// PointsHandler serves the caller's points and profile.
type PointsHandler struct {
	points *service.Points
	logger *slog.Logger
}

func NewPointsHandler(p *service.Points, logger *slog.Logger) *PointsHandler {
	return &PointsHandler{points: p, logger: logger.With("component", "points_handler")}
}

func (h *PointsHandler) Total(w http.ResponseWriter, r *http.Request) {
	total, err := h.points.CalculateTotalPoints(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total_points": total})
}

func (h *PointsHandler) Range(w http.ResponseWriter, r *http.Request) {
	rng, err := h.points.GetUserPointsDateRange(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rng)
}

func (h *PointsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	summary, err := h.points.GetUserDailyPointsSummary(r.Context(), auth.UserID(r.Context()), days)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *PointsHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q := service.PointsEventsQuery{
		Cursor:   r.URL.Query().Get("cursor"),
		Limit:    limit,
		FromDate: r.URL.Query().Get("from_date"),
		ToDate:   r.URL.Query().Get("to_date"),
	}
	if t := queryString(r, "event_type"); t != nil {
		et := model.PointsEventType(*t)
		q.EventType = &et
	}
	page, err := h.points.GetUserPointsEvents(r.Context(), auth.UserID(r.Context()), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *PointsHandler) Profile(w http.ResponseWriter, r *http.Request) {
	prof, err := h.points.GetProfile(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (h *PointsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	prof, err := h.points.UpdateProfile(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}
