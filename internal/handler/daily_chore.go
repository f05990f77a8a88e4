package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/auth"
	"github.com/dukerupert/homecrew/internal/model"
	"github.com/dukerupert/homecrew/internal/service"
)

type DailyChoreHandler struct {
	ledger *service.Ledger
	logger *slog.Logger
}

func NewDailyChoreHandler(l *service.Ledger, logger *slog.Logger) *DailyChoreHandler {
	return &DailyChoreHandler{ledger: l, logger: logger.With("component", "daily_chore_handler")}
}

func (h *DailyChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	q := service.DailyChoresQuery{
		Date:       r.URL.Query().Get("date"),
		AssigneeID: queryString(r, "assignee_id"),
	}
	if s := queryString(r, "status"); s != nil {
		status := model.ChoreStatus(*s)
		q.Status = &status
	}
	chores, err := h.ledger.GetDailyChores(r.Context(), auth.HouseholdID(r.Context()), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if chores == nil {
		chores = []model.DailyChore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *DailyChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateDailyChoreInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ac, _ := auth.FromContext(r.Context())
	chore, err := h.ledger.CreateDailyChore(r.Context(), ac.HouseholdID, ac.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, chore)
}

func (h *DailyChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req service.UpdateDailyChoreInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ac, _ := auth.FromContext(r.Context())
	chore, err := h.ledger.UpdateDailyChore(r.Context(), ac.HouseholdID, id, ac.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

func (h *DailyChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if err := h.ledger.DeleteDailyChore(r.Context(), ac.HouseholdID, id, ac.UserID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteByDate clears a whole day: DELETE /daily-chores?date=YYYY-MM-DD.
func (h *DailyChoreHandler) DeleteByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, r, h.logger, apperr.Field("date", "is required"))
		return
	}
	ac, _ := auth.FromContext(r.Context())
	n, err := h.ledger.DeleteDailyChoresByDate(r.Context(), ac.HouseholdID, date, ac.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
