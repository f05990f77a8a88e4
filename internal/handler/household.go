package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/auth"
	"github.com/dukerupert/homecrew/internal/model"
	"github.com/dukerupert/homecrew/internal/service"
)

// HouseholdHandler serves household registration, joining, settings and
// membership management.
type HouseholdHandler struct {
	dir    *service.Directory
	logger *slog.Logger
}

func NewHouseholdHandler(dir *service.Directory, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{dir: dir, logger: logger.With("component", "household_handler")}
}

func (h *HouseholdHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterHouseholdInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	// Profile creation is best-effort on this path.
	reg, err := h.dir.RegisterHousehold(r.Context(), auth.UserID(r.Context()), req, true)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req service.JoinHouseholdInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	reg, err := h.dir.JoinHousehold(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		if apperr.HasCode(err, apperr.InvalidPIN) {
			h.logger.Warn("join rejected", "household_id", req.HouseholdID, "remote", r.RemoteAddr)
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (h *HouseholdHandler) Current(w http.ResponseWriter, r *http.Request) {
	hh, err := h.dir.GetHousehold(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

func (h *HouseholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateHouseholdInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ac, _ := auth.FromContext(r.Context())
	hh, err := h.dir.UpdateHousehold(r.Context(), ac.HouseholdID, ac.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

func (h *HouseholdHandler) RotatePIN(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	pin, err := h.dir.RotatePIN(r.Context(), ac.HouseholdID, ac.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pin)
}

func (h *HouseholdHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.dir.ListMembers(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if members == nil {
		members = []model.HouseholdMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

type memberRoleRequest struct {
	Role model.Role `json:"role"`
}

func (h *HouseholdHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req memberRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	m, err := h.dir.UpdateMemberRole(r.Context(), id, req.Role, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *HouseholdHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.dir.RemoveMember(r.Context(), id, auth.UserID(r.Context())); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
