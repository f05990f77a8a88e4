package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/homecrew/internal/auth"
	"github.com/dukerupert/homecrew/internal/model"
	"github.com/dukerupert/homecrew/internal/service"
)

type CatalogHandler struct {
	catalog *service.Catalog
	logger  *slog.Logger
}

func NewCatalogHandler(c *service.Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, logger: logger.With("component", "catalog_handler")}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.CatalogFilter(r.URL.Query().Get("type"))
	items, err := h.catalog.GetCatalogItems(r.Context(), auth.HouseholdID(r.Context()), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []model.CatalogItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCatalogItemInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ac, _ := auth.FromContext(r.Context())
	item, err := h.catalog.CreateCatalogItem(r.Context(), ac.HouseholdID, ac.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req service.UpdateCatalogItemInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	item, err := h.catalog.UpdateCatalogItem(r.Context(), auth.HouseholdID(r.Context()), id, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.catalog.DeleteCatalogItem(r.Context(), auth.HouseholdID(r.Context()), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
