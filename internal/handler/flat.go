package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/store"
)

type FlatHandler struct {
	flats  *store.FlatStore
	logger *slog.Logger
}

func NewFlatHandler(flats *store.FlatStore, logger *slog.Logger) *FlatHandler {
	return &FlatHandler{flats: flats, logger: logger}
}

// Members lists who belongs to the flat, the pool rosters are drawn from.
// Only members may see it.
func (h *FlatHandler) Members(w http.ResponseWriter, r *http.Request) {
	flatID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	member, err := h.flats.GetMember(r.Context(), flatID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get flat member", "flat_id", flatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if member == nil {
		writeError(w, http.StatusForbidden, "not a member of this flat")
		return
	}

	members, err := h.flats.ListMembers(r.Context(), flatID)
	if err != nil {
		h.logger.Error("list flat members", "flat_id", flatID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.FlatMember{}
	}
	writeJSON(w, http.StatusOK, members)
}
