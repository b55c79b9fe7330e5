package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dukerupert/flatrota/internal/period"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, err
	}
	if id < 1 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// writeServiceError maps a period.Service error kind onto an HTTP status.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch period.Kind(err) {
	case "not_found":
		writeError(w, http.StatusNotFound, "not found")
	case "already_generated":
		writeError(w, http.StatusConflict, "periods already generated for this task")
	case "conflict":
		writeError(w, http.StatusConflict, "period already completed")
	case "unauthorized":
		writeError(w, http.StatusForbidden, "not allowed")
	case "invalid_assignee":
		writeError(w, http.StatusUnprocessableEntity, "assignee is not on the task roster")
	case "unsupported_cadence":
		writeError(w, http.StatusUnprocessableEntity, "cadence unit is not supported")
	default:
		logger.Error("period request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
