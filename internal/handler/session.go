package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/middleware"
	"github.com/dukerupert/flatrota/internal/store"
)

type SessionHandler struct {
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewSessionHandler(sessions *store.SessionStore, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// Logout revokes the session that authenticated the request and clears the
// session cookie.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok || ac.SessionID == 0 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.sessions.Delete(r.Context(), ac.SessionID); err != nil {
		h.logger.Error("delete session", "session_id", ac.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
