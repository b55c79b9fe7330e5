package websocket

import (
	"context"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/model"
)

// MemberLookup reports whether a user belongs to a flat. A nil member means
// they do not.
type MemberLookup interface {
	GetMember(ctx context.Context, flatID, userID int64) (*model.FlatMember, error)
}

// HandleWebSocket upgrades connections and runs them as Hub clients. The
// required ?flat=<id> parameter selects the feed, and only members of that
// flat are upgraded.
func HandleWebSocket(hub *Hub, members MemberLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flatID, err := strconv.ParseInt(r.URL.Query().Get("flat"), 10, 64)
		if err != nil || flatID < 1 {
			http.Error(w, "flat query parameter is required", http.StatusBadRequest)
			return
		}

		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		member, err := members.GetMember(r.Context(), flatID, userID)
		if err != nil {
			hub.logger.Error("websocket membership check", "flat_id", flatID, "user_id", userID, "error", err)
			http.Error(w, "failed to check membership", http.StatusInternalServerError)
			return
		}
		if member == nil {
			http.Error(w, "not a member of this flat", http.StatusForbidden)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // flatmates connect from LAN hosts and phones
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}

		NewClient(hub, conn, flatID).Run(r.Context())
	}
}
