// README: Realtime polling handler returning updates after a client cursor.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"yumzy/internal/http/middleware"
	"yumzy/internal/modules/realtime"
)

type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Poll returns updates strictly after the client's cursor plus a fresh
// server-time cursor. An absent or unparseable cursor replays the whole
// retained queue, which keeps delivery at-least-once for lagging clients.
func (h *RealtimeHandler) Poll(c *gin.Context) {
	uid := middleware.UserID(c)
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		since = t
	}
	updates, cursor := h.hub.Poll(uid, since)
	if updates == nil {
		updates = []realtime.Update{}
	}
	writeJSON(c, http.StatusOK, gin.H{
		"updates":   updates,
		"timestamp": cursor.Format(time.RFC3339Nano),
	})
}
