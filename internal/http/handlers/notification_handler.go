// README: Notification handlers for listing, read/dismiss state, and daily deals.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yumzy/internal/http/middleware"
	"yumzy/internal/modules/notification"
	"yumzy/internal/types"
)

type NotificationHandler struct {
	registry *notification.Registry
}

func NewNotificationHandler(reg *notification.Registry) *NotificationHandler {
	return &NotificationHandler{registry: reg}
}

func (h *NotificationHandler) List(c *gin.Context) {
	uid := middleware.UserID(c)
	items, err := h.registry.List(c.Request.Context(), uid)
	if err != nil {
		writeNotificationError(c, err)
		return
	}
	if items == nil {
		items = []*notification.Notification{}
	}
	writeJSON(c, http.StatusOK, gin.H{"notifications": items})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	uid := middleware.UserID(c)
	n, err := h.registry.UnreadCount(c.Request.Context(), uid)
	if err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"count": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing notification id")
		return
	}
	uid := middleware.UserID(c)
	if err := h.registry.MarkRead(c.Request.Context(), uid, types.ID(id)); err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	uid := middleware.UserID(c)
	if err := h.registry.MarkAllRead(c.Request.Context(), uid); err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (h *NotificationHandler) Dismiss(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing notification id")
		return
	}
	uid := middleware.UserID(c)
	if err := h.registry.Dismiss(c.Request.Context(), uid, types.ID(id)); err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (h *NotificationHandler) ClearAll(c *gin.Context) {
	uid := middleware.UserID(c)
	if err := h.registry.ClearAll(c.Request.Context(), uid); err != nil {
		writeNotificationError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// DailyDeal issues today's deal if the caller has not received one yet.
// Repeat calls on the same calendar day return the already-issued marker.
func (h *NotificationHandler) DailyDeal(c *gin.Context) {
	uid := middleware.UserID(c)
	n, err := h.registry.IssueDailyDeal(c.Request.Context(), uid)
	if err != nil {
		writeNotificationError(c, err)
		return
	}
	if n == nil {
		writeJSON(c, http.StatusOK, gin.H{"issued": false})
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"issued": true, "notification": n})
}
