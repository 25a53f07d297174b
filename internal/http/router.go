// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"yumzy/internal/http/handlers"
	"yumzy/internal/http/middleware"
	"yumzy/internal/infra"
	"yumzy/internal/metrics"
	"yumzy/internal/modules/notification"
	"yumzy/internal/modules/order"
	"yumzy/internal/modules/realtime"
)

func NewRouter(
	orders *order.Reconciler,
	notifications *notification.Registry,
	hub *realtime.Hub,
	verifier infra.TokenVerifier,
	m *metrics.Registry,
	log *slog.Logger,
) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := r.Group("/api", middleware.Auth(verifier))

	orderHandler := handlers.NewOrderHandler(orders)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:id", orderHandler.Get)
	api.GET("/orders/:id/status", orderHandler.Status)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)

	notifHandler := handlers.NewNotificationHandler(notifications)
	api.GET("/notifications", notifHandler.List)
	api.GET("/notifications/unread-count", notifHandler.UnreadCount)
	api.POST("/notifications/:id/read", notifHandler.MarkRead)
	api.POST("/notifications/read-all", notifHandler.MarkAllRead)
	api.DELETE("/notifications/:id", notifHandler.Dismiss)
	api.DELETE("/notifications", notifHandler.ClearAll)
	api.POST("/notifications/daily-deal", notifHandler.DailyDeal)

	realtimeHandler := handlers.NewRealtimeHandler(hub)
	api.GET("/updates", realtimeHandler.Poll)

	return r
}
