// README: Order handlers for status refresh, detail, and cancellation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yumzy/internal/http/middleware"
	"yumzy/internal/modules/order"
	"yumzy/internal/types"
)

type OrderHandler struct {
	orders *order.Reconciler
}

func NewOrderHandler(rec *order.Reconciler) *OrderHandler {
	return &OrderHandler{orders: rec}
}

type createOrderReq struct {
	Items []struct {
		FoodItemID string `json:"food_item_id"`
		Quantity   int    `json:"quantity"`
		PrepTime   string `json:"prep_time"`
	} `json:"items"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Items) == 0 {
		writeError(c, http.StatusBadRequest, "order needs at least one item")
		return
	}
	items := make([]order.Item, 0, len(req.Items))
	for _, it := range req.Items {
		if it.FoodItemID == "" || it.Quantity <= 0 {
			writeError(c, http.StatusBadRequest, "invalid item")
			return
		}
		items = append(items, order.Item{
			FoodItemID: types.ID(it.FoodItemID),
			Quantity:   it.Quantity,
			PrepTime:   it.PrepTime,
		})
	}
	o, err := h.orders.Create(c.Request.Context(), middleware.UserID(c), items)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{
		"order_id":                o.ID,
		"status":                  o.Status,
		"estimated_delivery_time": o.EstimatedDeliveryTime,
		"prep_minutes":            o.EstimatePrepMinutes(),
	})
}

// Status reconciles the order against the wall clock and returns the
// resulting state plus the projected timeline. Polling this endpoint is
// what drives transitions for clients that never hit the sweeper window.
func (h *OrderHandler) Status(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	o, err := h.orders.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if o.UserID != middleware.UserID(c) {
		writeError(c, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	changed, err := h.orders.ReconcileOne(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	o, err = h.orders.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"order_id":                o.ID,
		"status":                  o.Status,
		"changed":                 changed,
		"estimated_delivery_time": o.EstimatedDeliveryTime,
		"timeline":                order.Timeline(o),
	})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	o, err := h.orders.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if o.UserID != middleware.UserID(c) {
		writeError(c, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional; an empty or absent one means a plain user cancel.
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "user_cancel"
	}
	o, err := h.orders.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if o.UserID != middleware.UserID(c) {
		writeError(c, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	if err := h.orders.Cancel(c.Request.Context(), types.ID(id), req.Reason); err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"order_id": o.ID, "status": order.StatusCancelled})
}
