// README: Realtime update model consumed by polling clients.
package realtime

import (
	"time"

	"yumzy/internal/types"
)

type UpdateType string

const (
	TypeOrderStatus    UpdateType = "order_status"
	TypeDeliveryUpdate UpdateType = "delivery_update"
	TypePaymentStatus  UpdateType = "payment_status"
	TypeNotification   UpdateType = "notification"
	TypeOrderDeleted   UpdateType = "order_deleted"
)

var knownTypes = map[UpdateType]bool{
	TypeOrderStatus:    true,
	TypeDeliveryUpdate: true,
	TypePaymentStatus:  true,
	TypeNotification:   true,
	TypeOrderDeleted:   true,
}

// Update is advisory: clients re-fetch authoritative state rather than
// trusting the payload verbatim, because delivery is at-least-once and the
// hub is free to drop entries past the retention window.
type Update struct {
	Type      UpdateType        `json:"type"`
	UserID    types.ID          `json:"user_id"`
	OrderID   types.ID          `json:"order_id,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
