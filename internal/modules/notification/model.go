// README: Notification domain model.
package notification

import (
	"time"

	"yumzy/internal/types"
)

type Type string

const (
	TypeHotDeal  Type = "hot_deal"
	TypeOrder    Type = "order_update"
	TypePromo    Type = "promo"
	TypeSystem   Type = "system"
	TypePayment  Type = "payment"
	TypeDelivery Type = "delivery"
)

type Notification struct {
	ID      types.ID          `json:"id"`
	UserID  types.ID          `json:"user_id"`
	Type    Type              `json:"type"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
	IsRead  bool              `json:"is_read"`
	// Important notifications are surfaced prominently by the client.
	IsImportant bool `json:"is_important"`
	// Persistent notifications survive a user's "clear all".
	IsPersistent bool       `json:"is_persistent"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

const (
	// dataNoticeID carries the logical id of a one-shot system notice.
	dataNoticeID = "notice_id"
	// dataDealDate stamps a hot deal with its calendar-day idempotency key.
	dataDealDate = "deal_date"
)
