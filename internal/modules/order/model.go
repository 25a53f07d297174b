// README: Order aggregate, status ordering, and legacy alias normalization.
package order

import (
	"time"

	"yumzy/internal/modules/estimate"
	"yumzy/internal/types"
)

type Status string

const (
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// statusRank orders the forward path. Cancelled sits outside the ranking: it
// is reachable from any non-terminal status and terminal itself.
var statusRank = map[Status]int{
	StatusConfirmed:      0,
	StatusPreparing:      1,
	StatusOutForDelivery: 2,
	StatusDelivered:      3,
}

// legacyAliases maps spellings written by older releases to the canonical
// enum. Normalization is idempotent and silent: it is persisted as its own
// update but never notifies the user.
var legacyAliases = map[Status]Status{
	"pending":    StatusConfirmed,
	"ready":      StatusOutForDelivery,
	"on_the_way": StatusOutForDelivery,
}

// Normalize resolves a possibly-legacy status to its canonical spelling.
func Normalize(s Status) (Status, bool) {
	if canonical, ok := legacyAliases[s]; ok {
		return canonical, true
	}
	return s, false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanAdvance reports whether moving from one status to another keeps the
// monotonic forward ordering. Cancellation is allowed from any non-terminal
// status; nothing leaves a terminal status.
func CanAdvance(from, to Status) bool {
	if from.Terminal() || from == to {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

type Item struct {
	FoodItemID types.ID `json:"food_item_id"`
	Quantity   int      `json:"quantity"`
	// PrepTime is the catalog descriptor, e.g. "15-20 min" or "1 hr".
	PrepTime string `json:"prep_time"`
}

type Order struct {
	ID                    types.ID          `json:"id"`
	UserID                types.ID          `json:"user_id"`
	Status                Status            `json:"status"`
	Items                 []Item            `json:"items"`
	Tracking              map[string]string `json:"tracking,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	EstimatedDeliveryTime time.Time         `json:"estimated_delivery_time"`
	ActualDeliveryTime    *time.Time        `json:"actual_delivery_time,omitempty"`
}

// PrepDescriptors extracts the per-item preparation descriptors for the
// estimator.
func (o *Order) PrepDescriptors() []string {
	out := make([]string, len(o.Items))
	for i, it := range o.Items {
		out[i] = it.PrepTime
	}
	return out
}

type TimelineEntry struct {
	Status                  Status    `json:"status"`
	Timestamp               time.Time `json:"timestamp"`
	ExpectedDurationMinutes int       `json:"expected_duration_minutes"`
}

// Timeline is a derived display projection. It is recomputed from CreatedAt
// on demand and never persisted.
func Timeline(o *Order) []TimelineEntry {
	if o.Status == StatusCancelled {
		return []TimelineEntry{
			{Status: StatusConfirmed, Timestamp: o.CreatedAt, ExpectedDurationMinutes: int(confirmedWindow.Minutes())},
			{Status: StatusCancelled, Timestamp: o.UpdatedAt},
		}
	}
	deliveredAt := o.CreatedAt.Add(deliveredAfter)
	if o.ActualDeliveryTime != nil {
		deliveredAt = *o.ActualDeliveryTime
	}
	return []TimelineEntry{
		{Status: StatusConfirmed, Timestamp: o.CreatedAt, ExpectedDurationMinutes: int(confirmedWindow.Minutes())},
		{Status: StatusPreparing, Timestamp: o.CreatedAt.Add(confirmedWindow), ExpectedDurationMinutes: int((preparingWindow - confirmedWindow).Minutes())},
		{Status: StatusOutForDelivery, Timestamp: o.CreatedAt.Add(preparingWindow), ExpectedDurationMinutes: int((deliveredAfter - preparingWindow).Minutes())},
		{Status: StatusDelivered, Timestamp: deliveredAt},
	}
}

// EstimatePrepMinutes is the item-driven preparation estimate for display.
func (o *Order) EstimatePrepMinutes() int {
	return estimate.PreparationMinutes(o.PrepDescriptors())
}
