// README: Pure time-to-status mapping for the order lifecycle.
package order

import "time"

const (
	confirmedWindow = 2 * time.Minute
	preparingWindow = 25 * time.Minute
	deliveredAfter  = 55 * time.Minute
)

// StatusAt derives the canonical status purely from elapsed time since
// creation. It never returns cancelled: cancellation is an external event,
// so callers must short-circuit terminal orders before calling this.
func StatusAt(createdAt, now time.Time) Status {
	elapsed := now.Sub(createdAt)
	switch {
	case elapsed < confirmedWindow:
		return StatusConfirmed
	case elapsed < preparingWindow:
		return StatusPreparing
	case elapsed < deliveredAfter:
		return StatusOutForDelivery
	default:
		return StatusDelivered
	}
}
