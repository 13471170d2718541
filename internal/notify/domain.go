// Package notify stores and fans out in-app notifications emitted by the
// order workflow.
package notify

import (
	"time"

	"github.com/orderdesk/orderdesk/internal/actors"
	"github.com/orderdesk/orderdesk/internal/orders"
)

// TTL is how long a notification stays visible before the purge job
// removes it.
const TTL = time.Hour

// Notification is one per-recipient message about an order event.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SenderID  int64     `json:"sender_id"`
	OrderID   int64     `json:"order_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// relevantStatuses maps a recipient to the order statuses whose
// notifications concern them. Broadcast writes a row for everyone; this
// policy filters at read time so each desk only sees the stage it works.
func relevantStatuses(a actors.Actor) []orders.Status {
	if a.IsDirector() {
		return []orders.Status{orders.StatusApproved}
	}
	switch a.Department {
	case actors.DepartmentProcurement:
		if a.IsManager() {
			return []orders.Status{orders.StatusPending}
		}
	case actors.DepartmentSales:
		return []orders.Status{orders.StatusDraft}
	}
	return nil
}
