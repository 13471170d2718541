package orders

import (
	"github.com/orderdesk/orderdesk/internal/actors"
)

// transitionKey identifies one permitted status move for one kind of actor.
type transitionKey struct {
	dept     actors.Department
	director bool
	from     Status
	to       Status
}

// transitions is the full permission table for status moves. Directors are
// keyed separately because their authority is role-based, not departmental.
var transitions = map[transitionKey]bool{
	{dept: actors.DepartmentSales, from: StatusDraft, to: StatusPending}: true,

	{dept: actors.DepartmentProcurement, from: StatusPending, to: StatusDraft}:     true,
	{dept: actors.DepartmentProcurement, from: StatusPending, to: StatusApproved}:  true,
	{dept: actors.DepartmentProcurement, from: StatusRejected, to: StatusApproved}: true,

	{director: true, from: StatusApproved, to: StatusFulfilled}: true,
	{director: true, from: StatusApproved, to: StatusRejected}:  true,
}

// CanTransition reports whether actor may move an order from one status to
// another. A no-op transition (from == to) is always permitted so that
// edits which resubmit the current status do not fail.
func CanTransition(actor actors.Actor, from, to Status) bool {
	if from == to {
		return true
	}
	if actor.IsDirector() && transitions[transitionKey{director: true, from: from, to: to}] {
		return true
	}
	return transitions[transitionKey{dept: actor.Department, from: from, to: to}]
}

// ApprovalGateMet reports whether the pending->approved move satisfies its
// preconditions: a delivery estimate is set and the order is paid.
func ApprovalGateMet(o Order) bool {
	return o.EstimatedDelivery != nil && o.PaymentStatus == PaymentPaid
}

// EditCapability describes how much of an order an actor may change.
type EditCapability int

const (
	// EditNone forbids any field change.
	EditNone EditCapability = iota
	// EditQuantities permits changing item quantities only; the set of
	// product codes must stay identical.
	EditQuantities
	// EditFull permits changing any field including the item list.
	EditFull
)

// EditCapabilityFor resolves what actor may edit on an order in its current
// status. Sales owns drafts outright; procurement and the director may only
// retouch quantities at any stage they can see.
func EditCapabilityFor(actor actors.Actor, status Status) EditCapability {
	if actor.InDepartment(actors.DepartmentSales) && status == StatusDraft {
		return EditFull
	}
	if actor.InDepartment(actors.DepartmentProcurement) || actor.IsDirector() {
		return EditQuantities
	}
	return EditNone
}

// visibility maps each kind of actor to the statuses it may list.
var visibility = map[actors.Department][]Status{
	actors.DepartmentSales:       {StatusDraft, StatusPending},
	actors.DepartmentProcurement: {StatusPending, StatusRejected, StatusFulfilled},
}

var directorVisibility = []Status{StatusApproved, StatusRejected, StatusFulfilled}

// VisibleStatuses returns the statuses actor may list, or an empty slice
// when the actor has no order visibility at all.
func VisibleStatuses(actor actors.Actor) []Status {
	if actor.IsDirector() {
		return directorVisibility
	}
	if sts, ok := visibility[actor.Department]; ok {
		return sts
	}
	return nil
}

// CanView reports whether actor may open a single order in status s.
func CanView(actor actors.Actor, s Status) bool {
	for _, v := range VisibleStatuses(actor) {
		if v == s {
			return true
		}
	}
	return false
}

// CanCreate reports whether actor may create orders. Only sales staff
// originate orders; everyone else works on what sales submitted.
func CanCreate(actor actors.Actor) bool {
	return actor.InDepartment(actors.DepartmentSales)
}

// CanDelete reports whether actor may delete an order in status s. Only
// drafts are deletable, and only by the sales department that owns them.
func CanDelete(actor actors.Actor, s Status) bool {
	return s == StatusDraft && actor.InDepartment(actors.DepartmentSales)
}

// CanMerge reports whether actor may combine orders. Merging is a
// procurement consolidation step.
func CanMerge(actor actors.Actor) bool {
	return actor.InDepartment(actors.DepartmentProcurement)
}
