// Package actors models the authenticated staff members that drive the
// order workflow. Every core operation receives an Actor explicitly; no
// ambient "current user" lookups happen below the HTTP layer.
package actors

import "slices"

// Role enumerates staff roles.
type Role string

const (
	RoleEmployee      Role = "employee"
	RoleManager       Role = "manager"
	RoleDeputyManager Role = "deputy_manager"
	RoleDirector      Role = "director"
)

// Department enumerates the departments involved in the order workflow.
// Directors sit outside any department.
type Department string

const (
	DepartmentSales       Department = "SALES"
	DepartmentProcurement Department = "PROCUREMENT"
	DepartmentNone        Department = ""
)

// Actor is an authenticated user with exactly one role and one department.
type Actor struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Department Department `json:"department"`
	// CategoryIDs restricts employee-role actors to a set of product
	// categories. Empty for every other role.
	CategoryIDs []int64 `json:"category_ids,omitempty"`
	IsActive    bool    `json:"is_active"`
}

// IsDirector reports whether the actor carries the director role.
func (a Actor) IsDirector() bool {
	return a.Role == RoleDirector
}

// IsEmployee reports whether the actor carries the plain employee role.
func (a Actor) IsEmployee() bool {
	return a.Role == RoleEmployee
}

// IsManager reports whether the actor is a manager or deputy manager.
func (a Actor) IsManager() bool {
	return a.Role == RoleManager || a.Role == RoleDeputyManager
}

// InDepartment reports whether the actor belongs to the given department.
func (a Actor) InDepartment(d Department) bool {
	return a.Department == d
}

// CategoryAllowed reports whether the actor may act on the given category.
// Only employee-role actors are scoped; everyone else passes.
func (a Actor) CategoryAllowed(categoryID int64) bool {
	if !a.IsEmployee() {
		return true
	}
	return slices.Contains(a.CategoryIDs, categoryID)
}
