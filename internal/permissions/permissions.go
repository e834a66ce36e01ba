// Package permissions answers "may this actor do that" for every role-gated
// operation. The functions are pure and total over the known roles; an
// unrecognised role is denied everything except report export.
package permissions

import "spendwise/internal/models"

// Actor is the identity a request is evaluated for.
type Actor struct {
	UserID string
	Role   models.Role
}

// SystemUserID identifies mutations made by background jobs.
const SystemUserID = "system"

// System is the actor used by scheduled work such as budget rollover.
var System = Actor{UserID: SystemUserID, Role: models.RoleAdmin}

// IsSystem reports whether a is the background job actor.
func (a Actor) IsSystem() bool { return a.UserID == SystemUserID }

// IsAdmin reports whether role is admin.
func IsAdmin(role models.Role) bool {
	return role == models.RoleAdmin
}

// IsAccountantOrAdmin reports whether role is accountant or admin.
func IsAccountantOrAdmin(role models.Role) bool {
	switch role {
	case models.RoleAdmin, models.RoleAccountant:
		return true
	}
	return false
}

// CanViewAllData reports whether role sees records owned by anyone.
func CanViewAllData(role models.Role) bool {
	return IsAccountantOrAdmin(role)
}

// CanViewExpense: admins and accountants view any expense, users their own.
func CanViewExpense(role models.Role, ownerID, actorID string) bool {
	return CanViewAllData(role) || isOwner(role, ownerID, actorID)
}

// CanEditExpense: admins and accountants edit any expense, users their own.
func CanEditExpense(role models.Role, ownerID, actorID string) bool {
	return IsAccountantOrAdmin(role) || isOwner(role, ownerID, actorID)
}

// CanDeleteExpense: only admins delete other users' expenses.
// Accountants may edit but not delete someone else's record.
func CanDeleteExpense(role models.Role, ownerID, actorID string) bool {
	return IsAdmin(role) || isOwner(role, ownerID, actorID)
}

// CanManageBudget: admins manage any budget, everyone else only their own.
func CanManageBudget(role models.Role, ownerID, actorID string) bool {
	return IsAdmin(role) || isOwner(role, ownerID, actorID)
}

// CanViewBudget: admins and accountants view any budget, users their own.
func CanViewBudget(role models.Role, ownerID, actorID string) bool {
	return CanViewAllData(role) || isOwner(role, ownerID, actorID)
}

// CanManageCategories reports whether role may create, edit or delete categories.
func CanManageCategories(role models.Role) bool {
	return IsAdmin(role)
}

// CanManageUsers reports whether role may administer user accounts.
func CanManageUsers(role models.Role) bool {
	return IsAdmin(role)
}

// CanViewAuditLogs reports whether role may read the audit trail.
func CanViewAuditLogs(role models.Role) bool {
	return IsAccountantOrAdmin(role)
}

// CanExportReports is granted to every known role.
func CanExportReports(role models.Role) bool {
	return role.Valid()
}

// isOwner requires a known role as well as a matching id.
func isOwner(role models.Role, ownerID, actorID string) bool {
	return role.Valid() && ownerID != "" && ownerID == actorID
}

// Owned is implemented by records that belong to a single user.
type Owned interface {
	OwnerID() string
}

// FilterByPermissions returns the items actor may see. Roles that view all
// data get the input slice back unchanged; everyone else gets the items they
// own, in their original order.
func FilterByPermissions[T Owned](items []T, actor Actor) []T {
	if CanViewAllData(actor.Role) {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if isOwner(actor.Role, item.OwnerID(), actor.UserID) {
			out = append(out, item)
		}
	}
	return out
}
