package permissions

import "spendwise/internal/models"

// ProtectionLevel is the minimum role a route requires.
type ProtectionLevel string

const (
	LevelPublic        ProtectionLevel = "public"
	LevelAuthenticated ProtectionLevel = "authenticated"
	LevelAccountant    ProtectionLevel = "accountant"
	LevelAdmin         ProtectionLevel = "admin"
)

// HasRequiredRole reports whether role satisfies level.
func HasRequiredRole(role models.Role, level ProtectionLevel) bool {
	switch level {
	case LevelPublic:
		return true
	case LevelAuthenticated:
		return role.Valid()
	case LevelAccountant:
		return IsAccountantOrAdmin(role)
	case LevelAdmin:
		return IsAdmin(role)
	default:
		return false
	}
}
