package auth

import "github.com/google/uuid"

// RoleAdmin is the role value granted to site administrators.
const RoleAdmin uint = 1

// Principal is the identity resolved from a valid token. It lives for one request.
type Principal struct {
	UserID uuid.UUID
	Role   *uint
}

// Anonymous is the principal of a caller without a valid token.
var Anonymous = Principal{}

// Authenticated reports whether the principal came from a validated token.
func (p Principal) Authenticated() bool {
	return p.UserID != uuid.Nil
}

// IsAdmin reports whether the principal carries the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role != nil && *p.Role == RoleAdmin
}

// CanActFor reports whether the principal may act on resources owned by userID.
func (p Principal) CanActFor(userID uuid.UUID) bool {
	if !p.Authenticated() {
		return false
	}
	return p.UserID == userID || p.IsAdmin()
}
