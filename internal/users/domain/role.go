// Package domain defines the user model and role vocabulary.
package domain

import "github.com/google/uuid"

// Roles recognized by the platform. Stored uppercase in the database and
// carried verbatim in JWT claims.
const (
	RoleAdmin      = "ADMIN"
	RoleDispatcher = "DISPATCHER"
	RoleTech       = "TECH"
)

// ValidRole reports whether the given role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDispatcher, RoleTech:
		return true
	}
	return false
}

// ScopedTechnicianID returns the requester's own ID when TECH is their only
// role, restricting reads to their own rows. Admins and dispatchers see
// everything, so the scope is nil for them.
func ScopedTechnicianID(userID uuid.UUID, roles []string) *uuid.UUID {
	isTech := false
	for _, role := range roles {
		switch role {
		case RoleTech:
			isTech = true
		case RoleAdmin, RoleDispatcher:
			return nil
		}
	}
	if !isTech {
		return nil
	}
	id := userID
	return &id
}
