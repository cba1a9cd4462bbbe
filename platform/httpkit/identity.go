package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated caller as seen by handlers. It hides the
// Gin context keys the auth middleware populates.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	// HasRole reports whether the caller holds the given role.
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	id            uuid.UUID
	roles         []string
	authenticated bool
}

func (i identity) UserID() uuid.UUID { return i.id }

func (i identity) Roles() []string { return i.roles }

func (i identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }

func (i identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity reads the caller identity from the request context. Requests
// that never passed the auth middleware yield an unauthenticated identity.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return identity{}
	}
	id, ok := raw.(uuid.UUID)
	if !ok {
		return identity{}
	}

	var roles []string
	if rawRoles, ok := c.Get(ContextRolesKey); ok {
		roles, _ = rawRoles.([]string)
	}

	return identity{id: id, roles: roles, authenticated: true}
}

// MustGetIdentity is GetIdentity for routes behind the auth middleware.
// Aborts with 401 and returns nil when no identity is present.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
