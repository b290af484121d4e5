// Package identity carries the authenticated caller through the workflows.
package identity

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const contextKey = "identity"

// ErrMissing is returned when no identity was attached to the request
var ErrMissing = errors.New("identity information not provided")

// Identity is the caller's user id and role set
type Identity struct {
	UserID uuid.UUID
	Roles  map[string]struct{}
}

// New builds an identity holding the given roles
func New(userID uuid.UUID, roles ...string) Identity {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return Identity{UserID: userID, Roles: set}
}

// HasRole reports whether the identity holds role
func (i Identity) HasRole(role string) bool {
	_, ok := i.Roles[role]
	return ok
}

// HasAnyRole reports whether the identity holds at least one of roles
func (i Identity) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if i.HasRole(r) {
			return true
		}
	}
	return false
}

// IsAnonymous reports whether the identity has no user
func (i Identity) IsAnonymous() bool {
	return i.UserID == uuid.Nil
}

// Set stores id in the gin context
func Set(c *gin.Context, id Identity) {
	c.Set(contextKey, id)
}

// FromContext returns the identity stored by Set
func FromContext(c *gin.Context) (Identity, error) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Identity{}, ErrMissing
	}
	id, ok := v.(Identity)
	if !ok || id.IsAnonymous() {
		return Identity{}, ErrMissing
	}
	return id, nil
}
