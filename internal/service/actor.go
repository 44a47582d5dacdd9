package service

import (
	"github.com/google/uuid"

	middleware "github.com/JKeiyuru/cornells-sub002/pkg/middleware/auth"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == middleware.RoleAdmin }

func (a Actor) Owns(userID uuid.UUID) bool { return a.ID != uuid.Nil && a.ID == userID }

func (a Actor) CanAccess(userID uuid.UUID) bool { return a.IsAdmin() || a.Owns(userID) }
