package actor

import "github.com/google/uuid"

type Role string

const (
	RoleStudent  Role = "student"
	RoleTutor    Role = "tutor"
	RolePlatform Role = "platform"
	RoleSystem   Role = "system"
)

// Actor is whoever triggered an operation, as read from the bearer token
// or set by a background worker.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func System() Actor {
	return Actor{Role: RoleSystem}
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

// Label is what gets stored in audit trails and cancelledBy columns.
func (a Actor) Label() string {
	if a.IsSystem() || a.ID == uuid.Nil {
		return string(a.Role)
	}
	return a.ID.String()
}

// IDPtr returns nil for the system actor.
func (a Actor) IDPtr() *uuid.UUID {
	if a.IsSystem() || a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleStudent, RoleTutor, RolePlatform:
		return r, true
	}
	return "", false
}
