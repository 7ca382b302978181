package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleVoter Role = "voter"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleVoter || r == RoleAdmin
}

type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Principal is the authenticated caller handed to the core by the identity
// provider.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
