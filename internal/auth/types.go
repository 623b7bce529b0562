package auth

import "time"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// KnownRoles is the fixed set of assignable role names.
var KnownRoles = []string{RoleMember, RoleAdmin}

// Identity is an authenticated actor.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// RoleAssignment grants a role to an identity.
type RoleAssignment struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}
