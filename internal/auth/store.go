package auth

import (
	"context"
	"time"
)

// IdentityStore persists identities and revoked sessions.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, email, passwordHash string) (Identity, error)
	// IdentityByEmail returns the identity and its password hash.
	IdentityByEmail(ctx context.Context, email string) (Identity, string, error)
	IdentityByID(ctx context.Context, userID string) (Identity, error)
	DeleteIdentity(ctx context.Context, userID string) error
	ListIdentities(ctx context.Context, limit int) ([]Identity, error)
	RevokeSession(ctx context.Context, sessionID string, expiresAt time.Time) error
	SessionRevoked(ctx context.Context, sessionID string) (bool, error)
}

// RoleStore manages role assignments.
type RoleStore interface {
	RolesForUser(ctx context.Context, userID string) ([]string, error)
	AssignRole(ctx context.Context, userID, role string) (RoleAssignment, error)
	RevokeRole(ctx context.Context, userID, role string) error
}
