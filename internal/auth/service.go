package auth

import (
	"context"
	"errors"
	"fmt"

	"graceparish.org/internal/obs"
	"graceparish.org/internal/validate"
)

// Accounts implements sign-up, sign-in, sign-out and session lookup.
type Accounts struct {
	identities IdentityStore
	roles      RoleStore
	tokens     *Tokens
}

func NewAccounts(identities IdentityStore, roles RoleStore, tokens *Tokens) (*Accounts, error) {
	if identities == nil || roles == nil || tokens == nil {
		return nil, errors.New("auth: identity store, role store and tokens are required")
	}
	return &Accounts{identities: identities, roles: roles, tokens: tokens}, nil
}

// SignUp creates an identity with the default member role.
func (a *Accounts) SignUp(ctx context.Context, email, password string) (Identity, error) {
	email, err := validate.Email(email)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return Identity{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return Identity{}, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordLength)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Identity{}, err
	}
	id, err := a.identities.CreateIdentity(ctx, email, hash)
	if err != nil {
		return Identity{}, err
	}
	if _, err := a.roles.AssignRole(ctx, id.ID, RoleMember); err != nil && !errors.Is(err, ErrAlreadyExists) {
		obs.Warn("default role assignment failed", map[string]any{"user_id": id.ID, "err": err})
	}
	return id, nil
}

// SignIn checks credentials and issues a session token.
func (a *Accounts) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = validate.SanitizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	id, hash, err := a.identities.IdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			burnPasswordCheck(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := VerifyPassword(hash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, claims, err := a.tokens.Issue(id)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Identity: id, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// SignOut revokes the session carried by token until it would have expired.
func (a *Accounts) SignOut(ctx context.Context, token string) error {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return ErrNotAuthenticated
	}
	return a.identities.RevokeSession(ctx, claims.ID, claims.ExpiresAt.Time)
}

// CurrentSession returns the identity behind token. The identity must still
// exist. Every failure, including backend errors, is reported as ErrNotAuthenticated.
func (a *Accounts) CurrentSession(ctx context.Context, token string) (*Identity, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	revoked, err := a.identities.SessionRevoked(ctx, claims.ID)
	if err != nil {
		obs.Warn("session revocation lookup failed", map[string]any{"err": err})
		return nil, ErrNotAuthenticated
	}
	if revoked {
		return nil, ErrNotAuthenticated
	}
	id, err := a.identities.IdentityByID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			obs.Warn("session identity lookup failed", map[string]any{"err": err, "user_id": claims.Subject})
		}
		return nil, ErrNotAuthenticated
	}
	return &id, nil
}
