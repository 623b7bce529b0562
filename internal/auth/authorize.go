package auth

import (
	"context"

	"graceparish.org/internal/obs"
)

const (
	ReasonNotAuthenticated = "not authenticated"
	ReasonAdminRequired    = "administrator required"
	ReasonNotOwner         = "not resource owner"
	ReasonInsufficientRole = "insufficient role"

	LoginPath = "/login"
	HomePath  = "/"
)

// Requirement describes what an operation demands. Zero fields are not checked.
type Requirement struct {
	RequiredRole string
	OwnerID      string
	AdminOnly    bool
}

// Decision is the gate outcome. Roles is populated only when resolution was needed.
type Decision struct {
	Granted  bool
	Reason   string
	Redirect string
	Roles    RoleSet
}

// IsOwner is strict equality between actor and owner. Empty ids never match.
func IsOwner(actorID, ownerID string) bool {
	return actorID != "" && actorID == ownerID
}

// Gate combines role resolution and ownership into a single decision.
type Gate struct {
	resolver *Resolver
}

func NewGate(resolver *Resolver) *Gate {
	if resolver == nil {
		resolver = NewResolver()
	}
	return &Gate{resolver: resolver}
}

// Roles resolves the effective roles of id.
func (g *Gate) Roles(ctx context.Context, id Identity) RoleSet {
	return g.resolver.Resolve(ctx, id)
}

// Authorize applies the checks in fixed precedence: authentication, admin-only,
// ownership, required role. The first applicable check decides.
func (g *Gate) Authorize(ctx context.Context, id *Identity, req Requirement) Decision {
	d := g.decide(ctx, id, req)
	obs.ObserveAuthz(d.Granted, d.Reason)
	return d
}

func (g *Gate) decide(ctx context.Context, id *Identity, req Requirement) Decision {
	if id == nil || id.ID == "" {
		return deny(ReasonNotAuthenticated, LoginPath, RoleSet{})
	}
	switch {
	case req.AdminOnly:
		roles := g.resolver.Resolve(ctx, *id)
		if roles.IsAdmin {
			return Decision{Granted: true, Roles: roles}
		}
		return deny(ReasonAdminRequired, HomePath, roles)
	case req.OwnerID != "":
		if IsOwner(id.ID, req.OwnerID) {
			return Decision{Granted: true}
		}
		roles := g.resolver.Resolve(ctx, *id)
		if roles.IsAdmin {
			return Decision{Granted: true, Roles: roles}
		}
		return deny(ReasonNotOwner, HomePath, roles)
	case req.RequiredRole != "":
		roles := g.resolver.Resolve(ctx, *id)
		if roles.HasRole(req.RequiredRole) {
			return Decision{Granted: true, Roles: roles}
		}
		return deny(ReasonInsufficientRole, HomePath, roles)
	}
	return Decision{Granted: true}
}

func deny(reason, redirect string, roles RoleSet) Decision {
	return Decision{Reason: reason, Redirect: redirect, Roles: roles}
}
