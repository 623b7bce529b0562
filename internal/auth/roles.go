package auth

import (
	"context"
	"sort"

	"graceparish.org/internal/obs"
	"graceparish.org/internal/validate"
)

// RoleSource is one strategy for discovering an identity's roles.
type RoleSource interface {
	RolesFor(ctx context.Context, id Identity) ([]string, error)
}

// RoleSourceFunc adapts a function to RoleSource.
type RoleSourceFunc func(ctx context.Context, id Identity) ([]string, error)

func (f RoleSourceFunc) RolesFor(ctx context.Context, id Identity) ([]string, error) {
	return f(ctx, id)
}

// AdminAllowList grants admin to a fixed set of email addresses.
type AdminAllowList struct {
	emails map[string]struct{}
}

func NewAdminAllowList(emails ...string) AdminAllowList {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = validate.SanitizeEmail(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return AdminAllowList{emails: set}
}

func (a AdminAllowList) RolesFor(_ context.Context, id Identity) ([]string, error) {
	if _, ok := a.emails[validate.SanitizeEmail(id.Email)]; ok {
		return []string{RoleAdmin}, nil
	}
	return nil, nil
}

// StoreRoles reads assignments from the roles table.
type StoreRoles struct {
	Store RoleStore
}

func (s StoreRoles) RolesFor(ctx context.Context, id Identity) ([]string, error) {
	return s.Store.RolesForUser(ctx, id.ID)
}

// RoleSet is an identity's effective roles. Admin satisfies every role check.
type RoleSet struct {
	Roles   map[string]struct{}
	IsAdmin bool
}

// HasRole reports whether role is held directly or implied by admin.
func (s RoleSet) HasRole(role string) bool {
	if s.IsAdmin {
		return true
	}
	roles := normalizeRoles([]string{role})
	if len(roles) == 0 {
		return false
	}
	_, ok := s.Roles[roles[0]]
	return ok
}

// List returns the held roles in sorted order.
func (s RoleSet) List() []string {
	out := make([]string, 0, len(s.Roles))
	for r := range s.Roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Resolver merges role sources in order. Once a source grants admin the rest are skipped.
type Resolver struct {
	sources []RoleSource
}

func NewResolver(sources ...RoleSource) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve never fails: a source error contributes no roles.
func (r *Resolver) Resolve(ctx context.Context, id Identity) RoleSet {
	set := RoleSet{Roles: map[string]struct{}{}}
	for _, src := range r.sources {
		roles, err := src.RolesFor(ctx, id)
		if err != nil {
			obs.ObserveRoleLookupFailure()
			obs.Warn("role lookup failed, treating as no roles", map[string]any{
				"user_id": id.ID,
				"err":     err,
			})
			continue
		}
		for _, role := range normalizeRoles(roles) {
			set.Roles[role] = struct{}{}
		}
		if _, ok := set.Roles[RoleAdmin]; ok {
			set.IsAdmin = true
			break
		}
	}
	return set
}
