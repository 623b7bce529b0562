package auth

import (
	"context"
	"testing"
)

func TestAllowListAdminWithoutRoleRows(t *testing.T) {
	store := newMemStore()
	calls := 0
	counting := RoleSourceFunc(func(ctx context.Context, id Identity) ([]string, error) {
		calls++
		return store.RolesForUser(ctx, id.ID)
	})
	r := NewResolver(NewAdminAllowList(" Pastor@GraceParish.org "), counting)

	set := r.Resolve(context.Background(), Identity{ID: "u9", Email: "pastor@graceparish.org"})
	if !set.IsAdmin {
		t.Fatalf("allow-listed email must be admin")
	}
	if !set.HasRole(RoleMember) || !set.HasRole("anything") {
		t.Fatalf("admin must satisfy every role check")
	}
	if calls != 0 {
		t.Fatalf("roles table must be bypassed for allow-listed admins, got %d lookups", calls)
	}
}

func TestMemberRoleFromStore(t *testing.T) {
	store := newMemStore()
	store.roles["u1"] = []string{"Member"}
	r := NewResolver(NewAdminAllowList("pastor@graceparish.org"), StoreRoles{Store: store})

	set := r.Resolve(context.Background(), Identity{ID: "u1", Email: "member@example.org"})
	if set.IsAdmin {
		t.Fatalf("member must not be admin")
	}
	if !set.HasRole(RoleMember) {
		t.Fatalf("expected member role")
	}
	if set.HasRole(RoleAdmin) {
		t.Fatalf("member must not have admin role")
	}
	if got := set.List(); len(got) != 1 || got[0] != RoleMember {
		t.Fatalf("unexpected role list %v", got)
	}
}

func TestAdminRowInStore(t *testing.T) {
	store := newMemStore()
	store.roles["u2"] = []string{RoleMember, RoleAdmin}
	set := NewResolver(StoreRoles{Store: store}).Resolve(context.Background(), Identity{ID: "u2"})
	if !set.IsAdmin {
		t.Fatalf("admin row must grant admin")
	}
}

func TestLookupFailureFailsClosed(t *testing.T) {
	store := newMemStore()
	store.roles["u3"] = []string{RoleAdmin}
	store.rolesErr = errBackendDown
	set := NewResolver(StoreRoles{Store: store}).Resolve(context.Background(), Identity{ID: "u3"})
	if set.IsAdmin || set.HasRole(RoleMember) {
		t.Fatalf("lookup failure must yield no roles, got %+v", set)
	}
}

func TestHasRoleEmpty(t *testing.T) {
	if (RoleSet{Roles: map[string]struct{}{}}).HasRole("  ") {
		t.Fatalf("blank role must not match")
	}
}
