package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestAccounts(t *testing.T, store *memStore, opts ...TokenOption) *Accounts {
	t.Helper()
	tokens, err := NewTokens("test-secret", time.Hour, opts...)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	acc, err := NewAccounts(store, store, tokens)
	if err != nil {
		t.Fatalf("NewAccounts: %v", err)
	}
	return acc
}

func TestSignUpSignInSessionSignOut(t *testing.T) {
	store := newMemStore()
	acc := newTestAccounts(t, store)
	ctx := context.Background()

	id, err := acc.SignUp(ctx, "  New.Member@Example.org ", "correct horse")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if id.Email != "new.member@example.org" {
		t.Fatalf("email not sanitized: %q", id.Email)
	}
	if roles, _ := store.RolesForUser(ctx, id.ID); len(roles) != 1 || roles[0] != RoleMember {
		t.Fatalf("expected default member role, got %v", roles)
	}

	sess, err := acc.SignIn(ctx, "NEW.MEMBER@example.org", "correct horse")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Fatalf("session must expire in the future")
	}

	current, err := acc.CurrentSession(ctx, sess.Token)
	if err != nil {
		t.Fatalf("CurrentSession: %v", err)
	}
	if current.ID != id.ID || current.Email != id.Email {
		t.Fatalf("unexpected identity %+v", current)
	}

	if err := acc.SignOut(ctx, sess.Token); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := acc.CurrentSession(ctx, sess.Token); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("revoked session must not authenticate, got %v", err)
	}
}

func TestSignUpDuplicate(t *testing.T) {
	store := newMemStore()
	acc := newTestAccounts(t, store)
	ctx := context.Background()
	if _, err := acc.SignUp(ctx, "dup@example.org", "password1"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := acc.SignUp(ctx, "DUP@example.org", "password2"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	acc := newTestAccounts(t, newMemStore())
	ctx := context.Background()
	if _, err := acc.SignUp(ctx, "not-an-email", "password1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for email, got %v", err)
	}
	if _, err := acc.SignUp(ctx, "ok@example.org", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for password, got %v", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	store := newMemStore()
	acc := newTestAccounts(t, store)
	ctx := context.Background()
	if _, err := acc.SignUp(ctx, "user@example.org", "password1"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := acc.SignIn(ctx, "user@example.org", "password2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := acc.SignIn(ctx, "ghost@example.org", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestCurrentSessionTreatsErrorsAsUnauthenticated(t *testing.T) {
	store := newMemStore()
	acc := newTestAccounts(t, store)
	ctx := context.Background()

	if _, err := acc.CurrentSession(ctx, "garbage"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for garbage, got %v", err)
	}

	id, _ := acc.SignUp(ctx, "user@example.org", "password1")
	token, _, err := acc.tokens.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	store.revokedErr = errBackendDown
	if _, err := acc.CurrentSession(ctx, token); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("backend failure must read as unauthenticated, got %v", err)
	}
}

func TestCurrentSessionRejectsDeletedIdentity(t *testing.T) {
	store := newMemStore()
	acc := newTestAccounts(t, store)
	ctx := context.Background()

	id, err := acc.SignUp(ctx, "gone@example.org", "password1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	sess, err := acc.SignIn(ctx, "gone@example.org", "password1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if _, err := acc.CurrentSession(ctx, sess.Token); err != nil {
		t.Fatalf("CurrentSession before delete: %v", err)
	}
	if err := store.DeleteIdentity(ctx, id.ID); err != nil {
		t.Fatalf("DeleteIdentity: %v", err)
	}
	if _, err := acc.CurrentSession(ctx, sess.Token); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("deleted identity must not authenticate, got %v", err)
	}
}

func TestTokensRejectExpiredAndForeign(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	tokens, err := NewTokens("secret-a", time.Minute, WithClock(clock))
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	token, _, err := tokens.Issue(Identity{ID: "u1", Email: "a@example.org"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tokens.Parse(token); err != nil {
		t.Fatalf("Parse fresh token: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := tokens.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token must be rejected, got %v", err)
	}

	other, _ := NewTokens("secret-b", time.Minute)
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token signed with another secret must be rejected, got %v", err)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := ContextWithIdentity(context.Background(), Identity{ID: "u7", Email: "a@example.org"})
	id, ok := IdentityFromContext(ctx)
	if !ok || id.ID != "u7" {
		t.Fatalf("unexpected identity: %+v ok=%v", id, ok)
	}
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatalf("empty context must not carry identity")
	}
	ctx = ContextWithToken(ctx, "tok")
	if tok, ok := TokenFromContext(ctx); !ok || tok != "tok" {
		t.Fatalf("unexpected token %q", tok)
	}
}
