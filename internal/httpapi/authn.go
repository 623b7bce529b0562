package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"graceparish.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth attaches the session identity when a valid bearer token is present.
// Missing or invalid tokens leave the request anonymous; the gate decides.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := auth.ContextWithToken(r.Context(), token)
		if id, err := a.accounts.CurrentSession(ctx, token); err == nil {
			ctx = auth.ContextWithIdentity(ctx, *id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actor returns the request identity or nil for anonymous visitors.
func actor(r *http.Request) *auth.Identity {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	return id
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
