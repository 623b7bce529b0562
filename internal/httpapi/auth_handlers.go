package httpapi

import (
	"errors"
	"net/http"

	"graceparish.org/internal/auth"
	"graceparish.org/internal/obs"
	"graceparish.org/internal/site"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id, err := a.accounts.SignUp(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, id)
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "an account with this email already exists")
	default:
		obs.Error("sign up failed", map[string]any{"err": err})
		writeError(w, r, http.StatusInternalServerError, site.MsgGeneric)
	}
}

func (a *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := a.accounts.SignIn(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sess)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	default:
		obs.Error("sign in failed", map[string]any{"err": err})
		writeError(w, r, http.StatusInternalServerError, site.MsgGeneric)
	}
}

func (a *API) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		writeSiteError(w, r, &site.Error{Kind: site.KindUnauthenticated, Message: auth.ReasonNotAuthenticated, Redirect: auth.LoginPath})
		return
	}
	if err := a.accounts.SignOut(r.Context(), token); err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			writeSiteError(w, r, &site.Error{Kind: site.KindUnauthenticated, Message: auth.ReasonNotAuthenticated, Redirect: auth.LoginPath})
			return
		}
		obs.Error("sign out failed", map[string]any{"err": err})
		writeError(w, r, http.StatusInternalServerError, site.MsgGeneric)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	id := actor(r)
	if id == nil {
		writeSiteError(w, r, &site.Error{Kind: site.KindUnauthenticated, Message: auth.ReasonNotAuthenticated, Redirect: auth.LoginPath})
		return
	}
	roles := a.site.Gate().Roles(r.Context(), *id)
	writeJSON(w, http.StatusOK, map[string]any{
		"identity": id,
		"roles":    roles.List(),
		"is_admin": roles.IsAdmin,
	})
}
