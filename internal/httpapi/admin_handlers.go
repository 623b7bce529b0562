package httpapi

import (
	"net/http"

	"graceparish.org/internal/site"
)

type assignRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := a.site.ListMembers(r.Context(), actor(r), queryLimit(r))
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": members})
}

func (a *API) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	assignment, err := a.site.AssignRole(r.Context(), actor(r), r.PathValue("id"), req.Role)
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func (a *API) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	if err := a.site.RevokeRole(r.Context(), actor(r), r.PathValue("id"), r.PathValue("role")); err != nil {
		writeSiteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.site.DeleteUser(r.Context(), actor(r), r.PathValue("id")); err != nil {
		writeSiteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCreateSermon(w http.ResponseWriter, r *http.Request) {
	var req site.SermonForm
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sermon, err := a.site.CreateSermon(r.Context(), actor(r), req)
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sermon)
}

func (a *API) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req site.EventForm
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	event, err := a.site.CreateEvent(r.Context(), actor(r), req)
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (a *API) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := a.site.DeleteContent(r.Context(), actor(r), r.PathValue("kind"), r.PathValue("id")); err != nil {
		writeSiteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListAudit(w http.ResponseWriter, r *http.Request) {
	records, err := a.site.ListAudit(r.Context(), actor(r), queryLimit(r))
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": records})
}
