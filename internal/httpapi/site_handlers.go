package httpapi

import (
	"net/http"

	"graceparish.org/internal/site"
)

type newsletterRequest struct {
	Email string `json:"email"`
}

func (a *API) handleContact(w http.ResponseWriter, r *http.Request) {
	var req site.ContactForm
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := a.site.SubmitContact(r.Context(), req)
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (a *API) handleNewsletter(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sub, err := a.site.Subscribe(r.Context(), req.Email)
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := a.site.GetProfile(r.Context(), actor(r), r.PathValue("id"))
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req site.ProfileForm
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.site.UpdateProfile(r.Context(), actor(r), r.PathValue("id"), req)
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := a.site.ListEvents(r.Context(), queryLimit(r))
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req site.RegistrationForm
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	reg, err := a.site.RegisterForEvent(r.Context(), actor(r), r.PathValue("id"), req)
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (a *API) handleListSermons(w http.ResponseWriter, r *http.Request) {
	sermons, err := a.site.ListSermons(r.Context(), queryLimit(r))
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": sermons})
}

func (a *API) handleDonate(w http.ResponseWriter, r *http.Request) {
	var req site.DonationForm
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	d, err := a.site.Donate(r.Context(), actor(r), req)
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (a *API) handleListDonations(w http.ResponseWriter, r *http.Request) {
	items, err := a.site.ListDonations(r.Context(), actor(r), r.PathValue("id"), queryLimit(r))
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handlePage reports the gate outcome for a page render. Denials carry the redirect.
func (a *API) handlePage(w http.ResponseWriter, r *http.Request) {
	view, err := a.site.OpenPage(r.Context(), actor(r), r.PathValue("page"))
	if err != nil {
		writeSiteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
