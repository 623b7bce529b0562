package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"graceparish.org/internal/auth"
	"graceparish.org/internal/site"
)

// Stream serves the live audit feed to administrators as Server-Sent Events.
// Access is checked when the stream opens and again before every event, so a
// revoked role or session ends the stream with a "denied" event.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if a.feed == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	if err := a.streamAllowed(r.Context()); err != nil {
		writeSiteError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.feed.Subscribe(ctx)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for rec := range ch {
		if err := a.streamAllowed(ctx); err != nil {
			writeEvent(w, "denied", deniedPayload(err))
			flusher.Flush()
			return
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		writeEvent(w, "audit", payload)
		flusher.Flush()
	}
}

// streamAllowed re-reads the session behind the request token and runs the
// admin page gate for it.
func (a *API) streamAllowed(ctx context.Context) error {
	id, _ := auth.IdentityFromContext(ctx)
	if token, ok := auth.TokenFromContext(ctx); ok {
		current, err := a.accounts.CurrentSession(ctx, token)
		if err != nil {
			id = nil
		} else {
			id = current
		}
	}
	_, err := a.site.OpenPage(ctx, id, "admin")
	return err
}

func writeEvent(w http.ResponseWriter, event string, data []byte) {
	_, _ = w.Write([]byte("event: " + event + "\ndata: "))
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n\n"))
}

func deniedPayload(err error) []byte {
	body := map[string]any{"error": site.MsgGeneric}
	var se *site.Error
	if errors.As(err, &se) {
		body["error"] = se.Message
		body["kind"] = se.Kind
		if se.Redirect != "" {
			body["redirect"] = se.Redirect
		}
	}
	payload, _ := json.Marshal(body)
	return payload
}
