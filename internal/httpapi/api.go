// Package httpapi exposes the site actions over JSON/HTTP and a gRPC health service.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"graceparish.org/internal/audit"
	"graceparish.org/internal/auth"
	"graceparish.org/internal/obs"
	"graceparish.org/internal/site"
	"graceparish.org/internal/stream"
)

const (
	serviceName    = "graceparish-api"
	defaultMaxBody = 1 << 20
	defaultRate    = 20
	defaultBurst   = 40
	readyTimeout   = 2 * time.Second
)

type readinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe pings the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options wires the API.
type Options struct {
	Version     string
	Readiness   readinessChecker
	Accounts    *auth.Accounts
	Site        *site.Service
	AuditFeed   *stream.Hub[audit.Record]
	APIKey      string
	Origins     []string
	RatePerSec  int
	RateBurst   int
	MaxBodySize int64
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readiness  readinessChecker
	version    string
	accounts   *auth.Accounts
	site       *site.Service
	feed       *stream.Hub[audit.Record]
	apiKey     string
	origins    []string
	ratePerSec int
	rateBurst  int
	maxBody    int64
}

func New(opts Options) (*API, error) {
	if opts.Accounts == nil || opts.Site == nil {
		return nil, errors.New("httpapi: accounts and site service are required")
	}
	a := &API{
		mux:        http.NewServeMux(),
		readiness:  opts.Readiness,
		version:    opts.Version,
		accounts:   opts.Accounts,
		site:       opts.Site,
		feed:       opts.AuditFeed,
		apiKey:     opts.APIKey,
		origins:    opts.Origins,
		ratePerSec: opts.RatePerSec,
		rateBurst:  opts.RateBurst,
		maxBody:    opts.MaxBodySize,
	}
	if a.readiness == nil {
		a.readiness = ReadyProbe{}
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = defaultRate
	}
	if a.rateBurst <= 0 {
		a.rateBurst = defaultBurst
	}
	if a.maxBody <= 0 {
		a.maxBody = defaultMaxBody
	}
	a.routes()
	return a, nil
}

func (a *API) routes() {
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /v1/auth/signup", a.handleSignUp)
	a.mux.HandleFunc("POST /v1/auth/signin", a.handleSignIn)
	a.mux.HandleFunc("POST /v1/auth/signout", a.handleSignOut)
	a.mux.HandleFunc("GET /v1/auth/session", a.handleSession)

	a.mux.HandleFunc("POST /v1/contact", a.handleContact)
	a.mux.HandleFunc("POST /v1/newsletter", a.handleNewsletter)
	a.mux.HandleFunc("GET /v1/profiles/{id}", a.handleGetProfile)
	a.mux.HandleFunc("PUT /v1/profiles/{id}", a.handleUpdateProfile)
	a.mux.HandleFunc("GET /v1/events", a.handleListEvents)
	a.mux.HandleFunc("POST /v1/events/{id}/registrations", a.handleRegister)
	a.mux.HandleFunc("GET /v1/sermons", a.handleListSermons)
	a.mux.HandleFunc("POST /v1/donations", a.handleDonate)
	a.mux.HandleFunc("GET /v1/users/{id}/donations", a.handleListDonations)
	a.mux.HandleFunc("GET /v1/pages/{page}", a.handlePage)

	a.mux.HandleFunc("GET /v1/admin/members", a.handleListMembers)
	a.mux.HandleFunc("POST /v1/admin/users/{id}/roles", a.handleAssignRole)
	a.mux.HandleFunc("DELETE /v1/admin/users/{id}/roles/{role}", a.handleRevokeRole)
	a.mux.HandleFunc("DELETE /v1/admin/users/{id}", a.handleDeleteUser)
	a.mux.HandleFunc("POST /v1/admin/sermons", a.handleCreateSermon)
	a.mux.HandleFunc("POST /v1/admin/events", a.handleCreateEvent)
	a.mux.HandleFunc("DELETE /v1/admin/content/{kind}/{id}", a.handleDeleteContent)
	a.mux.HandleFunc("GET /v1/admin/audit", a.handleListAudit)
	a.mux.HandleFunc("GET /v1/admin/audit/stream", a.Stream)
}

// Handler returns the fully wrapped HTTP handler.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = APIKey(h, a.apiKey)
	h = MaxBodyBytes(h, a.maxBody)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.origins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := a.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

var kindStatus = map[site.Kind]int{
	site.KindValidation:      http.StatusUnprocessableEntity,
	site.KindRateLimited:     http.StatusTooManyRequests,
	site.KindUnauthenticated: http.StatusUnauthorized,
	site.KindForbidden:       http.StatusForbidden,
	site.KindConflict:        http.StatusConflict,
	site.KindNotFound:        http.StatusNotFound,
	site.KindBackend:         http.StatusInternalServerError,
}

// writeSiteError renders a site action failure.
func writeSiteError(w http.ResponseWriter, r *http.Request, err error) {
	var se *site.Error
	if !errors.As(err, &se) {
		obs.Error("unhandled action error", map[string]any{"err": err, "path": r.URL.Path})
		writeError(w, r, http.StatusInternalServerError, site.MsgGeneric)
		return
	}
	code, ok := kindStatus[se.Kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	payload := map[string]any{
		"error": se.Message,
		"kind":  se.Kind,
	}
	if len(se.Fields) > 0 {
		payload["fields"] = se.Fields
	}
	if se.Redirect != "" {
		payload["redirect"] = se.Redirect
	}
	if se.Detail != "" {
		payload["detail"] = se.Detail
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, defaultMaxBody)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// queryLimit reads ?limit=. Absent means default; malformed fails validation downstream.
func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}
