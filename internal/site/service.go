package site

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"graceparish.org/internal/audit"
	"graceparish.org/internal/auth"
	"graceparish.org/internal/obs"
	"graceparish.org/internal/ratelimit"
)

type window struct {
	prefix string
	max    int
	span   time.Duration
}

var (
	contactWindow    = window{prefix: "contact_", max: 3, span: 10 * time.Minute}
	newsletterWindow = window{prefix: "newsletter_", max: 1, span: 10 * time.Minute}
	profileWindow    = window{prefix: "profile_", max: 10, span: time.Minute}
	eventWindow      = window{prefix: "event_", max: 5, span: time.Minute}
	donateWindow     = window{prefix: "donate_", max: 5, span: time.Minute}
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Deps are the collaborators of a Service. Recorder may be nil, in which case
// admin actions are not audited.
type Deps struct {
	Backend    Backend
	Identities auth.IdentityStore
	Roles      auth.RoleStore
	AuditLog   audit.Store
	Gate       *auth.Gate
	Limiter    ratelimit.Limiter
	Recorder   *audit.Recorder
}

// Service implements the site actions.
type Service struct {
	backend    Backend
	identities auth.IdentityStore
	roles      auth.RoleStore
	auditLog   audit.Store
	gate       *auth.Gate
	limiter    ratelimit.Limiter
	recorder   *audit.Recorder

	inflight singleflight.Group
}

func New(d Deps) (*Service, error) {
	if d.Backend == nil || d.Identities == nil || d.Roles == nil || d.AuditLog == nil {
		return nil, errors.New("site: backend, identity, role and audit stores are required")
	}
	if d.Gate == nil {
		return nil, errors.New("site: gate is required")
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewMemory()
	}
	return &Service{
		backend:    d.Backend,
		identities: d.Identities,
		roles:      d.Roles,
		auditLog:   d.AuditLog,
		gate:       d.Gate,
		limiter:    d.Limiter,
		recorder:   d.Recorder,
	}, nil
}

// Gate exposes the authorization gate used by the service.
func (s *Service) Gate() *auth.Gate {
	return s.gate
}

func (s *Service) allow(w window, identifier, action string) error {
	if s.limiter.Allow(w.prefix+identifier, w.max, w.span) {
		return nil
	}
	obs.ObserveRateLimited(action)
	return rateLimited()
}

func (s *Service) reset(w window, identifier string) {
	s.limiter.Reset(w.prefix + identifier)
}

func (s *Service) authorize(ctx context.Context, actor *auth.Identity, req auth.Requirement) (auth.Decision, error) {
	d := s.gate.Authorize(ctx, actor, req)
	if !d.Granted {
		return d, denied(d)
	}
	return d, nil
}

// once collapses concurrent identical submissions into a single backend call.
func once[T any](s *Service, key string, fn func() (T, error)) (T, error) {
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		return fn()
	})
	out, _ := v.(T)
	return out, err
}

func flightKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}

func (s *Service) audit(ctx context.Context, actor *auth.Identity, action, targetID string, details map[string]any) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, actor.ID, action, targetID, details)
}

func clampLimit(limit int) (int, error) {
	if limit == 0 {
		return defaultListLimit, nil
	}
	if limit < 1 || limit > maxListLimit {
		return 0, invalidField("limit", "limit must be between 1 and 500")
	}
	return limit, nil
}
