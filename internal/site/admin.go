package site

import (
	"context"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"graceparish.org/internal/audit"
	"graceparish.org/internal/auth"
	"graceparish.org/internal/ids"
	"graceparish.org/internal/validate"
)

var adminOnly = auth.Requirement{AdminOnly: true}

// SermonForm is the raw sermon entry.
type SermonForm struct {
	Title      string    `json:"title"`
	Speaker    string    `json:"speaker"`
	PreachedOn time.Time `json:"preached_on"`
}

// EventForm is the raw event entry.
type EventForm struct {
	Title    string    `json:"title"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"starts_at"`
}

// Member is an identity with its assigned roles.
type Member struct {
	auth.Identity
	Roles []string `json:"roles"`
}

func (s *Service) CreateSermon(ctx context.Context, actor *auth.Identity, form SermonForm) (Sermon, error) {
	f := validate.NewForm()
	sermon := Sermon{
		ID:         ids.New(),
		Title:      f.Text("title", form.Title, 3, 200),
		Speaker:    f.Text("speaker", form.Speaker, 0, 100),
		PreachedOn: form.PreachedOn,
	}
	sermon.Slug = slugFor(f, form.Title)
	if err := f.Err(); err != nil {
		return Sermon{}, invalid(err)
	}
	if _, err := s.authorize(ctx, actor, adminOnly); err != nil {
		return Sermon{}, err
	}
	if sermon.PreachedOn.IsZero() {
		sermon.PreachedOn = time.Now().UTC().Truncate(24 * time.Hour)
	}
	sermon.CreatedBy = actor.ID
	saved, err := s.backend.InsertSermon(ctx, sermon)
	if err != nil {
		return Sermon{}, s.backendError(ctx, actor, "insert sermon", err, "a sermon with this title already exists")
	}
	return saved, nil
}

func (s *Service) CreateEvent(ctx context.Context, actor *auth.Identity, form EventForm) (Event, error) {
	f := validate.NewForm()
	event := Event{
		ID:       ids.New(),
		Title:    f.Text("title", form.Title, 3, 200),
		Location: f.Text("location", form.Location, 0, 100),
		StartsAt: form.StartsAt.UTC(),
	}
	if form.StartsAt.IsZero() {
		f.Add("starts_at", "starts at is required")
	}
	event.Slug = slugFor(f, form.Title)
	if err := f.Err(); err != nil {
		return Event{}, invalid(err)
	}
	if _, err := s.authorize(ctx, actor, adminOnly); err != nil {
		return Event{}, err
	}
	event.CreatedBy = actor.ID
	saved, err := s.backend.InsertEvent(ctx, event)
	if err != nil {
		return Event{}, s.backendError(ctx, actor, "insert event", err, "an event with this title already exists")
	}
	return saved, nil
}

// DeleteContent removes a sermon or event and records it in the audit log.
func (s *Service) DeleteContent(ctx context.Context, actor *auth.Identity, kind, id string) error {
	f := validate.NewForm()
	kind = f.Enum("kind", kind, ContentKinds)
	id = requiredID(f, "id", id)
	if err := f.Err(); err != nil {
		return invalid(err)
	}
	if _, err := s.authorize(ctx, actor, adminOnly); err != nil {
		return err
	}
	if err := s.backend.DeleteContent(ctx, kind, id); err != nil {
		return s.backendError(ctx, actor, "delete content", err, "")
	}
	s.audit(ctx, actor, audit.ActionContentDelete, id, map[string]any{"kind": kind})
	return nil
}

// AssignRole grants role to userID and records it in the audit log.
func (s *Service) AssignRole(ctx context.Context, actor *auth.Identity, userID, role string) (auth.RoleAssignment, error) {
	f := validate.NewForm()
	userID = requiredID(f, "user_id", userID)
	role = f.Enum("role", role, auth.KnownRoles)
	if err := f.Err(); err != nil {
		return auth.RoleAssignment{}, invalid(err)
	}
	if _, err := s.authorize(ctx, actor, adminOnly); err != nil {
		return auth.RoleAssignment{}, err
	}
	assignment, err := s.roles.AssignRole(ctx, userID, role)
	if err != nil {
		return auth.RoleAssignment{}, s.backendError(ctx, actor, "assign role", err, "role already assigned")
	}
	s.audit(ctx, actor, audit.ActionRoleAssign, userID, map[string]any{"role": role})
	return assignment, nil
}

// RevokeRole removes role from userID and records it in the audit log.
func (s *Service) RevokeRole(ctx context.Context, actor *auth.Identity, userID, role string) error {
	f := validate.NewForm()
	userID = requiredID(f, "user_id", userID)
	role = f.Enum("role", role, auth.KnownRoles)
	if err := f.Err(); err != nil {
		return invalid(err)
	}
	if _, err := s.authorize(ctx, actor, adminOnly); err != nil {
		return err
	}
	if err := s.roles.RevokeRole(ctx, userID, role); err != nil {
		return s.backendError(ctx, actor, "revoke role", err, "")
	}
	s.audit(ctx, actor, audit.ActionRoleRevoke, userID, map[string]any{"role": role})
	return nil
}

// DeleteUser removes an identity and everything it owns.
func (s *Service) DeleteUser(ctx context.Context, actor *auth.Identity, userID string) error {
	f := validate.NewForm()
	userID = requiredID(f, "user_id", userID)
	if err := f.Err(); err != nil {
		return invalid(err)
	}
	if _, err := s.authorize(ctx, actor, adminOnly); err != nil {
		return err
	}
	if err := s.identities.DeleteIdentity(ctx, userID); err != nil {
		return s.backendError(ctx, actor, "delete user", err, "")
	}
	s.audit(ctx, actor, audit.ActionUserDelete, userID, nil)
	return nil
}

// ListMembers returns identities with their role assignments.
func (s *Service) ListMembers(ctx context.Context, actor *auth.Identity, limit int) ([]Member, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actor, adminOnly); err != nil {
		return nil, err
	}
	identities, err := s.identities.ListIdentities(ctx, limit)
	if err != nil {
		return nil, s.backendError(ctx, actor, "list members", err, "")
	}
	members := make([]Member, 0, len(identities))
	for _, id := range identities {
		roles, err := s.roles.RolesForUser(ctx, id.ID)
		if err != nil {
			return nil, s.backendError(ctx, actor, "list member roles", err, "")
		}
		members = append(members, Member{Identity: id, Roles: roles})
	}
	return members, nil
}

// ListAudit returns the most recent audit records.
func (s *Service) ListAudit(ctx context.Context, actor *auth.Identity, limit int) ([]audit.Record, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, actor, adminOnly); err != nil {
		return nil, err
	}
	records, err := s.auditLog.ListAudit(ctx, limit)
	if err != nil {
		return nil, s.backendError(ctx, actor, "list audit", err, "")
	}
	return records, nil
}

func slugFor(f *validate.Form, title string) string {
	sl := slug.Make(strings.TrimSpace(title))
	if sl == "" {
		f.Add("title", "title must contain letters or digits")
	}
	return sl
}

func requiredID(f *validate.Form, field, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		f.Add(field, strings.ReplaceAll(field, "_", " ")+" is required")
	}
	return raw
}
