package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"graceparish.org/internal/audit"
	"graceparish.org/internal/auth"
	"graceparish.org/internal/site"
)

// memBackend is an in-memory stand-in for the PostgreSQL store.
type memBackend struct {
	mu          sync.Mutex
	next        int
	identities  map[string]auth.Identity
	hashes      map[string]string
	roles       map[string][]string
	revoked     map[string]bool
	audit       []audit.Record
	profiles    map[string]site.Profile
	subscribers map[string]bool
	contacts    int
	donations   []site.Donation
}

func newMemBackend() *memBackend {
	return &memBackend{
		identities:  map[string]auth.Identity{},
		hashes:      map[string]string{},
		roles:       map[string][]string{},
		revoked:     map[string]bool{},
		profiles:    map[string]site.Profile{},
		subscribers: map[string]bool{},
	}
}

func (m *memBackend) CreateIdentity(_ context.Context, email, hash string) (auth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.identities {
		if id.Email == email {
			return auth.Identity{}, auth.ErrAlreadyExists
		}
	}
	m.next++
	id := auth.Identity{ID: fmt.Sprintf("u%d", m.next), Email: email}
	m.identities[id.ID] = id
	m.hashes[id.ID] = hash
	return id, nil
}

func (m *memBackend) IdentityByEmail(_ context.Context, email string) (auth.Identity, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.identities {
		if id.Email == email {
			return id, m.hashes[id.ID], nil
		}
	}
	return auth.Identity{}, "", auth.ErrNotFound
}

func (m *memBackend) IdentityByID(_ context.Context, userID string) (auth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[userID]
	if !ok {
		return auth.Identity{}, auth.ErrNotFound
	}
	return id, nil
}

func (m *memBackend) DeleteIdentity(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[userID]; !ok {
		return auth.ErrNotFound
	}
	delete(m.identities, userID)
	delete(m.roles, userID)
	return nil
}

func (m *memBackend) ListIdentities(context.Context, int) ([]auth.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]auth.Identity, 0, len(m.identities))
	for _, id := range m.identities {
		out = append(out, id)
	}
	return out, nil
}

func (m *memBackend) RevokeSession(_ context.Context, sessionID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[sessionID] = true
	return nil
}

func (m *memBackend) SessionRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[sessionID], nil
}

func (m *memBackend) RolesForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.roles[userID]...), nil
}

func (m *memBackend) AssignRole(_ context.Context, userID, role string) (auth.RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[userID]; !ok {
		return auth.RoleAssignment{}, auth.ErrNotFound
	}
	for _, r := range m.roles[userID] {
		if r == role {
			return auth.RoleAssignment{}, auth.ErrAlreadyExists
		}
	}
	m.roles[userID] = append(m.roles[userID], role)
	return auth.RoleAssignment{UserID: userID, Role: role, CreatedAt: time.Now().UTC()}, nil
}

func (m *memBackend) RevokeRole(_ context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := m.roles[userID]
	for i, r := range roles {
		if r == role {
			m.roles[userID] = append(roles[:i], roles[i+1:]...)
			return nil
		}
	}
	return auth.ErrNotFound
}

func (m *memBackend) AppendAudit(_ context.Context, rec audit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, rec)
	return nil
}

func (m *memBackend) ListAudit(context.Context, int) ([]audit.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Record(nil), m.audit...), nil
}

func (m *memBackend) InsertContactMessage(_ context.Context, msg site.ContactMessage) (site.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts++
	msg.CreatedAt = time.Now().UTC()
	return msg, nil
}

func (m *memBackend) InsertSubscriber(_ context.Context, email string) (site.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribers[email] {
		return site.Subscriber{}, site.ErrAlreadyExists
	}
	m.subscribers[email] = true
	return site.Subscriber{Email: email, CreatedAt: time.Now().UTC()}, nil
}

func (m *memBackend) ProfileByUser(_ context.Context, userID string) (site.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return site.Profile{}, site.ErrNotFound
	}
	return p, nil
}

func (m *memBackend) UpsertProfile(_ context.Context, p site.Profile) (site.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	m.profiles[p.UserID] = p
	return p, nil
}

func (m *memBackend) ListEvents(context.Context, int) ([]site.Event, error) { return nil, nil }

func (m *memBackend) InsertEvent(_ context.Context, e site.Event) (site.Event, error) {
	return e, nil
}

func (m *memBackend) ListSermons(context.Context, int) ([]site.Sermon, error) { return nil, nil }

func (m *memBackend) InsertSermon(_ context.Context, s site.Sermon) (site.Sermon, error) {
	return s, nil
}

func (m *memBackend) DeleteContent(context.Context, string, string) error { return nil }

func (m *memBackend) InsertRegistration(_ context.Context, r site.Registration) (site.Registration, error) {
	return r, nil
}

func (m *memBackend) InsertDonation(_ context.Context, d site.Donation) (site.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.donations = append(m.donations, d)
	return d, nil
}

func (m *memBackend) DonationsByUser(_ context.Context, userID string, _ int) ([]site.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []site.Donation
	for _, d := range m.donations {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memBackend) contactCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contacts
}

func (m *memBackend) profile(userID string) site.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[userID]
}
