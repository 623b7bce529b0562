package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type memStore struct {
	mu         sync.Mutex
	identities map[string]Identity
	hashes     map[string]string
	roles      map[string][]string
	revoked    map[string]time.Time
	rolesErr   error
	revokedErr error
	next       int
}

func newMemStore() *memStore {
	return &memStore{
		identities: map[string]Identity{},
		hashes:     map[string]string{},
		roles:      map[string][]string{},
		revoked:    map[string]time.Time{},
	}
}

func (m *memStore) CreateIdentity(_ context.Context, email, hash string) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.identities {
		if id.Email == email {
			return Identity{}, ErrAlreadyExists
		}
	}
	m.next++
	id := Identity{ID: fmt.Sprintf("u%d", m.next), Email: email}
	m.identities[id.ID] = id
	m.hashes[id.ID] = hash
	return id, nil
}

func (m *memStore) IdentityByEmail(_ context.Context, email string) (Identity, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.identities {
		if id.Email == email {
			return id, m.hashes[id.ID], nil
		}
	}
	return Identity{}, "", ErrNotFound
}

func (m *memStore) IdentityByID(_ context.Context, userID string) (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.identities[userID]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return id, nil
}

func (m *memStore) DeleteIdentity(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[userID]; !ok {
		return ErrNotFound
	}
	delete(m.identities, userID)
	return nil
}

func (m *memStore) ListIdentities(_ context.Context, _ int) ([]Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Identity
	for _, id := range m.identities {
		out = append(out, id)
	}
	return out, nil
}

func (m *memStore) RevokeSession(_ context.Context, sessionID string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[sessionID] = exp
	return nil
}

func (m *memStore) SessionRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokedErr != nil {
		return false, m.revokedErr
	}
	_, ok := m.revoked[sessionID]
	return ok, nil
}

func (m *memStore) RolesForUser(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rolesErr != nil {
		return nil, m.rolesErr
	}
	return append([]string(nil), m.roles[userID]...), nil
}

func (m *memStore) AssignRole(_ context.Context, userID, role string) (RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles[userID] {
		if r == role {
			return RoleAssignment{}, ErrAlreadyExists
		}
	}
	m.roles[userID] = append(m.roles[userID], role)
	return RoleAssignment{UserID: userID, Role: role, CreatedAt: time.Now()}, nil
}

func (m *memStore) RevokeRole(_ context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := m.roles[userID]
	for i, r := range roles {
		if r == role {
			m.roles[userID] = append(roles[:i], roles[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

var errBackendDown = errors.New("backend unavailable")
