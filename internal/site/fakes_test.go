package site

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"graceparish.org/internal/audit"
	"graceparish.org/internal/auth"
	"graceparish.org/internal/ratelimit"
)

type fakeBackend struct {
	mu          sync.Mutex
	calls       int
	err         error
	profiles    map[string]Profile
	subscribers map[string]bool
	regs        map[string]bool
	contacts    []ContactMessage
	donations   []Donation
	deleted     []string
	block       chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		profiles:    map[string]Profile{},
		subscribers: map[string]bool{},
		regs:        map[string]bool{},
	}
}

func (b *fakeBackend) enter() error {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	b.calls++
	return b.err
}

func (b *fakeBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *fakeBackend) InsertContactMessage(_ context.Context, msg ContactMessage) (ContactMessage, error) {
	err := b.enter()
	defer b.mu.Unlock()
	if err != nil {
		return ContactMessage{}, err
	}
	msg.CreatedAt = time.Now()
	b.contacts = append(b.contacts, msg)
	return msg, nil
}

func (b *fakeBackend) InsertSubscriber(_ context.Context, email string) (Subscriber, error) {
	err := b.enter()
	defer b.mu.Unlock()
	if err != nil {
		return Subscriber{}, err
	}
	if b.subscribers[email] {
		return Subscriber{}, ErrAlreadyExists
	}
	b.subscribers[email] = true
	return Subscriber{Email: email, CreatedAt: time.Now()}, nil
}

func (b *fakeBackend) ProfileByUser(_ context.Context, userID string) (Profile, error) {
	err := b.enter()
	defer b.mu.Unlock()
	if err != nil {
		return Profile{}, err
	}
	p, ok := b.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (b *fakeBackend) UpsertProfile(_ context.Context, p Profile) (Profile, error) {
	err := b.enter()
	defer b.mu.Unlock()
	if err != nil {
		return Profile{}, err
	}
	p.UpdatedAt = time.Now()
	b.profiles[p.UserID] = p
	return p, nil
}

func (b *fakeBackend) ListEvents(context.Context, int) ([]Event, error) {
	err := b.enter()
	defer b.mu.Unlock()
	return nil, err
}

func (b *fakeBackend) InsertEvent(_ context.Context, e Event) (Event, error) {
	err := b.enter()
	defer b.mu.Unlock()
	return e, err
}

func (b *fakeBackend) ListSermons(context.Context, int) ([]Sermon, error) {
	err := b.enter()
	defer b.mu.Unlock()
	return nil, err
}

func (b *fakeBackend) InsertSermon(_ context.Context, s Sermon) (Sermon, error) {
	err := b.enter()
	defer b.mu.Unlock()
	return s, err
}

func (b *fakeBackend) DeleteContent(_ context.Context, kind, id string) error {
	err := b.enter()
	defer b.mu.Unlock()
	if err == nil {
		b.deleted = append(b.deleted, kind+"/"+id)
	}
	return err
}

func (b *fakeBackend) InsertRegistration(_ context.Context, r Registration) (Registration, error) {
	err := b.enter()
	defer b.mu.Unlock()
	if err != nil {
		return Registration{}, err
	}
	key := r.EventID + "/" + r.UserID
	if b.regs[key] {
		return Registration{}, ErrAlreadyExists
	}
	b.regs[key] = true
	return r, nil
}

func (b *fakeBackend) InsertDonation(_ context.Context, d Donation) (Donation, error) {
	err := b.enter()
	defer b.mu.Unlock()
	if err != nil {
		return Donation{}, err
	}
	b.donations = append(b.donations, d)
	return d, nil
}

func (b *fakeBackend) DonationsByUser(_ context.Context, userID string, _ int) ([]Donation, error) {
	err := b.enter()
	defer b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []Donation
	for _, d := range b.donations {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeAccounts struct {
	mu    sync.Mutex
	roles map[string][]string
	users map[string]auth.Identity
	audit []audit.Record
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{roles: map[string][]string{}, users: map[string]auth.Identity{}}
}

func (a *fakeAccounts) CreateIdentity(context.Context, string, string) (auth.Identity, error) {
	return auth.Identity{}, errors.New("not supported")
}

func (a *fakeAccounts) IdentityByEmail(context.Context, string) (auth.Identity, string, error) {
	return auth.Identity{}, "", auth.ErrNotFound
}

func (a *fakeAccounts) IdentityByID(_ context.Context, userID string) (auth.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.users[userID]
	if !ok {
		return auth.Identity{}, auth.ErrNotFound
	}
	return id, nil
}

func (a *fakeAccounts) DeleteIdentity(_ context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[userID]; !ok {
		return auth.ErrNotFound
	}
	delete(a.users, userID)
	return nil
}

func (a *fakeAccounts) ListIdentities(context.Context, int) ([]auth.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []auth.Identity
	for _, id := range a.users {
		out = append(out, id)
	}
	return out, nil
}

func (a *fakeAccounts) RevokeSession(context.Context, string, time.Time) error { return nil }

func (a *fakeAccounts) SessionRevoked(context.Context, string) (bool, error) { return false, nil }

func (a *fakeAccounts) RolesForUser(_ context.Context, userID string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.roles[userID]...), nil
}

func (a *fakeAccounts) AssignRole(_ context.Context, userID, role string) (auth.RoleAssignment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.roles[userID] {
		if r == role {
			return auth.RoleAssignment{}, auth.ErrAlreadyExists
		}
	}
	a.roles[userID] = append(a.roles[userID], role)
	return auth.RoleAssignment{UserID: userID, Role: role, CreatedAt: time.Now()}, nil
}

func (a *fakeAccounts) RevokeRole(_ context.Context, userID, role string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	roles := a.roles[userID]
	for i, r := range roles {
		if r == role {
			a.roles[userID] = append(roles[:i], roles[i+1:]...)
			return nil
		}
	}
	return auth.ErrNotFound
}

func (a *fakeAccounts) AppendAudit(_ context.Context, rec audit.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.audit = append(a.audit, rec)
	return nil
}

func (a *fakeAccounts) ListAudit(context.Context, int) ([]audit.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Record(nil), a.audit...), nil
}

const adminEmail = "pastor@graceparish.org"

type fixture struct {
	svc      *Service
	backend  *fakeBackend
	accounts *fakeAccounts
	recorder *audit.Recorder
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		backend:  newFakeBackend(),
		accounts: newFakeAccounts(),
		now:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	fx.recorder = audit.NewRecorder(fx.accounts, 16)
	t.Cleanup(func() { _ = fx.recorder.Close(context.Background()) })

	resolver := auth.NewResolver(auth.NewAdminAllowList(adminEmail), auth.StoreRoles{Store: fx.accounts})
	svc, err := New(Deps{
		Backend:    fx.backend,
		Identities: fx.accounts,
		Roles:      fx.accounts,
		AuditLog:   fx.accounts,
		Gate:       auth.NewGate(resolver),
		Limiter:    ratelimit.NewMemory(ratelimit.WithClock(func() time.Time { return fx.now })),
		Recorder:   fx.recorder,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fx.svc = svc
	return fx
}

var (
	visitor = (*auth.Identity)(nil)
	alice   = &auth.Identity{ID: "u1", Email: "alice@example.org"}
	bob     = &auth.Identity{ID: "u2", Email: "bob@example.org"}
	pastor  = &auth.Identity{ID: "u9", Email: adminEmail}
)
