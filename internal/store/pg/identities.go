package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"graceparish.org/internal/auth"
	"graceparish.org/internal/ids"
)

var (
	_ auth.IdentityStore = (*Store)(nil)
	_ auth.RoleStore     = (*Store)(nil)
)

func (s *Store) CreateIdentity(ctx context.Context, email, passwordHash string) (auth.Identity, error) {
	if s.db == nil {
		return auth.Identity{}, errNoDB
	}
	var id auth.Identity
	err := s.db.QueryRowContext(ctx, `
		insert into identities (id, email, password_hash)
		values ($1, $2, $3)
		returning id, email
	`, ids.New(), email, passwordHash).Scan(&id.ID, &id.Email)
	if err != nil {
		if hasCode(err, pgErrUniqueViolation) {
			return auth.Identity{}, auth.ErrAlreadyExists
		}
		return auth.Identity{}, err
	}
	return id, nil
}

func (s *Store) IdentityByEmail(ctx context.Context, email string) (auth.Identity, string, error) {
	if s.db == nil {
		return auth.Identity{}, "", errNoDB
	}
	var (
		id   auth.Identity
		hash string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, email, password_hash
		from identities
		where email = $1
	`, email).Scan(&id.ID, &id.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Identity{}, "", auth.ErrNotFound
	}
	if err != nil {
		return auth.Identity{}, "", err
	}
	return id, hash, nil
}

func (s *Store) IdentityByID(ctx context.Context, userID string) (auth.Identity, error) {
	if s.db == nil {
		return auth.Identity{}, errNoDB
	}
	var id auth.Identity
	err := s.db.QueryRowContext(ctx, `
		select id, email
		from identities
		where id = $1
	`, userID).Scan(&id.ID, &id.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Identity{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Identity{}, err
	}
	return id, nil
}

// DeleteIdentity removes the identity; owned rows go with it via foreign-key cascades.
func (s *Store) DeleteIdentity(ctx context.Context, userID string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from identities where id = $1`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) ListIdentities(ctx context.Context, limit int) ([]auth.Identity, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, email
		from identities
		order by created_at desc
		limit $1
	`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.Identity
	for rows.Next() {
		var id auth.Identity
		if err := rows.Scan(&id.ID, &id.Email); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) RevokeSession(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if s.db == nil {
		return errNoDB
	}
	_, err := s.db.ExecContext(ctx, `
		insert into revoked_sessions (session_id, expires_at)
		values ($1, $2)
		on conflict (session_id) do nothing
	`, sessionID, expiresAt.UTC())
	return err
}

func (s *Store) SessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	if s.db == nil {
		return false, errNoDB
	}
	var revoked bool
	err := s.db.QueryRowContext(ctx, `
		select exists (select 1 from revoked_sessions where session_id = $1)
	`, sessionID).Scan(&revoked)
	return revoked, err
}

func (s *Store) RolesForUser(ctx context.Context, userID string) ([]string, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select role
		from user_roles
		where user_id = $1
		order by role
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *Store) AssignRole(ctx context.Context, userID, role string) (auth.RoleAssignment, error) {
	if s.db == nil {
		return auth.RoleAssignment{}, errNoDB
	}
	a := auth.RoleAssignment{UserID: userID, Role: role}
	err := s.db.QueryRowContext(ctx, `
		insert into user_roles (user_id, role)
		values ($1, $2)
		returning created_at
	`, userID, role).Scan(&a.CreatedAt)
	if err != nil {
		switch {
		case hasCode(err, pgErrUniqueViolation):
			return auth.RoleAssignment{}, auth.ErrAlreadyExists
		case hasCode(err, pgErrForeignKeyViolation):
			return auth.RoleAssignment{}, auth.ErrNotFound
		}
		return auth.RoleAssignment{}, err
	}
	return a, nil
}

func (s *Store) RevokeRole(ctx context.Context, userID, role string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from user_roles where user_id = $1 and role = $2`, userID, role)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
