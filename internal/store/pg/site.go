package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"graceparish.org/internal/site"
)

var _ site.Backend = (*Store)(nil)

// siteError maps constraint and privilege failures onto site sentinels.
func siteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return site.ErrNotFound
	case hasCode(err, pgErrUniqueViolation):
		return site.ErrAlreadyExists
	case hasCode(err, pgErrForeignKeyViolation):
		return site.ErrNotFound
	case hasCode(err, pgErrInsufficientPriv):
		return site.ErrForbidden
	}
	return err
}

func (s *Store) InsertContactMessage(ctx context.Context, msg site.ContactMessage) (site.ContactMessage, error) {
	if s.db == nil {
		return site.ContactMessage{}, errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into contact_messages (id, name, email, phone, inquiry_type, subject, message)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at
	`, msg.ID, msg.Name, msg.Email, nullIfEmpty(msg.Phone), msg.InquiryType, nullIfEmpty(msg.Subject), msg.Message).Scan(&msg.CreatedAt)
	if err != nil {
		return site.ContactMessage{}, siteError(err)
	}
	return msg, nil
}

func (s *Store) InsertSubscriber(ctx context.Context, email string) (site.Subscriber, error) {
	if s.db == nil {
		return site.Subscriber{}, errNoDB
	}
	sub := site.Subscriber{Email: email}
	err := s.db.QueryRowContext(ctx, `
		insert into newsletter_subscribers (email)
		values ($1)
		returning created_at
	`, email).Scan(&sub.CreatedAt)
	if err != nil {
		return site.Subscriber{}, siteError(err)
	}
	return sub, nil
}

func (s *Store) ProfileByUser(ctx context.Context, userID string) (site.Profile, error) {
	if s.db == nil {
		return site.Profile{}, errNoDB
	}
	var (
		p             site.Profile
		phone, gender sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select user_id, full_name, phone, gender, updated_at
		from profiles
		where user_id = $1
	`, userID).Scan(&p.UserID, &p.FullName, &phone, &gender, &p.UpdatedAt)
	if err != nil {
		return site.Profile{}, siteError(err)
	}
	p.Phone = phone.String
	p.Gender = gender.String
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p site.Profile) (site.Profile, error) {
	if s.db == nil {
		return site.Profile{}, errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into profiles (user_id, full_name, phone, gender, updated_at)
		values ($1, $2, $3, $4, now())
		on conflict (user_id) do update
		set full_name = excluded.full_name,
		    phone = excluded.phone,
		    gender = excluded.gender,
		    updated_at = now()
		returning updated_at
	`, p.UserID, p.FullName, nullIfEmpty(p.Phone), nullIfEmpty(p.Gender)).Scan(&p.UpdatedAt)
	if err != nil {
		return site.Profile{}, siteError(err)
	}
	return p, nil
}

func (s *Store) ListEvents(ctx context.Context, limit int) ([]site.Event, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, slug, title, coalesce(location, ''), starts_at, created_by, created_at
		from events
		order by starts_at asc
		limit $1
	`, clampLimit(limit))
	if err != nil {
		return nil, siteError(err)
	}
	defer rows.Close()

	var out []site.Event
	for rows.Next() {
		var e site.Event
		if err := rows.Scan(&e.ID, &e.Slug, &e.Title, &e.Location, &e.StartsAt, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) InsertEvent(ctx context.Context, e site.Event) (site.Event, error) {
	if s.db == nil {
		return site.Event{}, errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into events (id, slug, title, location, starts_at, created_by)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at
	`, e.ID, e.Slug, e.Title, nullIfEmpty(e.Location), e.StartsAt, e.CreatedBy).Scan(&e.CreatedAt)
	if err != nil {
		return site.Event{}, siteError(err)
	}
	return e, nil
}

func (s *Store) ListSermons(ctx context.Context, limit int) ([]site.Sermon, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, slug, title, coalesce(speaker, ''), preached_on, created_by, created_at
		from sermons
		order by preached_on desc
		limit $1
	`, clampLimit(limit))
	if err != nil {
		return nil, siteError(err)
	}
	defer rows.Close()

	var out []site.Sermon
	for rows.Next() {
		var sm site.Sermon
		if err := rows.Scan(&sm.ID, &sm.Slug, &sm.Title, &sm.Speaker, &sm.PreachedOn, &sm.CreatedBy, &sm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *Store) InsertSermon(ctx context.Context, sm site.Sermon) (site.Sermon, error) {
	if s.db == nil {
		return site.Sermon{}, errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into sermons (id, slug, title, speaker, preached_on, created_by)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at
	`, sm.ID, sm.Slug, sm.Title, nullIfEmpty(sm.Speaker), sm.PreachedOn, sm.CreatedBy).Scan(&sm.CreatedAt)
	if err != nil {
		return site.Sermon{}, siteError(err)
	}
	return sm, nil
}

var contentTables = map[string]string{
	site.ContentSermon: "sermons",
	site.ContentEvent:  "events",
}

func (s *Store) DeleteContent(ctx context.Context, kind, id string) error {
	if s.db == nil {
		return errNoDB
	}
	table, ok := contentTables[kind]
	if !ok {
		return fmt.Errorf("unknown content kind %q", kind)
	}
	res, err := s.db.ExecContext(ctx, `delete from `+table+` where id = $1`, id)
	if err != nil {
		return siteError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return site.ErrNotFound
	}
	return nil
}

func (s *Store) InsertRegistration(ctx context.Context, r site.Registration) (site.Registration, error) {
	if s.db == nil {
		return site.Registration{}, errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into event_registrations (id, event_id, user_id, attendees, note)
		values ($1, $2, $3, $4, $5)
		returning created_at
	`, r.ID, r.EventID, r.UserID, r.Attendees, nullIfEmpty(r.Note)).Scan(&r.CreatedAt)
	if err != nil {
		return site.Registration{}, siteError(err)
	}
	return r, nil
}

func (s *Store) InsertDonation(ctx context.Context, d site.Donation) (site.Donation, error) {
	if s.db == nil {
		return site.Donation{}, errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into donations (id, user_id, amount_cents, fund, frequency, note)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at
	`, d.ID, d.UserID, d.AmountCents, d.Fund, d.Frequency, nullIfEmpty(d.Note)).Scan(&d.CreatedAt)
	if err != nil {
		return site.Donation{}, siteError(err)
	}
	return d, nil
}

func (s *Store) DonationsByUser(ctx context.Context, userID string, limit int) ([]site.Donation, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, amount_cents, fund, frequency, coalesce(note, ''), created_at
		from donations
		where user_id = $1
		order by created_at desc
		limit $2
	`, userID, clampLimit(limit))
	if err != nil {
		return nil, siteError(err)
	}
	defer rows.Close()

	var out []site.Donation
	for rows.Next() {
		var d site.Donation
		if err := rows.Scan(&d.ID, &d.UserID, &d.AmountCents, &d.Fund, &d.Frequency, &d.Note, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
