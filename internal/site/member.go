package site

import (
	"context"
	"strconv"
	"strings"

	"graceparish.org/internal/auth"
	"graceparish.org/internal/ids"
	"graceparish.org/internal/validate"
)

// ProfileForm is the raw profile edit.
type ProfileForm struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
}

// GetProfile returns userID's profile to its owner or an admin.
func (s *Service) GetProfile(ctx context.Context, actor *auth.Identity, userID string) (Profile, error) {
	if err := s.allowActor(profileWindow, actor, "profile"); err != nil {
		return Profile{}, err
	}
	f := validate.NewForm()
	userID = requiredID(f, "user_id", userID)
	if err := f.Err(); err != nil {
		return Profile{}, invalid(err)
	}
	if _, err := s.authorize(ctx, actor, auth.Requirement{OwnerID: userID}); err != nil {
		return Profile{}, err
	}
	p, err := s.backend.ProfileByUser(ctx, userID)
	if err != nil {
		return Profile{}, s.backendError(ctx, actor, "get profile", err, "")
	}
	return p, nil
}

// UpdateProfile replaces userID's profile. Nothing is written unless the actor
// owns the profile or is an admin.
func (s *Service) UpdateProfile(ctx context.Context, actor *auth.Identity, userID string, form ProfileForm) (Profile, error) {
	if err := s.allowActor(profileWindow, actor, "profile"); err != nil {
		return Profile{}, err
	}

	f := validate.NewForm()
	p := Profile{
		UserID:   requiredID(f, "user_id", userID),
		FullName: f.Text("full_name", form.FullName, 2, 100),
		Phone:    f.Phone("phone", form.Phone),
		Gender:   f.OptionalEnum("gender", form.Gender, Genders),
	}
	if err := f.Err(); err != nil {
		return Profile{}, invalid(err)
	}

	if _, err := s.authorize(ctx, actor, auth.Requirement{OwnerID: p.UserID}); err != nil {
		return Profile{}, err
	}
	saved, err := once(s, flightKey("profile", p.UserID, p.FullName, p.Phone, p.Gender), func() (Profile, error) {
		return s.backend.UpsertProfile(ctx, p)
	})
	if err != nil {
		return Profile{}, s.backendError(ctx, actor, "update profile", err, "")
	}
	return saved, nil
}

// RegistrationForm is the raw event registration.
type RegistrationForm struct {
	Attendees int    `json:"attendees"`
	Note      string `json:"note"`
}

// RegisterForEvent registers the actor for eventID. Members only.
func (s *Service) RegisterForEvent(ctx context.Context, actor *auth.Identity, eventID string, form RegistrationForm) (Registration, error) {
	if err := s.allowActor(eventWindow, actor, "event"); err != nil {
		return Registration{}, err
	}

	f := validate.NewForm()
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		f.Add("event_id", "event id is required")
	}
	r := Registration{
		ID:        ids.New(),
		EventID:   eventID,
		Attendees: int(f.IntRange("attendees", int64(form.Attendees), 1, 10)),
		Note:      f.Text("note", form.Note, 0, 500),
	}
	if err := f.Err(); err != nil {
		return Registration{}, invalid(err)
	}

	if _, err := s.authorize(ctx, actor, auth.Requirement{RequiredRole: auth.RoleMember}); err != nil {
		return Registration{}, err
	}
	r.UserID = actor.ID
	saved, err := once(s, flightKey("event", actor.ID, eventID, strconv.Itoa(r.Attendees), r.Note), func() (Registration, error) {
		return s.backend.InsertRegistration(ctx, r)
	})
	if err != nil {
		return Registration{}, s.backendError(ctx, actor, "register for event", err, "already registered for this event")
	}
	return saved, nil
}

// DonationForm is the raw donation.
type DonationForm struct {
	AmountCents int64  `json:"amount_cents"`
	Fund        string `json:"fund"`
	Frequency   string `json:"frequency"`
	Note        string `json:"note"`
}

// Donate records a donation owned by the actor.
func (s *Service) Donate(ctx context.Context, actor *auth.Identity, form DonationForm) (Donation, error) {
	if err := s.allowActor(donateWindow, actor, "donate"); err != nil {
		return Donation{}, err
	}

	f := validate.NewForm()
	d := Donation{
		ID:          ids.New(),
		AmountCents: f.IntRange("amount_cents", form.AmountCents, 100, 10_000_000),
		Fund:        f.Enum("fund", form.Fund, Funds),
		Frequency:   f.Enum("frequency", form.Frequency, Frequencies),
		Note:        f.Text("note", form.Note, 0, 500),
	}
	if err := f.Err(); err != nil {
		return Donation{}, invalid(err)
	}

	if _, err := s.authorize(ctx, actor, auth.Requirement{}); err != nil {
		return Donation{}, err
	}
	d.UserID = actor.ID
	saved, err := once(s, flightKey("donate", actor.ID, strconv.FormatInt(d.AmountCents, 10), d.Fund, d.Frequency, d.Note), func() (Donation, error) {
		return s.backend.InsertDonation(ctx, d)
	})
	if err != nil {
		return Donation{}, s.backendError(ctx, actor, "insert donation", err, "")
	}
	return saved, nil
}

// ListDonations returns userID's donations to its owner or an admin.
func (s *Service) ListDonations(ctx context.Context, actor *auth.Identity, userID string, limit int) ([]Donation, error) {
	if err := s.allowActor(donateWindow, actor, "donate"); err != nil {
		return nil, err
	}
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	f := validate.NewForm()
	userID = requiredID(f, "user_id", userID)
	if err := f.Err(); err != nil {
		return nil, invalid(err)
	}
	if _, err := s.authorize(ctx, actor, auth.Requirement{OwnerID: userID}); err != nil {
		return nil, err
	}
	out, err := s.backend.DonationsByUser(ctx, userID, limit)
	if err != nil {
		return nil, s.backendError(ctx, actor, "list donations", err, "")
	}
	return out, nil
}

// allowActor applies w to the actor. Anonymous callers are not counted; the
// gate rejects them right after validation.
func (s *Service) allowActor(w window, actor *auth.Identity, action string) error {
	if actor == nil || actor.ID == "" {
		return nil
	}
	return s.allow(w, actor.ID, action)
}
