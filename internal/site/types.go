// Package site runs every member-facing and admin action through the same
// gating order: rate limit, input validation, authorization, backend call and,
// for sensitive admin actions, an audit record.
package site

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("site: not found")
	ErrAlreadyExists = errors.New("site: already exists")
	// ErrForbidden is returned by the backend when its own row policies reject a call.
	ErrForbidden = errors.New("site: forbidden by backend policy")
)

const (
	ContentSermon = "sermon"
	ContentEvent  = "event"
)

var (
	InquiryTypes = []string{"general", "prayer", "membership", "volunteer", "pastoral"}
	Genders      = []string{"female", "male", "undisclosed"}
	Funds        = []string{"general", "missions", "building", "benevolence"}
	Frequencies  = []string{"once", "weekly", "monthly", "yearly"}
	ContentKinds = []string{ContentSermon, ContentEvent}
)

type ContactMessage struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	InquiryType string    `json:"inquiry_type"`
	Subject     string    `json:"subject,omitempty"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

type Subscriber struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is owned by UserID.
type Profile struct {
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Event struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Location  string    `json:"location,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Sermon struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Speaker    string    `json:"speaker,omitempty"`
	PreachedOn time.Time `json:"preached_on"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Registration is owned by UserID. An identity registers at most once per event.
type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Attendees int       `json:"attendees"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Donation is owned by UserID. Amounts are in cents.
type Donation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Fund        string    `json:"fund"`
	Frequency   string    `json:"frequency"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Backend is the hosted data store. Implementations return ErrNotFound,
// ErrAlreadyExists or ErrForbidden for the matching conditions.
type Backend interface {
	InsertContactMessage(ctx context.Context, msg ContactMessage) (ContactMessage, error)
	InsertSubscriber(ctx context.Context, email string) (Subscriber, error)

	ProfileByUser(ctx context.Context, userID string) (Profile, error)
	UpsertProfile(ctx context.Context, p Profile) (Profile, error)

	ListEvents(ctx context.Context, limit int) ([]Event, error)
	InsertEvent(ctx context.Context, e Event) (Event, error)
	ListSermons(ctx context.Context, limit int) ([]Sermon, error)
	InsertSermon(ctx context.Context, s Sermon) (Sermon, error)
	DeleteContent(ctx context.Context, kind, id string) error

	InsertRegistration(ctx context.Context, r Registration) (Registration, error)
	InsertDonation(ctx context.Context, d Donation) (Donation, error)
	DonationsByUser(ctx context.Context, userID string, limit int) ([]Donation, error)
}
