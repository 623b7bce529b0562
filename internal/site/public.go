package site

import (
	"context"

	"graceparish.org/internal/ids"
	"graceparish.org/internal/validate"
)

// ContactForm is the raw contact submission.
type ContactForm struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	InquiryType string `json:"inquiry_type"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
}

// SubmitContact stores a public contact message. A successful submission clears
// the sender's window so a legitimate follow-up is not penalized.
func (s *Service) SubmitContact(ctx context.Context, form ContactForm) (ContactMessage, error) {
	key := validate.SanitizeEmail(form.Email)
	if err := s.allow(contactWindow, key, "contact"); err != nil {
		return ContactMessage{}, err
	}

	f := validate.NewForm()
	msg := ContactMessage{
		ID:          ids.New(),
		Name:        f.Text("name", form.Name, 2, 100),
		Email:       f.Email("email", form.Email),
		Phone:       f.Phone("phone", form.Phone),
		InquiryType: f.Enum("inquiry_type", form.InquiryType, InquiryTypes),
		Subject:     f.Text("subject", form.Subject, 0, 200),
		Message:     f.Text("message", form.Message, 10, 1000),
	}
	if err := f.Err(); err != nil {
		return ContactMessage{}, invalid(err)
	}

	saved, err := once(s, flightKey("contact", msg.Name, msg.Email, msg.Phone, msg.InquiryType, msg.Subject, msg.Message), func() (ContactMessage, error) {
		return s.backend.InsertContactMessage(ctx, msg)
	})
	if err != nil {
		return ContactMessage{}, s.backendError(ctx, nil, "insert contact message", err, "")
	}
	s.reset(contactWindow, key)
	return saved, nil
}

// Subscribe adds email to the newsletter. The window is not cleared on success,
// so a repeat within the window is refused locally.
func (s *Service) Subscribe(ctx context.Context, email string) (Subscriber, error) {
	key := validate.SanitizeEmail(email)
	if err := s.allow(newsletterWindow, key, "newsletter"); err != nil {
		return Subscriber{}, err
	}

	f := validate.NewForm()
	email = f.Email("email", email)
	if err := f.Err(); err != nil {
		return Subscriber{}, invalid(err)
	}

	sub, err := once(s, flightKey("newsletter", email), func() (Subscriber, error) {
		return s.backend.InsertSubscriber(ctx, email)
	})
	if err != nil {
		return Subscriber{}, s.backendError(ctx, nil, "insert subscriber", err, "already subscribed")
	}
	return sub, nil
}

// ListEvents is public.
func (s *Service) ListEvents(ctx context.Context, limit int) ([]Event, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	events, err := s.backend.ListEvents(ctx, limit)
	if err != nil {
		return nil, s.backendError(ctx, nil, "list events", err, "")
	}
	return events, nil
}

// ListSermons is public.
func (s *Service) ListSermons(ctx context.Context, limit int) ([]Sermon, error) {
	limit, err := clampLimit(limit)
	if err != nil {
		return nil, err
	}
	sermons, err := s.backend.ListSermons(ctx, limit)
	if err != nil {
		return nil, s.backendError(ctx, nil, "list sermons", err, "")
	}
	return sermons, nil
}
