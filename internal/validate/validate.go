// Package validate normalizes and checks user-supplied form fields before any write.
//
// All functions are pure. Field failures are collected by Form into a field-keyed
// Errors map so a caller can report every problem at once.
package validate

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	maxEmailLength = 320
	maxLocalLength = 64
)

var (
	ErrRequired     = errors.New("value is required")
	ErrTooShort     = errors.New("value too short")
	ErrTooLong      = errors.New("value too long")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrNotAllowed   = errors.New("value not allowed")
)

var (
	checker = validator.New()

	// Conservative subset of RFC 5321: dotted domain with an alphabetic TLD.
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9](?:[a-z0-9-]*[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]*[a-z0-9])?)*\.[a-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{0,14}$`)

	phoneSeparators = strings.NewReplacer("(", "", ")", "", "-", "", ".", "", " ", "")
	markupEscaper   = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
)

// SanitizeEmail trims and lower-cases an address. It is idempotent.
func SanitizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateEmail reports whether raw, once sanitized, is an acceptable address.
func ValidateEmail(raw string) bool {
	email := SanitizeEmail(raw)
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at > maxLocalLength {
		return false
	}
	if !emailPattern.MatchString(email) {
		return false
	}
	return checker.Var(email, "email") == nil
}

// Email returns the sanitized address or ErrRequired / ErrInvalidEmail.
func Email(raw string) (string, error) {
	email := SanitizeEmail(raw)
	if email == "" {
		return "", ErrRequired
	}
	if !ValidateEmail(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Phone strips separators from an optional phone number. Empty input is accepted.
func Phone(raw string) (string, error) {
	phone := phoneSeparators.Replace(strings.TrimSpace(raw))
	if phone == "" {
		return "", nil
	}
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

// EscapeText replaces markup-significant characters with named entities.
// Render-time escaping is still required; this only neutralizes stored input.
func EscapeText(raw string) string {
	return markupEscaper.Replace(raw)
}

// Text trims raw, checks its length in runes against [min, max] and escapes it.
// min == 0 makes the field optional.
func Text(raw string, min, max int) (string, error) {
	text := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(text)
	switch {
	case n == 0 && min > 0:
		return "", ErrRequired
	case n == 0:
		return "", nil
	case n < min:
		return "", ErrTooShort
	case max > 0 && n > max:
		return "", ErrTooLong
	}
	return EscapeText(text), nil
}

// Enum returns the trimmed, lower-cased value when it is one of allowed.
func Enum(raw string, allowed []string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return "", ErrRequired
	}
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", ErrNotAllowed
}
