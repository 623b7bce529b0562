package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors maps a field name to a human-readable reason.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Form accumulates field errors. The zero value is not usable; call NewForm.
type Form struct {
	errs Errors
}

func NewForm() *Form {
	return &Form{errs: Errors{}}
}

// Add records msg for field unless the field already has an error.
func (f *Form) Add(field, msg string) {
	if _, ok := f.errs[field]; ok {
		return
	}
	f.errs[field] = msg
}

// Err returns the collected Errors, or nil when every field passed.
func (f *Form) Err() error {
	if len(f.errs) == 0 {
		return nil
	}
	out := make(Errors, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

func (f *Form) Email(field, raw string) string {
	v, err := Email(raw)
	if err != nil {
		f.fail(field, err)
	}
	return v
}

func (f *Form) Phone(field, raw string) string {
	v, err := Phone(raw)
	if err != nil {
		f.fail(field, err)
	}
	return v
}

func (f *Form) Text(field, raw string, min, max int) string {
	v, err := Text(raw, min, max)
	if err != nil {
		f.fail(field, err)
	}
	return v
}

func (f *Form) Enum(field, raw string, allowed []string) string {
	v, err := Enum(raw, allowed)
	if err != nil {
		if errors.Is(err, ErrNotAllowed) {
			f.Add(field, fmt.Sprintf("%s must be one of: %s", label(field), strings.Join(allowed, ", ")))
			return ""
		}
		f.fail(field, err)
	}
	return v
}

// OptionalEnum is Enum that accepts an empty value.
func (f *Form) OptionalEnum(field, raw string, allowed []string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return f.Enum(field, raw, allowed)
}

func (f *Form) IntRange(field string, v, min, max int64) int64 {
	switch {
	case v < min:
		f.Add(field, fmt.Sprintf("%s must be at least %d", label(field), min))
	case v > max:
		f.Add(field, fmt.Sprintf("%s must be at most %d", label(field), max))
	}
	return v
}

func (f *Form) fail(field string, err error) {
	name := label(field)
	switch {
	case errors.Is(err, ErrRequired):
		f.Add(field, name+" is required")
	case errors.Is(err, ErrTooShort):
		f.Add(field, name+" too short")
	case errors.Is(err, ErrTooLong):
		f.Add(field, name+" too long")
	case errors.Is(err, ErrInvalidEmail):
		f.Add(field, "invalid email address")
	case errors.Is(err, ErrInvalidPhone):
		f.Add(field, "invalid phone number")
	default:
		f.Add(field, err.Error())
	}
}

func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
