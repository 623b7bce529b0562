package site

import (
	"context"
	"errors"

	"graceparish.org/internal/auth"
	"graceparish.org/internal/obs"
	"graceparish.org/internal/validate"
)

// Kind classifies an action failure for presentation.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindRateLimited     Kind = "rate_limited"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindBackend         Kind = "backend"
)

const (
	MsgGeneric     = "something went wrong, please try again"
	MsgRateLimited = "too many attempts, please try again later"
	MsgInvalid     = "please correct the highlighted fields"
)

// Error is the user-facing failure of an action. Detail carries raw backend
// text and is only set for administrators.
type Error struct {
	Kind     Kind              `json:"kind"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Detail   string            `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return string(e.Kind) + ": " + e.Message + ": " + e.Detail
	}
	return string(e.Kind) + ": " + e.Message
}

// IsKind reports whether err is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func invalid(err error) *Error {
	var fields validate.Errors
	if errors.As(err, &fields) {
		return &Error{Kind: KindValidation, Message: MsgInvalid, Fields: fields}
	}
	return &Error{Kind: KindValidation, Message: err.Error()}
}

func invalidField(field, msg string) *Error {
	return &Error{Kind: KindValidation, Message: MsgInvalid, Fields: map[string]string{field: msg}}
}

func rateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: MsgRateLimited}
}

func denied(d auth.Decision) *Error {
	kind := KindForbidden
	if d.Reason == auth.ReasonNotAuthenticated {
		kind = KindUnauthenticated
	}
	return &Error{Kind: kind, Message: d.Reason, Redirect: d.Redirect}
}

// backendError translates a backend failure. conflictMsg is used for unique
// violations; an empty value treats them like any other failure.
func (s *Service) backendError(ctx context.Context, actor *auth.Identity, op string, err error, conflictMsg string) *Error {
	switch {
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, auth.ErrAlreadyExists):
		if conflictMsg != "" {
			return &Error{Kind: KindConflict, Message: conflictMsg}
		}
	case errors.Is(err, ErrNotFound), errors.Is(err, auth.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: "not found"}
	case errors.Is(err, ErrForbidden):
		return &Error{Kind: KindForbidden, Message: "permission denied", Redirect: auth.HomePath}
	}

	fields := map[string]any{"op": op, "err": err}
	if actor != nil {
		fields["user_id"] = actor.ID
	}
	obs.Error("backend call failed", fields)

	out := &Error{Kind: KindBackend, Message: MsgGeneric}
	if actor != nil && s.gate.Roles(ctx, *actor).IsAdmin {
		out.Detail = err.Error()
	}
	return out
}
