package site

import (
	"context"
	"strings"

	"graceparish.org/internal/auth"
)

// Pages maps gated page names to what they require.
var Pages = map[string]auth.Requirement{
	"profile":   {},
	"give":      {},
	"dashboard": {RequiredRole: auth.RoleMember},
	"events":    {RequiredRole: auth.RoleMember},
	"admin":     {AdminOnly: true},
}

// PageView is the resolved render state of a gated page.
type PageView struct {
	Page     string   `json:"page"`
	State    string   `json:"state"`
	Reason   string   `json:"reason,omitempty"`
	Redirect string   `json:"redirect,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	IsAdmin  bool     `json:"is_admin"`
}

// OpenPage runs the gate for a page render. A denied view is returned together
// with the matching *Error so callers can redirect.
func (s *Service) OpenPage(ctx context.Context, actor *auth.Identity, name string) (PageView, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	req, ok := Pages[name]
	if !ok {
		return PageView{}, &Error{Kind: KindNotFound, Message: "page not found"}
	}
	page := auth.NewPage()
	d := s.gate.Authorize(ctx, actor, req)
	state := page.Resolve(d)
	view := PageView{
		Page:     name,
		State:    state.String(),
		Reason:   d.Reason,
		Redirect: d.Redirect,
		Roles:    d.Roles.List(),
		IsAdmin:  d.Roles.IsAdmin,
	}
	if state == auth.PageDenied {
		return view, denied(d)
	}
	return view, nil
}
