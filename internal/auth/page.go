package auth

import "sync"

// PageState is the lifecycle of a gated page render.
type PageState int

const (
	PageLoading PageState = iota
	PageAuthorized
	PageDenied
)

func (s PageState) String() string {
	switch s {
	case PageLoading:
		return "loading"
	case PageAuthorized:
		return "authorized"
	case PageDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Page tracks one render: Loading moves to Authorized or Denied exactly once.
// Later decisions are ignored; a denied render stays denied until the caller
// starts a new Page.
type Page struct {
	mu       sync.Mutex
	state    PageState
	decision Decision
}

func NewPage() *Page {
	return &Page{state: PageLoading}
}

// Resolve applies d if the page is still loading and returns the resulting state.
func (p *Page) Resolve(d Decision) PageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PageLoading {
		return p.state
	}
	p.decision = d
	if d.Granted {
		p.state = PageAuthorized
	} else {
		p.state = PageDenied
	}
	return p.state
}

func (p *Page) State() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Decision returns the decision that resolved the page.
func (p *Page) Decision() Decision {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.decision
}
