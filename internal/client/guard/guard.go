// Package guard gates protected views on the client. Nothing protected is
// released while the session store is still resolving, which is what keeps
// protected content from flashing before a redirect.
package guard

import (
	"net/url"
	"sync"

	"github.com/medtrack/medtrack-server/internal/client/session"
)

// AccessRoute is where unauthenticated visitors are sent.
const AccessRoute = "/access"

// Decision tells a protected view what to do: wait, render, or redirect.
// RedirectTo is set at most once per unauthenticated resolution, so
// concurrent evaluations cannot stack duplicate redirects.
type Decision struct {
	Authenticated bool
	Loading       bool
	RedirectTo    string
}

type Guard struct {
	store *session.Store

	mu         sync.Mutex
	redirected bool
}

func New(store *session.Store) *Guard {
	return &Guard{store: store}
}

// Evaluate decides for the view at pathname. Safe for concurrent use.
func (g *Guard) Evaluate(pathname string) Decision {
	state := g.store.Snapshot()

	if state.Loading {
		return Decision{Loading: true}
	}

	if state.Authenticated() {
		g.mu.Lock()
		g.redirected = false
		g.mu.Unlock()
		return Decision{Authenticated: true}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.redirected {
		// Another evaluation already issued the redirect.
		return Decision{}
	}
	g.redirected = true
	return Decision{RedirectTo: AccessRoute + "?from=" + url.QueryEscape(pathname)}
}
