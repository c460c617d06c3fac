// Package session holds the client-side view of the auth state. The server's
// session table stays authoritative; this store only mirrors it and exposes
// reactive snapshots to UI layers.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/medtrack/medtrack-server/internal/client/api"
)

// Identity endpoint surface the store needs; *api.Client satisfies it.
type SessionAPI interface {
	Session(ctx context.Context) (*api.SessionStatus, error)
}

// State is one immutable snapshot of the auth state. Err is nil when the user
// is simply logged out: "unauthenticated" and "something went wrong" are
// different conditions.
type State struct {
	User    *api.User
	Session *api.Session
	Loading bool
	Err     error
}

func (s State) Authenticated() bool {
	return s.User != nil
}

type Store struct {
	client SessionAPI

	mu       sync.Mutex
	state    State
	subs     []func(State)
	inFlight bool
	// resolved flips once the first resolution lands. Later refreshes keep
	// the current state visible instead of re-entering Loading, so a routine
	// poll never blanks views gated on the store.
	resolved bool
	// gen invalidates in-flight refreshes: a response started under an older
	// generation is discarded instead of mutating torn-down state.
	gen      int
	closed   bool
	pollStop chan struct{}
}

func NewStore(client SessionAPI) *Store {
	return &Store{
		client: client,
		state:  State{Loading: true},
	}
}

// Snapshot returns the current state copy.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a callback invoked on every state change.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Refresh resolves the identity endpoint once. A refresh started while
// another is in flight is a no-op, not a queued duplicate. Only the first
// resolution shows as Loading; once resolved, the current state stays up
// while the request is out.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	if s.inFlight || s.closed {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	gen := s.gen
	entering := !s.resolved
	if entering {
		s.state.Loading = true
	}
	s.mu.Unlock()
	if entering {
		s.notify()
	}

	status, err := s.client.Session(ctx)

	s.mu.Lock()
	s.inFlight = false
	if gen != s.gen || s.closed {
		// The store was reset or closed while the request was out; a late
		// response must not resurrect stale identity.
		s.mu.Unlock()
		return
	}
	s.resolved = true
	switch {
	case err == nil && status.Authenticated:
		s.state = State{User: status.User, Session: status.Session}
	case errors.Is(err, api.ErrUnauthenticated):
		s.state = State{}
	case err != nil:
		s.state = State{Err: err}
	default:
		s.state = State{}
	}
	s.mu.Unlock()
	s.notify()
}

// SetAuthenticated records an identity established by a login or register
// round trip, without probing the server again.
func (s *Store) SetAuthenticated(user *api.User, session *api.Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.resolved = true
	s.state = State{User: user, Session: session}
	s.mu.Unlock()
	s.notify()
}

// Reset drops to unauthenticated, discarding any refresh still in flight.
// Called on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.resolved = true
	s.state = State{}
	s.mu.Unlock()
	s.notify()
}

// StartPolling refreshes on an interval to notice server-side expiry while
// the client stays open. Ticks landing during an in-flight refresh are
// dropped. No-op if polling already runs.
func (s *Store) StartPolling(interval time.Duration) {
	s.mu.Lock()
	if s.pollStop != nil || s.closed {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.pollStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Refresh(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

// Close tears the store down; late responses and further mutations are
// ignored.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	state := s.state
	subs := make([]func(State), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}
