package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/medtrack/medtrack-server/internal/client/api"
	"github.com/medtrack/medtrack-server/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionAPI struct {
	mu      sync.Mutex
	calls   int
	respond func() (*api.SessionStatus, error)
	// block, when set, stalls Session until it is closed.
	block chan struct{}
}

func (f *fakeSessionAPI) Session(ctx context.Context) (*api.SessionStatus, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.respond()
}

func (f *fakeSessionAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func authenticatedStatus() (*api.SessionStatus, error) {
	return &api.SessionStatus{
		Authenticated: true,
		User:          &api.User{ID: "u1", Email: "a@example.com"},
		Session:       &api.Session{ID: "s1"},
	}, nil
}

func TestStore_RefreshAuthenticated(t *testing.T) {
	store := session.NewStore(&fakeSessionAPI{respond: authenticatedStatus})
	defer store.Close()

	assert.True(t, store.Snapshot().Loading, "state starts unresolved")

	store.Refresh(context.Background())

	state := store.Snapshot()
	assert.False(t, state.Loading)
	assert.True(t, state.Authenticated())
	assert.NoError(t, state.Err)
	assert.Equal(t, "a@example.com", state.User.Email)
}

func TestStore_RefreshUnauthenticatedIsNotAnError(t *testing.T) {
	store := session.NewStore(&fakeSessionAPI{
		respond: func() (*api.SessionStatus, error) { return nil, api.ErrUnauthenticated },
	})
	defer store.Close()

	store.Refresh(context.Background())

	state := store.Snapshot()
	assert.False(t, state.Loading)
	assert.False(t, state.Authenticated())
	assert.NoError(t, state.Err, "logged out is an expected outcome, not a fault")
}

func TestStore_RefreshInfraFailureKeepsError(t *testing.T) {
	store := session.NewStore(&fakeSessionAPI{
		respond: func() (*api.SessionStatus, error) { return nil, &api.InfraError{Status: 503} },
	})
	defer store.Close()

	store.Refresh(context.Background())

	state := store.Snapshot()
	assert.False(t, state.Authenticated())
	assert.Error(t, state.Err, "a fault must be distinguishable from a logout")
}

func TestStore_RefreshSingleFlight(t *testing.T) {
	block := make(chan struct{})
	fake := &fakeSessionAPI{respond: authenticatedStatus, block: block}
	store := session.NewStore(fake)
	defer store.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Refresh(context.Background())
	}()

	// Wait until the first refresh is inside the client call.
	require.Eventually(t, func() bool { return fake.callCount() == 1 },
		time.Second, time.Millisecond)

	// Refreshes started while one is in flight are dropped, not queued.
	store.Refresh(context.Background())
	store.Refresh(context.Background())

	close(block)
	wg.Wait()

	assert.Equal(t, 1, fake.callCount())
	assert.True(t, store.Snapshot().Authenticated())
}

func TestStore_LateResponseAfterResetIsDiscarded(t *testing.T) {
	block := make(chan struct{})
	fake := &fakeSessionAPI{respond: authenticatedStatus, block: block}
	store := session.NewStore(fake)
	defer store.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Refresh(context.Background())
	}()
	require.Eventually(t, func() bool { return fake.callCount() == 1 },
		time.Second, time.Millisecond)

	// Logout while the identity fetch is still out.
	store.Reset()

	close(block)
	wg.Wait()

	// The late authenticated response must not resurrect the session.
	state := store.Snapshot()
	assert.False(t, state.Authenticated())
	assert.NoError(t, state.Err)
}

func TestStore_LateResponseAfterCloseIsDiscarded(t *testing.T) {
	block := make(chan struct{})
	fake := &fakeSessionAPI{respond: authenticatedStatus, block: block}
	store := session.NewStore(fake)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Refresh(context.Background())
	}()
	require.Eventually(t, func() bool { return fake.callCount() == 1 },
		time.Second, time.Millisecond)

	store.Close()
	close(block)
	wg.Wait()

	assert.False(t, store.Snapshot().Authenticated())
}

func TestStore_BackgroundRefreshKeepsResolvedState(t *testing.T) {
	block := make(chan struct{})
	fake := &fakeSessionAPI{respond: authenticatedStatus, block: block}
	store := session.NewStore(fake)
	defer store.Close()

	store.SetAuthenticated(&api.User{ID: "u1", Email: "a@example.com"}, &api.Session{ID: "s1"})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Refresh(context.Background())
	}()
	require.Eventually(t, func() bool { return fake.callCount() == 1 },
		time.Second, time.Millisecond)

	// A routine poll must not demote the resolved identity back to Loading
	// while the request is out.
	state := store.Snapshot()
	assert.False(t, state.Loading)
	assert.True(t, state.Authenticated())

	close(block)
	wg.Wait()
	assert.True(t, store.Snapshot().Authenticated())
}

func TestStore_SetAuthenticatedAndSubscribe(t *testing.T) {
	store := session.NewStore(&fakeSessionAPI{respond: authenticatedStatus})
	defer store.Close()

	var mu sync.Mutex
	var seen []session.State
	store.Subscribe(func(s session.State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	store.SetAuthenticated(&api.User{ID: "u1", Email: "a@example.com"}, &api.Session{ID: "s1"})

	assert.True(t, store.Snapshot().Authenticated())
	mu.Lock()
	require.NotEmpty(t, seen)
	assert.True(t, seen[len(seen)-1].Authenticated())
	mu.Unlock()

	store.Reset()
	assert.False(t, store.Snapshot().Authenticated())
}

func TestStore_PollingDoesNotStack(t *testing.T) {
	block := make(chan struct{})
	fake := &fakeSessionAPI{respond: authenticatedStatus, block: block}
	store := session.NewStore(fake)

	store.StartPolling(5 * time.Millisecond)
	// Ticks keep landing while the first poll is stuck; they must all be
	// dropped.
	require.Eventually(t, func() bool { return fake.callCount() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, fake.callCount())

	close(block)
	store.Close()
}
