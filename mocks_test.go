package session_test

import (
	"context"
	"sync"
	"sync/atomic"

	goerrors "github.com/goliatone/go-errors"
	session "github.com/goliatone/go-session"
)

// fakeGateway implements session.ProviderGateway with controllable behavior
// and call accounting.
type fakeGateway struct {
	mu        sync.Mutex
	listeners map[int]session.AuthEventListener
	next      int
	calls     []string

	getSession func(ctx context.Context) (*session.Session, error)
	signIn     func(email, password string) (*session.Session, error)
	signUp     func(email, password string) error
	signOut    func() error
	refresh    func() (*session.Session, error)
	oauthURL   string

	getSessionCalls atomic.Int32
	signInCalls     atomic.Int32
	refreshCalls    atomic.Int32
	signOutCalls    atomic.Int32
	unsubscribes    atomic.Int32
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		listeners: map[int]session.AuthEventListener{},
	}
}

func (f *fakeGateway) trace(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeGateway) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func (f *fakeGateway) GetSession(ctx context.Context) (*session.Session, error) {
	f.getSessionCalls.Add(1)
	f.trace("get_session")
	if f.getSession == nil {
		return nil, nil
	}
	return f.getSession(ctx)
}

func (f *fakeGateway) SignIn(_ context.Context, email, password string) (*session.Session, error) {
	f.signInCalls.Add(1)
	f.trace("sign_in")
	if f.signIn == nil {
		return nil, nil
	}
	return f.signIn(email, password)
}

func (f *fakeGateway) SignUp(_ context.Context, email, password string) error {
	f.trace("sign_up")
	if f.signUp == nil {
		return nil
	}
	return f.signUp(email, password)
}

func (f *fakeGateway) SignInWithOAuth(_ context.Context, provider string) (string, error) {
	f.trace("sign_in_with_oauth")
	return f.oauthURL + provider, nil
}

func (f *fakeGateway) SignOut(_ context.Context) error {
	f.signOutCalls.Add(1)
	f.trace("sign_out")
	if f.signOut == nil {
		return nil
	}
	return f.signOut()
}

func (f *fakeGateway) RefreshSession(_ context.Context) (*session.Session, error) {
	f.refreshCalls.Add(1)
	f.trace("refresh_session")
	if f.refresh == nil {
		return nil, nil
	}
	return f.refresh()
}

func (f *fakeGateway) OnAuthStateChange(fn session.AuthEventListener) session.Unsubscribe {
	f.trace("on_auth_state_change")
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.mu.Unlock()

	return func() {
		f.unsubscribes.Add(1)
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// Emit delivers an auth event to every registered listener, the way the real
// provider does.
func (f *fakeGateway) Emit(evt session.AuthEvent) {
	f.mu.Lock()
	fns := make([]session.AuthEventListener, 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}

func (f *fakeGateway) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

// memStore implements session.ProfileStore in memory.
type memStore struct {
	mu      sync.Mutex
	records map[string]*session.ProfileRecord
	inserts int

	getErr    error
	insertErr error
	// missOnce makes the next lookup report NotFound even when the row exists
	missOnce bool
	// when non-nil, GetByUserID blocks until the channel closes
	gate chan struct{}
}

func newMemStore() *memStore {
	return &memStore{
		records: map[string]*session.ProfileRecord{},
	}
}

func (s *memStore) GetByUserID(_ context.Context, userID string) (*session.ProfileRecord, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return nil, s.getErr
	}

	if s.missOnce {
		s.missOnce = false
		return nil, goerrors.New("profile not found", goerrors.CategoryNotFound)
	}

	if record, ok := s.records[userID]; ok {
		dup := *record
		return &dup, nil
	}

	return nil, goerrors.New("profile not found", goerrors.CategoryNotFound)
}

func (s *memStore) Insert(_ context.Context, record *session.ProfileRecord) (*session.ProfileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return nil, s.insertErr
	}

	if _, ok := s.records[record.UserID]; ok {
		return nil, goerrors.New("profile already exists", goerrors.CategoryConflict)
	}

	s.inserts++
	dup := *record
	s.records[record.UserID] = &dup

	return record, nil
}

func (s *memStore) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}

// fakeBackend implements session.BackendAPI.
type fakeBackend struct {
	getCurrentUser func(accessToken string) (*session.UserProfile, error)
}

func (f *fakeBackend) GetCurrentUser(_ context.Context, accessToken string) (*session.UserProfile, error) {
	if f.getCurrentUser == nil {
		return nil, goerrors.New("backend not configured", goerrors.CategoryInternal)
	}
	return f.getCurrentUser(accessToken)
}

// capturingSink records activity events for assertions.
type capturingSink struct {
	mu     sync.Mutex
	events []session.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt session.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) byType(t session.ActivityEventType) []session.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []session.ActivityEvent
	for _, evt := range c.events {
		if evt.EventType == t {
			out = append(out, evt)
		}
	}
	return out
}

// fakeMarker implements session.CallbackMarker.
type fakeMarker struct {
	pending  bool
	stripped atomic.Int32
}

func (m *fakeMarker) Pending() bool {
	return m.pending
}

func (m *fakeMarker) Strip() {
	m.stripped.Add(1)
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
