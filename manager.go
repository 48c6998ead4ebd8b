package session

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// defaultCallbackGrace is the window granted to the provider to consume a
// pending external-auth callback before the marker is stripped.
const defaultCallbackGrace = 500 * time.Millisecond

// Snapshot is the state surface consumers render from. User and Session are
// defensive copies; mutating them has no effect on the manager.
type Snapshot struct {
	State   State
	User    *UserProfile
	Session *Session
	Loading bool
}

// Manager orchestrates initialization, the auth-event state machine,
// scheduled token refresh, and visibility-triggered revalidation. All
// mutation of the published session/profile pair funnels through it.
type Manager struct {
	gateway ProviderGateway
	sync    *Synchronizer
	backend BackendAPI
	marker  CallbackMarker

	logger Logger
	sink   ActivitySink
	clock  func() time.Time

	callbackGrace time.Duration
	retryInterval time.Duration

	base   context.Context
	cancel context.CancelFunc

	scheduler *refreshScheduler
	lifecycle *lifecycle

	visibility VisibilitySource
	pumpOnce   sync.Once

	mu           sync.Mutex
	state        State
	session      *Session
	profile      *UserProfile
	loading      bool
	initialized  bool
	initStarted  bool
	initDone     chan struct{}
	unsubscribe  Unsubscribe
	listeners    map[int]func(Snapshot)
	nextListener int
}

// NewManager returns a new Manager
func NewManager(gateway ProviderGateway, store ProfileStore) *Manager {
	base, cancel := context.WithCancel(context.Background())

	return &Manager{
		gateway:       gateway,
		sync:          NewSynchronizer(store),
		logger:        defLogger{},
		sink:          noopActivitySink{},
		clock:         time.Now,
		callbackGrace: defaultCallbackGrace,
		retryInterval: defaultRetryInterval,
		base:          base,
		cancel:        cancel,
		scheduler:     newRefreshScheduler(time.Now),
		lifecycle:     newLifecycle(),
		state:         StateUninitialized,
		loading:       true,
		initDone:      make(chan struct{}),
		listeners:     map[int]func(Snapshot){},
	}
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
		m.sync.WithLogger(logger)
	}
	return m
}

// WithActivitySink configures an ActivitySink for emitting lifecycle events.
func (m *Manager) WithActivitySink(sink ActivitySink) *Manager {
	m.sink = normalizeActivitySink(sink)
	return m
}

// WithBackendAPI configures the backend client used by RefreshUser.
func (m *Manager) WithBackendAPI(api BackendAPI) *Manager {
	m.backend = api
	return m
}

// WithCallbackMarker configures detection of pending external-auth callbacks.
func (m *Manager) WithCallbackMarker(marker CallbackMarker) *Manager {
	m.marker = marker
	return m
}

// WithCallbackGrace overrides the callback consumption window.
func (m *Manager) WithCallbackGrace(d time.Duration) *Manager {
	if d > 0 {
		m.callbackGrace = d
	}
	return m
}

// WithRetryInterval overrides the pacing of refresh retries after a
// transient failure.
func (m *Manager) WithRetryInterval(d time.Duration) *Manager {
	if d > 0 {
		m.retryInterval = d
	}
	return m
}

// WithClock injects a custom clock (useful for tests).
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	if clock != nil {
		m.clock = clock
		m.scheduler = newRefreshScheduler(clock)
	}
	return m
}

// WithVisibilitySource wires foreground-visibility notifications into
// revalidation.
func (m *Manager) WithVisibilitySource(src VisibilitySource) *Manager {
	m.visibility = src
	return m
}

// Initialize resolves the boot-time session exactly once. Concurrent callers
// share the first invocation: a single provider lookup is performed and every
// caller observes the same resolved state. Provider failures resolve to
// unauthenticated; Initialize never surfaces them.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateTerminated {
		m.mu.Unlock()
		return ErrTerminated
	}
	if m.initStarted {
		done := m.initDone
		m.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.initStarted = true
	m.setStateLocked(StateInitializing)
	m.mu.Unlock()

	if m.marker != nil && m.marker.Pending() {
		// grace window for the provider to consume the callback tokens,
		// then strip the marker so a reload does not re-process it
		select {
		case <-time.After(m.callbackGrace):
		case <-ctx.Done():
		}
		m.marker.Strip()
	}

	sess, err := m.gateway.GetSession(ctx)
	if err != nil {
		m.logger.Error("initialize: session lookup failed: %v", err)
		sess = nil
	}

	m.mu.Lock()
	if m.state == StateTerminated {
		close(m.initDone)
		m.mu.Unlock()
		return ErrTerminated
	}

	needResolve := false
	if sess != nil {
		needResolve = m.adoptSessionLocked(sess)
	} else {
		m.session = nil
		m.profile = nil
		m.setStateLocked(StateUnauthenticated)
	}
	m.loading = false
	m.initialized = true
	close(m.initDone)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)

	// The event listener attaches only after the manager is marked
	// initialized, so events delivered during provider bootstrap are dropped
	// rather than mistaken for real transitions.
	m.attachEventListener()
	m.startVisibilityPump()

	if needResolve {
		go m.resolveProfile(sess)
	}

	if sess != nil {
		m.record(ctx, ActivityEventSessionEstablished, sess.UserID, nil)
	}

	return nil
}

// Login exchanges credentials for a session. Provider rejections (bad
// credentials, rate limiting) are returned verbatim for display and are not
// retried.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	if m.state == StateTerminated {
		m.mu.Unlock()
		return ErrTerminated
	}
	if !m.initialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	m.mu.Unlock()

	creds := Credentials{Email: email, Password: password}
	if err := creds.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload")
	}

	sess, err := m.gateway.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.state == StateTerminated {
		m.mu.Unlock()
		return ErrTerminated
	}
	m.adoptSessionLocked(sess)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	go m.resolveProfile(sess)
	m.record(ctx, ActivityEventSessionEstablished, sess.UserID, nil)

	return nil
}

// Register creates a new identity with the provider. The provider sends its
// own verification email; no session is established here.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	creds := Credentials{Email: email, Password: password}
	if err := creds.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	return m.gateway.SignUp(ctx, email, password)
}

// LoginWithGoogle begins the Google OAuth flow and returns the URL the caller
// must navigate to. The resulting session arrives later through the
// callback marker and the provider's SIGNED_IN event.
func (m *Manager) LoginWithGoogle(ctx context.Context) (string, error) {
	return m.gateway.SignInWithOAuth(ctx, "google")
}

// Logout clears local state and revokes the provider session. Local state is
// cleared even when provider revocation fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateTerminated {
		m.mu.Unlock()
		return ErrTerminated
	}
	prev := ""
	if m.session != nil {
		prev = m.session.UserID
	}
	m.clearSessionLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err := m.gateway.SignOut(ctx); err != nil {
		m.logger.Warn("provider sign out failed: %v", err)
	}

	m.notify(snap)
	m.record(ctx, ActivityEventSignedOut, prev, nil)

	return nil
}

// RefreshUser re-fetches the profile for the held session, preferring the
// backend API when configured and falling back to store reconciliation.
func (m *Manager) RefreshUser(ctx context.Context) error {
	m.mu.Lock()
	sess := m.session.Clone()
	m.mu.Unlock()

	if sess == nil {
		return ErrNoSession
	}

	if m.backend == nil {
		profile := m.sync.Reconcile(ctx, Identity{UserID: sess.UserID, Email: sess.Email})
		m.publishProfile(profile)
		return nil
	}

	profile, err := m.backend.GetCurrentUser(ctx, sess.AccessToken)
	if err != nil {
		return ErrBackendUnavailable.WithMetadata(map[string]any{
			"error": err.Error(),
		})
	}

	if profile.UserID == "" {
		profile.UserID = sess.UserID
	}
	profile.Stage = StageResolved
	m.publishProfile(profile)

	return nil
}

// Token reads the held session's access token synchronously from memory. It
// never triggers a network call, so request-signing code has a non-blocking
// token source. Empty when no session is held.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// Snapshot returns the current state surface.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers a listener invoked after every published state change.
func (m *Manager) Subscribe(fn func(Snapshot)) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Teardown releases the event subscription, the refresh timer, and every
// background routine. The manager is unusable afterwards.
func (m *Manager) Teardown() {
	m.mu.Lock()
	if m.state == StateTerminated {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateTerminated)
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.session = nil
	m.profile = nil
	m.loading = false
	m.mu.Unlock()

	m.scheduler.Cancel()
	m.cancel()

	if unsub != nil {
		unsub()
	}
}

// handleAuthEvent is the auth-event state machine. It only reacts to explicit
// signals; "logged out" is never inferred from the absence of an event,
// because refresh timers legitimately overlap with provider-internal refresh
// attempts.
func (m *Manager) handleAuthEvent(evt AuthEvent) {
	m.mu.Lock()
	if !m.initialized || m.state == StateTerminated {
		m.mu.Unlock()
		m.logger.Debug("dropping auth event %q outside active lifecycle", evt.Type)
		return
	}

	var (
		adopted     *Session
		needResolve bool
		signedOut   bool
		prev        string
	)
	if m.session != nil {
		prev = m.session.UserID
	}

	switch evt.Type {
	case EventSignedIn, EventUserUpdated:
		if evt.Session != nil {
			m.adoptSessionLocked(evt.Session)
			adopted = evt.Session
			needResolve = true
		}
	case EventSignedOut:
		signedOut = m.session != nil
		m.clearSessionLocked()
	case EventTokenRefreshed:
		// Session replaced wholesale; a resolved profile for the same user
		// is untouched.
		if evt.Session != nil {
			needResolve = m.adoptSessionLocked(evt.Session)
			adopted = evt.Session
		}
	case EventPasswordRecovery:
		if evt.Session != nil {
			needResolve = m.adoptSessionLocked(evt.Session)
			adopted = evt.Session
		}
	case EventUnknown:
		fallthrough
	default:
		// Unknown events adopt an accompanying session, otherwise no-op.
		if evt.Session != nil {
			needResolve = m.adoptSessionLocked(evt.Session)
			adopted = evt.Session
		}
	}

	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)

	if needResolve && adopted != nil {
		go m.resolveProfile(adopted)
	}
	if signedOut {
		m.record(m.base, ActivityEventSignedOut, prev, nil)
	}
}

// refresh is the scheduled-refresh timer callback.
func (m *Manager) refresh() {
	ctx := m.base

	fresh, err := m.gateway.RefreshSession(ctx)
	if err != nil {
		if IsCriticalRefreshError(err) {
			m.logger.Warn("session refresh rejected by provider, signing out: %v", err)
			m.forceSignOut(ctx, err)
			return
		}

		// Transient failure: keep the stale session and retry. A flaky
		// network must not log the user out.
		m.logger.Debug("transient refresh failure, keeping session: %v", err)
		m.mu.Lock()
		if m.session != nil && m.state != StateTerminated {
			m.scheduler.ScheduleIn(m.retryInterval, m.refresh)
		}
		m.mu.Unlock()
		return
	}

	if fresh == nil {
		return
	}

	m.mu.Lock()
	if m.session == nil || m.state == StateTerminated {
		// signed out while the refresh was in flight
		m.mu.Unlock()
		return
	}
	m.session = fresh
	m.scheduler.Schedule(fresh.ExpiresAt, m.refresh)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	m.record(ctx, ActivityEventSessionRefreshed, fresh.UserID, nil)
}

// forceSignOut clears state after the provider has unambiguously invalidated
// the credential.
func (m *Manager) forceSignOut(ctx context.Context, cause error) {
	m.mu.Lock()
	prev := ""
	if m.session != nil {
		prev = m.session.UserID
	}
	m.clearSessionLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err := m.gateway.SignOut(ctx); err != nil {
		m.logger.Debug("provider sign out failed during forced logout: %v", err)
	}

	meta := map[string]any{}
	if cause != nil {
		meta["error"] = cause.Error()
	}

	m.notify(snap)
	m.record(ctx, ActivityEventSessionRevoked, prev, meta)
}

// resolveProfile reconciles the profile for an adopted session and publishes
// the result, whatever the outcome.
func (m *Manager) resolveProfile(sess *Session) {
	profile := m.sync.Reconcile(m.base, Identity{UserID: sess.UserID, Email: sess.Email})
	m.publishProfile(profile)

	if profile != nil && profile.SyncError {
		m.record(m.base, ActivityEventProfileDegraded, profile.UserID, nil)
	}
}

// publishProfile swaps in a resolved profile, but only while the same user's
// session is still held; session and profile always pair up.
func (m *Manager) publishProfile(profile *UserProfile) {
	if profile == nil {
		return
	}

	m.mu.Lock()
	if m.session == nil || m.session.UserID != profile.UserID {
		m.mu.Unlock()
		return
	}
	m.profile = profile
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

// adoptSessionLocked installs a session wholesale and re-arms the refresh
// scheduler. It reports whether the profile needs reconciliation, which is
// the case whenever no resolved profile for the same user is held.
func (m *Manager) adoptSessionLocked(sess *Session) bool {
	if sess == nil {
		return false
	}

	m.session = sess
	m.setStateLocked(StateAuthenticated)
	m.scheduler.Schedule(sess.ExpiresAt, m.refresh)

	if m.profile == nil || m.profile.UserID != sess.UserID {
		m.profile = ProvisionalProfile(sess)
		return true
	}

	return false
}

func (m *Manager) clearSessionLocked() {
	m.session = nil
	m.profile = nil
	if m.state != StateUninitialized && m.state != StateInitializing {
		m.setStateLocked(StateUnauthenticated)
	}
	m.scheduler.Cancel()
}

func (m *Manager) setStateLocked(to State) {
	next, err := m.lifecycle.transition(m.state, to)
	if err != nil {
		m.logger.Error("lifecycle transition %s -> %s rejected: %v", m.state, to, err)
		return
	}
	m.state = next
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		State:   m.state,
		User:    m.profile.Clone(),
		Session: m.session.Clone(),
		Loading: m.loading,
	}
}

func (m *Manager) attachEventListener() {
	unsub := m.gateway.OnAuthStateChange(m.handleAuthEvent)

	m.mu.Lock()
	if m.state == StateTerminated {
		m.mu.Unlock()
		if unsub != nil {
			unsub()
		}
		return
	}
	m.unsubscribe = unsub
	m.mu.Unlock()
}

func (m *Manager) notify(snap Snapshot) {
	m.mu.Lock()
	fns := make([]func(Snapshot), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (m *Manager) record(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: m.clock(),
	}

	if err := normalizeActivitySink(m.sink).Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}

var _ TokenSource = (*Manager)(nil)
