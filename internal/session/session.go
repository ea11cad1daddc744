// Package session owns the authenticated‑identity state of the process.
// The Manager wraps an identity Provider (the external auth system) and a
// pluggable TokenStore (the secure key/value store that survives process
// restarts).  It republishes provider transitions to subscribers so
// dependent components observe session loss without polling.
package session

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"
)

// State is the coarse session state machine:
//
//	Unknown → (Authenticated | Unauthenticated)
//	Authenticated → Unauthenticated on sign‑out, revocation or refresh failure
//
// Unknown is the only initial state; the Manager leaves it on the first
// provider round trip and never returns to it.
type State int

const (
    StateUnknown State = iota
    StateAuthenticated
    StateUnauthenticated
)

func (s State) String() string {
    switch s {
    case StateAuthenticated:
        return "authenticated"
    case StateUnauthenticated:
        return "unauthenticated"
    default:
        return "unknown"
    }
}

// Identity is the authenticated principal: an opaque ID plus email.
type Identity struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
}

// Session bundles the identity with its provider‑issued tokens.  Only the
// refresh token is persisted (via the TokenStore); access tokens are kept
// in memory and reissued as needed.
type Session struct {
    Identity
    AccessToken    string
    AccessExpires  time.Time
    RefreshToken   string
    RefreshExpires time.Time
}

// Event is delivered to subscribers whenever the session state changes.
// Session is nil for transitions into StateUnauthenticated.
type Event struct {
    State   State
    Session *Session
}

// AuthError kinds distinguish recoverable input errors from transport
// problems.
type AuthErrorKind int

const (
    AuthErrInvalidCredentials AuthErrorKind = iota
    AuthErrNetwork
    AuthErrUnknown
)

// AuthError wraps a provider failure.  Callers match on Kind to decide
// whether re‑entering credentials can help.
type AuthError struct {
    Kind AuthErrorKind
    Err  error
}

func (e *AuthError) Error() string {
    switch e.Kind {
    case AuthErrInvalidCredentials:
        return "invalid credentials"
    case AuthErrNetwork:
        return fmt.Sprintf("auth network error: %v", e.Err)
    default:
        return fmt.Sprintf("auth error: %v", e.Err)
    }
}

func (e *AuthError) Unwrap() error { return e.Err }

// ErrNoSession is returned by Current when no identity is signed in.
var ErrNoSession = errors.New("no active session")

// Provider is the consumed identity‑provider interface.  The local
// implementation in this package signs users against the application's
// own user store; the interface keeps the Manager ignorant of that.
type Provider interface {
    SignUp(ctx context.Context, email, password string) (*Session, error)
    SignIn(ctx context.Context, email, password string) (*Session, error)
    // Resume exchanges a persisted refresh token for a live session; it
    // fails when the token is expired or revoked.
    Resume(ctx context.Context, refreshToken string) (*Session, error)
    // SignOut revokes the given refresh token.  Revoking an unknown token
    // is not an error.
    SignOut(ctx context.Context, refreshToken string) error
}

// TokenStore is the pluggable secure key/value store the Manager persists
// the provider‑issued refresh token in.  Credentials are never stored.
type TokenStore interface {
    Get(ctx context.Context, key string) (string, error) // ErrTokenNotFound when absent
    Set(ctx context.Context, key, value string) error
    Delete(ctx context.Context, key string) error
}

// ErrTokenNotFound is returned by TokenStore.Get when the key is absent.
var ErrTokenNotFound = errors.New("token not found")

// tokenKey is the single key the Manager uses in its TokenStore.
const tokenKey = "session.refresh_token"

// Manager drives the session lifecycle.  It is an explicit, injectable
// object rather than ambient global state: construct it once on bootstrap
// and hand it to the components that need session awareness.
type Manager struct {
    provider Provider
    store    TokenStore

    mu      sync.Mutex
    state   State
    current *Session
    subs    map[int]chan Event
    nextSub int
}

// NewManager returns a Manager in StateUnknown.  No provider call is made
// until Current, SignIn or SignUp is invoked.
func NewManager(p Provider, store TokenStore) *Manager {
    return &Manager{
        provider: p,
        store:    store,
        state:    StateUnknown,
        subs:     make(map[int]chan Event),
    }
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.state
}

// Current returns the live session, resuming it from the persisted
// refresh token on first use.  It returns ErrNoSession when nobody is
// signed in.  The only blocking work is the provider round trip.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
    m.mu.Lock()
    if m.state == StateAuthenticated && m.current != nil {
        s := *m.current
        m.mu.Unlock()
        return &s, nil
    }
    if m.state == StateUnauthenticated {
        m.mu.Unlock()
        return nil, ErrNoSession
    }
    m.mu.Unlock()

    // First call: try to resume from the persisted token.
    raw, err := m.store.Get(ctx, tokenKey)
    if err != nil {
        if errors.Is(err, ErrTokenNotFound) {
            m.transition(StateUnauthenticated, nil)
            return nil, ErrNoSession
        }
        return nil, err
    }
    sess, err := m.provider.Resume(ctx, raw)
    if err != nil {
        // A dead token is cleaned up so the next call is cheap.
        _ = m.store.Delete(ctx, tokenKey)
        m.transition(StateUnauthenticated, nil)
        return nil, ErrNoSession
    }
    m.transition(StateAuthenticated, sess)
    return sess, nil
}

// SignIn authenticates against the provider.  On success the session
// becomes current, its refresh token is persisted, and subscribers are
// notified.  On failure the previous state is left untouched.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
    sess, err := m.provider.SignIn(ctx, email, password)
    if err != nil {
        return nil, err
    }
    if err := m.store.Set(ctx, tokenKey, sess.RefreshToken); err != nil {
        return nil, err
    }
    m.transition(StateAuthenticated, sess)
    return sess, nil
}

// SignUp registers a new identity.  Providers that require out‑of‑band
// verification return a session without tokens; in that case the state is
// left unchanged and the caller must SignIn after verifying.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*Session, error) {
    sess, err := m.provider.SignUp(ctx, email, password)
    if err != nil {
        return nil, err
    }
    if sess.RefreshToken == "" {
        return sess, nil
    }
    if err := m.store.Set(ctx, tokenKey, sess.RefreshToken); err != nil {
        return nil, err
    }
    m.transition(StateAuthenticated, sess)
    return sess, nil
}

// SignOut revokes the persisted token and clears the session.  It is
// idempotent: signing out with no active session is a no‑op.
func (m *Manager) SignOut(ctx context.Context) error {
    raw, err := m.store.Get(ctx, tokenKey)
    if err != nil && !errors.Is(err, ErrTokenNotFound) {
        return err
    }
    if raw != "" {
        if err := m.provider.SignOut(ctx, raw); err != nil {
            return err
        }
        if err := m.store.Delete(ctx, tokenKey); err != nil {
            return err
        }
    }
    m.transition(StateUnauthenticated, nil)
    return nil
}

// Invalidate is called when the provider reports external revocation or a
// refresh failure.  It drops the persisted token and notifies
// subscribers, moving to StateUnauthenticated.
func (m *Manager) Invalidate(ctx context.Context) {
    _ = m.store.Delete(ctx, tokenKey)
    m.transition(StateUnauthenticated, nil)
}

// Subscribe returns a channel of session transitions and a cancel
// function.  The channel is buffered; slow subscribers drop events rather
// than block sign‑in.
func (m *Manager) Subscribe() (<-chan Event, func()) {
    m.mu.Lock()
    defer m.mu.Unlock()
    id := m.nextSub
    m.nextSub++
    ch := make(chan Event, 8)
    m.subs[id] = ch
    return ch, func() {
        m.mu.Lock()
        defer m.mu.Unlock()
        if c, ok := m.subs[id]; ok {
            delete(m.subs, id)
            close(c)
        }
    }
}

// transition swaps the state, keeps a copy of the session, and fans the
// event out.  Repeated transitions into StateUnauthenticated are still
// published so sign‑out remains observable even when already signed out.
func (m *Manager) transition(next State, sess *Session) {
    m.mu.Lock()
    m.state = next
    m.current = sess
    ev := Event{State: next}
    if sess != nil {
        c := *sess
        ev.Session = &c
    }
    subs := make([]chan Event, 0, len(m.subs))
    for _, ch := range m.subs {
        subs = append(subs, ch)
    }
    m.mu.Unlock()

    for _, ch := range subs {
        select {
        case ch <- ev:
        default: // subscriber is not keeping up; drop
        }
    }
}
