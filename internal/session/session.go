// Package session tracks the authenticated user of the remote API.
//
// A Manager moves between three states: Anonymous, Authenticated and
// Expired. Login or registration authenticates, Logout returns to
// Anonymous, and a token whose exp claim has passed is found Expired on the
// next State or Token call.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/iwvelando/taxsim/internal/formula"
	"go.uber.org/zap"
)

// State is the authentication state of a session.
type State int

// Session states.
const (
	Anonymous State = iota
	Authenticated
	Expired
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "anonymous"
	}
}

var (
	// ErrNotAuthenticated is returned when no session exists.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired is returned when the session token has expired.
	ErrSessionExpired = errors.New("session expired")
)

// Authenticator is the subset of the remote API a session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (formula.Auth, error)
	Register(ctx context.Context, name, email, password string, role formula.Role) (formula.Auth, error)
	CurrentUser(ctx context.Context, token string) (formula.User, error)
}

// Classify reports the state a bearer token puts a session in at now. The
// signature is not checked; only the API can do that. Tokens that are not
// JWTs, or carry no exp claim, are treated as live.
func Classify(token string, now time.Time) State {
	if token == "" {
		return Anonymous
	}
	expiry, ok := ExpiresAt(token)
	if ok && !now.Before(expiry) {
		return Expired
	}
	return Authenticated
}

// ExpiresAt returns the exp claim of a JWT without verifying it.
func ExpiresAt(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager owns the session token and the current user.
type Manager struct {
	mu      sync.Mutex
	api     Authenticator
	store   Store
	logger  *zap.Logger
	now     func() time.Time
	token   string
	user    *formula.User
	expired bool
}

// NewManager creates an anonymous session. A nil store keeps the token in
// memory only.
func NewManager(api Authenticator, store Store, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	m := &Manager{api: api, store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login authenticates with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) (formula.User, error) {
	auth, err := m.api.Login(ctx, email, password)
	if err != nil {
		return formula.User{}, err
	}
	return m.authenticate(auth)
}

// Register creates an account and authenticates as it.
func (m *Manager) Register(ctx context.Context, name, email, password string, role formula.Role) (formula.User, error) {
	auth, err := m.api.Register(ctx, name, email, password, role)
	if err != nil {
		return formula.User{}, err
	}
	return m.authenticate(auth)
}

func (m *Manager) authenticate(auth formula.Auth) (formula.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(auth.Token); err != nil {
		return formula.User{}, err
	}
	user := auth.User
	m.token = auth.Token
	m.user = &user
	m.expired = false

	m.logger.Info("session authenticated",
		zap.String("op", "session.authenticate"),
		zap.Int("user_id", user.ID),
	)
	return user, nil
}

// Logout forgets the session.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = ""
	m.user = nil
	m.expired = false
	return m.store.Clear()
}

// Restore loads a persisted token and verifies it with the API. A token that
// fails verification is discarded and the session stays Anonymous.
func (m *Manager) Restore(ctx context.Context) (State, error) {
	token, err := m.store.Load()
	if err != nil {
		return Anonymous, err
	}
	if token == "" {
		return Anonymous, nil
	}

	if Classify(token, m.now()) == Expired {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.expire()
		return Expired, nil
	}

	user, err := m.api.CurrentUser(ctx, token)
	if err != nil {
		m.logger.Warn("stored session rejected, clearing token",
			zap.String("op", "session.Restore"),
			zap.Error(err),
		)
		_ = m.Logout()
		return Anonymous, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.user = &user
	m.expired = false
	return Authenticated, nil
}

// State returns the current state, expiring the session if its token has
// passed its exp claim.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state()
}

func (m *Manager) state() State {
	if m.token != "" && Classify(m.token, m.now()) == Expired {
		m.expire()
	}
	switch {
	case m.expired:
		return Expired
	case m.token != "":
		return Authenticated
	default:
		return Anonymous
	}
}

// expire drops the token and marks the session expired. Callers hold mu.
func (m *Manager) expire() {
	m.token = ""
	m.user = nil
	m.expired = true
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear expired token",
			zap.String("op", "session.expire"),
			zap.Error(err),
		)
	}
	m.logger.Info("session expired", zap.String("op", "session.expire"))
}

// Token returns the bearer token of an authenticated session.
func (m *Manager) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state() {
	case Authenticated:
		return m.token, nil
	case Expired:
		return "", ErrSessionExpired
	default:
		return "", ErrNotAuthenticated
	}
}

// User returns the authenticated user.
func (m *Manager) User() (formula.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state() != Authenticated || m.user == nil {
		return formula.User{}, false
	}
	return *m.user, true
}
