package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/drewdunne/gitdash/internal/provider"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotAuthenticated is carried by Validate when there is no session to check.
var ErrNotAuthenticated = errors.New("not authenticated")

// Manager owns the current session. It is Unauthenticated until a Login
// succeeds and returns to Unauthenticated on Logout or any failed validation.
type Manager struct {
	mu       sync.RWMutex
	current  Session
	repo     Repository
	provider provider.Provider
	log      *zap.Logger
	now      func() time.Time
}

// NewManager restores the previous session from repo. A missing or unreadable
// record starts an empty, unauthenticated session.
func NewManager(ctx context.Context, repo Repository, p provider.Provider, log *zap.Logger) *Manager {
	m := &Manager{
		repo:     repo,
		provider: p,
		log:      log.Named("session"),
		now:      time.Now,
	}

	s, ok, err := repo.Load(ctx)
	switch {
	case err != nil:
		m.log.Warn("could not restore session, starting unauthenticated", zap.Error(err))
	case ok:
		m.current = s
	}

	if m.current.IsAuthenticated {
		p.SetToken(m.current.Token)
		m.log.Info("restored session",
			zap.String("session_id", m.current.ID),
			zap.String("user", m.current.Username),
		)
	}
	return m
}

// Current returns a copy of the session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Login validates token against the provider. On success the session becomes
// authenticated; on any failure it is reset to an empty token. Either way the
// new session is persisted. The returned error only reports a failed save,
// which does not undo the transition.
func (m *Manager) Login(ctx context.Context, token string) (provider.Validation, error) {
	m.provider.SetToken(token)
	v := m.provider.ValidateToken(ctx)
	if !v.OK() {
		m.log.Info("login rejected", zap.Stringer("reason", v.Failure), zap.Error(v.Err))
		return v, m.reset(ctx)
	}

	s := Session{
		Token:           token,
		IsAuthenticated: true,
		ID:              uuid.NewString(),
		Username:        v.Username,
		UpdatedAt:       m.now(),
	}
	m.set(s)
	m.log.Info("logged in", zap.String("session_id", s.ID), zap.String("user", s.Username))
	return v, m.save(ctx, s)
}

// Logout marks the session unauthenticated. The stored token is kept so a
// later login can be prefilled. Calling it repeatedly is harmless.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.current.IsAuthenticated {
		m.current.IsAuthenticated = false
		m.current.UpdatedAt = m.now()
	}
	s := m.current
	m.mu.Unlock()

	m.provider.SetToken("")
	m.log.Info("logged out", zap.String("session_id", s.ID))
	return m.save(ctx, s)
}

// Validate re-checks the current token. A rejected token resets the session
// exactly like a failed Login.
func (m *Manager) Validate(ctx context.Context) (provider.Validation, error) {
	s := m.Current()
	if !s.IsAuthenticated {
		return provider.Failed(provider.FailureInvalid, ErrNotAuthenticated), nil
	}

	v := m.provider.ValidateToken(ctx)
	if !v.OK() {
		m.log.Info("session no longer valid",
			zap.String("session_id", s.ID),
			zap.Stringer("reason", v.Failure),
			zap.Error(v.Err),
		)
		return v, m.reset(ctx)
	}
	return v, nil
}

func (m *Manager) reset(ctx context.Context) error {
	m.provider.SetToken("")
	s := Session{UpdatedAt: m.now()}
	m.set(s)
	return m.save(ctx, s)
}

func (m *Manager) set(s Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

func (m *Manager) save(ctx context.Context, s Session) error {
	if err := m.repo.Save(ctx, s); err != nil {
		m.log.Error("persisting session failed", zap.Error(err))
		return err
	}
	return nil
}
