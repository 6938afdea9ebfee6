// Package dashboard exposes the session and the fetched collections as
// observable state for a UI layer.
package dashboard

import (
	"context"
	"sync"

	"github.com/drewdunne/gitdash/internal/metrics"
	"github.com/drewdunne/gitdash/internal/provider"
	"github.com/drewdunne/gitdash/internal/session"
	"go.uber.org/zap"
)

// Listener receives a state snapshot after every change.
type Listener func(State)

// Store holds dashboard state and the operations that change it.
//
// Operations never return errors; failures end up in State.Error. Concurrent
// fetches are not serialized: each writes its fields when it finishes and the
// last write wins. The mutex only guards memory access.
type Store struct {
	sessions *session.Manager
	provider provider.Provider
	log      *zap.Logger

	mu           sync.Mutex
	repositories []provider.Repository
	pullRequests []provider.PullRequest
	loading      bool
	errMsg       string

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// New creates a Store on top of a session manager and the provider it authenticates.
func New(sessions *session.Manager, p provider.Provider, log *zap.Logger) *Store {
	return &Store{
		sessions:     sessions,
		provider:     p,
		log:          log.Named("dashboard"),
		repositories: []provider.Repository{},
		pullRequests: []provider.PullRequest{},
		listeners:    make(map[int]Listener),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := State{
		Auth:         s.sessions.Current(),
		Repositories: s.repositories,
		PullRequests: s.pullRequests,
		Loading:      s.loading,
		Error:        s.errMsg,
	}
	return st.clone()
}

// Subscribe registers fn for state changes. The returned function removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// update applies fn to the state under the lock, then notifies listeners.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(st)
}

func (s *Store) publish(st State) {
	s.listenersMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(st)
	}
}

func (s *Store) begin() {
	s.update(func() {
		s.loading = true
		s.errMsg = ""
	})
}

func (s *Store) finish() {
	s.update(func() { s.loading = false })
}

// Login validates token and, when accepted, loads the repositories. A failed
// repository fetch leaves the session authenticated.
func (s *Store) Login(ctx context.Context, token string) {
	s.begin()
	defer s.finish()

	v, err := s.sessions.Login(ctx, token)
	if err != nil {
		s.log.Warn("session not persisted", zap.Error(err))
	}
	if !v.OK() {
		metrics.LoginFailed()
		s.update(func() { s.errMsg = v.Message() })
		return
	}
	metrics.LoginSucceeded()

	s.FetchRepositories(ctx)
}

// Logout ends the session and drops the cached repositories.
func (s *Store) Logout(ctx context.Context) {
	if err := s.sessions.Logout(ctx); err != nil {
		s.log.Warn("session not persisted", zap.Error(err))
	}
	metrics.LoggedOut()
	s.update(func() { s.repositories = []provider.Repository{} })
}

// Validate re-checks the session token. A rejected token logs the user out
// and records why.
func (s *Store) Validate(ctx context.Context) {
	if !s.sessions.Current().IsAuthenticated {
		return
	}

	v, err := s.sessions.Validate(ctx)
	if err != nil {
		s.log.Warn("session not persisted", zap.Error(err))
	}
	if !v.OK() {
		s.update(func() {
			s.errMsg = v.Message()
			s.repositories = []provider.Repository{}
		})
	}
}

// FetchRepositories replaces the repository collection. It does nothing
// without an authenticated session.
func (s *Store) FetchRepositories(ctx context.Context) {
	if !s.sessions.Current().IsAuthenticated {
		return
	}

	s.begin()
	defer s.finish()

	metrics.RepositoryFetched()
	repos, err := s.provider.GetRepositories(ctx)
	if err != nil {
		metrics.FetchFailed()
		s.log.Warn("fetching repositories failed", zap.Error(err))
		s.update(func() {
			s.errMsg = err.Error()
			s.repositories = []provider.Repository{}
		})
		return
	}

	s.log.Debug("fetched repositories", zap.Int("count", len(repos)))
	s.update(func() { s.repositories = repos })
}

// FetchPullRequests replaces the pull request collection with those of one
// repository created within filter. It does nothing without an authenticated session.
func (s *Store) FetchPullRequests(ctx context.Context, owner, repo string, filter provider.TimeFilter) {
	if !s.sessions.Current().IsAuthenticated {
		return
	}

	s.begin()
	defer s.finish()

	metrics.PullRequestsFetched()
	prs, err := s.provider.GetPullRequests(ctx, owner, repo, filter)
	if err != nil {
		metrics.FetchFailed()
		s.log.Warn("fetching pull requests failed",
			zap.String("owner", owner),
			zap.String("repo", repo),
			zap.Error(err),
		)
		s.update(func() {
			s.errMsg = err.Error()
			s.pullRequests = []provider.PullRequest{}
		})
		return
	}

	s.log.Debug("fetched pull requests",
		zap.String("owner", owner),
		zap.String("repo", repo),
		zap.Int("count", len(prs)),
	)
	s.update(func() { s.pullRequests = prs })
}
