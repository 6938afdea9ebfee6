package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/drewdunne/gitdash/internal/kv"
	"github.com/drewdunne/gitdash/internal/provider"
	"github.com/drewdunne/gitdash/internal/provider/providertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingRepository struct {
	loadErr, saveErr error
	saved            []Session
}

func (r *failingRepository) Load(ctx context.Context) (Session, bool, error) {
	return Session{}, false, r.loadErr
}

func (r *failingRepository) Save(ctx context.Context, s Session) error {
	r.saved = append(r.saved, s)
	return r.saveErr
}

func newManager(t *testing.T, store kv.Store, fake *providertest.Fake) *Manager {
	t.Helper()
	return NewManager(context.Background(), NewKVRepository(store, "fake"), fake, zap.NewNop())
}

func stored(t *testing.T, store kv.Store) Session {
	t.Helper()
	s, ok, err := NewKVRepository(store, "fake").Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok, "expected a persisted session")
	return s
}

func TestNewManager_NoStoredSession(t *testing.T) {
	m := newManager(t, kv.NewMemoryStore(), &providertest.Fake{})

	s := m.Current()
	assert.Empty(t, s.Token)
	assert.False(t, s.IsAuthenticated)
}

func TestNewManager_RestoresAuthenticatedSession(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(StorageKey("fake"), `{"token":"tok","isAuthenticated":true,"username":"octocat"}`))
	fake := &providertest.Fake{}

	m := newManager(t, store, fake)

	assert.True(t, m.Current().IsAuthenticated)
	assert.Equal(t, "tok", fake.Token(), "restored token should configure the provider")
}

func TestNewManager_RestoresLoggedOutSessionWithoutToken(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(StorageKey("fake"), `{"token":"tok","isAuthenticated":false}`))
	fake := &providertest.Fake{}

	m := newManager(t, store, fake)

	assert.False(t, m.Current().IsAuthenticated)
	assert.Empty(t, fake.Token())
}

func TestNewManager_CorruptRecord(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(StorageKey("fake"), `{not json`))

	m := newManager(t, store, &providertest.Fake{})

	assert.Equal(t, Session{}, m.Current())
}

func TestNewManager_LoadError(t *testing.T) {
	repo := &failingRepository{loadErr: errors.New("disk gone")}
	m := NewManager(context.Background(), repo, &providertest.Fake{}, zap.NewNop())

	assert.False(t, m.Current().IsAuthenticated)
}

func TestManager_LoginSuccess(t *testing.T) {
	store := kv.NewMemoryStore()
	fake := &providertest.Fake{ValidTokens: map[string]string{"good": "octocat"}}
	m := newManager(t, store, fake)

	v, err := m.Login(context.Background(), "good")
	require.NoError(t, err)

	assert.True(t, v.OK())
	s := m.Current()
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, "good", s.Token)
	assert.Equal(t, "octocat", s.Username)
	assert.NotEmpty(t, s.ID)

	persisted := stored(t, store)
	assert.Equal(t, "good", persisted.Token)
	assert.True(t, persisted.IsAuthenticated)
}

func TestManager_LoginFailureResets(t *testing.T) {
	store := kv.NewMemoryStore()
	fake := &providertest.Fake{ValidTokens: map[string]string{"good": "octocat"}}
	m := newManager(t, store, fake)
	_, err := m.Login(context.Background(), "good")
	require.NoError(t, err)

	v, err := m.Login(context.Background(), "bad")
	require.NoError(t, err)

	assert.False(t, v.OK())
	assert.Equal(t, provider.FailureInvalid, v.Failure)
	assert.False(t, m.Current().IsAuthenticated)
	assert.Empty(t, m.Current().Token)
	assert.Empty(t, fake.Token(), "rejected token should be cleared from the provider")

	persisted := stored(t, store)
	assert.Empty(t, persisted.Token)
	assert.False(t, persisted.IsAuthenticated)
}

func TestManager_LoginPersistFailureKeepsTransition(t *testing.T) {
	repo := &failingRepository{saveErr: errors.New("read-only")}
	fake := &providertest.Fake{ValidTokens: map[string]string{"good": "octocat"}}
	m := NewManager(context.Background(), repo, fake, zap.NewNop())

	v, err := m.Login(context.Background(), "good")

	assert.True(t, v.OK())
	assert.Error(t, err)
	assert.True(t, m.Current().IsAuthenticated)
	require.Len(t, repo.saved, 1)
}

func TestManager_LogoutIsIdempotent(t *testing.T) {
	store := kv.NewMemoryStore()
	fake := &providertest.Fake{ValidTokens: map[string]string{"good": "octocat"}}
	m := newManager(t, store, fake)
	_, err := m.Login(context.Background(), "good")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))
	first := m.Current()
	require.NoError(t, m.Logout(context.Background()))
	second := m.Current()

	assert.False(t, first.IsAuthenticated)
	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, first.IsAuthenticated, second.IsAuthenticated)
	assert.Equal(t, "good", second.Token, "logout keeps the token")
	assert.False(t, stored(t, store).IsAuthenticated)
}

func TestManager_RepeatedLogoutSavesSameRecord(t *testing.T) {
	store := kv.NewMemoryStore()
	fake := &providertest.Fake{ValidTokens: map[string]string{"good": "octocat"}}
	m := newManager(t, store, fake)
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	_, err := m.Login(context.Background(), "good")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))
	first, _, err := store.Get(StorageKey("fake"))
	require.NoError(t, err)
	require.NoError(t, m.Logout(context.Background()))
	second, _, err := store.Get(StorageKey("fake"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestKVRepository_KeyedByProvider(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, NewKVRepository(store, "github").Save(context.Background(), Session{Token: "ghp_x", IsAuthenticated: true}))

	_, ok, err := NewKVRepository(store, "gitlab").Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	raw, ok, err := store.Get("github_auth")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, raw, "ghp_x")
}

func TestManager_Validate(t *testing.T) {
	store := kv.NewMemoryStore()
	fake := &providertest.Fake{ValidTokens: map[string]string{"good": "octocat"}}
	m := newManager(t, store, fake)

	v, err := m.Validate(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, v.Err, ErrNotAuthenticated)
	assert.Zero(t, fake.ValidateCalls(), "no remote call without a session")

	_, err = m.Login(context.Background(), "good")
	require.NoError(t, err)
	v, err = m.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, v.OK())
	assert.True(t, m.Current().IsAuthenticated)

	// Token revoked remotely.
	fake.ValidTokens = nil
	fake.Failure = provider.FailureExpired
	v, err = m.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.FailureExpired, v.Failure)
	assert.False(t, m.Current().IsAuthenticated)
	assert.False(t, stored(t, store).IsAuthenticated)
}

func TestSession_Redacted(t *testing.T) {
	s := Session{Token: "ghp_1234567890abcdef"}
	assert.Equal(t, "ghp_****cdef", s.Redacted().Token)
	assert.Equal(t, "****", Session{Token: "short"}.Redacted().Token)
	assert.Empty(t, Session{}.Redacted().Token)
}
