package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/drewdunne/gitdash/internal/kv"
)

// StorageKey returns the key under which the session for a provider is
// persisted, e.g. "github_auth". Each provider keeps its own record so a
// token is never restored against another host.
func StorageKey(providerName string) string {
	return providerName + "_auth"
}

// Repository loads and saves the session record.
type Repository interface {
	// Load returns the stored session; ok is false when none was stored.
	Load(ctx context.Context) (s Session, ok bool, err error)
	Save(ctx context.Context, s Session) error
}

// KVRepository stores the session as JSON under StorageKey in a kv.Store.
type KVRepository struct {
	store kv.Store
	key   string
}

var _ Repository = (*KVRepository)(nil)

// NewKVRepository creates a repository for providerName's session backed by store.
func NewKVRepository(store kv.Store, providerName string) *KVRepository {
	return &KVRepository{store: store, key: StorageKey(providerName)}
}

// Load reads and decodes the stored session.
func (r *KVRepository) Load(ctx context.Context) (Session, bool, error) {
	raw, ok, err := r.store.Get(r.key)
	if err != nil {
		return Session{}, false, fmt.Errorf("loading session: %w", err)
	}
	if !ok || raw == "" || raw == "null" {
		return Session{}, false, nil
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Session{}, false, fmt.Errorf("decoding session: %w", err)
	}
	return s, true, nil
}

// Save encodes and writes the session.
func (r *KVRepository) Save(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := r.store.Set(r.key, string(data)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
