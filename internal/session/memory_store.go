package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore keeps sessions in process, for local runs and tests.
// Entries expire on their own ExpiresAt.
type MemoryStore struct {
	// mu makes the check-then-set in Create and Rotate atomic; the cache
	// is safe for single operations on its own.
	mu    sync.Mutex
	cache *ttlcache.Cache[string, Session]
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	cache := ttlcache.New[string, Session](
		ttlcache.WithDisableTouchOnHit[string, Session](),
	)
	go cache.Start()

	return &MemoryStore{cache: cache}
}

// Close stops the expiry loop.
func (m *MemoryStore) Close() {
	m.cache.Stop()
}

func (m *MemoryStore) Create(_ context.Context, s Session) error {
	if s.SessionID == "" || s.AccountID == "" {
		return fmt.Errorf("session: missing session_id or account_id")
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cache.Has(s.SessionID) {
		return fmt.Errorf("session: id %s already in use", s.SessionID)
	}

	m.cache.Set(s.SessionID, s, ttl)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	item := m.cache.Get(sessionID)
	if item == nil || item.IsExpired() {
		return nil, ErrNotFound
	}

	s := item.Value()
	return &s, nil
}

func (m *MemoryStore) Rotate(_ context.Context, s Session, prevHash string) error {
	if s.SessionID == "" {
		return fmt.Errorf("session: missing session_id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		m.cache.Delete(s.SessionID)
		return ErrNotFound
	}

	item := m.cache.Get(s.SessionID)
	if item == nil || item.IsExpired() {
		return ErrNotFound
	}
	if item.Value().RefreshHash != prevHash {
		return ErrRefreshReused
	}

	m.cache.Set(s.SessionID, s, ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.cache.Delete(sessionID)
	return nil
}
