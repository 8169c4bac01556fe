package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"club-auth/internal/auth"
	"club-auth/internal/auth/credentials"

	"github.com/google/uuid"
)

// Memory is an in-process RecordStore for local runs and tests. It enforces
// the same (provider, provider user id) uniqueness as the SQL schema.
type Memory struct {
	mu          sync.Mutex
	accounts    map[string]*auth.Account
	byProvider  map[providerKey]string
	credentials map[string]*credentials.Credential
	roster      []*RosterProfile
	now         func() time.Time
	opts        options
}

type providerKey struct {
	provider string
	userID   string
}

var _ RecordStore = (*Memory)(nil)

func NewMemory(opts ...Option) *Memory {
	return &Memory{
		accounts:    make(map[string]*auth.Account),
		byProvider:  make(map[providerKey]string),
		credentials: make(map[string]*credentials.Credential),
		now:         time.Now,
		opts:        buildOptions(opts),
	}
}

func copyAccount(a *auth.Account) *auth.Account {
	c := *a
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

func (m *Memory) FindByProvider(_ context.Context, provider, providerUserID string) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byProvider[providerKey{provider, providerUserID}]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAccount(m.accounts[id]), nil
}

func (m *Memory) FindByID(_ context.Context, id string) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAccount(acc), nil
}

func (m *Memory) ListByProvider(_ context.Context, provider string) ([]*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*auth.Account{}
	for _, acc := range m.accounts {
		if acc.Provider == provider {
			out = append(out, copyAccount(acc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) CreateAccount(_ context.Context, acc *auth.Account, cred *credentials.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := providerKey{acc.Provider, acc.ProviderUserID}
	if _, taken := m.byProvider[key]; taken {
		return ErrDuplicate
	}
	if _, taken := m.accounts[acc.ID]; taken {
		return ErrDuplicate
	}

	now := m.now()
	acc.CreatedAt = now
	acc.UpdatedAt = now

	m.accounts[acc.ID] = copyAccount(acc)
	m.byProvider[key] = acc.ID
	if cred != nil {
		c := *cred
		m.credentials[c.ID] = &c
	}
	return nil
}

func (m *Memory) UpdateAccount(_ context.Context, acc *auth.Account, cred *credentials.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.accounts[acc.ID]
	if !ok {
		return ErrNotFound
	}

	acc.CreatedAt = existing.CreatedAt
	acc.UpdatedAt = m.now()
	// provider linkage is immutable
	acc.Provider = existing.Provider
	acc.ProviderUserID = existing.ProviderUserID
	m.accounts[acc.ID] = copyAccount(acc)

	if cred != nil {
		cutoff := cred.IssuedAt.Add(-m.opts.credentialTTL)
		for id, c := range m.credentials {
			if c.AccountID == acc.ID && c.IssuedAt.Before(cutoff) {
				delete(m.credentials, id)
			}
		}
		c := *cred
		m.credentials[c.ID] = &c
	}
	return nil
}

func (m *Memory) ConsumeCredential(_ context.Context, accountID, credentialID string) (*credentials.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.credentials[credentialID]
	if !ok || c.AccountID != accountID {
		return nil, credentials.ErrNotFound
	}
	delete(m.credentials, credentialID)
	return c, nil
}

// AddRosterProfile registers an unlinked player profile.
func (m *Memory) AddRosterProfile(name, birthday string) *RosterProfile {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	p := &RosterProfile{
		ID:        uuid.NewString(),
		Name:      name,
		Birthday:  birthday,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.roster = append(m.roster, p)
	c := *p
	return &c
}

// RosterProfiles returns a snapshot of all player profiles.
func (m *Memory) RosterProfiles() []RosterProfile {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RosterProfile, 0, len(m.roster))
	for _, p := range m.roster {
		out = append(out, *p)
	}
	return out
}

func (m *Memory) LinkRosterProfile(_ context.Context, acc *auth.Account) (bool, error) {
	if !canLinkRoster(acc) {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.roster {
		if p.Provider == acc.Provider && p.ProviderUserID == acc.ProviderUserID {
			return false, nil
		}
	}

	for _, p := range m.roster {
		if p.ProviderUserID != "" || p.Name != acc.Name || p.Birthday != acc.Birthday {
			continue
		}
		p.Provider = acc.Provider
		p.ProviderUserID = acc.ProviderUserID
		p.Email = acc.Email
		p.ProfileImage = acc.AvatarURL
		p.UpdatedAt = m.now()
		return true, nil
	}
	return false, nil
}
