package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("credential not found")
)

// Store is the part of the record store the credential check needs.
// ConsumeCredential must delete the row it returns in the same operation
// and return ErrNotFound when no row matches.
type Store interface {
	ConsumeCredential(ctx context.Context, accountID, credentialID string) (*Credential, error)
}

type Service struct {
	store  Store
	hasher Hasher
	ttl    time.Duration
	now    func() time.Time
}

func NewService(store Store, hasher Hasher, ttl time.Duration) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Mint creates a fresh one-time secret for the account. The caller persists
// the returned Credential and hands the Secret to Authenticate exactly once.
func (s *Service) Mint(accountID string) (Secret, *Credential, error) {
	id := uuid.NewString()

	secret, err := newSecret(id)
	if err != nil {
		return Secret{}, nil, err
	}

	hash, version, err := s.hasher.Hash(secret.Value())
	if err != nil {
		return Secret{}, nil, fmt.Errorf("credentials: hash secret: %w", err)
	}

	return secret, &Credential{
		ID:          id,
		AccountID:   accountID,
		SecretHash:  hash,
		HashVersion: version,
		IssuedAt:    s.now(),
	}, nil
}

// Authenticate consumes the credential identified by the secret and checks
// the secret against it. Any mismatch returns ErrInvalidCredentials; the
// credential is gone either way.
func (s *Service) Authenticate(
	ctx context.Context,
	accountID string,
	secret Secret,
) error {

	if secret.IsZero() || secret.ID == "" {
		return ErrInvalidCredentials
	}

	cred, err := s.store.ConsumeCredential(ctx, accountID, secret.ID)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("credentials: consume: %w", err)
	}

	if cred.AccountID != accountID || cred.HashVersion != HashVersionBcrypt {
		return ErrInvalidCredentials
	}

	if s.ttl > 0 && s.now().Sub(cred.IssuedAt) > s.ttl {
		return ErrInvalidCredentials
	}

	if err := s.hasher.Verify(cred.SecretHash, secret.Value()); err != nil {
		return ErrInvalidCredentials
	}

	return nil
}
