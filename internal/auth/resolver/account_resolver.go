package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"club-auth/internal/auth"
	"club-auth/internal/auth/credentials"
	"club-auth/internal/logger"
	"club-auth/internal/store"

	"github.com/google/uuid"
)

// Minter issues one-time login credentials.
type Minter interface {
	Mint(accountID string) (credentials.Secret, *credentials.Credential, error)
}

// AccountResolver resolves identities against the record store, matching on
// (provider, provider user id) only.
type AccountResolver struct {
	store       store.RecordStore
	minter      Minter
	emailDomain string
	now         func() time.Time
}

var _ Resolver = (*AccountResolver)(nil)

func NewAccountResolver(st store.RecordStore, minter Minter, emailDomain string) *AccountResolver {
	return &AccountResolver{
		store:       st,
		minter:      minter,
		emailDomain: emailDomain,
		now:         time.Now,
	}
}

func (r *AccountResolver) Resolve(
	ctx context.Context,
	identity *auth.Identity,
) (*Resolution, error) {

	if identity == nil || identity.Provider == "" || identity.ProviderUserID == "" {
		return nil, ErrInvalidIdentity
	}

	email := LookupEmail(identity, r.emailDomain)

	// 1. Existing account for this provider identity
	existing, err := r.store.FindByProvider(ctx, identity.Provider, identity.ProviderUserID)
	if err == nil {
		return r.update(ctx, existing, identity, email)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("resolver: lookup: %w", err)
	}

	// 2. New account
	res, err := r.create(ctx, identity, email)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, store.ErrDuplicate) {
		return nil, err
	}

	// 3. Lost a concurrent create. Look up once more; a second failure is final.
	logger.Info("account created concurrently, retrying lookup", map[string]any{
		"provider":  identity.Provider,
		"remote_id": identity.ProviderUserID,
	})

	existing, err = r.store.FindByProvider(ctx, identity.Provider, identity.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("resolver: lookup after duplicate: %w", err)
	}
	return r.update(ctx, existing, identity, email)
}

func (r *AccountResolver) create(ctx context.Context, identity *auth.Identity, email string) (*Resolution, error) {
	now := r.now()

	acc := &auth.Account{ID: uuid.NewString()}
	acc.ApplyIdentity(identity, email)
	acc.LastLoginAt = &now

	secret, cred, err := r.minter.Mint(acc.ID)
	if err != nil {
		return nil, fmt.Errorf("resolver: mint credential: %w", err)
	}

	if err := r.store.CreateAccount(ctx, acc, cred); err != nil {
		return nil, fmt.Errorf("resolver: create account: %w", err)
	}

	return &Resolution{Account: acc, Secret: secret, Created: true}, nil
}

func (r *AccountResolver) update(ctx context.Context, acc *auth.Account, identity *auth.Identity, email string) (*Resolution, error) {
	now := r.now()

	acc.ApplyIdentity(identity, email)
	acc.LastLoginAt = &now

	secret, cred, err := r.minter.Mint(acc.ID)
	if err != nil {
		return nil, fmt.Errorf("resolver: mint credential: %w", err)
	}

	if err := r.store.UpdateAccount(ctx, acc, cred); err != nil {
		return nil, fmt.Errorf("resolver: update account: %w", err)
	}

	return &Resolution{Account: acc, Secret: secret}, nil
}
