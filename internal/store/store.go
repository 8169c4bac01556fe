package store

import (
	"context"
	"errors"
	"time"

	"club-auth/internal/auth"
	"club-auth/internal/auth/credentials"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// DefaultCredentialTTL matches the credential service default. Unconsumed
// credential rows older than the TTL can no longer authenticate and are
// pruned when the account logs in again.
const DefaultCredentialTTL = time.Minute

type options struct {
	credentialTTL time.Duration
}

// Option configures a RecordStore implementation.
type Option func(*options)

// WithCredentialTTL sets the age past which unconsumed credentials are
// pruned. It should equal the TTL the credential service enforces.
func WithCredentialTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.credentialTTL = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{credentialTTL: DefaultCredentialTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RecordStore owns persisted accounts and their one-time credentials.
// CreateAccount must return ErrDuplicate when the (provider, provider user id)
// pair is already taken.
type RecordStore interface {
	FindByProvider(ctx context.Context, provider, providerUserID string) (*auth.Account, error)
	FindByID(ctx context.Context, id string) (*auth.Account, error)
	ListByProvider(ctx context.Context, provider string) ([]*auth.Account, error)

	CreateAccount(ctx context.Context, acc *auth.Account, cred *credentials.Credential) error
	UpdateAccount(ctx context.Context, acc *auth.Account, cred *credentials.Credential) error

	ConsumeCredential(ctx context.Context, accountID, credentialID string) (*credentials.Credential, error)

	// LinkRosterProfile attaches the account to the first unlinked player
	// profile with the same name and birthday. It reports whether a profile
	// was linked.
	LinkRosterProfile(ctx context.Context, acc *auth.Account) (bool, error)
}

// RosterProfile is a pre-registered player row that may be claimed by an
// account on login.
type RosterProfile struct {
	ID             string
	Name           string
	Birthday       string
	Provider       string
	ProviderUserID string
	Email          string
	ProfileImage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func canLinkRoster(acc *auth.Account) bool {
	return acc != nil && acc.Name != "" && acc.Birthday != ""
}
