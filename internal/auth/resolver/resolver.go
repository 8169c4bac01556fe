package resolver

import (
	"context"
	"errors"

	"club-auth/internal/auth"
	"club-auth/internal/auth/credentials"
)

var ErrInvalidIdentity = errors.New("identity missing provider or user id")

// DefaultEmailDomain is used for placeholder emails when none is configured.
const DefaultEmailDomain = "example.com"

// Resolution is the account a remote identity maps to, plus the one-time
// secret minted for this login.
type Resolution struct {
	Account *auth.Account
	Secret  credentials.Secret
	Created bool
}

// Resolver determines which local account an external identity belongs to.
// It is the ONLY place where identity-to-account mapping logic lives.
type Resolver interface {
	Resolve(
		ctx context.Context,
		identity *auth.Identity,
	) (*Resolution, error)
}

// PlaceholderEmail is the stand-in address for identities without an email.
// It depends only on the provider and the remote id.
func PlaceholderEmail(provider, remoteID, domain string) string {
	if domain == "" {
		domain = DefaultEmailDomain
	}
	return provider + "_" + remoteID + "@" + domain
}

// LookupEmail returns the identity's email, or its placeholder.
func LookupEmail(identity *auth.Identity, domain string) string {
	if identity.Email != "" {
		return identity.Email
	}
	return PlaceholderEmail(identity.Provider, identity.ProviderUserID, domain)
}
