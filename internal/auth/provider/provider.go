package provider

import (
	"context"
	"errors"

	"club-auth/internal/auth"

	"golang.org/x/oauth2"
)

var (
	ErrUnknownProvider    = errors.New("unknown oauth provider")
	ErrExchangeCodeFailed = errors.New("failed to exchange authorization code for token")
	ErrFetchProfileFailed = errors.New("failed to fetch profile from provider")
	ErrRevokeFailed       = errors.New("failed to revoke provider token")
)

// OAuthProvider defines the contract every external auth provider
// must implement. Implementations return identity facts only and
// must not perform user creation, linking, or session management.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "kakao", "google").
	Name() string

	// AuthCodeURL returns the consent URL. State is provided by the caller;
	// opts carry extras such as the PKCE challenge.
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string

	// ExchangeCode trades an authorization code for an access token.
	// An empty redirectURI falls back to the configured one. opts carry
	// extras such as the PKCE verifier.
	ExchangeCode(ctx context.Context, code string, redirectURI string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

	// FetchProfile loads the remote user's profile with the access token.
	FetchProfile(ctx context.Context, token *oauth2.Token) (*auth.Identity, error)

	// Revoke invalidates the access token upstream.
	Revoke(ctx context.Context, accessToken string) error
}
