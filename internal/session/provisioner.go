package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"club-auth/internal/auth"
	"club-auth/internal/auth/credentials"
)

var ErrCredentialRejected = errors.New("login credential rejected")

// absoluteLifetime caps how long a session can be kept alive by refreshing.
const absoluteLifetime = 90 * 24 * time.Hour

// Authenticator checks a one-time login secret for an account.
type Authenticator interface {
	Authenticate(ctx context.Context, accountID string, secret credentials.Secret) error
}

// Tokens is the session handed back to the client.
type Tokens struct {
	SessionID        string        `json:"-"`
	RefreshExpiresAt time.Time     `json:"-"`
	AccessToken      string        `json:"access_token"`
	RefreshToken     string        `json:"refresh_token"`
	TokenType        string        `json:"token_type"`
	ExpiresIn        int64         `json:"expires_in"`
	ExpiresAt        int64         `json:"expires_at"`
	User             *auth.Account `json:"user,omitempty"`
}

// Provisioner turns an authenticated login into a stored session and a token
// pair. The one-time credential is the only way in.
type Provisioner struct {
	creds      Authenticator
	store      Store
	tokens     *TokenIssuer
	refreshTTL time.Duration
	now        func() time.Time
}

func NewProvisioner(creds Authenticator, store Store, tokens *TokenIssuer, refreshTTL time.Duration) *Provisioner {
	return &Provisioner{
		creds:      creds,
		store:      store,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Provision authenticates the account with its one-time secret and opens a
// session. providerToken is the upstream access token, kept for logout.
func (p *Provisioner) Provision(
	ctx context.Context,
	account *auth.Account,
	secret credentials.Secret,
	providerToken string,
) (*Tokens, error) {

	if account == nil || account.ID == "" {
		return nil, ErrCredentialRejected
	}

	if err := p.creds.Authenticate(ctx, account.ID, secret); err != nil {
		if errors.Is(err, credentials.ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: %w", ErrCredentialRejected, err)
		}
		return nil, fmt.Errorf("session: authenticate: %w", err)
	}

	sessionID, err := GenerateID()
	if err != nil {
		return nil, err
	}
	refreshSecret, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := p.now()
	absolute := now.Add(absoluteLifetime)

	sess := Session{
		SessionID:         sessionID,
		AccountID:         account.ID,
		Provider:          account.Provider,
		ProviderToken:     providerToken,
		RefreshHash:       hashRefresh(refreshSecret),
		CreatedAt:         now,
		ExpiresAt:         minTime(now.Add(p.refreshTTL), absolute),
		AbsoluteExpiresAt: absolute,
	}

	if err := p.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("session: persist: %w", err)
	}

	tokens, err := p.issue(sess, refreshSecret)
	if err != nil {
		_ = p.store.Delete(ctx, sessionID)
		return nil, err
	}
	tokens.User = account
	return tokens, nil
}

// Refresh rotates the refresh secret of a live session and issues a new
// access token. The presented refresh token stops working.
func (p *Provisioner) Refresh(ctx context.Context, refreshToken string) (*Tokens, *Session, error) {
	sessionID, secret, ok := parseRefreshToken(refreshToken)
	if !ok {
		return nil, nil, ErrInvalidToken
	}

	sess, err := p.store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, err
	}

	if subtle.ConstantTimeCompare([]byte(sess.RefreshHash), []byte(hashRefresh(secret))) != 1 {
		return nil, nil, ErrInvalidToken
	}

	now := p.now()
	if !now.Before(sess.ExpiresAt) || !now.Before(sess.AbsoluteExpiresAt) {
		_ = p.store.Delete(ctx, sessionID)
		return nil, nil, ErrInvalidToken
	}

	next, err := GenerateID()
	if err != nil {
		return nil, nil, err
	}
	prevHash := sess.RefreshHash
	sess.RefreshHash = hashRefresh(next)
	sess.ExpiresAt = minTime(now.Add(p.refreshTTL), sess.AbsoluteExpiresAt)

	// compare-and-swap: of two requests racing with one token only the
	// first rotation lands
	if err := p.store.Rotate(ctx, *sess, prevHash); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRefreshReused) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("session: persist refresh: %w", err)
	}

	tokens, err := p.issue(*sess, next)
	if err != nil {
		return nil, nil, err
	}
	return tokens, sess, nil
}

// Authenticate verifies an access token and that its session is still live.
func (p *Provisioner) Authenticate(ctx context.Context, accessToken string) (*Session, error) {
	claims, err := p.tokens.Parse(accessToken)
	if err != nil {
		return nil, err
	}

	sess, err := p.store.Get(ctx, claims.SessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if sess.AccountID != claims.Subject {
		return nil, ErrInvalidToken
	}
	return sess, nil
}

// Revoke ends the session. Unknown sessions are not an error.
func (p *Provisioner) Revoke(ctx context.Context, sessionID string) error {
	if err := p.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

func (p *Provisioner) issue(sess Session, refreshSecret string) (*Tokens, error) {
	access, expiresAt, err := p.tokens.Issue(sess.AccountID, sess.SessionID)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		SessionID:        sess.SessionID,
		RefreshExpiresAt: sess.ExpiresAt,
		AccessToken:      access,
		RefreshToken:     formatRefreshToken(sess.SessionID, refreshSecret),
		TokenType:        "bearer",
		ExpiresIn:        int64(p.tokens.TTL().Seconds()),
		ExpiresAt:        expiresAt.Unix(),
	}, nil
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
