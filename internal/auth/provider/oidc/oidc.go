package oidc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"club-auth/internal/auth"
	"club-auth/internal/auth/provider"
	"club-auth/internal/logger"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

type Config struct {
	Name         string
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AuthURL overrides the discovered authorization endpoint, for issuers
	// reachable under a different public host than the one the server uses.
	AuthURL string
	Scopes  []string
	Timeout time.Duration
}

// Provider implements OAuth + OIDC authentication against any issuer that
// supports discovery. It returns identity facts only; no user/session
// decisions are made here.
type Provider struct {
	name          string
	oauthConfig   *oauth2.Config
	oidcProvider  *gooidc.Provider
	verifier      *gooidc.IDTokenVerifier
	httpClient    *http.Client
	revocationURL string
}

var _ provider.OAuthProvider = (*Provider)(nil)

// New initializes an OIDC provider using discovery.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Name == "" || cfg.Issuer == "" || cfg.ClientID == "" || cfg.RedirectURL == "" {
		return nil, errors.New("oidc config missing required fields")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	oidcProvider, err := gooidc.NewProvider(gooidc.ClientContext(ctx, httpClient), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init %s oidc provider: %w", cfg.Name, err)
	}

	var discovered struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	_ = oidcProvider.Claims(&discovered)

	verifier := oidcProvider.Verifier(&gooidc.Config{
		ClientID: cfg.ClientID,
	})

	ep := oidcProvider.Endpoint()
	if cfg.AuthURL != "" {
		ep.AuthURL = cfg.AuthURL
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}

	return &Provider{
		name: cfg.Name,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     ep,
			Scopes:       scopes,
		},
		oidcProvider:  oidcProvider,
		verifier:      verifier,
		httpClient:    httpClient,
		revocationURL: discovered.RevocationEndpoint,
	}, nil
}

// NewGoogle configures Google accounts.
func NewGoogle(ctx context.Context, clientID, clientSecret, redirectURL string, timeout time.Duration) (*Provider, error) {
	if clientSecret == "" {
		return nil, errors.New("google oauth config missing client secret")
	}
	return New(ctx, Config{
		Name:         "google",
		Issuer:       "https://accounts.google.com",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Timeout:      timeout,
	})
}

// NewKeycloak configures a Keycloak realm. issuer must be the realm issuer
// URL, e.g. http://keycloak:8080/realms/club. When publicBaseURL is set the
// browser is sent to the realm's auth endpoint under that base instead.
func NewKeycloak(ctx context.Context, issuer, clientID, redirectURL, publicBaseURL string, timeout time.Duration) (*Provider, error) {
	cfg := Config{
		Name:        "keycloak",
		Issuer:      issuer,
		ClientID:    clientID,
		RedirectURL: redirectURL,
		Timeout:     timeout,
	}

	if publicBaseURL != "" {
		u, err := url.Parse(issuer)
		if err != nil {
			return nil, fmt.Errorf("keycloak issuer: %w", err)
		}
		cfg.AuthURL = strings.TrimRight(publicBaseURL, "/") + u.Path + "/protocol/openid-connect/auth"
	}

	return New(ctx, cfg)
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.oauthConfig.AuthCodeURL(state, append([]oauth2.AuthCodeOption{oauth2.AccessTypeOnline}, opts...)...)
}

// ExchangeCode exchanges the authorization code for provider tokens.
// This method MUST NOT create users, sessions, or perform linking logic.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	redirectURI string,
	opts ...oauth2.AuthCodeOption,
) (*oauth2.Token, error) {

	cfg := *p.oauthConfig
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}

	token, err := cfg.Exchange(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient), code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", p.name, provider.ErrExchangeCodeFailed, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w: no access token", p.name, provider.ErrExchangeCodeFailed)
	}

	return token, nil
}

type profileClaims struct {
	Name              string `json:"name"`
	Nickname          string `json:"nickname"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
	Birthdate         string `json:"birthdate"`
	Gender            string `json:"gender"`
}

// FetchProfile reads the userinfo endpoint. When the token response carried
// an id_token it is verified and must name the same subject.
func (p *Provider) FetchProfile(ctx context.Context, token *oauth2.Token) (*auth.Identity, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w: missing access token", p.name, provider.ErrFetchProfileFailed)
	}

	ctx = gooidc.ClientContext(ctx, p.httpClient)

	info, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", p.name, provider.ErrFetchProfileFailed, err)
	}
	if info.Subject == "" {
		return nil, fmt.Errorf("%s: %w: no subject", p.name, provider.ErrFetchProfileFailed)
	}

	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		idToken, err := p.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: id_token verification: %w", p.name, provider.ErrFetchProfileFailed, err)
		}
		if idToken.Subject != info.Subject {
			return nil, fmt.Errorf("%s: %w: id_token subject mismatch", p.name, provider.ErrFetchProfileFailed)
		}
	}

	var claims profileClaims
	if err := info.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: %w: claims: %w", p.name, provider.ErrFetchProfileFailed, err)
	}

	nickname := claims.Nickname
	if nickname == "" {
		nickname = claims.PreferredUsername
	}
	if nickname == "" {
		nickname = claims.Name
	}

	email := info.Email
	if !info.EmailVerified {
		email = ""
	}

	birthday, birthYear := splitBirthdate(claims.Birthdate)

	logger.Debug("oidc profile fetched", map[string]any{
		"provider":       p.name,
		"email_present":  email != "",
		"email_verified": info.EmailVerified,
	})

	return &auth.Identity{
		Provider:       p.name,
		ProviderUserID: info.Subject,
		Email:          email,
		EmailVerified:  info.EmailVerified,
		Nickname:       nickname,
		Name:           claims.Name,
		AvatarURL:      claims.Picture,
		Birthday:       birthday,
		BirthYear:      birthYear,
		Gender:         claims.Gender,
	}, nil
}

// splitBirthdate turns an OIDC "YYYY-MM-DD" (or "0000-MM-DD") birthdate into
// the MMDD + year form used for accounts.
func splitBirthdate(s string) (mmdd string, year string) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return "", ""
	}
	if parts[0] != "0000" {
		year = parts[0]
	}
	return parts[1] + parts[2], year
}

// Revoke calls the RFC 7009 revocation endpoint when the issuer advertises one.
func (p *Provider) Revoke(ctx context.Context, accessToken string) error {
	if accessToken == "" || p.revocationURL == "" {
		return nil
	}

	form := url.Values{
		"token":           {accessToken},
		"token_type_hint": {"access_token"},
		"client_id":       {p.oauthConfig.ClientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: %w: %w", p.name, provider.ErrRevokeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.oauthConfig.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(p.oauthConfig.ClientID), url.QueryEscape(p.oauthConfig.ClientSecret))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", p.name, provider.ErrRevokeFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w: status %d", p.name, provider.ErrRevokeFailed, resp.StatusCode)
	}
	return nil
}
