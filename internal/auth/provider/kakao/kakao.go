package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"club-auth/internal/auth"
	"club-auth/internal/auth/provider"
	"club-auth/internal/logger"

	"golang.org/x/oauth2"
)

const providerName = "kakao"

// Endpoints are Kakao's public OAuth and API endpoints.
type Endpoints struct {
	AuthURL    string
	TokenURL   string
	ProfileURL string
	LogoutURL  string
}

var DefaultEndpoints = Endpoints{
	AuthURL:    "https://kauth.kakao.com/oauth/authorize",
	TokenURL:   "https://kauth.kakao.com/oauth/token",
	ProfileURL: "https://kapi.kakao.com/v2/user/me",
	LogoutURL:  "https://kapi.kakao.com/v1/user/logout",
}

var DefaultScopes = []string{
	"profile_nickname",
	"profile_image",
	"account_email",
	"name",
	"birthday",
	"gender",
	"age_range",
}

type Config struct {
	ClientID     string
	ClientSecret string // optional for Kakao
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration
	Endpoints    Endpoints
}

// Provider implements the Kakao login flow: authorization code exchange
// against kauth.kakao.com and profile lookup against kapi.kakao.com.
type Provider struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	endpoints   Endpoints
	scopes      []string
}

var _ provider.OAuthProvider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.ClientID == "" || cfg.RedirectURL == "" {
		return nil, errors.New("kakao oauth config missing required fields")
	}

	ep := cfg.Endpoints
	if ep == (Endpoints{}) {
		ep = DefaultEndpoints
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   ep.AuthURL,
				TokenURL:  ep.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: timeout},
		endpoints:  ep,
		scopes:     scopes,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the Kakao consent URL. Kakao expects comma-separated scopes.
func (p *Provider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	opts = append([]oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("scope", strings.Join(p.scopes, ",")),
	}, opts...)
	return p.oauthConfig.AuthCodeURL(state, opts...)
}

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

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := cfg.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("kakao: %w: %w", provider.ErrExchangeCodeFailed, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("kakao: %w: no access token", provider.ErrExchangeCodeFailed)
	}

	return token, nil
}

type profileResponse struct {
	ID         json.Number `json:"id"`
	Properties struct {
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"properties"`
	KakaoAccount struct {
		Email           string `json:"email"`
		IsEmailValid    *bool  `json:"is_email_valid"`
		IsEmailVerified *bool  `json:"is_email_verified"`
		Name            string `json:"name"`
		Birthday        string `json:"birthday"`
		Birthyear       string `json:"birthyear"`
		Gender          string `json:"gender"`
		AgeRange        string `json:"age_range"`
		Profile         struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func (p *Provider) FetchProfile(ctx context.Context, token *oauth2.Token) (*auth.Identity, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("kakao: %w: missing access token", provider.ErrFetchProfileFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoints.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("kakao: %w: %w", provider.ErrFetchProfileFailed, err)
	}
	token.SetAuthHeader(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kakao: %w: %w", provider.ErrFetchProfileFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("kakao: %w: read body: %w", provider.ErrFetchProfileFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kakao: %w: status %d", provider.ErrFetchProfileFailed, resp.StatusCode)
	}

	var raw profileResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("kakao: %w: decode: %w", provider.ErrFetchProfileFailed, err)
	}

	id := raw.ID.String()
	if id == "" || id == "0" {
		return nil, fmt.Errorf("kakao: %w: no user id", provider.ErrFetchProfileFailed)
	}

	identity := project(id, &raw)

	logger.Debug("kakao profile fetched", map[string]any{
		"remote_id":     identity.ProviderUserID,
		"email_present": identity.Email != "",
	})

	return identity, nil
}

func project(id string, raw *profileResponse) *auth.Identity {
	acct := raw.KakaoAccount

	nickname := raw.Properties.Nickname
	if nickname == "" {
		nickname = acct.Profile.Nickname
	}

	avatar := raw.Properties.ProfileImage
	if avatar == "" {
		avatar = acct.Profile.ProfileImageURL
	}

	email := acct.Email
	if acct.IsEmailValid != nil && !*acct.IsEmailValid {
		email = ""
	}
	if acct.IsEmailVerified != nil && !*acct.IsEmailVerified {
		email = ""
	}

	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: id,
		Email:          email,
		EmailVerified:  email != "" && acct.IsEmailVerified != nil && *acct.IsEmailVerified,
		Nickname:       nickname,
		Name:           acct.Name,
		AvatarURL:      avatar,
		Birthday:       acct.Birthday,
		BirthYear:      acct.Birthyear,
		Gender:         acct.Gender,
		AgeRange:       acct.AgeRange,
	}
}

// Revoke logs the user out of Kakao, invalidating the access token.
func (p *Provider) Revoke(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoints.LogoutURL, nil)
	if err != nil {
		return fmt.Errorf("kakao: %w: %w", provider.ErrRevokeFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kakao: %w: %w", provider.ErrRevokeFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kakao: %w: status %d", provider.ErrRevokeFailed, resp.StatusCode)
	}
	return nil
}
